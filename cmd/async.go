package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/snapapi-go/internal/store"
	"github.com/sells-group/snapapi-go/pkg/snapapi"
)

var asyncCmd = &cobra.Command{
	Use:   "async",
	Short: "Submit and track asynchronous screenshots",
}

var (
	asyncShotFlags screenshotFlags
	asyncWait      bool
)

var asyncSubmitCmd = &cobra.Command{
	Use:   "submit [url]",
	Short: "Queue a screenshot and print its job id",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		opts := asyncShotFlags.options()
		target, err := asyncShotFlags.source(&opts, args, cmd.InOrStdin())
		if err != nil {
			return err
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		job, err := runAsyncSubmit(ctx, env, target, opts)
		if err != nil || !asyncWait {
			return err
		}
		return runAsyncWait(ctx, env, job.JobID, target, pollOptions(cfg, logProgress(job.JobID)))
	},
}

func runAsyncSubmit(ctx context.Context, env *cliEnv, target string, opts snapapi.ScreenshotOptions) (*snapapi.AsyncJob, error) {
	job, err := env.Client.ScreenshotAsync(ctx, opts)
	if err != nil {
		return nil, eris.Wrap(err, "async submit")
	}
	if _, err := env.Recorder.Submitted(ctx, store.KindAsync, job.JobID, job.Status, target, 1); err != nil {
		zap.L().Warn("record async job", zap.String("job_id", job.JobID), zap.Error(err))
	}
	_, err = fmt.Fprintln(env.Out, job.JobID)
	return job, err
}

var asyncStatusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Fetch the state of an async screenshot and update the ledger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		st, err := env.Client.GetAsyncStatus(ctx, args[0])
		if err != nil {
			return eris.Wrapf(err, "async status %s", args[0])
		}
		if _, err := env.Recorder.ApplyAsync(ctx, st, ""); err != nil {
			return err
		}
		return printAsync(env, st)
	},
}

var asyncWaitCmd = &cobra.Command{
	Use:   "wait <job-id>",
	Short: "Poll an async screenshot until it finishes, then store it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		return runAsyncWait(ctx, env, args[0], "", pollOptions(cfg, logProgress(args[0])))
	},
}

// runAsyncWait polls jobID to completion and records the outcome. target
// labels the capture when the ledger does not know the job yet.
func runAsyncWait(ctx context.Context, env *cliEnv, jobID, target string, opts []snapapi.PollOption) error {
	st, err := snapapi.PollAsync(ctx, env.Client, jobID, opts...)
	if st != nil {
		if _, aerr := env.Recorder.ApplyAsync(ctx, st, target); aerr != nil {
			return aerr
		}
		if perr := printAsync(env, st); perr != nil {
			return perr
		}
	}
	if err != nil {
		if errors.Is(err, snapapi.ErrJobFailed) {
			return eris.Errorf("async job %s failed: %s", jobID, st.Error)
		}
		return eris.Wrapf(err, "async wait %s", jobID)
	}
	return nil
}

// printAsync prints the job state without the inline image data.
func printAsync(env *cliEnv, st *snapapi.AsyncStatus) error {
	view := *st
	if view.Result != nil {
		res := *view.Result
		res.Data = ""
		view.Result = &res
	}
	return printJSON(env.Out, view)
}

func init() {
	asyncShotFlags.register(asyncSubmitCmd)
	asyncSubmitCmd.Flags().BoolVar(&asyncWait, "wait", false, "poll until the screenshot is ready and store it")

	asyncCmd.AddCommand(asyncSubmitCmd)
	asyncCmd.AddCommand(asyncStatusCmd)
	asyncCmd.AddCommand(asyncWaitCmd)
	rootCmd.AddCommand(asyncCmd)
}
