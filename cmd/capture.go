package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/snapapi-go/internal/ledger"
	"github.com/sells-group/snapapi-go/internal/resilience"
	"github.com/sells-group/snapapi-go/internal/store"
	"github.com/sells-group/snapapi-go/pkg/snapapi"
)

var (
	captureList        listFlags
	captureShot        screenshotFlags
	captureConcurrency int
)

var captureCmd = &cobra.Command{
	Use:   "capture [url...]",
	Short: "Screenshot many URLs concurrently from this machine",
	Long:  "Reads URLs from arguments and/or --file, captures each one with the screenshot endpoint and stores the results. Unlike `batch`, no server-side job is created and there is no 100 URL limit.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		urls, err := captureList.urls(ctx, args)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		concurrency := captureConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.MaxConcurrent
		}
		target := strings.Join(args, " ")
		if captureList.file != "" {
			target = captureList.file
		}

		sum, err := captureURLs(ctx, env, target, urls, captureShot.options(), concurrency)
		if err != nil {
			return err
		}
		if sum.Failed > 0 {
			return eris.Errorf("%d of %d captures failed", sum.Failed, sum.Total)
		}
		return nil
	},
}

// captureSummary reports the outcome of a fan-out run.
type captureSummary struct {
	JobID     string
	Total     int
	Succeeded int
	Failed    int
	// OpenCircuits names the endpoint families whose breaker was open when
	// the run ended.
	OpenCircuits []string
}

// captureURLs screenshots every URL with at most concurrency requests in
// flight. Individual failures are recorded and counted; they do not stop
// the run.
func captureURLs(ctx context.Context, env *cliEnv, target string, urls []string, base snapapi.ScreenshotOptions, concurrency int) (*captureSummary, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	job, err := env.Recorder.Start(ctx, store.KindCapture, target, len(urls))
	if err != nil {
		return nil, err
	}

	zap.L().Info("capturing urls",
		zap.String("job_id", job.ID),
		zap.Int("urls", len(urls)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64
	contentType := contentTypeFor(string(base.Format))

	for _, u := range urls {
		u := u
		g.Go(func() error {
			log := zap.L().With(zap.String("url", u))

			opts := base
			opts.URL, opts.HTML, opts.Markdown = u, "", ""
			data, err := snapapi.ScreenshotBytes(gctx, env.Client, opts)
			if err != nil {
				failed.Add(1)
				log.Error("capture failed", zap.String("class", resilience.Classify(err)), zap.Error(err))
				if _, rerr := env.Recorder.Fail(gctx, job.ID, u, err); rerr != nil {
					log.Warn("record failed capture", zap.Error(rerr))
				}
				return nil // don't abort the run on individual failure
			}

			c, err := env.Recorder.Store(gctx, job.ID, ledger.Artifact{URL: u, Data: data, ContentType: contentType})
			if err != nil {
				failed.Add(1)
				log.Error("store capture failed", zap.Error(err))
				return nil
			}
			succeeded.Add(1)
			log.Info("capture saved", zap.String("location", c.Location), zap.Int64("bytes", c.Bytes))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "capture")
	}

	sum := &captureSummary{
		JobID:     job.ID,
		Total:     len(urls),
		Succeeded: int(succeeded.Load()),
		Failed:    int(failed.Load()),
	}

	for group, state := range snapapi.CircuitStates(env.Client) {
		if state != "closed" {
			sum.OpenCircuits = append(sum.OpenCircuits, group)
			zap.L().Warn("circuit not closed after capture", zap.String("endpoint", group), zap.String("state", state))
		}
	}

	var cause error
	if ctx.Err() != nil {
		cause = ctx.Err()
	}
	if err := env.Recorder.Finish(context.WithoutCancel(ctx), job, sum.Succeeded, sum.Failed, cause); err != nil {
		zap.L().Warn("finish capture job", zap.String("job_id", job.ID), zap.Error(err))
	}

	zap.L().Info("capture complete",
		zap.String("job_id", job.ID),
		zap.Int("succeeded", sum.Succeeded),
		zap.Int("failed", sum.Failed),
	)
	_, err = fmt.Fprintf(env.Out, "job %s: %d/%d captured, %d failed\n", job.ID, sum.Succeeded, sum.Total, sum.Failed)
	return sum, err
}

func init() {
	captureList.register(captureCmd)
	captureShot.register(captureCmd)
	captureCmd.Flags().IntVar(&captureConcurrency, "concurrency", 0, "max captures in flight (default batch.max_concurrent)")
	rootCmd.AddCommand(captureCmd)
}
