package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/snapapi-go/internal/store"
	"github.com/sells-group/snapapi-go/internal/urllist"
	"github.com/sells-group/snapapi-go/pkg/snapapi"
)

// listFlags selects the URLs a multi-URL command works on.
type listFlags struct {
	file    string
	format  string
	column  string
	sheet   string
	charset string
	limit   int
}

func (f *listFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.file, "file", "", "read URLs from a file, http(s) URL or - for stdin (txt, csv, tsv, xlsx, json, yaml, sitemap xml)")
	fl.StringVar(&f.format, "input-format", "", "force the input format instead of guessing from the name")
	fl.StringVar(&f.column, "column", "", "CSV/XLSX column holding URLs (header name or 0-based index)")
	fl.StringVar(&f.sheet, "sheet", "", "XLSX sheet name (default first sheet)")
	fl.StringVar(&f.charset, "charset", "", "input charset, e.g. windows-1252")
	fl.IntVar(&f.limit, "limit", 0, "max number of URLs to read (0 = all)")
}

// urls merges positional URLs with those read from --file.
func (f *listFlags) urls(ctx context.Context, args []string) ([]string, error) {
	urls := append([]string(nil), args...)
	if f.file != "" {
		read, err := urllist.Read(ctx, f.file, urllist.Options{
			Column:  f.column,
			Sheet:   f.sheet,
			Charset: f.charset,
			Limit:   f.limit,
			Format:  urllist.Format(f.format),
		})
		if err != nil {
			return nil, eris.Wrap(err, "read url list")
		}
		urls = append(urls, read...)
	}
	if len(urls) == 0 {
		return nil, eris.New("no URLs given: pass them as arguments or with --file")
	}
	return urls, nil
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Submit and track server-side batch screenshot jobs",
}

// -- batch submit --

var (
	batchList  listFlags
	batchFlags struct {
		format     string
		width      int
		height     int
		fullPage   bool
		darkMode   bool
		blockAds   bool
		webhookURL string
		wait       bool
	}
)

var batchSubmitCmd = &cobra.Command{
	Use:   "submit [url...]",
	Short: "Submit up to 100 URLs as one batch job",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		urls, err := batchList.urls(ctx, args)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		opts := snapapi.BatchOptions{
			URLs:       urls,
			Format:     snapapi.Format(batchFlags.format),
			Width:      batchFlags.width,
			Height:     batchFlags.height,
			FullPage:   batchFlags.fullPage,
			DarkMode:   batchFlags.darkMode,
			BlockAds:   batchFlags.blockAds,
			WebhookURL: batchFlags.webhookURL,
		}
		res, err := runBatchSubmit(ctx, env, opts)
		if err != nil || !batchFlags.wait {
			return err
		}
		return runBatchWait(ctx, env, res.JobID, pollOptions(cfg, logProgress(res.JobID)))
	},
}

func runBatchSubmit(ctx context.Context, env *cliEnv, opts snapapi.BatchOptions) (*snapapi.BatchResult, error) {
	res, err := env.Client.Batch(ctx, opts)
	if err != nil {
		return nil, eris.Wrap(err, "batch submit")
	}

	target := fmt.Sprintf("%d urls", len(opts.URLs))
	if _, err := env.Recorder.Submitted(ctx, store.KindBatch, res.JobID, res.Status, target, len(opts.URLs)); err != nil {
		zap.L().Warn("record batch job", zap.String("job_id", res.JobID), zap.Error(err))
	}

	zap.L().Info("batch submitted", zap.String("job_id", res.JobID), zap.Int("urls", len(opts.URLs)))
	_, err = fmt.Fprintln(env.Out, res.JobID)
	return res, err
}

// -- batch status --

var batchStatusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Fetch the current state of a batch job and update the ledger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		return runBatchStatus(ctx, env, args[0])
	},
}

func runBatchStatus(ctx context.Context, env *cliEnv, jobID string) error {
	res, err := env.Client.GetBatchStatus(ctx, jobID)
	if err != nil {
		return eris.Wrapf(err, "batch status %s", jobID)
	}
	if _, _, err := env.Recorder.ApplyBatch(ctx, res); err != nil {
		return err
	}
	formatBatch(env.Out, res)
	return nil
}

// -- batch wait --

var batchWaitCmd = &cobra.Command{
	Use:   "wait <job-id>",
	Short: "Poll a batch job until it finishes, then store its captures",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		return runBatchWait(ctx, env, args[0], pollOptions(cfg, logProgress(args[0])))
	},
}

func runBatchWait(ctx context.Context, env *cliEnv, jobID string, opts []snapapi.PollOption) error {
	res, err := snapapi.PollBatch(ctx, env.Client, jobID, opts...)
	if res != nil {
		// A failed batch still carries per-URL results worth keeping.
		if _, _, aerr := env.Recorder.ApplyBatch(ctx, res); aerr != nil {
			return aerr
		}
		formatBatch(env.Out, res)
	}
	if err != nil {
		if errors.Is(err, snapapi.ErrJobFailed) {
			return eris.Errorf("batch %s failed", jobID)
		}
		return eris.Wrapf(err, "batch wait %s", jobID)
	}
	return nil
}

func logProgress(jobID string) func(string) {
	return func(status string) {
		zap.L().Info("job status", zap.String("job_id", jobID), zap.String("status", status))
	}
}

// formatBatch writes a summary line and one row per URL.
func formatBatch(out io.Writer, res *snapapi.BatchResult) {
	completed, failed := 0, 0
	if res.Completed != nil {
		completed = *res.Completed
	}
	if res.Failed != nil {
		failed = *res.Failed
	}
	_, _ = fmt.Fprintf(out, "job %s: %s (%d/%d completed, %d failed)\n", res.JobID, res.Status, completed, res.Total, failed)
	if len(res.Results) == 0 {
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "URL\tSTATUS\tERROR")
	for _, item := range res.Results {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", item.URL, item.Status, item.Error)
	}
	_ = w.Flush()
}

func init() {
	batchList.register(batchSubmitCmd)
	f := batchSubmitCmd.Flags()
	f.StringVar(&batchFlags.format, "format", "png", "image format (png, jpeg, webp, avif, pdf)")
	f.IntVar(&batchFlags.width, "width", snapapi.DefaultWidth, "viewport width")
	f.IntVar(&batchFlags.height, "height", snapapi.DefaultHeight, "viewport height")
	f.BoolVar(&batchFlags.fullPage, "full-page", false, "capture full pages")
	f.BoolVar(&batchFlags.darkMode, "dark-mode", false, "emulate prefers-color-scheme: dark")
	f.BoolVar(&batchFlags.blockAds, "block-ads", false, "block ads")
	f.StringVar(&batchFlags.webhookURL, "webhook-url", "", "URL SnapAPI calls when the batch completes (see `snapapi serve`)")
	f.BoolVar(&batchFlags.wait, "wait", false, "poll until the batch finishes and store its captures")

	batchCmd.AddCommand(batchSubmitCmd)
	batchCmd.AddCommand(batchStatusCmd)
	batchCmd.AddCommand(batchWaitCmd)
	rootCmd.AddCommand(batchCmd)
}
