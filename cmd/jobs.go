package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/snapapi-go/internal/config"
	"github.com/sells-group/snapapi-go/internal/ledger"
	"github.com/sells-group/snapapi-go/internal/store"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect the local job ledger",
}

// -- jobs list --

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded jobs, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openLedger(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		kind, _ := cmd.Flags().GetString("kind")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		jobs, err := st.ListJobs(ctx, store.JobFilter{
			Kind:   store.JobKind(kind),
			Status: status,
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "jobs list")
		}
		if len(jobs) == 0 {
			fmt.Fprintln(os.Stderr, "No jobs found.") //nolint:errcheck
			return nil
		}

		formatJobsList(os.Stdout, jobs)
		return nil
	},
}

// -- jobs show --

var jobsShowCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Show a job and its captures (accepts the local or the server job id)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openLedger(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		job, err := st.GetJob(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "jobs show")
		}
		captures, err := st.ListCaptures(ctx, job.ID)
		if err != nil {
			return eris.Wrap(err, "jobs show")
		}
		if captures == nil {
			captures = []store.Capture{}
		}
		return printJSON(os.Stdout, map[string]any{"job": job, "captures": captures})
	},
}

// -- jobs fetch --

var jobsFetchCmd = &cobra.Command{
	Use:   "fetch <job-id>",
	Short: "Write a stored capture of a job to a file or stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openLedger(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		blobs, err := initStorage(ctx)
		if err != nil {
			return eris.Wrap(err, "init storage")
		}

		url, _ := cmd.Flags().GetString("url")
		out, _ := cmd.Flags().GetString("out")
		return runFetch(ctx, ledger.New(st, blobs, zap.L()), args[0], url, out, os.Stdout)
	},
}

// runFetch copies a stored capture to outPath, or to w when outPath is empty.
func runFetch(ctx context.Context, rec *ledger.Recorder, jobID, url, outPath string, w io.Writer) error {
	c, data, err := rec.Fetch(ctx, jobID, url)
	if err != nil {
		return eris.Wrap(err, "jobs fetch")
	}
	if outPath == "" {
		_, err = w.Write(data)
		return eris.Wrap(err, "jobs fetch: write")
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return eris.Wrapf(err, "jobs fetch: write %s", outPath)
	}
	zap.L().Info("capture fetched",
		zap.String("url", c.URL),
		zap.String("from", c.Location),
		zap.String("to", outPath),
		zap.Int("bytes", len(data)),
	)
	return nil
}

// -- jobs stats --

var jobsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate job statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openLedger(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		since, _ := cmd.Flags().GetDuration("since")
		kind, _ := cmd.Flags().GetString("kind")

		jobs, err := st.ListJobs(ctx, store.JobFilter{Kind: store.JobKind(kind), Limit: 10000})
		if err != nil {
			return eris.Wrap(err, "jobs stats")
		}

		var cutoff time.Time
		if since > 0 {
			cutoff = time.Now().Add(-since)
		}
		formatJobStats(os.Stdout, computeJobStats(jobs, cutoff))
		return nil
	},
}

// jobStats holds aggregate statistics computed from a set of jobs.
type jobStats struct {
	Total      int
	Completed  int
	Failed     int
	Pending    int
	Captures   int
	CapFailed  int
	AvgDurSecs float64
}

// computeJobStats aggregates jobs created at or after cutoff.
func computeJobStats(jobs []store.Job, cutoff time.Time) jobStats {
	var s jobStats

	var totalDur time.Duration
	var durCount int

	for _, j := range jobs {
		if j.CreatedAt.Before(cutoff) {
			continue
		}
		s.Total++
		s.Captures += j.Completed
		s.CapFailed += j.Failed
		switch j.Status {
		case store.StatusCompleted:
			s.Completed++
			totalDur += j.UpdatedAt.Sub(j.CreatedAt)
			durCount++
		case store.StatusFailed:
			s.Failed++
		default:
			s.Pending++
		}
	}

	if durCount > 0 {
		s.AvgDurSecs = totalDur.Seconds() / float64(durCount)
	}
	return s
}

// formatJobStats writes job statistics to out.
func formatJobStats(out io.Writer, s jobStats) {
	_, _ = fmt.Fprintf(out, "Jobs:      %d\n", s.Total)
	_, _ = fmt.Fprintf(out, "Completed: %d\n", s.Completed)
	_, _ = fmt.Fprintf(out, "Failed:    %d\n", s.Failed)
	_, _ = fmt.Fprintf(out, "Pending:   %d\n", s.Pending)
	_, _ = fmt.Fprintf(out, "Captures:  %d ok, %d failed\n", s.Captures, s.CapFailed)
	if s.Total > 0 {
		_, _ = fmt.Fprintf(out, "Success:   %.1f%%\n", float64(s.Completed)/float64(s.Total)*100)
	}
	if s.AvgDurSecs > 0 {
		_, _ = fmt.Fprintf(out, "Avg time:  %.1fs\n", s.AvgDurSecs)
	}
}

func openLedger(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate(config.ModeLocal); err != nil {
		return nil, err
	}
	return initStore(ctx)
}

// formatJobsList writes a tabular list of jobs to out.
func formatJobsList(out io.Writer, jobs []store.Job) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tKIND\tSTATUS\tDONE\tTARGET\tCREATED")
	for _, j := range jobs {
		id := j.ID
		if len(id) > 8 {
			id = id[:8]
		}
		target := j.Target
		if len(target) > 50 {
			target = target[:47] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%s\t%s\n",
			id, j.Kind, j.Status, j.Completed, j.Total, target, j.CreatedAt.Format("2006-01-02 15:04"))
	}
	_ = w.Flush()
}

func init() {
	jobsListCmd.Flags().String("kind", "", "filter by kind (screenshot, pdf, video, extract, analyze, batch, async, capture)")
	jobsListCmd.Flags().String("status", "", "filter by status (pending, processing, completed, failed)")
	jobsListCmd.Flags().Int("limit", 50, "max number of jobs to display")

	jobsFetchCmd.Flags().String("url", "", "capture to fetch (default: the first completed one)")
	jobsFetchCmd.Flags().StringP("out", "o", "", "output file (default: stdout)")

	jobsStatsCmd.Flags().Duration("since", 24*time.Hour, "time window for stats (0 = all time)")
	jobsStatsCmd.Flags().String("kind", "", "only count jobs of this kind")

	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsShowCmd)
	jobsCmd.AddCommand(jobsFetchCmd)
	jobsCmd.AddCommand(jobsStatsCmd)
	rootCmd.AddCommand(jobsCmd)
}
