package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/snapapi-go/internal/config"
	"github.com/sells-group/snapapi-go/internal/ledger"
	"github.com/sells-group/snapapi-go/internal/storage"
	"github.com/sells-group/snapapi-go/internal/store"
	"github.com/sells-group/snapapi-go/pkg/snapapi"
)

var (
	cfg     *config.Config
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "snapapi",
	Short: "Capture screenshots, PDFs, videos and page content with SnapAPI",
	Long:  "Command-line client for the SnapAPI web capture service. Captures are written to a local directory or S3 and tracked in a job ledger.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.LoadFile(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./snapapi.yaml or ~/.config/snapapi/snapapi.yaml)")
}

// newClient builds the SDK client from config. Tests replace it.
var newClient = func(c *config.Config) (snapapi.Client, error) {
	if err := c.Validate(config.ModeAPI); err != nil {
		return nil, err
	}
	return snapapi.NewClient(c.API.Key, clientOptions(c)...)
}

func clientOptions(c *config.Config) []snapapi.Option {
	opts := []snapapi.Option{
		snapapi.WithBaseURL(c.API.BaseURL),
		snapapi.WithTimeout(c.API.Timeout()),
		snapapi.WithLogger(zap.L().Named("snapapi")),
	}
	if c.API.UserAgent != "" {
		opts = append(opts, snapapi.WithUserAgent(c.API.UserAgent))
	}
	if c.Retry.MaxAttempts > 0 {
		opts = append(opts, snapapi.WithRetry(
			c.Retry.MaxAttempts,
			time.Duration(c.Retry.InitialBackoffMs)*time.Millisecond,
			time.Duration(c.Retry.MaxBackoffMs)*time.Millisecond,
		), snapapi.WithBackoff(c.Retry.Multiplier, c.Retry.JitterFraction))
	}
	if c.Circuit.FailureThreshold > 0 {
		opts = append(opts, snapapi.WithCircuitBreaker(
			c.Circuit.FailureThreshold,
			time.Duration(c.Circuit.ResetTimeoutSecs)*time.Second,
		))
	}
	if c.API.RateLimit > 0 {
		opts = append(opts, snapapi.WithRateLimit(c.API.RateLimit, c.API.RateBurst))
	}
	return opts
}

// pollOptions maps the poll config section onto the SDK poll helpers.
func pollOptions(c *config.Config, progress func(string)) []snapapi.PollOption {
	var opts []snapapi.PollOption
	if c.Poll.InitialMs > 0 {
		opts = append(opts, snapapi.WithPollInterval(time.Duration(c.Poll.InitialMs)*time.Millisecond))
	}
	if c.Poll.CapMs > 0 {
		opts = append(opts, snapapi.WithPollCap(time.Duration(c.Poll.CapMs)*time.Millisecond))
	}
	if c.Poll.TimeoutSecs > 0 {
		opts = append(opts, snapapi.WithPollTimeout(time.Duration(c.Poll.TimeoutSecs)*time.Second))
	}
	if progress != nil {
		opts = append(opts, snapapi.WithPollProgress(progress))
	}
	return opts
}

func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg.Store)
}

func initStorage(ctx context.Context) (storage.Storage, error) {
	return storage.New(ctx, storage.Config{
		Dir:      cfg.Output.Dir,
		Bucket:   cfg.Output.S3Bucket,
		S3Prefix: cfg.Output.S3Prefix,
	})
}

// cliEnv holds everything a capture command needs.
type cliEnv struct {
	Client   snapapi.Client
	Store    store.Store
	Recorder *ledger.Recorder
	Out      io.Writer
}

// Close releases the ledger.
func (e *cliEnv) Close() {
	if e.Store != nil {
		e.Store.Close() //nolint:errcheck
	}
}

func initEnv(ctx context.Context) (*cliEnv, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}

	blobs, err := initStorage(ctx)
	if err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "init storage")
	}

	return &cliEnv{
		Client:   client,
		Store:    st,
		Recorder: ledger.New(st, blobs, zap.L()),
		Out:      os.Stdout,
	}, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
