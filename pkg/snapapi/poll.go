package snapapi

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultPollInitial = 2 * time.Second
	defaultPollCap     = 15 * time.Second
	defaultPollTimeout = 5 * time.Minute
)

// PollOption configures polling behavior.
type PollOption func(*pollConfig)

type pollConfig struct {
	initial  time.Duration
	cap      time.Duration
	timeout  time.Duration
	onStatus func(status string)
}

func defaultPollConfig() pollConfig {
	return pollConfig{
		initial: defaultPollInitial,
		cap:     defaultPollCap,
		timeout: defaultPollTimeout,
	}
}

// WithPollInterval overrides the initial poll interval.
func WithPollInterval(d time.Duration) PollOption {
	return func(c *pollConfig) {
		c.initial = d
	}
}

// WithPollCap overrides the maximum poll interval.
func WithPollCap(d time.Duration) PollOption {
	return func(c *pollConfig) {
		c.cap = d
	}
}

// WithPollTimeout overrides the default timeout (applied only if the parent
// context has no deadline).
func WithPollTimeout(d time.Duration) PollOption {
	return func(c *pollConfig) {
		c.timeout = d
	}
}

// WithPollProgress calls fn with the job status after every check.
func WithPollProgress(fn func(status string)) PollOption {
	return func(c *pollConfig) {
		c.onStatus = fn
	}
}

// PollBatch polls GetBatchStatus until the batch completes, fails, or the
// context expires. A failed batch is returned together with ErrJobFailed so
// callers can still inspect per-URL results.
func PollBatch(ctx context.Context, client Client, jobID string, opts ...PollOption) (*BatchResult, error) {
	return poll(ctx, "batch", jobID, opts, func(ctx context.Context) (*BatchResult, string, error) {
		res, err := client.GetBatchStatus(ctx, jobID)
		if err != nil {
			return nil, "", err
		}
		return res, res.Status, nil
	})
}

// PollAsync polls GetAsyncStatus until the screenshot job completes, fails,
// or the context expires.
func PollAsync(ctx context.Context, client Client, jobID string, opts ...PollOption) (*AsyncStatus, error) {
	return poll(ctx, "async screenshot", jobID, opts, func(ctx context.Context) (*AsyncStatus, string, error) {
		res, err := client.GetAsyncStatus(ctx, jobID)
		if err != nil {
			return nil, "", err
		}
		return res, res.Status, nil
	})
}

// poll uses exponential backoff: 2s -> 4s -> 8s -> 15s (capped).
func poll[T any](ctx context.Context, kind, jobID string, opts []PollOption, check func(context.Context) (*T, string, error)) (*T, error) {
	cfg := defaultPollConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	interval := cfg.initial
	for {
		res, status, err := check(ctx)
		if err != nil {
			return nil, eris.Wrap(err, fmt.Sprintf("snapapi: poll %s %s", kind, jobID))
		}
		if cfg.onStatus != nil {
			cfg.onStatus(status)
		}

		switch status {
		case StatusCompleted:
			return res, nil
		case StatusFailed:
			return res, eris.Wrap(ErrJobFailed, fmt.Sprintf("%s %s", kind, jobID))
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, eris.Wrap(ctx.Err(), fmt.Sprintf("snapapi: poll %s %s timed out", kind, jobID))
		case <-timer.C:
		}

		interval *= 2
		if interval > cfg.cap {
			interval = cfg.cap
		}
	}
}
