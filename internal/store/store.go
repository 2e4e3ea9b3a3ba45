// Package store is the local ledger of SnapAPI jobs and the captures they produced.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/snapapi-go/internal/config"
)

// ErrNotFound is returned when a job lookup matches nothing.
var ErrNotFound = eris.New("store: not found")

// JobKind names the SnapAPI operation a job records.
type JobKind string

// Job kinds.
const (
	KindScreenshot JobKind = "screenshot"
	KindPDF        JobKind = "pdf"
	KindVideo      JobKind = "video"
	KindExtract    JobKind = "extract"
	KindAnalyze    JobKind = "analyze"
	KindBatch      JobKind = "batch"
	KindAsync      JobKind = "async"
	KindCapture    JobKind = "capture"
)

// Job and capture statuses. They mirror the server's job states.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Job is one CLI invocation against the API. RemoteID holds the server's
// job ID for batch and async jobs.
type Job struct {
	ID        string    `json:"id"`
	Kind      JobKind   `json:"kind"`
	RemoteID  string    `json:"remote_id,omitempty"`
	Status    string    `json:"status"`
	Target    string    `json:"target,omitempty"`
	Total     int       `json:"total"`
	Completed int       `json:"completed"`
	Failed    int       `json:"failed"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Capture is one stored artifact (or failed attempt) belonging to a job.
// Captures are unique per (JobID, URL).
type Capture struct {
	ID          string    `json:"id"`
	JobID       string    `json:"job_id"`
	URL         string    `json:"url"`
	Status      string    `json:"status"`
	Location    string    `json:"location,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	Bytes       int64     `json:"bytes"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// JobFilter specifies criteria for listing jobs.
type JobFilter struct {
	Kind   JobKind `json:"kind,omitempty"`
	Status string  `json:"status,omitempty"`
	Limit  int     `json:"limit,omitempty"`
	Offset int     `json:"offset,omitempty"`
}

// Store defines the persistence interface for the job ledger.
type Store interface {
	// Jobs
	RecordJob(ctx context.Context, job Job) (*Job, error)
	UpdateJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, id string) (*Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]Job, error)

	// Captures
	RecordCapture(ctx context.Context, c Capture) (*Capture, error)
	UpsertCaptures(ctx context.Context, jobID string, captures []Capture) (int64, error)
	ListCaptures(ctx context.Context, jobID string) ([]Capture, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open builds the store named by cfg.Driver and migrates it.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "sqlite":
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = "snapapi.db"
		}
		s, err = NewSQLite(dsn)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DatabaseURL, nil)
	case "none", "":
		return NewNoop(), nil
	default:
		return nil, eris.Errorf("store: unsupported driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := s.Migrate(ctx); err != nil {
		s.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}

func listLimit(filter JobFilter) int {
	if filter.Limit <= 0 {
		return 100
	}
	return filter.Limit
}

func prepareJob(job Job, newID func() string, now time.Time) Job {
	if job.ID == "" {
		job.ID = newID()
	}
	if job.Status == "" {
		job.Status = StatusPending
	}
	job.CreatedAt = now
	job.UpdatedAt = now
	return job
}

func prepareCapture(c Capture, newID func() string, now time.Time) Capture {
	if c.ID == "" {
		c.ID = newID()
	}
	if c.Status == "" {
		c.Status = StatusCompleted
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	return c
}
