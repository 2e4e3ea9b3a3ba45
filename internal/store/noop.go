package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// NoopStore satisfies Store without persisting anything. It backs the
// "none" driver so commands never need a nil check.
type NoopStore struct{}

// NewNoop returns a Store that records nothing.
func NewNoop() *NoopStore { return &NoopStore{} }

func (NoopStore) RecordJob(_ context.Context, job Job) (*Job, error) {
	j := prepareJob(job, uuid.NewString, time.Now().UTC())
	return &j, nil
}

func (NoopStore) UpdateJob(_ context.Context, job *Job) error {
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func (NoopStore) GetJob(_ context.Context, id string) (*Job, error) {
	return nil, eris.Wrapf(ErrNotFound, "noop: job %s", id)
}

func (NoopStore) ListJobs(context.Context, JobFilter) ([]Job, error) { return nil, nil }

func (NoopStore) RecordCapture(_ context.Context, c Capture) (*Capture, error) {
	cp := prepareCapture(c, uuid.NewString, time.Now().UTC())
	return &cp, nil
}

func (NoopStore) UpsertCaptures(_ context.Context, _ string, captures []Capture) (int64, error) {
	return int64(len(captures)), nil
}

func (NoopStore) ListCaptures(context.Context, string) ([]Capture, error) { return nil, nil }

func (NoopStore) Migrate(context.Context) error { return nil }

func (NoopStore) Close() error { return nil }
