// Package ledger persists SnapAPI results: media goes to blob storage and the
// job/capture bookkeeping goes to the store.
package ledger

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/snapapi-go/internal/storage"
	"github.com/sells-group/snapapi-go/internal/store"
	"github.com/sells-group/snapapi-go/pkg/snapapi"
)

// ErrNoStorage is returned when media must be written but no blob storage
// was configured.
var ErrNoStorage = eris.New("ledger: no blob storage configured")

// Artifact is one piece of captured media.
type Artifact struct {
	// URL is the captured page, or a label for html/markdown sources.
	URL string
	// Key overrides the storage key derived from URL.
	Key         string
	Data        []byte
	ContentType string
}

// Recorder writes artifacts and keeps the ledger in step with them.
type Recorder struct {
	store  store.Store
	blobs  storage.Storage
	logger *zap.Logger

	// Now stamps storage keys. Defaults to time.Now.
	Now func() time.Time
}

// New builds a Recorder. blobs may be nil for receivers that only track
// status; Store then fails with ErrNoStorage.
func New(st store.Store, blobs storage.Storage, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{store: st, blobs: blobs, logger: logger, Now: time.Now}
}

// Start records a new processing job.
func (r *Recorder) Start(ctx context.Context, kind store.JobKind, target string, total int) (*store.Job, error) {
	job, err := r.store.RecordJob(ctx, store.Job{
		Kind:   kind,
		Status: store.StatusProcessing,
		Target: target,
		Total:  total,
	})
	return job, eris.Wrap(err, "ledger: start job")
}

// Store writes a.Data to blob storage and records a completed capture under
// jobID. When the write fails a failed capture is recorded instead and the
// write error returned.
func (r *Recorder) Store(ctx context.Context, jobID string, a Artifact) (*store.Capture, error) {
	if r.blobs == nil {
		return nil, ErrNoStorage
	}
	contentType := a.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(a.Data)
	}
	key := a.Key
	if key == "" {
		key = storage.KeyFor(a.URL, storage.ExtFor(contentType), r.Now())
	}

	loc, err := r.blobs.Put(ctx, key, a.Data, contentType)
	if err != nil {
		putErr := eris.Wrapf(err, "ledger: store %s", key)
		if _, ferr := r.Fail(ctx, jobID, a.URL, putErr); ferr != nil {
			r.logger.Warn("record failed capture", zap.String("url", a.URL), zap.Error(ferr))
		}
		return nil, putErr
	}

	c, err := r.store.RecordCapture(ctx, store.Capture{
		JobID:       jobID,
		URL:         a.URL,
		Status:      store.StatusCompleted,
		Location:    loc,
		ContentType: contentType,
		Bytes:       int64(len(a.Data)),
	})
	if err != nil {
		return nil, eris.Wrap(err, "ledger: record capture")
	}
	return c, nil
}

// Fail records a failed capture of url under jobID.
func (r *Recorder) Fail(ctx context.Context, jobID, url string, cause error) (*store.Capture, error) {
	c := store.Capture{JobID: jobID, URL: url, Status: store.StatusFailed}
	if cause != nil {
		c.Error = cause.Error()
	}
	got, err := r.store.RecordCapture(ctx, c)
	return got, eris.Wrap(err, "ledger: record failed capture")
}

// Finish closes job with the given counts. The job fails when cause is set
// or when nothing completed.
func (r *Recorder) Finish(ctx context.Context, job *store.Job, completed, failed int, cause error) error {
	job.Completed = completed
	job.Failed = failed
	job.Status = store.StatusCompleted
	if cause != nil {
		job.Status = store.StatusFailed
		job.Error = cause.Error()
	} else if completed == 0 && failed > 0 {
		job.Status = store.StatusFailed
	}
	return eris.Wrap(r.store.UpdateJob(ctx, job), "ledger: finish job")
}

// SaveOne records a single-artifact job of kind, e.g. one screenshot.
func (r *Recorder) SaveOne(ctx context.Context, kind store.JobKind, a Artifact) (*store.Capture, error) {
	job, err := r.Start(ctx, kind, a.URL, 1)
	if err != nil {
		return nil, err
	}
	c, err := r.Store(ctx, job.ID, a)
	if err != nil {
		if ferr := r.Finish(ctx, job, 0, 1, err); ferr != nil {
			r.logger.Warn("finish job", zap.String("job_id", job.ID), zap.Error(ferr))
		}
		return nil, err
	}
	return c, r.Finish(ctx, job, 1, 0, nil)
}

// RecordFailure records a job of kind that failed before producing anything.
func (r *Recorder) RecordFailure(ctx context.Context, kind store.JobKind, target string, cause error) {
	job, err := r.Start(ctx, kind, target, 1)
	if err == nil {
		err = r.Finish(ctx, job, 0, 1, cause)
	}
	if err != nil {
		r.logger.Warn("record failed job", zap.String("target", target), zap.Error(err))
	}
}

// Submitted records a server-side job (batch or async) right after submit.
func (r *Recorder) Submitted(ctx context.Context, kind store.JobKind, remoteID, status, target string, total int) (*store.Job, error) {
	if status == "" {
		status = store.StatusPending
	}
	job, err := r.store.RecordJob(ctx, store.Job{
		Kind:     kind,
		RemoteID: remoteID,
		Status:   status,
		Target:   target,
		Total:    total,
	})
	return job, eris.Wrap(err, "ledger: record submitted job")
}

// jobFor returns the ledger job tracking remoteID, creating it when the job
// was submitted elsewhere.
func (r *Recorder) jobFor(ctx context.Context, kind store.JobKind, remoteID, status string, total int) (*store.Job, error) {
	job, err := r.store.GetJob(ctx, remoteID)
	if errors.Is(err, store.ErrNotFound) {
		return r.Submitted(ctx, kind, remoteID, status, "", total)
	}
	return job, err
}

// ApplyBatch updates (or creates) the ledger job for a batch status and
// upserts one capture per result item. Inline image data is written to
// blob storage when one is configured; items already stored for the job are
// not written again, so repeated polls and deliveries leave one blob per URL.
func (r *Recorder) ApplyBatch(ctx context.Context, res *snapapi.BatchResult) (*store.Job, int64, error) {
	job, err := r.jobFor(ctx, store.KindBatch, res.JobID, res.Status, res.Total)
	if err != nil {
		return nil, 0, eris.Wrap(err, "ledger: load batch job")
	}

	job.Status = res.Status
	if res.Total > 0 {
		job.Total = res.Total
	}
	if res.Completed != nil {
		job.Completed = *res.Completed
	}
	if res.Failed != nil {
		job.Failed = *res.Failed
	}
	if err := r.store.UpdateJob(ctx, job); err != nil {
		return nil, 0, eris.Wrap(err, "ledger: update batch job")
	}

	stored, err := r.storedCaptures(ctx, job.ID)
	if err != nil {
		return nil, 0, err
	}

	captures := make([]store.Capture, 0, len(res.Results))
	for _, item := range res.Results {
		if prev, ok := stored[item.URL]; ok && item.Status == snapapi.StatusCompleted {
			// Already written by an earlier poll or delivery.
			captures = append(captures, prev)
			continue
		}
		captures = append(captures, r.batchCapture(ctx, item))
	}
	n, err := r.store.UpsertCaptures(ctx, job.ID, captures)
	if err != nil {
		return nil, 0, eris.Wrap(err, "ledger: upsert batch captures")
	}
	return job, n, nil
}

// storedCaptures indexes the completed captures of jobID that already have
// a location, by URL.
func (r *Recorder) storedCaptures(ctx context.Context, jobID string) (map[string]store.Capture, error) {
	existing, err := r.store.ListCaptures(ctx, jobID)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: list batch captures")
	}
	out := make(map[string]store.Capture, len(existing))
	for _, c := range existing {
		if c.Status == store.StatusCompleted && c.Location != "" {
			out[c.URL] = c
		}
	}
	return out, nil
}

func (r *Recorder) batchCapture(ctx context.Context, item snapapi.BatchResultItem) store.Capture {
	c := store.Capture{
		URL:    item.URL,
		Status: item.Status,
		Error:  item.Error,
	}
	if item.Data == "" || item.Status != snapapi.StatusCompleted {
		return c
	}
	// Hosted results arrive as a URL rather than inline bytes.
	if isHTTPURL(item.Data) {
		c.Location = item.Data
		return c
	}
	if r.blobs == nil {
		return c
	}

	data, err := (&snapapi.Capture[snapapi.ScreenshotResult]{
		ResponseType: snapapi.ResponseBase64,
		Base64:       item.Data,
	}).Bytes()
	if err != nil {
		c.Error = "decode capture data: " + err.Error()
		return c
	}

	contentType := http.DetectContentType(data)
	loc, err := r.blobs.Put(ctx, storage.KeyFor(item.URL, storage.ExtFor(contentType), r.Now()), data, contentType)
	if err != nil {
		r.logger.Warn("store batch capture failed", zap.String("url", item.URL), zap.Error(err))
		c.Error = "store capture: " + err.Error()
		return c
	}
	c.Location = loc
	c.ContentType = contentType
	c.Bytes = int64(len(data))
	return c
}

// ApplyAsync updates the ledger job for an async screenshot. A completed job
// carrying inline data gets its capture stored; target labels it.
func (r *Recorder) ApplyAsync(ctx context.Context, st *snapapi.AsyncStatus, target string) (*store.Job, error) {
	job, err := r.jobFor(ctx, store.KindAsync, st.JobID, st.Status, 1)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: load async job")
	}
	if target == "" {
		target = job.Target
	}

	job.Status = st.Status
	job.Error = st.Error
	switch st.Status {
	case snapapi.StatusCompleted:
		job.Completed, job.Failed = 1, 0
		if st.Result != nil && st.Result.Data != "" {
			if err := r.storeAsyncResult(ctx, job.ID, target, st.Result); err != nil {
				r.logger.Warn("store async capture failed", zap.String("job_id", st.JobID), zap.Error(err))
				job.Error = err.Error()
			}
		}
	case snapapi.StatusFailed:
		job.Completed, job.Failed = 0, 1
		if _, err := r.Fail(ctx, job.ID, target, errors.New(st.Error)); err != nil {
			return nil, err
		}
	}
	if err := r.store.UpdateJob(ctx, job); err != nil {
		return nil, eris.Wrap(err, "ledger: update async job")
	}
	return job, nil
}

func (r *Recorder) storeAsyncResult(ctx context.Context, jobID, target string, res *snapapi.ScreenshotResult) error {
	if isHTTPURL(res.Data) {
		_, err := r.store.RecordCapture(ctx, store.Capture{
			JobID:    jobID,
			URL:      target,
			Status:   store.StatusCompleted,
			Location: res.Data,
		})
		return eris.Wrap(err, "ledger: record hosted capture")
	}
	data, err := (&snapapi.Capture[snapapi.ScreenshotResult]{ResponseType: snapapi.ResponseJSON, Result: res}).Bytes()
	if err != nil {
		return err
	}
	_, err = r.Store(ctx, jobID, Artifact{URL: target, Data: data})
	return err
}

// ErrHosted is returned by Fetch when a capture lives on the service's CDN
// rather than in blob storage.
var ErrHosted = eris.New("ledger: capture is hosted by the service")

// Fetch reads back the stored bytes of a completed capture of jobID (local or
// server id). url selects the capture; empty picks the first completed one.
func (r *Recorder) Fetch(ctx context.Context, jobID, url string) (*store.Capture, []byte, error) {
	job, err := r.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, nil, eris.Wrap(err, "ledger: fetch")
	}
	captures, err := r.store.ListCaptures(ctx, job.ID)
	if err != nil {
		return nil, nil, eris.Wrap(err, "ledger: fetch")
	}

	var c *store.Capture
	for i := range captures {
		if captures[i].Status != store.StatusCompleted || captures[i].Location == "" {
			continue
		}
		if url == "" || captures[i].URL == url {
			c = &captures[i]
			break
		}
	}
	switch {
	case c == nil && url != "":
		return nil, nil, eris.Errorf("ledger: job %s has no stored capture of %s", jobID, url)
	case c == nil:
		return nil, nil, eris.Errorf("ledger: job %s has no stored captures", jobID)
	case isHTTPURL(c.Location):
		return c, nil, eris.Wrapf(ErrHosted, "download %s", c.Location)
	case r.blobs == nil:
		return c, nil, ErrNoStorage
	}

	data, err := r.blobs.Get(ctx, c.Location)
	if err != nil {
		return c, nil, eris.Wrap(err, "ledger: fetch")
	}
	return c, data, nil
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
