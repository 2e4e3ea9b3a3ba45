package ledger

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sells-group/snapapi-go/internal/storage"
	"github.com/sells-group/snapapi-go/internal/store"
	"github.com/sells-group/snapapi-go/pkg/snapapi"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

var fixedNow = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

func newTestRecorder(t *testing.T, blobs storage.Storage) (*Recorder, *store.SQLiteStore, string) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.NewSQLite(filepath.Join(dir, "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	outDir := filepath.Join(dir, "out")
	if blobs == nil {
		blobs = storage.NewFileStorage(storage.FileConfig{Directory: outDir})
	}
	rec := New(st, blobs, zaptest.NewLogger(t))
	rec.Now = func() time.Time { return fixedNow }
	return rec, st, outDir
}

type failingStorage struct{}

func (failingStorage) Put(context.Context, string, []byte, string) (string, error) {
	return "", errors.New("disk full")
}

func (failingStorage) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("disk full")
}

func TestSaveOne(t *testing.T) {
	rec, st, outDir := newTestRecorder(t, nil)
	ctx := context.Background()

	c, err := rec.SaveOne(ctx, store.KindScreenshot, Artifact{URL: "https://example.com/docs", Data: pngBytes})
	require.NoError(t, err)

	want := filepath.Join(outDir, "example.com", "docs-20260304T050607Z-135db5b6.png")
	assert.Equal(t, want, c.Location)
	assert.Equal(t, "image/png", c.ContentType)
	assert.Equal(t, int64(len(pngBytes)), c.Bytes)

	data, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)

	job, err := st.GetJob(ctx, c.JobID)
	require.NoError(t, err)
	assert.Equal(t, store.KindScreenshot, job.Kind)
	assert.Equal(t, store.StatusCompleted, job.Status)
	assert.Equal(t, 1, job.Completed)
	assert.Equal(t, "https://example.com/docs", job.Target)
}

func TestSaveOne_ExplicitKey(t *testing.T) {
	rec, _, outDir := newTestRecorder(t, nil)

	c, err := rec.SaveOne(context.Background(), store.KindPDF, Artifact{
		URL:         "https://example.com",
		Key:         "report.pdf",
		Data:        []byte("%PDF-1.7"),
		ContentType: "application/pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "report.pdf"), c.Location)
	assert.Equal(t, "application/pdf", c.ContentType)
}

func TestSaveOne_StorageFailure(t *testing.T) {
	rec, st, _ := newTestRecorder(t, failingStorage{})
	ctx := context.Background()

	_, err := rec.SaveOne(ctx, store.KindScreenshot, Artifact{URL: "https://example.com", Data: pngBytes})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	jobs, err := st.ListJobs(ctx, store.JobFilter{})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, store.StatusFailed, jobs[0].Status)
	assert.Equal(t, 1, jobs[0].Failed)

	caps, err := st.ListCaptures(ctx, jobs[0].ID)
	require.NoError(t, err)
	require.Len(t, caps, 1)
	assert.Equal(t, store.StatusFailed, caps[0].Status)
	assert.Contains(t, caps[0].Error, "disk full")
}

func TestStore_NoStorage(t *testing.T) {
	dir := t.TempDir()
	st, err := store.NewSQLite(filepath.Join(dir, "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck

	rec := New(st, nil, nil)
	_, err = rec.Store(context.Background(), "job", Artifact{URL: "https://example.com", Data: pngBytes})
	assert.ErrorIs(t, err, ErrNoStorage)
}

func TestRecordFailure(t *testing.T) {
	rec, st, _ := newTestRecorder(t, nil)
	ctx := context.Background()

	rec.RecordFailure(ctx, store.KindExtract, "https://example.com", errors.New("TIMEOUT"))

	jobs, err := st.ListJobs(ctx, store.JobFilter{Kind: store.KindExtract})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, store.StatusFailed, jobs[0].Status)
	assert.Equal(t, "TIMEOUT", jobs[0].Error)
}

func TestFinish(t *testing.T) {
	rec, st, _ := newTestRecorder(t, nil)
	ctx := context.Background()

	job, err := rec.Start(ctx, store.KindCapture, "urls.txt", 3)
	require.NoError(t, err)
	assert.Equal(t, store.StatusProcessing, job.Status)

	require.NoError(t, rec.Finish(ctx, job, 2, 1, nil))
	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, got.Status)
	assert.Equal(t, 2, got.Completed)
	assert.Equal(t, 1, got.Failed)

	require.NoError(t, rec.Finish(ctx, job, 0, 3, nil))
	got, err = st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusFailed, got.Status)
}

func TestApplyBatch(t *testing.T) {
	rec, st, outDir := newTestRecorder(t, nil)
	ctx := context.Background()

	submitted, err := rec.Submitted(ctx, store.KindBatch, "batch_1", "", "2 urls", 3)
	require.NoError(t, err)
	assert.Equal(t, store.StatusPending, submitted.Status)

	completed, failed := 2, 1
	res := &snapapi.BatchResult{
		JobID:     "batch_1",
		Status:    snapapi.StatusCompleted,
		Total:     3,
		Completed: &completed,
		Failed:    &failed,
		Results: []snapapi.BatchResultItem{
			{URL: "https://a.test/page", Status: snapapi.StatusCompleted, Data: base64.StdEncoding.EncodeToString(pngBytes)},
			{URL: "https://b.test", Status: snapapi.StatusCompleted, Data: "https://cdn.snapapi.pics/b.png"},
			{URL: "https://c.test", Status: snapapi.StatusFailed, Error: "TIMEOUT"},
		},
	}

	job, n, err := rec.ApplyBatch(ctx, res)
	require.NoError(t, err)
	assert.Equal(t, submitted.ID, job.ID)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, store.StatusCompleted, job.Status)
	assert.Equal(t, 2, job.Completed)

	caps, err := st.ListCaptures(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, caps, 3)
	byURL := map[string]store.Capture{}
	for _, c := range caps {
		byURL[c.URL] = c
	}
	assert.Equal(t, filepath.Join(outDir, "a.test", "page-20260304T050607Z-cdd0fc17.png"), byURL["https://a.test/page"].Location)
	assert.Equal(t, "https://cdn.snapapi.pics/b.png", byURL["https://b.test"].Location)
	assert.Equal(t, "TIMEOUT", byURL["https://c.test"].Error)
}

func TestApplyBatch_RepeatedDeliveryStoresOnce(t *testing.T) {
	rec, st, outDir := newTestRecorder(t, nil)
	ctx := context.Background()

	completed := 2
	res := &snapapi.BatchResult{
		JobID:     "batch_2",
		Status:    snapapi.StatusCompleted,
		Total:     2,
		Completed: &completed,
		Results: []snapapi.BatchResultItem{
			{URL: "https://a.test/one", Status: snapapi.StatusCompleted, Data: base64.StdEncoding.EncodeToString(pngBytes)},
			{URL: "https://a.test/two", Status: snapapi.StatusCompleted, Data: base64.StdEncoding.EncodeToString(pngBytes)},
		},
	}

	job, _, err := rec.ApplyBatch(ctx, res)
	require.NoError(t, err)
	first, err := st.ListCaptures(ctx, job.ID)
	require.NoError(t, err)

	rec.Now = func() time.Time { return fixedNow.Add(time.Second) }
	_, n, err := rec.ApplyBatch(ctx, res)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	entries, err := os.ReadDir(filepath.Join(outDir, "a.test"))
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	second, err := st.ListCaptures(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, second, 2)
	locs := map[string]string{}
	for _, c := range first {
		locs[c.URL] = c.Location
	}
	for _, c := range second {
		assert.Equal(t, locs[c.URL], c.Location)
		assert.Equal(t, store.StatusCompleted, c.Status)
	}
}

func TestApplyBatch_UnknownJobIsCreated(t *testing.T) {
	rec, st, _ := newTestRecorder(t, nil)
	ctx := context.Background()

	job, n, err := rec.ApplyBatch(ctx, &snapapi.BatchResult{JobID: "elsewhere", Status: snapapi.StatusProcessing, Total: 5})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, "elsewhere", job.RemoteID)

	got, err := st.GetJob(ctx, "elsewhere")
	require.NoError(t, err)
	assert.Equal(t, 5, got.Total)
	assert.Equal(t, store.KindBatch, got.Kind)
}

func TestApplyAsync_Completed(t *testing.T) {
	rec, st, outDir := newTestRecorder(t, nil)
	ctx := context.Background()

	_, err := rec.Submitted(ctx, store.KindAsync, "async_1", snapapi.StatusPending, "https://example.com", 1)
	require.NoError(t, err)

	job, err := rec.ApplyAsync(ctx, &snapapi.AsyncStatus{
		JobID:  "async_1",
		Status: snapapi.StatusCompleted,
		Result: &snapapi.ScreenshotResult{Data: base64.StdEncoding.EncodeToString(pngBytes)},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, job.Status)
	assert.Equal(t, 1, job.Completed)

	caps, err := st.ListCaptures(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, caps, 1)
	assert.Equal(t, filepath.Join(outDir, "example.com", "20260304T050607Z-4fd35a71.png"), caps[0].Location)
}

func TestApplyAsync_Failed(t *testing.T) {
	rec, st, _ := newTestRecorder(t, nil)
	ctx := context.Background()

	job, err := rec.ApplyAsync(ctx, &snapapi.AsyncStatus{
		JobID:  "async_2",
		Status: snapapi.StatusFailed,
		Error:  "navigation timeout",
	}, "https://slow.test")
	require.NoError(t, err)
	assert.Equal(t, store.StatusFailed, job.Status)
	assert.Equal(t, "navigation timeout", job.Error)
	assert.Equal(t, 1, job.Failed)

	caps, err := st.ListCaptures(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, caps, 1)
	assert.Equal(t, "https://slow.test", caps[0].URL)
	assert.Equal(t, store.StatusFailed, caps[0].Status)
}

func TestFetch(t *testing.T) {
	rec, _, _ := newTestRecorder(t, nil)
	ctx := context.Background()

	saved, err := rec.SaveOne(ctx, store.KindScreenshot, Artifact{URL: "https://example.com/docs", Data: pngBytes})
	require.NoError(t, err)

	c, data, err := rec.Fetch(ctx, saved.JobID, "")
	require.NoError(t, err)
	assert.Equal(t, saved.Location, c.Location)
	assert.Equal(t, pngBytes, data)

	_, data, err = rec.Fetch(ctx, saved.JobID, "https://example.com/docs")
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)

	_, _, err = rec.Fetch(ctx, saved.JobID, "https://example.com/other")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no stored capture of https://example.com/other")
}

func TestFetch_HostedCapture(t *testing.T) {
	rec, _, _ := newTestRecorder(t, nil)
	ctx := context.Background()

	job, err := rec.ApplyAsync(ctx, &snapapi.AsyncStatus{
		JobID:  "async_3",
		Status: snapapi.StatusCompleted,
		Result: &snapapi.ScreenshotResult{Data: "https://cdn.snapapi.pics/shot.png"},
	}, "https://example.com")
	require.NoError(t, err)

	c, data, err := rec.Fetch(ctx, "async_3", "")
	require.ErrorIs(t, err, ErrHosted)
	assert.Nil(t, data)
	require.NotNil(t, c)
	assert.Equal(t, "https://cdn.snapapi.pics/shot.png", c.Location)
	assert.Equal(t, job.ID, c.JobID)
}

func TestFetch_FailedJobHasNothingStored(t *testing.T) {
	rec, _, _ := newTestRecorder(t, nil)
	ctx := context.Background()

	_, err := rec.ApplyAsync(ctx, &snapapi.AsyncStatus{JobID: "async_4", Status: snapapi.StatusFailed, Error: "timeout"}, "https://slow.test")
	require.NoError(t, err)

	_, _, err = rec.Fetch(ctx, "async_4", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no stored captures")
}
