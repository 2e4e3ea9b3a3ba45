package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/snapapi-go/internal/ledger"
	"github.com/sells-group/snapapi-go/internal/storage"
	"github.com/sells-group/snapapi-go/internal/store"
	"github.com/sells-group/snapapi-go/pkg/snapapi"
	"github.com/sells-group/snapapi-go/pkg/snapapi/mocks"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

var fixedNow = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

type testEnv struct {
	*cliEnv
	client *mocks.MockClient
	store  *store.SQLiteStore
	outDir string
	out    *bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	st, err := store.NewSQLite(filepath.Join(dir, "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	outDir := filepath.Join(dir, "out")
	rec := ledger.New(st, storage.NewFileStorage(storage.FileConfig{Directory: outDir}), nil)
	rec.Now = func() time.Time { return fixedNow }

	client := mocks.NewMockClient(t)
	out := &bytes.Buffer{}
	return &testEnv{
		cliEnv: &cliEnv{Client: client, Store: st, Recorder: rec, Out: out},
		client: client,
		store:  st,
		outDir: outDir,
		out:    out,
	}
}

func (e *testEnv) onlyJob(t *testing.T) store.Job {
	t.Helper()
	jobs, err := e.store.ListJobs(context.Background(), store.JobFilter{})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	return jobs[0]
}

func fastPoll() []snapapi.PollOption {
	return []snapapi.PollOption{snapapi.WithPollInterval(time.Millisecond), snapapi.WithPollTimeout(5 * time.Second)}
}

func TestRunScreenshot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.client.On("Screenshot", mock.Anything, mock.MatchedBy(func(o snapapi.ScreenshotOptions) bool {
		return o.URL == "https://example.com/docs" && o.FullPage
	})).Return(&snapapi.Capture[snapapi.ScreenshotResult]{
		ResponseType: snapapi.ResponseBinary,
		ContentType:  "image/png",
		Data:         pngBytes,
	}, nil)

	c, err := runScreenshot(ctx, env.cliEnv, store.KindScreenshot, "https://example.com/docs", "",
		snapapi.ScreenshotOptions{URL: "https://example.com/docs", FullPage: true})
	require.NoError(t, err)

	want := filepath.Join(env.outDir, "example.com", "docs-20260304T050607Z-135db5b6.png")
	assert.Equal(t, want, c.Location)
	data, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)
	assert.Contains(t, env.out.String(), want)

	job := env.onlyJob(t)
	assert.Equal(t, store.KindScreenshot, job.Kind)
	assert.Equal(t, store.StatusCompleted, job.Status)
}

func TestRunScreenshot_HTMLSource(t *testing.T) {
	env := newTestEnv(t)

	env.client.On("Screenshot", mock.Anything, mock.MatchedBy(func(o snapapi.ScreenshotOptions) bool {
		return o.HTML == "<h1>hi</h1>" && o.URL == ""
	})).Return(&snapapi.Capture[snapapi.ScreenshotResult]{ResponseType: snapapi.ResponseBinary, Data: pngBytes}, nil)

	c, err := runScreenshot(context.Background(), env.cliEnv, store.KindScreenshot, "html:page.html", "page.png",
		snapapi.ScreenshotOptions{HTML: "<h1>hi</h1>"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(env.outDir, "page.png"), c.Location)
	assert.Equal(t, "image/png", c.ContentType)
}

func TestRunScreenshot_MetadataPrinted(t *testing.T) {
	env := newTestEnv(t)

	env.client.On("Screenshot", mock.Anything, mock.Anything).Return(&snapapi.Capture[snapapi.ScreenshotResult]{
		ResponseType: snapapi.ResponseJSON,
		ContentType:  "application/json",
		Result: &snapapi.ScreenshotResult{
			Data:     base64.StdEncoding.EncodeToString(pngBytes),
			Metadata: &snapapi.ScreenshotMetadata{Title: "Example Domain"},
		},
	}, nil)

	c, err := runScreenshot(context.Background(), env.cliEnv, store.KindScreenshot, "https://example.com", "",
		snapapi.ScreenshotOptions{URL: "https://example.com", Format: snapapi.FormatPNG, IncludeMetadata: true, ResponseType: snapapi.ResponseJSON})
	require.NoError(t, err)
	assert.Equal(t, "image/png", c.ContentType)
	assert.Contains(t, env.out.String(), `"title": "Example Domain"`)
}

func TestRunScreenshot_APIErrorRecorded(t *testing.T) {
	env := newTestEnv(t)

	apiErr := &snapapi.APIError{Code: snapapi.CodeInvalidURL, StatusCode: 400, Message: "bad url"}
	env.client.On("Screenshot", mock.Anything, mock.Anything).Return(nil, apiErr)

	_, err := runScreenshot(context.Background(), env.cliEnv, store.KindScreenshot, "nope", "", snapapi.ScreenshotOptions{URL: "nope"})
	require.Error(t, err)
	var got *snapapi.APIError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, snapapi.CodeInvalidURL, got.Code)

	job := env.onlyJob(t)
	assert.Equal(t, store.StatusFailed, job.Status)
	assert.Contains(t, job.Error, "bad url")
}

func TestRunPDF(t *testing.T) {
	env := newTestEnv(t)

	env.client.On("Screenshot", mock.Anything, mock.MatchedBy(func(o snapapi.ScreenshotOptions) bool {
		return o.Format == snapapi.FormatPDF && o.PDFOptions != nil && o.PDFOptions.PageSize == "letter"
	})).Return(&snapapi.Capture[snapapi.ScreenshotResult]{ResponseType: snapapi.ResponseBinary, Data: []byte("%PDF-1.7")}, nil)

	c, err := runPDF(context.Background(), env.cliEnv, "https://example.com/report", &snapapi.PDFOptions{PageSize: "letter"}, "")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", c.ContentType)
	assert.True(t, strings.HasSuffix(c.Location, ".pdf"))
	assert.Equal(t, store.KindPDF, env.onlyJob(t).Kind)
}

func TestRunVideo(t *testing.T) {
	env := newTestEnv(t)

	env.client.On("Video", mock.Anything, mock.MatchedBy(func(o snapapi.VideoOptions) bool {
		return o.URL == "https://example.com" && o.Scroll
	})).Return(&snapapi.Capture[snapapi.VideoResult]{
		ResponseType: snapapi.ResponseBase64,
		Base64:       base64.StdEncoding.EncodeToString([]byte("webm-bytes")),
	}, nil)

	c, err := runVideo(context.Background(), env.cliEnv, snapapi.VideoOptions{URL: "https://example.com", Format: snapapi.VideoWebM, Scroll: true}, "")
	require.NoError(t, err)
	assert.Equal(t, "video/webm", c.ContentType)
	assert.True(t, strings.HasSuffix(c.Location, ".webm"))
}

func TestRunExtract(t *testing.T) {
	env := newTestEnv(t)

	env.client.On("Extract", mock.Anything, snapapi.ExtractOptions{URL: "https://example.com", Type: snapapi.ExtractTypeMarkdown}).
		Return(&snapapi.ExtractResult{Success: true, Type: "markdown", Content: []byte(`"# Example"`)}, nil)

	err := runExtract(context.Background(), env.cliEnv, snapapi.ExtractOptions{URL: "https://example.com", Type: snapapi.ExtractTypeMarkdown}, true, "", false)
	require.NoError(t, err)
	assert.Equal(t, "# Example\n", env.out.String())

	job := env.onlyJob(t)
	caps, err := env.store.ListCaptures(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, caps, 1)
	assert.Equal(t, "text/markdown", caps[0].ContentType)
	data, err := os.ReadFile(caps[0].Location)
	require.NoError(t, err)
	assert.Equal(t, "# Example", string(data))
}

func TestExtractArtifact(t *testing.T) {
	tests := []struct {
		typ, content string
		wantBody     string
		wantType     string
	}{
		{"markdown", `"# T"`, "# T", "text/markdown"},
		{"text", `"plain"`, "plain", "text/plain"},
		{"html", `"<p>x</p>"`, "<p>x</p>", "text/html"},
		{"links", `["https://a.test"]`, `["https://a.test"]`, "application/json"},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			body, ct := extractArtifact(&snapapi.ExtractResult{Type: tt.typ, Content: []byte(tt.content)})
			assert.Equal(t, tt.wantBody, string(body))
			assert.Equal(t, tt.wantType, ct)
		})
	}
}

func TestRunAnalyze(t *testing.T) {
	env := newTestEnv(t)

	env.client.On("Analyze", mock.Anything, mock.MatchedBy(func(o snapapi.AnalyzeOptions) bool {
		return o.Prompt == "What is this page?"
	})).Return(&snapapi.AnalyzeResult{Success: true, Result: []byte(`"A demo page"`)}, nil)

	err := runAnalyze(context.Background(), env.cliEnv, snapapi.AnalyzeOptions{URL: "https://example.com", Prompt: "What is this page?"}, false)
	require.NoError(t, err)
	assert.Equal(t, "A demo page\n", env.out.String())

	job := env.onlyJob(t)
	assert.Equal(t, store.KindAnalyze, job.Kind)
	assert.Equal(t, store.StatusCompleted, job.Status)
}

func TestLoadSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"object"}`), 0o644))

	schema, err := loadSchema(path)
	require.NoError(t, err)
	assert.Equal(t, "object", schema["type"])

	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0o644))
	_, err = loadSchema(path)
	assert.Error(t, err)
}

func TestBatchSubmitAndWait(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	urls := []string{"https://a.test", "https://b.test"}

	env.client.On("Batch", mock.Anything, mock.MatchedBy(func(o snapapi.BatchOptions) bool {
		return len(o.URLs) == 2
	})).Return(&snapapi.BatchResult{Success: true, JobID: "batch_9", Status: snapapi.StatusProcessing, Total: 2}, nil)

	res, err := runBatchSubmit(ctx, env.cliEnv, snapapi.BatchOptions{URLs: urls})
	require.NoError(t, err)
	assert.Equal(t, "batch_9", res.JobID)
	assert.Equal(t, "batch_9\n", env.out.String())

	two, zero := 2, 0
	env.client.On("GetBatchStatus", mock.Anything, "batch_9").
		Return(&snapapi.BatchResult{JobID: "batch_9", Status: snapapi.StatusProcessing, Total: 2}, nil).Once()
	env.client.On("GetBatchStatus", mock.Anything, "batch_9").
		Return(&snapapi.BatchResult{
			JobID: "batch_9", Status: snapapi.StatusCompleted, Total: 2, Completed: &two, Failed: &zero,
			Results: []snapapi.BatchResultItem{
				{URL: "https://a.test", Status: snapapi.StatusCompleted, Data: base64.StdEncoding.EncodeToString(pngBytes)},
				{URL: "https://b.test", Status: snapapi.StatusCompleted, Data: "https://cdn.snapapi.pics/b.png"},
			},
		}, nil).Once()

	require.NoError(t, runBatchWait(ctx, env.cliEnv, "batch_9", fastPoll()))
	assert.Contains(t, env.out.String(), "job batch_9: completed (2/2 completed, 0 failed)")

	job := env.onlyJob(t)
	assert.Equal(t, "batch_9", job.RemoteID)
	assert.Equal(t, store.StatusCompleted, job.Status)
	caps, err := env.store.ListCaptures(ctx, job.ID)
	require.NoError(t, err)
	assert.Len(t, caps, 2)
}

func TestBatchWait_Failed(t *testing.T) {
	env := newTestEnv(t)

	env.client.On("GetBatchStatus", mock.Anything, "batch_bad").
		Return(&snapapi.BatchResult{JobID: "batch_bad", Status: snapapi.StatusFailed, Total: 1,
			Results: []snapapi.BatchResultItem{{URL: "https://a.test", Status: snapapi.StatusFailed, Error: "TIMEOUT"}}}, nil)

	err := runBatchWait(context.Background(), env.cliEnv, "batch_bad", fastPoll())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch batch_bad failed")
	assert.Contains(t, env.out.String(), "TIMEOUT")
	assert.Equal(t, store.StatusFailed, env.onlyJob(t).Status)
}

func TestBatchStatus(t *testing.T) {
	env := newTestEnv(t)

	env.client.On("GetBatchStatus", mock.Anything, "batch_1").
		Return(&snapapi.BatchResult{JobID: "batch_1", Status: snapapi.StatusProcessing, Total: 4}, nil)

	require.NoError(t, runBatchStatus(context.Background(), env.cliEnv, "batch_1"))
	assert.Contains(t, env.out.String(), "job batch_1: processing (0/4 completed, 0 failed)")
	assert.Equal(t, 4, env.onlyJob(t).Total)
}

func TestAsyncSubmitAndWait(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.client.On("ScreenshotAsync", mock.Anything, mock.Anything).
		Return(&snapapi.AsyncJob{Success: true, JobID: "async_7", Status: snapapi.StatusPending}, nil)
	job, err := runAsyncSubmit(ctx, env.cliEnv, "https://example.com", snapapi.ScreenshotOptions{URL: "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, "async_7", job.JobID)

	env.client.On("GetAsyncStatus", mock.Anything, "async_7").
		Return(&snapapi.AsyncStatus{JobID: "async_7", Status: snapapi.StatusCompleted,
			Result: &snapapi.ScreenshotResult{Format: "png", Data: base64.StdEncoding.EncodeToString(pngBytes)}}, nil)

	require.NoError(t, runAsyncWait(ctx, env.cliEnv, "async_7", "", fastPoll()))
	assert.NotContains(t, env.out.String(), base64.StdEncoding.EncodeToString(pngBytes))

	ledgerJob := env.onlyJob(t)
	assert.Equal(t, store.StatusCompleted, ledgerJob.Status)
	caps, err := env.store.ListCaptures(ctx, ledgerJob.ID)
	require.NoError(t, err)
	require.Len(t, caps, 1)
	assert.Equal(t, filepath.Join(env.outDir, "example.com", "20260304T050607Z-4fd35a71.png"), caps[0].Location)
}

func TestAsyncWait_Failed(t *testing.T) {
	env := newTestEnv(t)

	env.client.On("GetAsyncStatus", mock.Anything, "async_x").
		Return(&snapapi.AsyncStatus{JobID: "async_x", Status: snapapi.StatusFailed, Error: "navigation timeout"}, nil)

	err := runAsyncWait(context.Background(), env.cliEnv, "async_x", "https://slow.test", fastPoll())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "navigation timeout")
}

func TestCaptureURLs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	urls := []string{"https://a.test", "https://b.test", "https://broken.test"}

	env.client.On("Screenshot", mock.Anything, mock.MatchedBy(func(o snapapi.ScreenshotOptions) bool {
		return o.URL != "https://broken.test"
	})).Return(&snapapi.Capture[snapapi.ScreenshotResult]{ResponseType: snapapi.ResponseBinary, Data: pngBytes}, nil)
	env.client.On("Screenshot", mock.Anything, mock.MatchedBy(func(o snapapi.ScreenshotOptions) bool {
		return o.URL == "https://broken.test"
	})).Return(nil, &snapapi.APIError{Code: snapapi.CodeHTTP, StatusCode: 502, Message: "bad gateway"})

	sum, err := captureURLs(ctx, env.cliEnv, "urls.txt", urls, snapapi.ScreenshotOptions{Format: snapapi.FormatPNG}, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 2, sum.Succeeded)
	assert.Equal(t, 1, sum.Failed)
	assert.Contains(t, env.out.String(), "2/3 captured, 1 failed")

	job := env.onlyJob(t)
	assert.Equal(t, store.KindCapture, job.Kind)
	assert.Equal(t, store.StatusCompleted, job.Status)
	assert.Equal(t, 2, job.Completed)
	assert.Equal(t, 1, job.Failed)

	caps, err := env.store.ListCaptures(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, caps, 3)
	for _, c := range caps {
		if c.URL == "https://broken.test" {
			assert.Equal(t, store.StatusFailed, c.Status)
			assert.Contains(t, c.Error, "bad gateway")
		} else {
			assert.Equal(t, store.StatusCompleted, c.Status)
			assert.FileExists(t, c.Location)
		}
	}
}

func TestCaptureURLs_ReportsOpenCircuit(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	client, err := snapapi.NewClient("sk_test", snapapi.WithBaseURL(srv.URL), snapapi.WithCircuitBreaker(2, time.Hour))
	require.NoError(t, err)
	env.cliEnv.Client = client

	urls := []string{"https://a.test", "https://b.test", "https://c.test"}
	sum, err := captureURLs(context.Background(), env.cliEnv, "urls.txt", urls, snapapi.ScreenshotOptions{Format: snapapi.FormatPNG}, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Failed)
	assert.Equal(t, []string{"screenshot"}, sum.OpenCircuits)
}

func TestContentTypeFor(t *testing.T) {
	tests := map[string]string{
		"":     "image/png",
		"png":  "image/png",
		"jpeg": "image/jpeg",
		"webp": "image/webp",
		"avif": "image/avif",
		"pdf":  "application/pdf",
		"gif":  "image/gif",
		"mp4":  "video/mp4",
		"webm": "video/webm",
		"tiff": "application/octet-stream",
	}
	for format, want := range tests {
		assert.Equal(t, want, contentTypeFor(format), format)
	}
}

func TestScreenshotFlags_Source(t *testing.T) {
	var f screenshotFlags
	opts := f.options()
	target, err := f.source(&opts, []string{"https://example.com"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", target)
	assert.Equal(t, "https://example.com", opts.URL)

	f = screenshotFlags{markdownFile: "-"}
	opts = f.options()
	target, err = f.source(&opts, nil, strings.NewReader("# Hello"))
	require.NoError(t, err)
	assert.Equal(t, "markdown:-", target)
	assert.Equal(t, "# Hello", opts.Markdown)

	f = screenshotFlags{}
	opts = f.options()
	_, err = f.source(&opts, nil, nil)
	assert.Error(t, err)

	f = screenshotFlags{htmlFile: filepath.Join(t.TempDir(), "missing.html")}
	opts = f.options()
	_, err = f.source(&opts, nil, nil)
	assert.Error(t, err)
}

func TestScreenshotFlags_Metadata(t *testing.T) {
	f := screenshotFlags{metadata: true, format: "jpeg", quality: 80}
	opts := f.options()
	assert.True(t, opts.IncludeMetadata)
	assert.Equal(t, snapapi.ResponseJSON, opts.ResponseType)
	assert.Equal(t, snapapi.FormatJPEG, opts.Format)
	assert.Equal(t, 80, opts.Quality)
}

func TestListFlags_URLs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(path, []byte("# sites\nhttps://b.test\nhttps://c.test\n"), 0o644))

	f := listFlags{file: path}
	urls, err := f.urls(context.Background(), []string{"https://a.test"})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.test", "https://b.test", "https://c.test"}, urls)

	_, err = (&listFlags{}).urls(context.Background(), nil)
	assert.Error(t, err)
}

func TestRunFetch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	saved, err := env.Recorder.SaveOne(ctx, store.KindScreenshot, ledger.Artifact{URL: "https://example.com/docs", Data: pngBytes})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, runFetch(ctx, env.Recorder, saved.JobID, "", "", &buf))
	assert.Equal(t, pngBytes, buf.Bytes())

	dest := filepath.Join(t.TempDir(), "copy.png")
	require.NoError(t, runFetch(ctx, env.Recorder, saved.JobID, "https://example.com/docs", dest, &buf))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)
}

func TestRunFetch_UnknownJob(t *testing.T) {
	env := newTestEnv(t)

	err := runFetch(context.Background(), env.Recorder, "missing", "", "", &bytes.Buffer{})
	require.ErrorIs(t, err, store.ErrNotFound)
}
