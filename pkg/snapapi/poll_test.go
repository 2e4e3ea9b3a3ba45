package snapapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollBatch_Completes(t *testing.T) {
	var calls atomic.Int32
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/screenshot/batch/job_1", r.URL.Path)
		status := StatusProcessing
		if calls.Add(1) >= 3 {
			status = StatusCompleted
		}
		json.NewEncoder(w).Encode(BatchResult{Success: true, JobID: "job_1", Status: status, Total: 1})
	})

	var seen []string
	res, err := PollBatch(context.Background(), c, "job_1",
		WithPollInterval(time.Millisecond),
		WithPollCap(2*time.Millisecond),
		WithPollProgress(func(s string) { seen = append(seen, s) }),
	)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []string{StatusProcessing, StatusProcessing, StatusCompleted}, seen)
}

func TestPollBatch_Failed(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(BatchResult{JobID: "job_2", Status: StatusFailed, Total: 2})
	})

	res, err := PollBatch(context.Background(), c, "job_2", WithPollInterval(time.Millisecond))
	assert.ErrorIs(t, err, ErrJobFailed)
	require.NotNil(t, res)
	assert.Equal(t, 2, res.Total)
}

func TestPollBatch_Timeout(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(BatchResult{JobID: "job_3", Status: StatusProcessing})
	})

	_, err := PollBatch(context.Background(), c, "job_3",
		WithPollInterval(5*time.Millisecond),
		WithPollTimeout(30*time.Millisecond),
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPollBatch_ContextDeadlineWins(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(BatchResult{JobID: "job_4", Status: StatusPending})
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := PollBatch(ctx, c, "job_4", WithPollInterval(time.Millisecond), WithPollTimeout(time.Hour))
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPollBatch_APIError(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":"NOT_FOUND","message":"Job not found"}}`))
	})

	_, err := PollBatch(context.Background(), c, "missing", WithPollInterval(time.Millisecond))
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestPollAsync(t *testing.T) {
	var calls atomic.Int32
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/screenshot/async/a1", r.URL.Path)
		if calls.Add(1) == 1 {
			w.Write([]byte(`{"jobId":"a1","status":"processing"}`))
			return
		}
		w.Write([]byte(`{"jobId":"a1","status":"completed","result":{"format":"png","data":"iVBORw0KGgo="}}`))
	})

	st, err := PollAsync(context.Background(), c, "a1", WithPollInterval(time.Millisecond))
	require.NoError(t, err)
	require.NotNil(t, st.Result)
	assert.Equal(t, "png", st.Result.Format)
}

func TestPollAsync_Failed(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jobId":"a2","status":"failed","error":"navigation timeout"}`))
	})

	st, err := PollAsync(context.Background(), c, "a2", WithPollInterval(time.Millisecond))
	assert.ErrorIs(t, err, ErrJobFailed)
	assert.Equal(t, "navigation timeout", st.Error)
}
