package main

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/snapapi-go/internal/config"
	"github.com/sells-group/snapapi-go/internal/store"
	"github.com/sells-group/snapapi-go/pkg/snapapi"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	expected := []string{
		"screenshot", "pdf", "video", "extract", "analyze", "batch", "async",
		"capture", "usage", "ping", "devices", "capabilities", "jobs", "serve",
	}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestDeviceFlagCompletion(t *testing.T) {
	for _, name := range []string{"screenshot", "video", "capture"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err)
		complete, ok := cmd.GetFlagCompletionFunc("device")
		require.True(t, ok, "%s --device has no completion", name)

		ids, directive := complete(cmd, nil, "iphone-15")
		assert.Equal(t, []string{"iphone-15", "iphone-15-pro", "iphone-15-pro-max"}, ids)
		assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "snapapi", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
}

func TestBatchCommand_HasSubcommands(t *testing.T) {
	for _, parent := range []struct {
		name string
		subs []string
	}{
		{"batch", []string{"submit", "status", "wait"}},
		{"async", []string{"submit", "status", "wait"}},
		{"jobs", []string{"list", "show", "fetch", "stats"}},
	} {
		cmd, _, err := rootCmd.Find([]string{parent.name})
		require.NoError(t, err)
		names := make(map[string]bool)
		for _, c := range cmd.Commands() {
			names[c.Name()] = true
		}
		for _, sub := range parent.subs {
			assert.True(t, names[sub], "%s should have subcommand %q", parent.name, sub)
		}
	}
}

func TestCommandFlags(t *testing.T) {
	flag := screenshotCmd.Flags().Lookup("width")
	require.NotNil(t, flag)
	assert.Equal(t, "1280", flag.DefValue)

	flag = screenshotCmd.Flags().Lookup("format")
	require.NotNil(t, flag)
	assert.Equal(t, "png", flag.DefValue)

	flag = videoCmd.Flags().Lookup("fps")
	require.NotNil(t, flag)
	assert.Equal(t, "24", flag.DefValue)

	flag = serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag)
	assert.Equal(t, "0", flag.DefValue)

	for _, name := range []string{"file", "column", "sheet", "charset", "limit", "concurrency"} {
		assert.NotNil(t, captureCmd.Flags().Lookup(name), "capture should have --%s", name)
	}
	for _, name := range []string{"file", "webhook-url", "wait"} {
		assert.NotNil(t, batchSubmitCmd.Flags().Lookup(name), "batch submit should have --%s", name)
	}
}

func testConfig() *config.Config {
	c := &config.Config{}
	c.API.Key = "sk_test"
	c.API.BaseURL = "https://api.snapapi.pics"
	c.API.TimeoutSecs = 30
	c.API.RateLimit = 5
	c.API.RateBurst = 2
	c.API.UserAgent = "snapapi-cli-test"
	c.Retry.MaxAttempts = 3
	c.Retry.InitialBackoffMs = 100
	c.Retry.MaxBackoffMs = 1000
	c.Retry.JitterFraction = 0.25
	c.Circuit.FailureThreshold = 5
	c.Circuit.ResetTimeoutSecs = 30
	c.Poll.InitialMs = 500
	c.Poll.CapMs = 5000
	c.Poll.TimeoutSecs = 60
	c.Batch.MaxConcurrent = 4
	c.Store.Driver = "none"
	return c
}

func TestClientOptions(t *testing.T) {
	c := testConfig()
	assert.Len(t, clientOptions(c), 8)

	c.API.UserAgent = ""
	c.API.RateLimit = 0
	c.Retry.MaxAttempts = 0
	c.Circuit.FailureThreshold = 0
	assert.Len(t, clientOptions(c), 3)
}

func TestNewClient(t *testing.T) {
	client, err := newClient(testConfig())
	require.NoError(t, err)
	assert.NotNil(t, client)

	c := testConfig()
	c.API.Key = ""
	_, err = newClient(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api.key is required")
}

func TestPollOptions(t *testing.T) {
	assert.Len(t, pollOptions(testConfig(), nil), 3)
	assert.Len(t, pollOptions(testConfig(), func(string) {}), 4)
	assert.Empty(t, pollOptions(&config.Config{}, nil))
}

func TestFormatBatch(t *testing.T) {
	one := 1
	var buf bytes.Buffer
	formatBatch(&buf, &snapapi.BatchResult{
		JobID: "batch_1", Status: snapapi.StatusCompleted, Total: 2, Completed: &one, Failed: &one,
		Results: []snapapi.BatchResultItem{
			{URL: "https://a.test", Status: snapapi.StatusCompleted},
			{URL: "https://b.test", Status: snapapi.StatusFailed, Error: "TIMEOUT"},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "job batch_1: completed (1/2 completed, 1 failed)")
	assert.Contains(t, out, "URL")
	assert.Contains(t, out, "https://b.test")
	assert.Contains(t, out, "TIMEOUT")
}

func TestFormatJobsList(t *testing.T) {
	now := time.Date(2026, 6, 15, 10, 30, 0, 0, time.UTC)
	var buf bytes.Buffer
	formatJobsList(&buf, []store.Job{
		{ID: "abc12345-6789-0000-0000-000000000000", Kind: store.KindBatch, Status: store.StatusProcessing, Total: 10, Completed: 3, Target: "10 urls", CreatedAt: now},
		{ID: "short", Kind: store.KindScreenshot, Status: store.StatusCompleted, Total: 1, Completed: 1, Target: "https://example.com/" + string(bytes.Repeat([]byte("x"), 60)), CreatedAt: now},
	})

	out := buf.String()
	assert.Contains(t, out, "KIND")
	assert.Contains(t, out, "abc12345 ")
	assert.NotContains(t, out, "abc12345-6789")
	assert.Contains(t, out, "3/10")
	assert.Contains(t, out, "2026-06-15 10:30")
	assert.Contains(t, out, "...")
}

func TestComputeJobStats(t *testing.T) {
	now := time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)
	jobs := []store.Job{
		{Status: store.StatusCompleted, Completed: 3, Failed: 1, CreatedAt: now, UpdatedAt: now.Add(4 * time.Second)},
		{Status: store.StatusCompleted, Completed: 1, CreatedAt: now, UpdatedAt: now.Add(2 * time.Second)},
		{Status: store.StatusFailed, Failed: 1, CreatedAt: now, UpdatedAt: now},
		{Status: store.StatusProcessing, CreatedAt: now, UpdatedAt: now},
		{Status: store.StatusCompleted, Completed: 9, CreatedAt: now.Add(-48 * time.Hour)},
	}

	s := computeJobStats(jobs, now.Add(-time.Hour))
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Completed)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Pending)
	assert.Equal(t, 4, s.Captures)
	assert.Equal(t, 2, s.CapFailed)
	assert.InDelta(t, 3.0, s.AvgDurSecs, 0.001)

	all := computeJobStats(jobs, time.Time{})
	assert.Equal(t, 5, all.Total)

	var buf bytes.Buffer
	formatJobStats(&buf, s)
	assert.Contains(t, buf.String(), "Success:   50.0%")
	assert.Contains(t, buf.String(), "Avg time:  3.0s")
}

func TestFormatDevices(t *testing.T) {
	var buf bytes.Buffer
	formatDevices(&buf, &snapapi.DevicesResult{Devices: map[string][]snapapi.DeviceInfo{
		"mobile":  {{ID: "iphone-15-pro", Name: "iPhone 15 Pro", Width: 393, Height: 852, DeviceScaleFactor: 3, IsMobile: true}},
		"desktop": {{ID: "desktop-1080p", Name: "Desktop 1080p", Width: 1920, Height: 1080, DeviceScaleFactor: 1}},
	}})

	out := buf.String()
	assert.Contains(t, out, "393x852")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("desktop-1080p")), bytes.Index(buf.Bytes(), []byte("iphone-15-pro")))
}

func TestRunUsage(t *testing.T) {
	env := newTestEnv(t)
	env.client.On("Usage", context.Background()).Return(&snapapi.UsageResult{Used: 120, Limit: 1000, Remaining: 880, ResetAt: "2026-11-01"}, nil)

	var buf bytes.Buffer
	require.NoError(t, runUsage(context.Background(), env.client, &buf))
	assert.Equal(t, "used 120 of 1000 (880 remaining), resets 2026-11-01\n", buf.String())
}

func TestListenAndServe_Shutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler(), ReadHeaderTimeout: time.Second}

	done := make(chan error, 1)
	go func() { done <- listenAndServe(ctx, srv) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestListenAndServe_ListenError(t *testing.T) {
	srv := &http.Server{Addr: "127.0.0.1:-1", ReadHeaderTimeout: time.Second}
	err := listenAndServe(context.Background(), srv)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server listen")
}
