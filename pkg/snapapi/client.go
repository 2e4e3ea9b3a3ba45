package snapapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/snapapi-go/internal/resilience"
)

// Version is reported in the default User-Agent.
const Version = "1.2.0"

const (
	// DefaultBaseURL is the production SnapAPI endpoint.
	DefaultBaseURL = "https://api.snapapi.pics"
	// DefaultTimeout bounds a single HTTP exchange.
	DefaultTimeout = 60 * time.Second
)

// Client defines the SnapAPI operations. One method per endpoint; the
// convenience helpers (ExtractMarkdown, PollBatch, ...) are package functions
// built on top of it.
type Client interface {
	Screenshot(ctx context.Context, opts ScreenshotOptions) (*Capture[ScreenshotResult], error)
	Video(ctx context.Context, opts VideoOptions) (*Capture[VideoResult], error)
	Batch(ctx context.Context, opts BatchOptions) (*BatchResult, error)
	GetBatchStatus(ctx context.Context, jobID string) (*BatchResult, error)
	ScreenshotAsync(ctx context.Context, opts ScreenshotOptions) (*AsyncJob, error)
	GetAsyncStatus(ctx context.Context, jobID string) (*AsyncStatus, error)
	Extract(ctx context.Context, opts ExtractOptions) (*ExtractResult, error)
	Analyze(ctx context.Context, opts AnalyzeOptions) (*AnalyzeResult, error)
	Usage(ctx context.Context) (*UsageResult, error)
	Ping(ctx context.Context) (*PingResult, error)
	Devices(ctx context.Context) (*DevicesResult, error)
	Capabilities(ctx context.Context) (*CapabilitiesResult, error)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom *http.Client. WithTimeout is ignored when set.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout overrides the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.timeout = d
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *httpClient) {
		c.userAgent = ua
	}
}

// WithLogger sets the logger used for request tracing. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *httpClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRetry retries transient failures (429, 5xx, connection errors) with
// exponential backoff and jitter. maxAttempts includes the first try.
// Non-positive values keep the defaults (3 attempts, 500ms, 30s).
func WithRetry(maxAttempts int, initialBackoff, maxBackoff time.Duration) Option {
	return func(c *httpClient) {
		cfg := resilience.DefaultRetryConfig()
		cfg.MaxAttempts = maxAttempts
		cfg.InitialBackoff = initialBackoff
		cfg.MaxBackoff = maxBackoff
		cfg.ShouldRetry = IsTransient
		c.retry = &cfg
	}
}

// WithBackoff tunes how retry delays grow: each delay is the previous one
// times multiplier, randomized by ±jitterFraction. It only takes effect
// together with WithRetry.
func WithBackoff(multiplier, jitterFraction float64) Option {
	return func(c *httpClient) {
		c.backoff = &backoffShape{multiplier: multiplier, jitter: jitterFraction}
	}
}

type backoffShape struct {
	multiplier float64
	jitter     float64
}

// WithCircuitBreaker stops sending requests to an endpoint family (screenshot,
// video, extract, ...) for resetTimeout after failureThreshold consecutive
// transient failures. Rejected calls fail with an error matching
// ErrCircuitOpen.
func WithCircuitBreaker(failureThreshold int, resetTimeout time.Duration) Option {
	return func(c *httpClient) {
		cfg := resilience.CircuitBreakerConfig{
			FailureThreshold: failureThreshold,
			ResetTimeout:     resetTimeout,
			ShouldTrip:       IsTransient,
		}
		cfg.OnStateChange = func(group string, from, to resilience.CircuitState) {
			c.logger.Warn("snapapi circuit state changed",
				zap.String("endpoint", group),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		}
		c.breakers = resilience.NewBreakers(cfg)
	}
}

// WithRateLimit throttles outgoing requests to rps with the given burst.
// A non-positive rps disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *httpClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

// httpClient implements Client using net/http.
type httpClient struct {
	apiKey    string
	baseURL   string
	userAgent string
	timeout   time.Duration
	http      *http.Client
	logger    *zap.Logger

	retry    *resilience.RetryConfig
	backoff  *backoffShape
	breakers *resilience.Breakers
	limiter  *rate.Limiter
}

// NewClient creates a SnapAPI client. It fails only when apiKey is empty.
func NewClient(apiKey string, opts ...Option) (Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	c := &httpClient{
		apiKey:    apiKey,
		baseURL:   DefaultBaseURL,
		userAgent: "snapapi-go/" + Version,
		timeout:   DefaultTimeout,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retry != nil && c.backoff != nil {
		if c.backoff.multiplier > 0 {
			c.retry.Multiplier = c.backoff.multiplier
		}
		if c.backoff.jitter >= 0 && c.backoff.jitter <= 1 {
			c.retry.JitterFraction = c.backoff.jitter
		}
	}
	if c.http == nil {
		c.http = &http.Client{
			Timeout: c.timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return c, nil
}

func (c *httpClient) Screenshot(ctx context.Context, opts ScreenshotOptions) (*Capture[ScreenshotResult], error) {
	opts = opts.withDefaults()
	if err := validateOptions(opts); err != nil {
		return nil, err
	}
	resp, err := c.send(ctx, http.MethodPost, "/v1/screenshot", opts.wire())
	if err != nil {
		return nil, eris.Wrap(err, "snapapi: screenshot")
	}
	capture, err := decodeCapture[ScreenshotResult](resp, opts.ResponseType)
	if err != nil {
		return nil, eris.Wrap(err, "snapapi: screenshot")
	}
	return capture, nil
}

func (c *httpClient) Video(ctx context.Context, opts VideoOptions) (*Capture[VideoResult], error) {
	opts = opts.withDefaults()
	if err := validateOptions(opts); err != nil {
		return nil, err
	}
	resp, err := c.send(ctx, http.MethodPost, "/v1/video", opts.wire())
	if err != nil {
		return nil, eris.Wrap(err, "snapapi: video")
	}
	capture, err := decodeCapture[VideoResult](resp, opts.ResponseType)
	if err != nil {
		return nil, eris.Wrap(err, "snapapi: video")
	}
	return capture, nil
}

func (c *httpClient) Batch(ctx context.Context, opts BatchOptions) (*BatchResult, error) {
	opts = opts.withDefaults()
	if err := validateOptions(opts); err != nil {
		return nil, err
	}
	var out BatchResult
	if err := c.doJSON(ctx, http.MethodPost, "/v1/screenshot/batch", opts, &out); err != nil {
		return nil, eris.Wrap(err, "snapapi: start batch")
	}
	return &out, nil
}

func (c *httpClient) GetBatchStatus(ctx context.Context, jobID string) (*BatchResult, error) {
	path, err := jobPath("/v1/screenshot/batch/", jobID)
	if err != nil {
		return nil, err
	}
	var out BatchResult
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("snapapi: get batch status %s", jobID))
	}
	return &out, nil
}

func (c *httpClient) ScreenshotAsync(ctx context.Context, opts ScreenshotOptions) (*AsyncJob, error) {
	opts = opts.withDefaults()
	if err := validateOptions(opts); err != nil {
		return nil, err
	}
	var out AsyncJob
	if err := c.doJSON(ctx, http.MethodPost, "/v1/screenshot/async", opts.wire(), &out); err != nil {
		return nil, eris.Wrap(err, "snapapi: start async screenshot")
	}
	return &out, nil
}

func (c *httpClient) GetAsyncStatus(ctx context.Context, jobID string) (*AsyncStatus, error) {
	path, err := jobPath("/v1/screenshot/async/", jobID)
	if err != nil {
		return nil, err
	}
	var out AsyncStatus
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("snapapi: get async status %s", jobID))
	}
	return &out, nil
}

func (c *httpClient) Extract(ctx context.Context, opts ExtractOptions) (*ExtractResult, error) {
	opts = opts.withDefaults()
	if err := validateOptions(opts); err != nil {
		return nil, err
	}
	var out ExtractResult
	if err := c.doJSON(ctx, http.MethodPost, "/v1/extract", opts, &out); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("snapapi: extract %s", opts.Type))
	}
	return &out, nil
}

func (c *httpClient) Analyze(ctx context.Context, opts AnalyzeOptions) (*AnalyzeResult, error) {
	if err := validateOptions(opts); err != nil {
		return nil, err
	}
	var out AnalyzeResult
	if err := c.doJSON(ctx, http.MethodPost, "/v1/analyze", opts, &out); err != nil {
		return nil, eris.Wrap(err, "snapapi: analyze")
	}
	return &out, nil
}

func (c *httpClient) Usage(ctx context.Context) (*UsageResult, error) {
	var out UsageResult
	if err := c.doJSON(ctx, http.MethodGet, "/v1/usage", nil, &out); err != nil {
		return nil, eris.Wrap(err, "snapapi: usage")
	}
	return &out, nil
}

func (c *httpClient) Ping(ctx context.Context) (*PingResult, error) {
	var out PingResult
	if err := c.doJSON(ctx, http.MethodGet, "/v1/ping", nil, &out); err != nil {
		return nil, eris.Wrap(err, "snapapi: ping")
	}
	return &out, nil
}

func (c *httpClient) Devices(ctx context.Context) (*DevicesResult, error) {
	var out DevicesResult
	if err := c.doJSON(ctx, http.MethodGet, "/v1/devices", nil, &out); err != nil {
		return nil, eris.Wrap(err, "snapapi: devices")
	}
	return &out, nil
}

func (c *httpClient) Capabilities(ctx context.Context) (*CapabilitiesResult, error) {
	var out CapabilitiesResult
	if err := c.doJSON(ctx, http.MethodGet, "/v1/capabilities", nil, &out); err != nil {
		return nil, eris.Wrap(err, "snapapi: capabilities")
	}
	return &out, nil
}

func jobPath(prefix, jobID string) (string, error) {
	if strings.TrimSpace(jobID) == "" {
		return "", &ValidationError{Fields: []FieldError{{
			Field: "jobId", Rule: "required", Message: "jobId is required",
		}}}
	}
	return prefix + url.PathEscape(jobID), nil
}

// response is a fully read 2xx HTTP response.
type response struct {
	status      int
	contentType string
	body        []byte
}

func (c *httpClient) doJSON(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return eris.Wrap(err, "decode response")
	}
	return nil
}

// send marshals body and runs the exchange through the rate limiter,
// circuit breaker and retry policy, whichever are configured.
func (c *httpClient) send(ctx context.Context, method, path string, body any) (*response, error) {
	var buf []byte
	if body != nil {
		var err error
		buf, err = json.Marshal(body)
		if err != nil {
			return nil, eris.Wrap(err, "marshal request")
		}
	}

	call := func(ctx context.Context) (*response, error) {
		return c.roundTrip(ctx, method, path, buf)
	}
	if c.breakers != nil {
		cb := c.breakers.Get(endpointGroup(path))
		direct := call
		call = func(ctx context.Context) (*response, error) {
			return resilience.ExecuteVal(ctx, cb, direct)
		}
	}
	if c.retry == nil {
		return call(ctx)
	}

	cfg := *c.retry
	cfg.OnRetry = resilience.RetryLogger(c.logger, method+" "+path)
	return resilience.DoVal(ctx, cfg, call)
}

// CircuitStates reports the breaker state ("closed", "open", "half-open")
// of every endpoint family c has called. It is nil unless c came from
// NewClient with WithCircuitBreaker.
func CircuitStates(c Client) map[string]string {
	hc, ok := c.(*httpClient)
	if !ok || hc.breakers == nil {
		return nil
	}
	states := hc.breakers.States()
	out := make(map[string]string, len(states))
	for group, st := range states {
		out[group] = st.String()
	}
	return out
}

// endpointGroup maps /v1/screenshot/batch/abc to "screenshot".
func endpointGroup(path string) string {
	rest := strings.TrimPrefix(path, "/v1/")
	group, _, _ := strings.Cut(rest, "/")
	switch group {
	case "usage", "ping", "devices", "capabilities":
		return "account"
	}
	return group
}

func (c *httpClient) roundTrip(ctx context.Context, method, path string, body []byte) (*response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "rate limit")
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "*/*")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, canceledError(ctx.Err())
		}
		return nil, connectionError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, canceledError(ctx.Err())
		}
		return nil, connectionError(eris.Wrap(err, "read response body"))
	}

	c.logger.Debug("snapapi request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseAPIError(resp.StatusCode, data)
	}

	return &response{
		status:      resp.StatusCode,
		contentType: resp.Header.Get("Content-Type"),
		body:        data,
	}, nil
}

// decodeCapture shapes a capture response according to the requested type.
func decodeCapture[R any](resp *response, rt ResponseType) (*Capture[R], error) {
	capture := &Capture[R]{ResponseType: rt, ContentType: resp.contentType}
	switch rt {
	case ResponseJSON:
		var r R
		if err := json.Unmarshal(resp.body, &r); err != nil {
			return nil, eris.Wrap(err, "decode response")
		}
		capture.Result = &r
	case ResponseBase64:
		s, err := base64Body(resp.body)
		if err != nil {
			return nil, err
		}
		capture.Base64 = s
	default:
		capture.ResponseType = ResponseBinary
		capture.Data = resp.body
	}
	return capture, nil
}

// base64Body accepts a bare base64 payload, a JSON string, or a JSON object
// carrying the payload in "data".
func base64Body(body []byte) (string, error) {
	text := strings.TrimSpace(string(body))
	switch {
	case strings.HasPrefix(text, "{"):
		var obj struct {
			Data string `json:"data"`
		}
		if err := json.Unmarshal([]byte(text), &obj); err != nil {
			return "", eris.Wrap(err, "decode response")
		}
		text = obj.Data
	case strings.HasPrefix(text, `"`):
		var s string
		if err := json.Unmarshal([]byte(text), &s); err != nil {
			return "", eris.Wrap(err, "decode response")
		}
		text = s
	}
	if strings.HasPrefix(text, "data:") {
		if _, payload, ok := strings.Cut(text, ","); ok {
			text = payload
		}
	}
	return strings.TrimSpace(text), nil
}
