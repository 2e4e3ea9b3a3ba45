package snapapi

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// Capture is the response of a capture endpoint. Exactly one of Data, Base64
// or Result is populated, according to ResponseType.
type Capture[R any] struct {
	ResponseType ResponseType
	ContentType  string
	Data         []byte
	Base64       string
	Result       *R
}

// Bytes returns the decoded media whatever shape the service answered with.
func (c *Capture[R]) Bytes() ([]byte, error) {
	switch c.ResponseType {
	case ResponseBase64:
		return decodeBase64(c.Base64)
	case ResponseJSON:
		if c.Result == nil {
			return nil, eris.New("snapapi: capture has no result")
		}
		if d, ok := any(c.Result).(interface{ encodedData() string }); ok {
			if d.encodedData() == "" {
				return nil, eris.New("snapapi: capture result carries no data")
			}
			return decodeBase64(d.encodedData())
		}
		return nil, eris.New("snapapi: capture result carries no data")
	default:
		return c.Data, nil
	}
}

// decodeBase64 accepts plain base64 and data URIs.
func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if _, payload, ok := strings.Cut(s, ","); ok {
			s = payload
		}
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, eris.Wrap(err, "snapapi: decode base64")
	}
	return b, nil
}

// ScreenshotMetadata is page metadata returned when IncludeMetadata is set.
type ScreenshotMetadata struct {
	Title          string   `json:"title,omitempty"`
	Description    string   `json:"description,omitempty"`
	Favicon        string   `json:"favicon,omitempty"`
	OGTitle        string   `json:"ogTitle,omitempty"`
	OGDescription  string   `json:"ogDescription,omitempty"`
	OGImage        string   `json:"ogImage,omitempty"`
	HTTPStatusCode int      `json:"httpStatusCode,omitempty"`
	Fonts          []string `json:"fonts,omitempty"`
	Colors         []string `json:"colors,omitempty"`
	Links          []string `json:"links,omitempty"`
}

// ScreenshotResult is the JSON form of a screenshot capture.
type ScreenshotResult struct {
	Success   bool                `json:"success"`
	Format    string              `json:"format"`
	Width     int                 `json:"width"`
	Height    int                 `json:"height"`
	FileSize  int                 `json:"fileSize"`
	Took      int                 `json:"took"`
	Cached    bool                `json:"cached"`
	Data      string              `json:"data,omitempty"`
	Metadata  *ScreenshotMetadata `json:"metadata,omitempty"`
	Thumbnail string              `json:"thumbnail,omitempty"`
}

func (r *ScreenshotResult) encodedData() string { return r.Data }

// VideoResult is the JSON form of a video capture.
type VideoResult struct {
	Success  bool   `json:"success"`
	Format   string `json:"format"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	FileSize int    `json:"fileSize"`
	Duration int    `json:"duration"`
	Took     int    `json:"took"`
	Data     string `json:"data,omitempty"`
}

func (r *VideoResult) encodedData() string { return r.Data }

// Job states reported by batch and async endpoints.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// BatchResultItem is the outcome for one URL of a batch job.
type BatchResultItem struct {
	URL      string `json:"url"`
	Status   string `json:"status"`
	Data     string `json:"data,omitempty"`
	Error    string `json:"error,omitempty"`
	Duration *int   `json:"duration,omitempty"`
}

// BatchResult describes a batch job, both on submit and on status checks.
type BatchResult struct {
	Success     bool              `json:"success"`
	JobID       string            `json:"jobId"`
	Status      string            `json:"status"`
	Total       int               `json:"total"`
	Completed   *int              `json:"completed,omitempty"`
	Failed      *int              `json:"failed,omitempty"`
	Results     []BatchResultItem `json:"results,omitempty"`
	CreatedAt   string            `json:"createdAt,omitempty"`
	CompletedAt string            `json:"completedAt,omitempty"`
}

// UnmarshalJSON fills in the status default the service omits on submit.
func (b *BatchResult) UnmarshalJSON(data []byte) error {
	type alias BatchResult
	a := alias{Status: StatusProcessing}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*b = BatchResult(a)
	return nil
}

// Done reports whether the job reached a terminal state.
func (b *BatchResult) Done() bool {
	return b.Status == StatusCompleted || b.Status == StatusFailed
}

// UnmarshalJSON defaults a missing item status to pending.
func (i *BatchResultItem) UnmarshalJSON(data []byte) error {
	type alias BatchResultItem
	a := alias{Status: StatusPending}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*i = BatchResultItem(a)
	return nil
}

// AsyncJob is returned when an async screenshot is accepted.
type AsyncJob struct {
	Success bool   `json:"success"`
	JobID   string `json:"jobId"`
	Status  string `json:"status"`
}

// AsyncStatus is the state of an async screenshot job.
type AsyncStatus struct {
	Success     bool              `json:"success"`
	JobID       string            `json:"jobId"`
	Status      string            `json:"status"`
	Result      *ScreenshotResult `json:"result,omitempty"`
	Error       string            `json:"error,omitempty"`
	CreatedAt   string            `json:"createdAt,omitempty"`
	CompletedAt string            `json:"completedAt,omitempty"`
}

// Done reports whether the job reached a terminal state.
func (s *AsyncStatus) Done() bool {
	return s.Status == StatusCompleted || s.Status == StatusFailed
}

// ExtractResult is the response of /v1/extract. Content is kept raw because
// its shape depends on Type: a string for markdown/text/html, an object or
// array for the others.
type ExtractResult struct {
	Success bool            `json:"success"`
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content,omitempty"`
	URL     string          `json:"url,omitempty"`
	Title   string          `json:"title,omitempty"`
	Took    int             `json:"took,omitempty"`
	Cached  bool            `json:"cached"`
}

// Text returns Content as a string. Non-string content is returned as its
// JSON text.
func (r *ExtractResult) Text() string {
	if len(r.Content) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(r.Content, &s); err == nil {
		return s
	}
	return string(r.Content)
}

// Decode unmarshals Content into v.
func (r *ExtractResult) Decode(v any) error {
	if len(r.Content) == 0 {
		return eris.New("snapapi: extract result has no content")
	}
	return eris.Wrap(json.Unmarshal(r.Content, v), "snapapi: decode extract content")
}

// AnalyzeResult is the response of /v1/analyze. Result is a string unless a
// JSON schema was supplied, in which case it follows that schema.
type AnalyzeResult struct {
	Success    bool            `json:"success"`
	Result     json.RawMessage `json:"result,omitempty"`
	URL        string          `json:"url,omitempty"`
	Model      string          `json:"model,omitempty"`
	Provider   string          `json:"provider,omitempty"`
	Took       int             `json:"took,omitempty"`
	TokensUsed int             `json:"tokensUsed,omitempty"`
	Screenshot string          `json:"screenshot,omitempty"`
	Metadata   map[string]any  `json:"metadata,omitempty"`
}

// Text returns Result as a string, or its JSON text when it is structured.
func (r *AnalyzeResult) Text() string {
	if len(r.Result) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(r.Result, &s); err == nil {
		return s
	}
	return string(r.Result)
}

// Decode unmarshals Result into v.
func (r *AnalyzeResult) Decode(v any) error {
	if len(r.Result) == 0 {
		return eris.New("snapapi: analyze result is empty")
	}
	return eris.Wrap(json.Unmarshal(r.Result, v), "snapapi: decode analyze result")
}

// UsageResult reports API consumption for the current period.
type UsageResult struct {
	Used      int    `json:"used"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
	ResetAt   string `json:"resetAt"`
}

// PingResult is the health check response.
type PingResult struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// DeviceInfo describes one device preset.
type DeviceInfo struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	DeviceScaleFactor float64 `json:"deviceScaleFactor"`
	IsMobile          bool    `json:"isMobile"`
}

// DevicesResult groups device presets by category.
type DevicesResult struct {
	Success bool                    `json:"success"`
	Devices map[string][]DeviceInfo `json:"devices"`
	Total   int                     `json:"total"`
}

// CapabilitiesResult lists what the service supports.
type CapabilitiesResult struct {
	Success      bool           `json:"success"`
	Version      string         `json:"version"`
	Capabilities map[string]any `json:"capabilities"`
}
