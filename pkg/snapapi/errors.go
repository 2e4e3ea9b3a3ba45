package snapapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/snapapi-go/internal/resilience"
)

// Error codes returned by the SDK itself. The service may return others.
const (
	CodeUnknown         = "UNKNOWN_ERROR"
	CodeHTTP            = "HTTP_ERROR"
	CodeConnection      = "CONNECTION_ERROR"
	CodeInvalidAPIKey   = "INVALID_API_KEY"
	CodeRateLimited     = "RATE_LIMIT_EXCEEDED"
	CodeQuotaExceeded   = "QUOTA_EXCEEDED"
	CodeInvalidURL      = "INVALID_URL"
	CodeValidationError = "VALIDATION_ERROR"
)

var (
	// ErrMissingAPIKey is returned by NewClient when the key is empty.
	ErrMissingAPIKey = eris.New("snapapi: API key is required")

	// ErrJobFailed is returned by the poll helpers when a job ends in the failed state.
	ErrJobFailed = eris.New("snapapi: job failed")

	// ErrCircuitOpen is returned without contacting the service while the
	// circuit breaker for the endpoint is open. See WithCircuitBreaker.
	ErrCircuitOpen = resilience.ErrCircuitOpen
)

// APIError is returned when SnapAPI responds with a non-2xx status or the
// request could not be delivered at all (StatusCode 0, Code CONNECTION_ERROR).
type APIError struct {
	Code       string
	StatusCode int
	Message    string
	Details    map[string]any
	Body       string

	cause error
	// canceled marks a request abandoned because the caller's context ended.
	canceled bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// HTTPStatus exposes the status code to callers that classify errors
// without importing this package.
func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

// ValidationError lists every option field that failed client-side checks.
type ValidationError struct {
	Fields []FieldError
}

// FieldError describes one invalid option.
type FieldError struct {
	Field   string
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return "snapapi: invalid options: " + strings.Join(msgs, "; ")
}

// errorEnvelope covers the error body shapes the service has been seen to use:
// {"error":{"code":..,"message":..,"details":..}}, {"code":..,"message":..}
// and {"error":"text"}.
type errorEnvelope struct {
	Error   json.RawMessage `json:"error"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details map[string]any  `json:"details"`
}

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

// parseAPIError builds an APIError from a non-2xx response body.
func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		Code:       CodeHTTP,
		StatusCode: statusCode,
		Message:    fmt.Sprintf("HTTP %d: %s", statusCode, http.StatusText(statusCode)),
		Body:       string(body),
	}

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return apiErr
	}

	var inner errorBody
	switch {
	case len(env.Error) > 0 && env.Error[0] == '{':
		if err := json.Unmarshal(env.Error, &inner); err != nil {
			return apiErr
		}
	case len(env.Error) > 0 && env.Error[0] == '"':
		var msg string
		if err := json.Unmarshal(env.Error, &msg); err == nil {
			inner.Message = msg
		}
		inner.Code = env.Code
		inner.Details = env.Details
		if env.Message != "" {
			inner.Message = env.Message
		}
	default:
		inner = errorBody{Code: env.Code, Message: env.Message, Details: env.Details}
	}

	if inner.Code != "" {
		apiErr.Code = inner.Code
	}
	if inner.Message != "" {
		apiErr.Message = inner.Message
	} else {
		apiErr.Message = fmt.Sprintf("HTTP %d", statusCode)
	}
	apiErr.Details = inner.Details
	return apiErr
}

func connectionError(err error) *APIError {
	return &APIError{
		Code:    CodeConnection,
		Message: "Connection error: " + err.Error(),
		cause:   err,
	}
}

// canceledError reports a request the caller gave up on. It keeps the
// CONNECTION_ERROR code but is never transient.
func canceledError(ctxErr error) *APIError {
	apiErr := connectionError(ctxErr)
	apiErr.canceled = true
	return apiErr
}

func asAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsNotFound reports whether err is a 404 from the service.
func IsNotFound(err error) bool {
	apiErr, ok := asAPIError(err)
	return ok && apiErr.StatusCode == http.StatusNotFound
}

// IsUnauthorized reports whether err is an authentication failure (401/403).
func IsUnauthorized(err error) bool {
	apiErr, ok := asAPIError(err)
	if !ok {
		return false
	}
	return apiErr.StatusCode == http.StatusUnauthorized ||
		apiErr.StatusCode == http.StatusForbidden ||
		apiErr.Code == CodeInvalidAPIKey
}

// IsRateLimited reports whether err is a 429 or carries the rate limit code.
func IsRateLimited(err error) bool {
	apiErr, ok := asAPIError(err)
	if !ok {
		return false
	}
	return apiErr.StatusCode == http.StatusTooManyRequests ||
		apiErr.Code == CodeRateLimited ||
		strings.Contains(strings.ToLower(apiErr.Message), "rate limit")
}

// IsQuotaExceeded reports whether err means the account plan does not allow
// the request (402, quota code, or a "requires ... plan" message).
func IsQuotaExceeded(err error) bool {
	apiErr, ok := asAPIError(err)
	if !ok {
		return false
	}
	if apiErr.StatusCode == http.StatusPaymentRequired || apiErr.Code == CodeQuotaExceeded {
		return true
	}
	msg := strings.ToLower(apiErr.Message)
	return strings.Contains(msg, "quota") ||
		(strings.Contains(msg, "requires") && strings.Contains(msg, "plan"))
}

// IsServerError reports whether err is a 5xx from the service.
func IsServerError(err error) bool {
	apiErr, ok := asAPIError(err)
	return ok && apiErr.StatusCode >= 500
}

// IsTransient reports whether retrying the request may succeed. Requests
// abandoned through the caller's own context are not transient.
func IsTransient(err error) bool {
	apiErr, ok := asAPIError(err)
	if !ok || apiErr.canceled {
		return false
	}
	switch apiErr.StatusCode {
	case 0:
		return apiErr.Code == CodeConnection
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
