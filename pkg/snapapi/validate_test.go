package snapapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldsOf(t *testing.T, err error) map[string]FieldError {
	t.Helper()
	require.Error(t, err)
	ve, ok := err.(*ValidationError)
	require.True(t, ok, "expected *ValidationError, got %T", err)
	out := make(map[string]FieldError, len(ve.Fields))
	for _, f := range ve.Fields {
		out[f.Field] = f
	}
	return out
}

func TestValidateScreenshotOptions(t *testing.T) {
	valid := ScreenshotOptions{URL: "https://example.com"}.withDefaults()
	assert.NoError(t, validateOptions(valid))

	html := ScreenshotOptions{HTML: "<p>hi</p>"}.withDefaults()
	assert.NoError(t, validateOptions(html))

	fields := fieldsOf(t, validateOptions(ScreenshotOptions{
		URL:               "https://example.com",
		Markdown:          "# both",
		Format:            "gif",
		Width:             5000,
		Height:            800,
		DeviceScaleFactor: 4,
		WaitUntil:         "idle",
		Geolocation:       &Geolocation{Latitude: 120},
		PDFOptions:        &PDFOptions{Scale: Float(5)},
	}))

	assert.Equal(t, "source", fields["url"].Rule)
	assert.Equal(t, "exactly one of url, html or markdown is required", fields["url"].Message)
	assert.Equal(t, "format must be one of [png jpeg webp avif pdf]", fields["format"].Message)
	assert.Equal(t, "width must be at most 3840", fields["width"].Message)
	assert.Contains(t, fields, "deviceScaleFactor")
	assert.Contains(t, fields, "waitUntil")
	assert.Contains(t, fields, "geolocation.latitude")
	assert.Contains(t, fields, "pdfOptions.scale")
}

func TestValidateBatchOptions(t *testing.T) {
	fields := fieldsOf(t, validateOptions(BatchOptions{}.withDefaults()))
	assert.Equal(t, "urls is required", fields["urls"].Message)

	tooMany := BatchOptions{URLs: make([]string, 101)}.withDefaults()
	for i := range tooMany.URLs {
		tooMany.URLs[i] = "https://example.com"
	}
	fields = fieldsOf(t, validateOptions(tooMany))
	assert.Equal(t, "urls must contain at most 100 item(s)", fields["urls"].Message)

	fields = fieldsOf(t, validateOptions(BatchOptions{URLs: []string{"https://a.test", ""}}.withDefaults()))
	assert.Contains(t, fields, "urls[1]")

	fields = fieldsOf(t, validateOptions(BatchOptions{URLs: []string{"https://a.test"}, WebhookURL: "nope"}.withDefaults()))
	assert.Equal(t, "webhookUrl must be a valid URL", fields["webhookUrl"].Message)
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Fields: []FieldError{
		{Field: "url", Message: "url is required"},
		{Field: "prompt", Message: "prompt is required"},
	}}
	assert.Equal(t, "snapapi: invalid options: url is required; prompt is required", err.Error())
}
