package snapapi

import (
	"context"

	"github.com/rotisserie/eris"
)

// ScreenshotFromHTML renders raw HTML instead of fetching a URL.
func ScreenshotFromHTML(ctx context.Context, client Client, html string, opts ScreenshotOptions) (*Capture[ScreenshotResult], error) {
	opts.URL, opts.Markdown = "", ""
	opts.HTML = html
	return client.Screenshot(ctx, opts)
}

// ScreenshotFromMarkdown renders markdown instead of fetching a URL.
func ScreenshotFromMarkdown(ctx context.Context, client Client, markdown string, opts ScreenshotOptions) (*Capture[ScreenshotResult], error) {
	opts.URL, opts.HTML = "", ""
	opts.Markdown = markdown
	return client.Screenshot(ctx, opts)
}

// ScreenshotDevice captures url emulating a device preset such as "iphone-15-pro".
func ScreenshotDevice(ctx context.Context, client Client, url, device string, opts ScreenshotOptions) (*Capture[ScreenshotResult], error) {
	if device == "" {
		return nil, &ValidationError{Fields: []FieldError{{Field: "device", Rule: "required", Message: "device is required"}}}
	}
	opts.URL = url
	opts.Device = device
	return client.Screenshot(ctx, opts)
}

// PDF captures url as a PDF document. pdf may be nil.
func PDF(ctx context.Context, client Client, url string, pdf *PDFOptions) (*Capture[ScreenshotResult], error) {
	return client.Screenshot(ctx, ScreenshotOptions{
		URL:        url,
		Format:     FormatPDF,
		PDFOptions: pdf,
	})
}

// ScreenshotBytes returns the decoded capture whatever response type was requested.
func ScreenshotBytes(ctx context.Context, client Client, opts ScreenshotOptions) ([]byte, error) {
	capture, err := client.Screenshot(ctx, opts)
	if err != nil {
		return nil, err
	}
	b, err := capture.Bytes()
	if err != nil {
		return nil, eris.Wrap(err, "snapapi: screenshot bytes")
	}
	return b, nil
}

func extract(ctx context.Context, client Client, url string, typ ExtractType) (*ExtractResult, error) {
	return client.Extract(ctx, ExtractOptions{URL: url, Type: typ})
}

// ExtractMarkdown returns the page converted to markdown.
func ExtractMarkdown(ctx context.Context, client Client, url string) (*ExtractResult, error) {
	return extract(ctx, client, url, ExtractTypeMarkdown)
}

// ExtractText returns the visible page text.
func ExtractText(ctx context.Context, client Client, url string) (*ExtractResult, error) {
	return extract(ctx, client, url, ExtractTypeText)
}

// ExtractHTML returns the rendered HTML.
func ExtractHTML(ctx context.Context, client Client, url string) (*ExtractResult, error) {
	return extract(ctx, client, url, ExtractTypeHTML)
}

// ExtractArticle returns the main article body, readability style.
func ExtractArticle(ctx context.Context, client Client, url string) (*ExtractResult, error) {
	return extract(ctx, client, url, ExtractTypeArticle)
}

// ExtractStructured returns structured page data.
func ExtractStructured(ctx context.Context, client Client, url string) (*ExtractResult, error) {
	return extract(ctx, client, url, ExtractTypeStructured)
}

// ExtractLinks returns every link on the page.
func ExtractLinks(ctx context.Context, client Client, url string) (*ExtractResult, error) {
	return extract(ctx, client, url, ExtractTypeLinks)
}

// ExtractImages returns every image on the page.
func ExtractImages(ctx context.Context, client Client, url string) (*ExtractResult, error) {
	return extract(ctx, client, url, ExtractTypeImages)
}

// ExtractMetadata returns the page metadata (title, description, open graph).
func ExtractMetadata(ctx context.Context, client Client, url string) (*ExtractResult, error) {
	return extract(ctx, client, url, ExtractTypeMetadata)
}
