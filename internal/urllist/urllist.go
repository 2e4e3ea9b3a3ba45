// Package urllist reads lists of URLs to capture from text, CSV, XLSX, JSON,
// YAML and sitemap XML sources.
package urllist

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// Format identifies how a source is parsed.
type Format string

// Supported formats.
const (
	FormatText    Format = "txt"
	FormatCSV     Format = "csv"
	FormatXLSX    Format = "xlsx"
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatSitemap Format = "xml"
)

// Options tunes parsing.
type Options struct {
	// Column selects the CSV/XLSX column by header name or 0-based index.
	// Empty means a header named "url" if present, otherwise the first column.
	Column string
	// Sheet selects an XLSX sheet by name. Empty means the first sheet.
	Sheet string
	// Charset decodes text and CSV input, e.g. "windows-1252". Sitemaps use
	// the charset declared in their XML prolog instead.
	Charset string
	// Limit caps the number of URLs returned. Zero means no limit.
	Limit int
	// Format overrides detection from the file extension.
	Format Format
	// HTTPClient fetches http(s) sources. Defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// FormatFor guesses a format from a file name. Unknown extensions are read as text.
func FormatFor(name string) Format {
	ext := strings.ToLower(path.Ext(name))
	switch ext {
	case ".csv", ".tsv":
		return FormatCSV
	case ".xlsx":
		return FormatXLSX
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".xml":
		return FormatSitemap
	default:
		return FormatText
	}
}

// Read loads URLs from source: a file path, "-" for stdin, or an http(s) URL
// (typically a sitemap). Results are trimmed, de-duplicated in order and
// blank entries dropped.
func Read(ctx context.Context, source string, opts Options) ([]string, error) {
	format := opts.Format

	switch {
	case source == "-":
		if format == "" {
			format = FormatText
		}
		return Parse(ctx, os.Stdin, format, opts)

	case strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://"):
		body, err := fetch(ctx, opts.HTTPClient, source)
		if err != nil {
			return nil, err
		}
		defer body.Close() //nolint:errcheck
		if format == "" {
			u, _ := url.Parse(source)
			format = FormatFor(u.Path)
			if format == FormatText && strings.Contains(u.Path, "sitemap") {
				format = FormatSitemap
			}
		}
		return Parse(ctx, body, format, opts)

	default:
		if format == "" {
			format = FormatFor(source)
		}
		if format == FormatXLSX {
			return readXLSXFile(ctx, source, opts)
		}
		f, err := os.Open(filepath.Clean(source))
		if err != nil {
			return nil, eris.Wrapf(err, "urllist: open %s", source)
		}
		defer f.Close() //nolint:errcheck
		if format == FormatCSV && strings.EqualFold(filepath.Ext(source), ".tsv") {
			return parseCSV(ctx, decode(f, opts.Charset), '\t', opts)
		}
		return Parse(ctx, f, format, opts)
	}
}

// Parse reads URLs from r in the given format.
func Parse(ctx context.Context, r io.Reader, format Format, opts Options) ([]string, error) {
	switch format {
	case FormatText, "":
		return parseText(ctx, decode(r, opts.Charset), opts)
	case FormatCSV:
		return parseCSV(ctx, decode(r, opts.Charset), ',', opts)
	case FormatXLSX:
		return parseXLSX(ctx, r, opts)
	case FormatJSON:
		return parseJSON(ctx, r, opts)
	case FormatYAML:
		return parseYAML(r, opts)
	case FormatSitemap:
		return parseSitemap(ctx, r, opts)
	default:
		return nil, eris.Errorf("urllist: unsupported format %q", format)
	}
}

// decode wraps r in a charset decoder when one is named. Unknown charsets
// surface as a read error.
func decode(r io.Reader, charset string) io.Reader {
	if charset == "" || strings.EqualFold(charset, "utf-8") || strings.EqualFold(charset, "utf8") {
		return r
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return errReader{err: eris.Wrapf(err, "urllist: unsupported charset %q", charset)}
	}
	return enc.NewDecoder().Reader(r)
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }

func fetch(ctx context.Context, client *http.Client, source string) (io.ReadCloser, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, eris.Wrap(err, "urllist: create request")
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "urllist: fetch %s", source)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close() //nolint:errcheck
		return nil, eris.Errorf("urllist: fetch %s: HTTP %d", source, resp.StatusCode)
	}
	return resp.Body, nil
}

// collector de-duplicates URLs in order and enforces Limit.
type collector struct {
	seen  map[string]struct{}
	urls  []string
	limit int
}

func newCollector(limit int) *collector {
	return &collector{seen: make(map[string]struct{}), limit: limit}
}

// add records u and reports whether more URLs are wanted.
func (c *collector) add(u string) bool {
	u = strings.TrimSpace(strings.TrimPrefix(u, "\ufeff"))
	if u == "" {
		return !c.full()
	}
	if _, dup := c.seen[u]; !dup {
		c.seen[u] = struct{}{}
		c.urls = append(c.urls, u)
	}
	return !c.full()
}

func (c *collector) full() bool {
	return c.limit > 0 && len(c.urls) >= c.limit
}
