// Package storage persists capture bytes to the local filesystem or S3.
package storage

import (
	"context"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// Storage writes and reads capture artifacts.
type Storage interface {
	// Put stores data under key and returns its location (a file path or s3:// URL).
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// Get reads data back from a location returned by Put.
	Get(ctx context.Context, location string) ([]byte, error)
}

// Config selects a backend. S3 is used when Bucket is set.
type Config struct {
	Dir      string
	Bucket   string
	S3Prefix string
}

// New builds the backend described by cfg.
func New(ctx context.Context, cfg Config) (Storage, error) {
	if cfg.Bucket != "" {
		s, err := NewS3Storage(ctx, S3Config{Bucket: cfg.Bucket, Prefix: cfg.S3Prefix})
		if err != nil {
			return nil, eris.Wrap(err, "storage: new s3")
		}
		return s, nil
	}
	return NewFileStorage(FileConfig{Directory: cfg.Dir}), nil
}

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// KeyFor builds an object key for a capture of rawURL, e.g.
// "example.com/docs-intro-20260102T150405Z-1a2b3c4d.png". The trailing tag
// is derived from the whole of rawURL, so URLs differing only in scheme or
// query never share a key. ext may be given with or without the leading dot.
func KeyFor(rawURL, ext string, now time.Time) string {
	host := "capture"
	slug := ""
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = sanitize(u.Hostname())
		slug = sanitize(strings.Trim(u.Path, "/"))
	}

	name := now.UTC().Format("20060102T150405Z") + "-" + urlTag(rawURL)
	if slug != "" {
		if len(slug) > 80 {
			slug = slug[:80]
		}
		name = slug + "-" + name
	}

	ext = strings.TrimPrefix(ext, ".")
	if ext != "" {
		name += "." + ext
	}
	return path.Join(host, name)
}

// urlTag is a short stable fingerprint of rawURL (UUIDv5, URL namespace).
func urlTag(rawURL string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(rawURL)).String()[:8]
}

func sanitize(s string) string {
	s = unsafeKeyChars.ReplaceAllString(s, "-")
	return strings.Trim(s, "-.")
}

// ExtFor maps a capture content type or output format to a file extension.
func ExtFor(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch ct {
	case "image/png", "png":
		return "png"
	case "image/jpeg", "image/jpg", "jpeg", "jpg":
		return "jpg"
	case "image/webp", "webp":
		return "webp"
	case "image/avif", "avif":
		return "avif"
	case "application/pdf", "pdf":
		return "pdf"
	case "video/mp4", "mp4":
		return "mp4"
	case "video/webm", "webm":
		return "webm"
	case "image/gif", "gif":
		return "gif"
	case "application/json", "json":
		return "json"
	case "text/markdown", "markdown":
		return "md"
	case "text/html", "html":
		return "html"
	case "text/plain", "text":
		return "txt"
	default:
		return "bin"
	}
}
