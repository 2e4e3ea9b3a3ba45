package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyFor(t *testing.T) {
	now := time.Date(2026, 1, 2, 15, 4, 5, 0, time.FixedZone("EST", -5*3600))

	tests := []struct {
		name string
		url  string
		ext  string
		want string
	}{
		{"root", "https://example.com", "png", "example.com/20260102T200405Z-4fd35a71.png"},
		{"path", "https://example.com/docs/intro?x=1", ".pdf", "example.com/docs-intro-20260102T200405Z-cbc76993.pdf"},
		{"port stripped", "http://localhost:8080/a b", "jpg", "localhost/a-b-20260102T200405Z-ddb60d16.jpg"},
		{"not a url", "<html>", "png", "capture/20260102T200405Z-a7f79f7b.png"},
		{"no ext", "https://example.com", "", "example.com/20260102T200405Z-4fd35a71"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KeyFor(tt.url, tt.ext, now))
		})
	}
}

func TestKeyFor_DistinctPerURL(t *testing.T) {
	now := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

	urls := []string{
		"https://example.com/list?page=1",
		"https://example.com/list?page=2",
		"http://example.com/list",
	}
	seen := map[string]string{}
	for _, u := range urls {
		key := KeyFor(u, "png", now)
		assert.True(t, strings.HasPrefix(key, "example.com/list-20260102T150405Z-"), key)
		prev, dup := seen[key]
		assert.False(t, dup, "%s and %s share key %s", prev, u, key)
		seen[key] = u
	}
	assert.Equal(t, KeyFor(urls[0], "png", now), KeyFor(urls[0], "png", now))
}

func TestFileStorage_QueryOnlyURLsKeepTheirBytes(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStorage(FileConfig{Directory: dir})
	ctx := context.Background()
	now := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

	loc1, err := s.Put(ctx, KeyFor("https://example.com/list?page=1", "png", now), []byte("page-A"), "image/png")
	require.NoError(t, err)
	loc2, err := s.Put(ctx, KeyFor("https://example.com/list?page=2", "png", now), []byte("page-B"), "image/png")
	require.NoError(t, err)
	require.NotEqual(t, loc1, loc2)

	got, err := s.Get(ctx, loc1)
	require.NoError(t, err)
	assert.Equal(t, []byte("page-A"), got)
}

func TestExtFor(t *testing.T) {
	assert.Equal(t, "png", ExtFor("image/png"))
	assert.Equal(t, "jpg", ExtFor("image/jpeg; charset=binary"))
	assert.Equal(t, "pdf", ExtFor("pdf"))
	assert.Equal(t, "mp4", ExtFor("video/mp4"))
	assert.Equal(t, "md", ExtFor("markdown"))
	assert.Equal(t, "bin", ExtFor("application/octet-stream"))
}

func TestFileStorage_PutGet(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStorage(FileConfig{Directory: dir})
	ctx := context.Background()

	loc, err := s.Put(ctx, "example.com/shot.png", []byte("png-bytes"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "example.com", "shot.png"), loc)

	got, err := s.Get(ctx, loc)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), got)

	_, err = s.Get(ctx, filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}

func TestFileStorage_CanceledContext(t *testing.T) {
	s := NewFileStorage(FileConfig{Directory: t.TempDir()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Put(ctx, "a.png", []byte("x"), "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_FileByDefault(t *testing.T) {
	s, err := New(context.Background(), Config{Dir: t.TempDir()})
	require.NoError(t, err)
	_, ok := s.(*fileStorage)
	assert.True(t, ok)
}

type fakeS3 struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, _ := io.ReadAll(in.Body)
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[key] = data
	f.types[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestS3Storage_PutGet(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	s := newS3Storage(fake, S3Config{Bucket: "captures", Prefix: "/shots/"})
	ctx := context.Background()

	loc, err := s.Put(ctx, "example.com/a.png", []byte("\x89PNG\r\n\x1a\n"), "")
	require.NoError(t, err)
	assert.Equal(t, "s3://captures/shots/example.com/a.png", loc)
	assert.Equal(t, "image/png", fake.types["captures/shots/example.com/a.png"])

	got, err := s.Get(ctx, loc)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG\r\n\x1a\n"), got)

	_, err = s.Put(ctx, "b.pdf", []byte("%PDF"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", fake.types["captures/shots/b.pdf"])
}

func TestS3Storage_Errors(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}, err: errors.New("access denied")}
	s := newS3Storage(fake, S3Config{Bucket: "captures"})

	_, err := s.Put(context.Background(), "a.png", []byte("x"), "image/png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")

	_, err = s.Get(context.Background(), "s3://captures/a.png")
	assert.Error(t, err)
}
