package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rotisserie/eris"
)

// S3Config configures the S3 backend. S3_ENDPOINT_URL points it at an
// S3-compatible server such as MinIO.
type S3Config struct {
	Bucket string
	Prefix string
}

// s3API is the subset of *s3.Client used here.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type s3Storage struct {
	client s3API
	config S3Config
}

// NewS3Storage loads the default AWS config and returns an S3 backend.
func NewS3Storage(ctx context.Context, cfg S3Config) (Storage, error) {
	c, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "storage: load aws config")
	}

	endpoint, hasEndpoint := os.LookupEnv("S3_ENDPOINT_URL")
	client := s3.NewFromConfig(c, func(o *s3.Options) {
		if hasEndpoint && endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = true
	})

	return newS3Storage(client, cfg), nil
}

func newS3Storage(client s3API, cfg S3Config) *s3Storage {
	cfg.Prefix = strings.Trim(cfg.Prefix, "/")
	return &s3Storage{client: client, config: cfg}
}

func (s *s3Storage) objectKey(key string) string {
	if s.config.Prefix == "" {
		return key
	}
	return path.Join(s.config.Prefix, key)
}

func (s *s3Storage) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	objectKey := s.objectKey(key)

	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.config.Bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}); err != nil {
		return "", eris.Wrapf(err, "storage: put s3://%s/%s", s.config.Bucket, objectKey)
	}

	return "s3://" + s.config.Bucket + "/" + objectKey, nil
}

func (s *s3Storage) Get(ctx context.Context, location string) ([]byte, error) {
	key := strings.TrimPrefix(location, "s3://"+s.config.Bucket+"/")

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, eris.Wrapf(err, "storage: get %s", location)
	}
	defer out.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, eris.Wrap(err, "storage: read s3 object")
	}
	return data, nil
}
