package storage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// FileConfig configures the filesystem backend.
type FileConfig struct {
	Directory string
}

type fileStorage struct {
	config FileConfig
}

// NewFileStorage creates a filesystem backend rooted at cfg.Directory.
func NewFileStorage(cfg FileConfig) Storage {
	if cfg.Directory == "" {
		cfg.Directory = "."
	}
	return &fileStorage{config: cfg}
}

func (f *fileStorage) Put(ctx context.Context, key string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	filePath := filepath.Join(f.config.Directory, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return "", eris.Wrap(err, "storage: create output directory")
	}
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return "", eris.Wrapf(err, "storage: write %s", filePath)
	}
	return filePath, nil
}

func (f *fileStorage) Get(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(location)
	if err != nil {
		return nil, eris.Wrapf(err, "storage: read %s", location)
	}
	return data, nil
}
