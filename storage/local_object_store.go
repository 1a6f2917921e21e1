package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// LocalObjectStore keeps buckets as directories under a base directory. It is
// used for dry runs and tests; addresses are file:// URIs.
type LocalObjectStore struct {
	fs      afero.Fs
	baseDir string
}

var _ ObjectStore = (*LocalObjectStore)(nil)

func NewLocalObjectStore(fs afero.Fs, baseDir string) (*LocalObjectStore, error) {
	if err := fs.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base dir %s: %w", baseDir, err)
	}
	return &LocalObjectStore{fs: fs, baseDir: baseDir}, nil
}

func (s *LocalObjectStore) BucketExists(_ context.Context, bucket string) (bool, error) {
	return afero.DirExists(s.fs, filepath.Join(s.baseDir, bucket))
}

func (s *LocalObjectStore) CreateBucket(_ context.Context, bucket string) error {
	return s.fs.MkdirAll(filepath.Join(s.baseDir, bucket), 0o755)
}

func (s *LocalObjectStore) PutObject(_ context.Context, bucket, key string, data io.Reader) (string, error) {
	path := filepath.Join(s.baseDir, bucket, filepath.FromSlash(key))
	if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	file, err := s.fs.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, data); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	return "file://" + filepath.ToSlash(path), nil
}

func (s *LocalObjectStore) GetObject(_ context.Context, uri string) (io.ReadCloser, error) {
	path, ok := strings.CutPrefix(uri, "file://")
	if !ok {
		return nil, fmt.Errorf("not a file uri: %q", uri)
	}
	path = filepath.FromSlash(path)
	if !strings.HasPrefix(filepath.Clean(path), filepath.Clean(s.baseDir)) {
		return nil, fmt.Errorf("uri %q is outside of %s", uri, s.baseDir)
	}

	file, err := s.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", uri, err)
	}
	return file, nil
}
