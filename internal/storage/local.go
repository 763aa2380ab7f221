package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// SchemeFile is the locator scheme of LocalStore.
const SchemeFile = "file"

// LocalStore keeps objects on disk under <root>/<bucket>/<key>.
// It backs development runs and tests.
type LocalStore struct {
	root   string
	bucket string
}

// NewLocalStore creates a store for bucket rooted at dir.
func NewLocalStore(dir, bucket string) (*LocalStore, error) {
	if bucket == "" {
		return nil, wrapError(CodeBucketNotFound, false, errors.New("bucket is required"))
	}
	if err := os.MkdirAll(filepath.Join(dir, bucket), 0o755); err != nil {
		return nil, wrapError(CodePermissionDenied, false, err)
	}
	return &LocalStore{root: dir, bucket: bucket}, nil
}

func (s *LocalStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := ValidateKey(key); err != nil {
		return false, err
	}
	info, err := os.Stat(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, wrapError(CodeReadFailed, true, err)
	}
	return !info.IsDir(), nil
}

// Write stores data atomically: readers never observe a partial object.
func (s *LocalStore) Write(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateKey(key); err != nil {
		return err
	}

	full := s.path(key)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return wrapError(CodePermissionDenied, false, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".tmp-*")
	if err != nil {
		return wrapError(CodeWriteFailed, true, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return wrapError(CodeWriteFailed, true, err)
	}
	if err := tmp.Close(); err != nil {
		return wrapError(CodeWriteFailed, true, err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return wrapError(CodeWriteFailed, true, fmt.Errorf("rename into place: %w", err))
	}
	return nil
}

func (s *LocalStore) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, wrapError(CodeObjectNotFound, false, err)
		}
		return nil, wrapError(CodeReadFailed, true, err)
	}
	return data, nil
}

func (s *LocalStore) Locator(key string) string {
	return Locator(SchemeFile, s.bucket, key)
}

func (s *LocalStore) path(key string) string {
	return filepath.Join(s.root, s.bucket, filepath.FromSlash(key))
}
