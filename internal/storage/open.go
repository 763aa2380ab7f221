package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/ingest/internal/config"
	"github.com/JonMunkholm/ingest/internal/core"
)

// Open creates the Store selected by cfg.Backend.
// A missing bucket is a FatalError with CodeMissingConfig; any other failure
// to reach the backend is a FatalError with CodeStorage.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	if cfg.Bucket == "" {
		return nil, core.NewFatalError(core.CodeMissingConfig, "", "open store",
			errors.New("STORAGE_BUCKET is required"))
	}

	var (
		store Store
		err   error
	)
	switch strings.ToLower(cfg.Backend) {
	case config.BackendLocal, "":
		store, err = NewLocalStore(cfg.LocalRoot, cfg.Bucket)
	case config.BackendMinIO:
		store, err = NewMinIOStore(ctx, MinIOOptions{
			Endpoint:     cfg.MinIO.Endpoint,
			AccessKey:    cfg.MinIO.AccessKey,
			SecretKey:    cfg.MinIO.SecretKey,
			UseSSL:       cfg.MinIO.UseSSL,
			Region:       cfg.MinIO.Region,
			Bucket:       cfg.Bucket,
			CreateBucket: cfg.MinIO.CreateBucket,
		})
	case config.BackendGCS:
		store, err = NewGCSStore(ctx, GCSOptions{
			Bucket:          cfg.Bucket,
			CredentialsFile: cfg.GCS.CredentialsFile,
			Endpoint:        cfg.GCS.Endpoint,
		})
	default:
		return nil, core.NewFatalError(core.CodeMissingConfig, "", "open store",
			fmt.Errorf("unsupported storage backend %q", cfg.Backend))
	}
	if err != nil {
		return nil, core.NewFatalError(core.CodeStorage, "", "open store", err)
	}
	return store, nil
}

// Close releases store resources when the backend holds any.
func Close(store Store) error {
	if c, ok := store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
