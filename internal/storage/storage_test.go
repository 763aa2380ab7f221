package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/ingest/internal/config"
	"github.com/JonMunkholm/ingest/internal/core"
)

func TestLocalStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir(), "lake")
	require.NoError(t, err)

	key := "validated_raw/orders/orders_2024-01-01_validated.csv"

	exists, err := store.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Write(ctx, key, []byte("order_id\nO1\n")))

	exists, err = store.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	data, err := store.Read(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "order_id\nO1\n", string(data))

	assert.Equal(t, "file://lake/"+key, store.Locator(key))
}

func TestLocalStore_EmptyObject(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir(), "lake")
	require.NoError(t, err)

	require.NoError(t, store.Write(ctx, "quarantine_raw/a/a.csv", nil))

	exists, err := store.Exists(ctx, "quarantine_raw/a/a.csv")
	require.NoError(t, err)
	assert.True(t, exists, "zero-byte objects still exist")
}

func TestLocalStore_ReadMissing(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "lake")
	require.NoError(t, err)

	_, err = store.Read(context.Background(), "nope.csv")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, IsRetryable(err))
}

func TestLocalStore_NoTempFilesLeft(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(root, "lake")
	require.NoError(t, err)

	require.NoError(t, store.Write(context.Background(), "k/x.csv", []byte("a")))

	entries, err := os.ReadDir(filepath.Join(root, "lake", "k"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "x.csv", entries[0].Name())
}

func TestLocalStore_Cancelled(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "lake")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.Write(ctx, "a.csv", nil), context.Canceled)
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key     string
		wantErr bool
	}{
		{"validated_raw/orders/orders_2024-01-01_validated.csv", false},
		{"a.csv", false},
		{"", true},
		{"/abs/key.csv", true},
		{"a//b.csv", true},
		{"../escape.csv", true},
		{"a/./b.csv", true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := ValidateKey(tt.key)
			assert.Equal(t, tt.wantErr, err != nil, "ValidateKey(%q) = %v", tt.key, err)
		})
	}
}

func TestLocator(t *testing.T) {
	assert.Equal(t, "gs://bucket/a/b.csv", Locator(SchemeGS, "bucket", "a/b.csv"))
	assert.Equal(t, "s3://bucket/a/b.csv", Locator(SchemeS3, "bucket", "/a/b.csv"))
}

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		raw      string
		useSSL   bool
		wantHost string
		wantSSL  bool
		wantErr  bool
	}{
		{raw: "localhost:9000", wantHost: "localhost:9000"},
		{raw: "localhost:9000", useSSL: true, wantHost: "localhost:9000", wantSSL: true},
		{raw: "https://minio.internal:9000", wantHost: "minio.internal:9000", wantSSL: true},
		{raw: "http://minio.internal:9000", wantHost: "minio.internal:9000"},
		{raw: "http://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			host, ssl, err := parseEndpoint(tt.raw, tt.useSSL)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantSSL, ssl)
		})
	}
}

func TestClassifyByText(t *testing.T) {
	tests := []struct {
		err       error
		wantCode  string
		retryable bool
	}{
		{errors.New("dial tcp: connection refused"), CodeEndpointUnreachable, true},
		{context.DeadlineExceeded, CodeTimeout, true},
		{errors.New("Access Denied."), CodePermissionDenied, false},
		{errors.New("something odd"), CodeWriteFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			got := classifyByText(tt.err)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.retryable, got.Retryable)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("missing bucket is a config error", func(t *testing.T) {
		_, err := Open(ctx, config.StorageConfig{Backend: config.BackendLocal, LocalRoot: t.TempDir()})
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrMissingConfig)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := Open(ctx, config.StorageConfig{Backend: "ftp", Bucket: "lake"})
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrMissingConfig)
	})

	t.Run("minio without credentials is a storage error", func(t *testing.T) {
		_, err := Open(ctx, config.StorageConfig{Backend: config.BackendMinIO, Bucket: "lake"})
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrStorage)
	})

	t.Run("local", func(t *testing.T) {
		store, err := Open(ctx, config.StorageConfig{Backend: config.BackendLocal, Bucket: "lake", LocalRoot: t.TempDir()})
		require.NoError(t, err)
		assert.IsType(t, &LocalStore{}, store)
		assert.NoError(t, Close(store))
	})
}
