package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// SchemeGS is the locator scheme of GCSStore.
const SchemeGS = "gs"

// GCSOptions configures a GCSStore.
type GCSOptions struct {
	Bucket          string
	CredentialsFile string // Service account key; empty uses application default credentials
	Endpoint        string // Optional API endpoint override
}

// GCSStore implements Store on a Google Cloud Storage bucket.
type GCSStore struct {
	client *gcs.Client
	bucket *gcs.BucketHandle
	name   string
}

// NewGCSStore creates a client and verifies the bucket is accessible.
func NewGCSStore(ctx context.Context, opts GCSOptions) (*GCSStore, error) {
	if opts.Bucket == "" {
		return nil, wrapError(CodeBucketNotFound, false, errors.New("bucket is required"))
	}

	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}

	client, err := gcs.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, wrapError(CodeAuthInvalid, false, fmt.Errorf("failed to create GCS client: %w", err))
	}

	bucket := client.Bucket(opts.Bucket)
	if _, err := bucket.Attrs(ctx); err != nil {
		client.Close()
		if errors.Is(err, gcs.ErrBucketNotExist) {
			return nil, wrapError(CodeBucketNotFound, false, fmt.Errorf("no such bucket: %s", opts.Bucket))
		}
		return nil, classifyGCSError(err)
	}

	return &GCSStore{client: client, bucket: bucket, name: opts.Bucket}, nil
}

func (s *GCSStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, err
	}
	_, err := s.bucket.Object(key).Attrs(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return false, nil
	}
	return false, classifyGCSError(err)
}

func (s *GCSStore) Write(ctx context.Context, key string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	w := s.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType(key)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return classifyGCSError(err)
	}
	// The upload is only committed on Close.
	if err := w.Close(); err != nil {
		return classifyGCSError(err)
	}
	return nil
}

func (s *GCSStore) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	r, err := s.bucket.Object(key).NewReader(ctx)
	if err != nil {
		return nil, classifyGCSError(err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, classifyGCSError(err)
	}
	return data, nil
}

func (s *GCSStore) Locator(key string) string {
	return Locator(SchemeGS, s.name, key)
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

// classifyGCSError converts GCS client errors to a coded Error.
func classifyGCSError(err error) *Error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gcs.ErrObjectNotExist):
		return wrapError(CodeObjectNotFound, false, err)
	case errors.Is(err, gcs.ErrBucketNotExist):
		return wrapError(CodeBucketNotFound, false, err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized:
			return wrapError(CodeAuthInvalid, false, err)
		case http.StatusForbidden:
			return wrapError(CodePermissionDenied, false, err)
		case http.StatusNotFound:
			return wrapError(CodeObjectNotFound, false, err)
		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return wrapError(CodeWriteFailed, true, err)
		}
	}

	return classifyByText(err)
}
