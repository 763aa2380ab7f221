package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// SchemeS3 is the locator scheme of MinIOStore.
const SchemeS3 = "s3"

// MinIOOptions configures a MinIOStore.
type MinIOOptions struct {
	Endpoint     string // host:port or http(s) URL
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	Region       string
	Bucket       string
	CreateBucket bool // Create the bucket when it does not exist
}

// MinIOStore implements Store on MinIO or any S3-compatible endpoint.
type MinIOStore struct {
	client *minio.Client
	bucket string
}

// NewMinIOStore connects to the endpoint and checks the bucket is reachable.
func NewMinIOStore(ctx context.Context, opts MinIOOptions) (*MinIOStore, error) {
	if opts.Bucket == "" {
		return nil, wrapError(CodeBucketNotFound, false, errors.New("bucket is required"))
	}
	if opts.Endpoint == "" {
		return nil, wrapError(CodeEndpointUnreachable, false, errors.New("endpoint is required"))
	}
	if opts.AccessKey == "" || opts.SecretKey == "" {
		return nil, wrapError(CodeAuthInvalid, false, errors.New("credentials are required"))
	}

	endpoint, useSSL, err := parseEndpoint(opts.Endpoint, opts.UseSSL)
	if err != nil {
		return nil, wrapError(CodeEndpointUnreachable, false, err)
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: useSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, wrapError(CodeEndpointUnreachable, true, fmt.Errorf("failed to create minio client: %w", err))
	}

	s := &MinIOStore{client: client, bucket: opts.Bucket}
	if err := s.ensureBucket(ctx, opts.CreateBucket, opts.Region); err != nil {
		return nil, err
	}
	return s, nil
}

// parseEndpoint accepts "host:port" or a URL whose scheme decides TLS.
func parseEndpoint(raw string, useSSL bool) (string, bool, error) {
	if !strings.Contains(raw, "://") {
		return raw, useSSL, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("invalid endpoint URL: %w", err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid endpoint URL %q", raw)
	}
	return u.Host, useSSL || u.Scheme == "https", nil
}

func (s *MinIOStore) ensureBucket(ctx context.Context, create bool, region string) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return classifyMinioError(err)
	}
	if exists {
		return nil
	}
	if !create {
		return wrapError(CodeBucketNotFound, false, fmt.Errorf("no such bucket: %s", s.bucket))
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return classifyMinioError(err)
	}
	return nil
}

func (s *MinIOStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, err
	}
	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || (resp.StatusCode == http.StatusNotFound && resp.Code != "NoSuchBucket") {
		return false, nil
	}
	return false, classifyMinioError(err)
}

func (s *MinIOStore) Write(ctx context.Context, key string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType(key),
	})
	if err != nil {
		return classifyMinioError(err)
	}
	return nil
}

func (s *MinIOStore) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, classifyMinioError(err)
	}
	defer obj.Close()

	// GetObject is lazy; a missing key surfaces on first read.
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, classifyMinioError(err)
	}
	return data, nil
}

func (s *MinIOStore) Locator(key string) string {
	return Locator(SchemeS3, s.bucket, key)
}

// classifyMinioError converts minio-go errors to a coded Error.
func classifyMinioError(err error) *Error {
	if err == nil {
		return nil
	}

	switch minio.ToErrorResponse(err).Code {
	case "NoSuchBucket":
		return wrapError(CodeBucketNotFound, false, err)
	case "NoSuchKey":
		return wrapError(CodeObjectNotFound, false, err)
	case "AccessDenied":
		return wrapError(CodePermissionDenied, false, err)
	case "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return wrapError(CodeAuthInvalid, false, err)
	}

	return classifyByText(err)
}

// classifyByText is the fallback when a backend error carries no code.
func classifyByText(err error) *Error {
	errStr := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		strings.Contains(errStr, "timeout"),
		strings.Contains(errStr, "deadline"):
		return wrapError(CodeTimeout, true, err)
	case strings.Contains(errStr, "connection refused"),
		strings.Contains(errStr, "unreachable"),
		strings.Contains(errStr, "no such host"):
		return wrapError(CodeEndpointUnreachable, true, err)
	case strings.Contains(errStr, "access denied"),
		strings.Contains(errStr, "permission"):
		return wrapError(CodePermissionDenied, false, err)
	default:
		return wrapError(CodeWriteFailed, true, err)
	}
}

func contentType(key string) string {
	if strings.HasSuffix(key, ".csv") {
		return "text/csv"
	}
	return "application/octet-stream"
}
