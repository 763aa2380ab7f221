// Package storage provides the object stores artifacts are published to.
//
// Every backend exposes the same four operations on opaque slash-separated
// keys inside one container (bucket). Locators are URLs of the form
// <scheme>://<container>/<key>:
//
//	file://lake/validated_raw/orders/orders_2024-01-01_validated.csv
//	s3://lake/...
//	gs://lake/...
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Store is an object store scoped to a single container.
type Store interface {
	// Exists reports whether an object is stored at key.
	Exists(ctx context.Context, key string) (bool, error)
	// Write stores data at key, replacing any existing object.
	Write(ctx context.Context, key string, data []byte) error
	// Read returns the object at key. A missing object is ErrNotFound.
	Read(ctx context.Context, key string) ([]byte, error)
	// Locator returns the canonical URL of key.
	Locator(key string) string
}

// ErrNotFound is returned by Read when no object exists at the key.
var ErrNotFound = errors.New("object not found")

// Error codes for backend failures.
const (
	CodeEndpointUnreachable = "E_ENDPOINT_UNREACHABLE"
	CodeAuthInvalid         = "E_AUTH_INVALID"
	CodeBucketNotFound      = "E_BUCKET_NOT_FOUND"
	CodeObjectNotFound      = "E_OBJECT_NOT_FOUND"
	CodePermissionDenied    = "E_PERMISSION_DENIED"
	CodeTimeout             = "E_TIMEOUT"
	CodeInvalidKey          = "E_INVALID_KEY"
	CodeWriteFailed         = "E_WRITE_FAILED"
	CodeReadFailed          = "E_READ_FAILED"
)

// Error wraps a backend failure with a code and a retryability hint.
type Error struct {
	Code      string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrNotFound) match object-not-found failures.
func (e *Error) Is(target error) bool {
	return target == ErrNotFound && e.Code == CodeObjectNotFound
}

func wrapError(code string, retryable bool, err error) *Error {
	return &Error{Code: code, Retryable: retryable, Err: err}
}

// IsRetryable reports whether err carries a retryable storage Error.
func IsRetryable(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Retryable
}

// Locator formats a canonical object URL.
func Locator(scheme, container, key string) string {
	return scheme + "://" + container + "/" + strings.TrimPrefix(key, "/")
}

// ValidateKey rejects keys that would escape the container or are empty.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") {
		return wrapError(CodeInvalidKey, false, fmt.Errorf("invalid key %q", key))
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return wrapError(CodeInvalidKey, false, fmt.Errorf("invalid key %q", key))
		}
	}
	return nil
}
