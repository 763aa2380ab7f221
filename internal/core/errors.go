package core

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a pipeline-fatal condition.
type ErrorCode string

const (
	CodeMissingConfig ErrorCode = "missing_config"
	CodeSourceMissing ErrorCode = "source_missing"
	CodeSourceRead    ErrorCode = "source_read"
	CodeStorage       ErrorCode = "storage"
	CodeUnknownEntity ErrorCode = "unknown_entity"
)

// Sentinel errors for errors.Is checks against a FatalError.
var (
	ErrMissingConfig = errors.New("missing required configuration")
	ErrSourceMissing = errors.New("source file not found")
	ErrSourceRead    = errors.New("source file unreadable")
	ErrStorage       = errors.New("object store failure")
	ErrUnknownEntity = errors.New("unknown entity")
)

var codeSentinels = map[ErrorCode]error{
	CodeMissingConfig: ErrMissingConfig,
	CodeSourceMissing: ErrSourceMissing,
	CodeSourceRead:    ErrSourceRead,
	CodeStorage:       ErrStorage,
	CodeUnknownEntity: ErrUnknownEntity,
}

// FatalError aborts the pipeline for one entity.
// Invalid rows never produce a FatalError; they are quarantined.
type FatalError struct {
	Code   ErrorCode
	Entity string // Empty when the failure is not tied to one entity
	Op     string // Operation that failed: "load", "publish", "upload raw"
	Err    error
}

// NewFatalError wraps err with a code and context.
func NewFatalError(code ErrorCode, entity, op string, err error) *FatalError {
	return &FatalError{Code: code, Entity: entity, Op: op, Err: err}
}

func (e *FatalError) Error() string {
	msg := string(e.Code)
	if e.Err != nil {
		msg = e.Err.Error()
	}
	switch {
	case e.Entity != "" && e.Op != "":
		return fmt.Sprintf("%s %s: %s", e.Op, e.Entity, msg)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, msg)
	default:
		return msg
	}
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel that corresponds to the error's code.
func (e *FatalError) Is(target error) bool {
	sentinel, ok := codeSentinels[e.Code]
	return ok && sentinel == target
}

// CodeOf returns the code of the first FatalError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var fe *FatalError
	if errors.As(err, &fe) {
		return fe.Code, true
	}
	return "", false
}
