package core

// # Error Codes Reference
//
// This file defines user-facing messages with codes for operator reference.
// Run failures surface through the CLI and the status API; operators can
// quote the code when reporting a failed run.
//
// Error codes are grouped by category:
//
// # Pipeline Errors (RUN001-RUN099)
//
// Fatal conditions raised as a FatalError. These are matched by code, not text:
//
//	RUN001 - Missing configuration: The storage bucket is not configured
//	         Action: Set STORAGE_BUCKET and rerun
//
//	RUN002 - Source missing: The day's raw file was not found
//	         Action: Check ECOMMERCE_DATA_DIR and the run date
//
//	RUN003 - Source unreadable: The raw file could not be parsed
//	         Action: Check the file is UTF-8 CSV with a header row
//
//	RUN004 - Storage failure: The object store rejected a request
//	         Action: Check object store credentials and connectivity
//
//	RUN005 - Unknown entity: No rule table is registered for the entity
//	         Action: Use one of the registered entity names
//
// # Storage Errors (STO001-STO099)
//
// Matched by pattern when the backend error escapes without a code:
//
//	STO001 - Bucket missing: "no such bucket", "bucket doesn't exist"
//	STO002 - Access denied: "access denied", "permission denied", "forbidden"
//	STO003 - Connection refused: "connection refused"
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Invalid run date: "invalid date"
//	REQ002 - Run in progress: "run already in progress"
//	REQ003 - Cancelled: "context canceled"
//	REQ004 - Timed out: "context deadline exceeded", "timeout"
//	REQ005 - Busy: "too many concurrent runs"
//	REQ006 - Unauthorized: "api key"
//
// # Ledger Errors (DB001-DB099)
//
//	DB001 - Ledger unavailable: "failed to connect", "connection reset"
//	DB002 - Run not found: "run not found"

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for operator reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// codeMessages maps FatalError codes to user messages.
var codeMessages = map[ErrorCode]UserMessage{
	CodeMissingConfig: {
		Message: "The storage bucket is not configured",
		Action:  "Set STORAGE_BUCKET and rerun",
		Code:    "RUN001",
	},
	CodeSourceMissing: {
		Message: "The raw file for this run date was not found",
		Action:  "Check ECOMMERCE_DATA_DIR and the run date",
		Code:    "RUN002",
	},
	CodeSourceRead: {
		Message: "The raw file could not be read",
		Action:  "Check the file is UTF-8 CSV with a header row",
		Code:    "RUN003",
	},
	CodeStorage: {
		Message: "The object store rejected a request",
		Action:  "Check object store credentials and connectivity",
		Code:    "RUN004",
	},
	CodeUnknownEntity: {
		Message: "No rules are registered for this entity",
		Action:  "Use one of the registered entity names",
		Code:    "RUN005",
	},
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// Patterns are matched using strings.Contains; the first match wins, so
// specific patterns come before general ones.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Storage Errors (STO001-STO003)
	// =========================================================================
	{
		pattern: "no such bucket",
		msg: UserMessage{
			Message: "The storage bucket does not exist",
			Action:  "Create the bucket or fix STORAGE_BUCKET",
			Code:    "STO001",
		},
	},
	{
		pattern: "bucket doesn't exist",
		msg: UserMessage{
			Message: "The storage bucket does not exist",
			Action:  "Create the bucket or fix STORAGE_BUCKET",
			Code:    "STO001",
		},
	},
	{
		pattern: "access denied",
		msg: UserMessage{
			Message: "Access to the object store was denied",
			Action:  "Check the configured access keys",
			Code:    "STO002",
		},
	},
	{
		pattern: "permission denied",
		msg: UserMessage{
			Message: "Access to the object store was denied",
			Action:  "Check the configured access keys",
			Code:    "STO002",
		},
	},
	{
		pattern: "forbidden",
		msg: UserMessage{
			Message: "Access to the object store was denied",
			Action:  "Check the configured access keys",
			Code:    "STO002",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to reach the object store",
			Action:  "Please try again in a few moments",
			Code:    "STO003",
		},
	},

	// =========================================================================
	// Request Errors (REQ001-REQ006)
	// =========================================================================
	{
		pattern: "invalid date",
		msg: UserMessage{
			Message: "Invalid run date",
			Action:  "Use YYYY-MM-DD",
			Code:    "REQ001",
		},
	},
	{
		pattern: "run already in progress",
		msg: UserMessage{
			Message: "A run for this date is already in progress",
			Action:  "Wait for it to finish and check the summary",
			Code:    "REQ002",
		},
	},
	{
		pattern: "too many concurrent runs",
		msg: UserMessage{
			Message: "Other runs are still in progress",
			Action:  "Please wait a moment and try again",
			Code:    "REQ005",
		},
	},
	{
		pattern: "api key",
		msg: UserMessage{
			Message: "Missing or invalid API key",
			Action:  "Send a configured key in the X-API-Key header",
			Code:    "REQ006",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Run was cancelled",
			Action:  "Rerun when ready; published files are skipped",
			Code:    "REQ003",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Run timed out",
			Action:  "Rerun; published files are skipped",
			Code:    "REQ004",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again",
			Code:    "REQ004",
		},
	},

	// =========================================================================
	// Ledger Errors (DB001-DB002)
	// =========================================================================
	{
		pattern: "failed to connect",
		msg: UserMessage{
			Message: "Unable to connect to the run ledger",
			Action:  "Check DATABASE_URL",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Run ledger connection was interrupted",
			Action:  "Please try again",
			Code:    "DB001",
		},
	},
	{
		pattern: "run not found",
		msg: UserMessage{
			Message: "No run recorded for this date",
			Action:  "Trigger a run for the date first",
			Code:    "DB002",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
// Operators should check the logs for the technical error.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the logs for details",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// A FatalError anywhere in the chain is mapped by its code. Otherwise the
// error text is searched for known patterns (case-insensitive). If nothing
// matches, the ERR000 fallback is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	if code, ok := CodeOf(err); ok {
		if msg, known := codeMessages[code]; known {
			return msg
		}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}

// MapErrors maps every error joined into err, skipping duplicates by code.
func MapErrors(err error) []UserMessage {
	if err == nil {
		return nil
	}
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return []UserMessage{MapError(err)}
	}

	seen := make(map[string]bool)
	var out []UserMessage
	for _, e := range joined.Unwrap() {
		msg := MapError(e)
		if seen[msg.Code] {
			continue
		}
		seen[msg.Code] = true
		out = append(out, msg)
	}
	return out
}
