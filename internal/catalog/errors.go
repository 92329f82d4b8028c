package catalog

// errors.go defines the failure taxonomy for the ingestion pipeline and the
// mapping from technical errors to user-facing messages.
//
// Parsing-level anomalies (bad prices, odd booleans, encoding artifacts) are
// never errors: they degrade to defaults inside the normalizer. Everything
// here is either a pre-flight rejection (format, size), a persistence failure
// (chunk transaction, backup) or a rollback protocol violation.

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned before any row is read when the
	// upload's content type is not a recognized catalog format.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrFileTooLarge is returned before any parsing work when the file
	// exceeds the hard size ceiling.
	ErrFileTooLarge = errors.New("file too large")

	// ErrSessionNotFound is returned when a rollback names a session that
	// does not exist for the manufacturer.
	ErrSessionNotFound = errors.New("upload session not found")

	// ErrAlreadyRolledBack is returned when a session's backup has already
	// been consumed; rollback is single-shot.
	ErrAlreadyRolledBack = errors.New("upload already rolled back")

	// ErrTooManyUploads is returned when all upload slots are occupied and
	// the wait timeout expires.
	ErrTooManyUploads = errors.New("too many concurrent uploads, please try again later")
)

// BackupError marks a failure to capture the pre-upload snapshot.
// The upload aborts fail-closed: no catalog row has been touched.
type BackupError struct {
	Err error
}

func (e *BackupError) Error() string {
	return "catalog backup failed: " + e.Err.Error()
}

func (e *BackupError) Unwrap() error { return e.Err }

// ChunkError wraps a failed chunk transaction. Chunks committed before the
// failing one remain committed; recovery is via the session's backup.
type ChunkError struct {
	Index int // zero-based chunk number
	Start int // 1-based offset of the chunk's first row
	End   int // 1-based offset of the chunk's last row
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d (rows %d-%d) failed: %v", e.Index, e.Start, e.End, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern maps a technical error substring (case-insensitive) to a
// UserMessage. First match wins, so specific patterns come before general
// ones.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Pre-flight file rejections
	{
		pattern: "unsupported file format",
		msg: UserMessage{
			Message: "This file type is not supported",
			Action:  "Upload a comma-separated (.csv) or Excel (.xlsx) catalog file",
			Code:    "FMT001",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "The catalog file exceeds the 50MB limit",
			Action:  "Split the catalog into smaller files and upload them separately",
			Code:    "FILE001",
		},
	},

	// Rollback protocol
	{
		pattern: "upload session not found",
		msg: UserMessage{
			Message: "No upload session was found for this manufacturer",
			Action:  "Refresh the backup list and pick an available session",
			Code:    "SES001",
		},
	},
	{
		pattern: "already rolled back",
		msg: UserMessage{
			Message: "This upload has already been rolled back",
			Action:  "Each upload can only be rolled back once",
			Code:    "SES002",
		},
	},

	// Pipeline failures
	{
		pattern: "backup failed",
		msg: UserMessage{
			Message: "Could not capture a backup of the current catalog",
			Action:  "No changes were made. Please try the upload again",
			Code:    "BKP001",
		},
	},
	{
		pattern: "chunk",
		msg: UserMessage{
			Message: "Large file processing failed partway through",
			Action:  "Split the file into smaller chunks, or roll back this upload and retry",
			Code:    "CHK001",
		},
	},
	{
		pattern: "too many concurrent uploads",
		msg: UserMessage{
			Message: "Too many uploads are in progress",
			Action:  "Please wait a moment and try again",
			Code:    "UPL001",
		},
	},

	// Database constraint errors
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A catalog record with this identity already exists",
			Action:  "Check your file for duplicate code/style combinations",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "A duplicate value was found",
			Action:  "Check your file for duplicate code/style combinations",
			Code:    "DB001",
		},
	},
	{
		pattern: "foreign key",
		msg: UserMessage{
			Message: "The manufacturer for this catalog does not exist",
			Action:  "Create the manufacturer before uploading its catalog",
			Code:    "DB002",
		},
	},

	// Database connectivity
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to the database",
			Action:  "Please try again in a few moments",
			Code:    "DB003",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "The database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB004",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "The database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "The upload timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "DB006",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "The operation timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "DB006",
		},
	},
}

// MapError converts a technical error to a user-friendly message.
// Unmatched errors map to the generic file-processing failure.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(errStr, p.pattern) {
			return p.msg
		}
	}

	return UserMessage{
		Message: "File processing failed",
		Action:  "Please try again or contact support",
		Code:    "ERR000",
	}
}
