package handlers

import (
	"errors"
	"fmt"
)

// RecordError reports why a single record was dropped. Dropped records
// never abort the batch; the pipeline logs them and moves on to the
// next record.
type RecordError struct {
	// Code identifies the error category.
	Code RecordErrorCode

	// Message is a human-readable description.
	Message string

	// Filename is the input file the record came from.
	Filename string

	// Field is the missing required field (validation errors).
	Field string
}

// RecordErrorCode categorizes record drops.
type RecordErrorCode string

const (
	// ErrCodeValidation indicates a missing required field. The record
	// is dropped for this run and never retried automatically.
	ErrCodeValidation RecordErrorCode = "VALIDATION_FAILED"

	// ErrCodeUnknownSession indicates the record's session id has no
	// entry in the session mapping. Expected to self-heal once the
	// session resolver picks up the session.
	ErrCodeUnknownSession RecordErrorCode = "UNKNOWN_SESSION"

	// ErrCodeMissingSession indicates the record declared no session
	// id at all.
	ErrCodeMissingSession RecordErrorCode = "MISSING_SESSION"

	// ErrCodeTimestampParse indicates an absent or unparseable record
	// date. The record is treated as not-newer and never processed.
	ErrCodeTimestampParse RecordErrorCode = "TIMESTAMP_PARSE"
)

// Error implements the error interface.
func (e *RecordError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (file=%s, field=%s)", e.Code, e.Message, e.Filename, e.Field)
	}
	return fmt.Sprintf("%s: %s (file=%s)", e.Code, e.Message, e.Filename)
}

// IsRecordError reports whether err represents a per-record drop
// rather than an I/O failure. Uses errors.As to handle wrapped errors.
func IsRecordError(err error) bool {
	var re *RecordError
	return errors.As(err, &re)
}

// NewValidationError creates a RecordError for a missing required
// field.
func NewValidationError(filename, field string) *RecordError {
	return &RecordError{
		Code:     ErrCodeValidation,
		Message:  "missing required field",
		Filename: filename,
		Field:    field,
	}
}

// NewUnknownSessionError creates a RecordError for an unresolvable
// session id.
func NewUnknownSessionError(filename, session string) *RecordError {
	return &RecordError{
		Code:     ErrCodeUnknownSession,
		Message:  fmt.Sprintf("session %q has no mapping entry", session),
		Filename: filename,
	}
}

// NewMissingSessionError creates a RecordError for a record with no
// session id.
func NewMissingSessionError(filename string) *RecordError {
	return &RecordError{
		Code:     ErrCodeMissingSession,
		Message:  "record declares no legislative session",
		Filename: filename,
	}
}

// NewTimestampError creates a RecordError for an absent or unparseable
// record date.
func NewTimestampError(filename, raw string) *RecordError {
	return &RecordError{
		Code:     ErrCodeTimestampParse,
		Message:  fmt.Sprintf("unparseable record date %q", raw),
		Filename: filename,
	}
}
