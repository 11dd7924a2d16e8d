// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Storage errors.
	ErrNotFound          = errors.New("not found")
	ErrDatabaseCorrupted = errors.New("database corrupted")

	// Scanning and extraction errors.
	ErrPathNotFound       = errors.New("path not found")
	ErrDocumentUnreadable = errors.New("document unreadable")
	ErrOCRFailure         = errors.New("ocr failed")
	ErrExtractionFailed   = errors.New("no amount candidates found")

	// Spreadsheet sink errors.
	ErrFileNotFound      = errors.New("file not found")
	ErrWorksheetNotFound = errors.New("worksheet not found")

	// Run errors.
	ErrRunInProgress       = errors.New("a run is already in progress for this project")
	ErrUnresolvedConflicts = errors.New("unresolved conflicts remain")
	ErrUnknownConflict     = errors.New("unknown conflict")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
