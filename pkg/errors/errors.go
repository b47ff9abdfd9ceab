package errors

import (
	"errors"
	"fmt"
)

// Domain error types for business logic

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal indicates an internal error
	ErrInternal = errors.New("internal error")

	// ErrTimeout indicates an operation timeout
	ErrTimeout = errors.New("operation timeout")
)

// Data-plane errors

var (
	// ErrUpstream indicates the upstream market-data API is unreachable
	// or returned a non-success status
	ErrUpstream = errors.New("upstream API error")

	// ErrEmbeddingService indicates embedding generation failed
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrStorage indicates the snapshot store is unreachable or a write failed
	ErrStorage = errors.New("snapshot storage error")

	// ErrIndex indicates the vector index is unreachable or the vector
	// dimension does not match the index configuration
	ErrIndex = errors.New("vector index error")

	// ErrRateLimited indicates the upstream rate limiter rejected the call
	ErrRateLimited = errors.New("rate limit exceeded")
)

// PartialWriteError reports a snapshot write where the store insert succeeded
// but the embedding or index step failed. The snapshot itself remains valid
// for structured queries; only similarity search is missing the record.
type PartialWriteError struct {
	SnapshotID string
	Stage      string // "embed" or "index"
	Err        error
}

// Error implements the error interface
func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("partial snapshot write (%s stage failed) for %s: %v", e.Stage, e.SnapshotID, e.Err)
}

// Unwrap returns the wrapped error
func (e *PartialWriteError) Unwrap() error {
	return e.Err
}

// NewPartialWriteError creates a partial write error for a snapshot id
func NewPartialWriteError(snapshotID, stage string, err error) *PartialWriteError {
	return &PartialWriteError{SnapshotID: snapshotID, Stage: stage, Err: err}
}

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
