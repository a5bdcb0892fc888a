package credentials

import (
	"errors"
	"fmt"
)

// Sentinel errors for durable-store operations.
// Use errors.Is() to check for these specific conditions.
var (
	// ErrNotFound is returned when a key doesn't exist in the durable
	// store. This is not a fatal error - the Store treats it as a miss.
	ErrNotFound = errors.New("credentials: key not found")

	// ErrClosed is returned when using a closed durable store.
	ErrClosed = errors.New("credentials: store closed")
)

// OperationError represents a durable-store operation failure.
type OperationError struct {
	Op  string // Operation that failed (e.g., "get", "set", "delete")
	Key string // Key involved in the operation
	Err error  // Underlying error
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	return fmt.Sprintf("credentials: %s failed for key %q: %v", e.Op, e.Key, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *OperationError) Unwrap() error {
	return e.Err
}

// NewOperationError creates a new operation error.
func NewOperationError(op, key string, err error) *OperationError {
	return &OperationError{Op: op, Key: key, Err: err}
}
