package orm

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// DatabaseError wraps database-related errors from GORM
type DatabaseError struct {
	Inner error
}

func (e *DatabaseError) Error() string {
	return "Database operation failed: " + e.Inner.Error()
}

func (e *DatabaseError) Unwrap() error {
	return e.Inner
}

// NotFoundError represents when a record is not found
type NotFoundError struct {
	Search string
}

func (e *NotFoundError) Error() string {
	return "Record not found for search: " + e.Search
}

// ConflictError represents a uniqueness conflict, e.g. a host UUID that
// already exists with a different upload key.
type ConflictError struct {
	Conflict string
}

func (e *ConflictError) Error() string {
	return "Conflict error for: " + e.Conflict
}

// ValidationError is raised when a freshly resolved entity fails field
// validation. It aborts the enclosing submission.
type ValidationError struct {
	Kind   string
	Value  string
	Reason error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s '%s' failed validation", e.Kind, e.Value)
}

func (e *ValidationError) Unwrap() error {
	return e.Reason
}

// wrapErrorWithDetails creates a more specific error message
func wrapErrorWithDetails(err error, operation, details string) error {
	if err == nil {
		return nil
	}

	// Handle specific GORM errors with details
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{Search: fmt.Sprintf("%s (%s)", operation, details)}
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &ConflictError{Conflict: fmt.Sprintf("%s (%s)", operation, details)}
	}

	// For other database errors, wrap with DatabaseError
	return &DatabaseError{Inner: fmt.Errorf("%s: %w", operation, err)}
}
