package migration

import (
	"errors"
	"fmt"
)

// ErrMigrationFailed indicates that applying the embedded migrations failed.
var ErrMigrationFailed = errors.New("migration execution failed")

// MigrationError wraps migration failures with the operation being performed.
type MigrationError struct {
	Version   string
	Operation string
	Err       error
}

// Error implements the error interface
func (e *MigrationError) Error() string {
	if e.Version != "" {
		return fmt.Sprintf("migration %s: %s: %v", e.Version, e.Operation, e.Err)
	}
	return fmt.Sprintf("migration error: %s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error for error unwrapping
func (e *MigrationError) Unwrap() error {
	return e.Err
}

// NewMigrationError creates a new MigrationError with context
func NewMigrationError(version, operation string, err error) *MigrationError {
	return &MigrationError{
		Version:   version,
		Operation: operation,
		Err:       err,
	}
}
