package application

import (
	"context"
	"errors"

	"github.com/studystem/tutoring/internal/persistence"
)

var (
	// ErrUnauthenticated is returned when no valid session backs the request.
	ErrUnauthenticated = errors.New("application: unauthenticated")
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrInvalidReference is returned when an input names a principal or record that does not exist.
	ErrInvalidReference = errors.New("application: invalid reference")
	// ErrInvalidInterval is returned for non-positive durations or an end not after the start.
	ErrInvalidInterval = errors.New("application: invalid interval")
	// ErrAlreadyExists is returned when a record with the same identity exists.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrUpstreamUnavailable is returned when a collaborator such as the store fails.
	ErrUpstreamUnavailable = errors.New("application: upstream unavailable")
)

// Error pairs a sentinel kind with a message that is safe to show to users.
// Messages never contain record identifiers.
type Error struct {
	Kind    error
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes both the kind and the underlying cause to errors.Is.
func (e *Error) Unwrap() []error {
	if e == nil {
		return nil
	}
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func newError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func wrapError(kind error, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// ValidationError captures field level validation issues that callers can surface to users.
// Kind optionally classifies the failure, for example ErrInvalidInterval.
type ValidationError struct {
	FieldErrors map[string]string
	Kind        error
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// Unwrap exposes the validation kind, if any.
func (v *ValidationError) Unwrap() error {
	if v == nil {
		return nil
	}
	return v.Kind
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// Message returns the user facing description of err.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var appErr *Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "the request contains invalid fields"
	}

	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "a valid session is required"
	case errors.Is(err, ErrUnauthorized):
		return "you are not allowed to perform this action"
	case errors.Is(err, ErrNotFound):
		return "the requested item no longer exists"
	case errors.Is(err, ErrInvalidReference):
		return "the request refers to someone or something that does not exist"
	case errors.Is(err, ErrInvalidInterval):
		return "the session must end after it starts"
	case errors.Is(err, ErrAlreadyExists):
		return "an item with the same identity already exists"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "the service is temporarily unavailable, please try again"
	default:
		return "an unexpected error occurred"
	}
}

// mapRepoError translates persistence failures into application errors.
// notFound is the message used when the record is missing.
func mapRepoError(err error, notFound string) error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return err
	}

	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return wrapError(ErrNotFound, notFound, err)
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return wrapError(ErrInvalidReference, "a referenced student, tutor, or session does not exist", err)
	case errors.Is(err, persistence.ErrDuplicate):
		return wrapError(ErrAlreadyExists, "an item with the same identity already exists", err)
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("record", "the record was rejected by the store's consistency rules")
		return vErr
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return wrapError(ErrUpstreamUnavailable, "the request was cancelled before the store answered", err)
	default:
		return wrapError(ErrUpstreamUnavailable, "the schedule store is unavailable, please try again", err)
	}
}

func isNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound)
}
