package core

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation     = errors.New("validation error")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrPersistence    = errors.New("persistence error")
	ErrInvalidRequest = errors.New("invalid request")
)

// Wire codes carried in the "code" field of failure bodies.
const (
	CodeValidation     = "VALIDATION_ERROR"
	CodeNotFound       = "NOT_FOUND"
	CodeConflict       = "CONFLICT"
	CodePersistence    = "PERSISTENCE_ERROR"
	CodeInvalidRequest = "INVALID_REQUEST"
)

// RecordError is the error type returned by record operations. Kind is one of
// the sentinels above so callers can use errors.Is.
type RecordError struct {
	Kind    error
	Message string
	Code    int
	Err     error
}

func (e *RecordError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Is matches the error's kind sentinel.
func (e *RecordError) Is(target error) bool {
	return e.Kind == target
}

// NewValidationError builds a 400 error for a rejected draft
func NewValidationError(msg string) *RecordError {
	return &RecordError{Kind: ErrValidation, Message: msg, Code: http.StatusBadRequest}
}

// NewNotFoundError builds a 404 error
func NewNotFoundError(msg string) *RecordError {
	return &RecordError{Kind: ErrNotFound, Message: msg, Code: http.StatusNotFound}
}

// NewConflictError builds an id collision error. It is reported as 400 like
// any other rejected create.
func NewConflictError(msg string) *RecordError {
	return &RecordError{Kind: ErrConflict, Message: msg, Code: http.StatusBadRequest}
}

// NewPersistenceError wraps a storage or transport failure
func NewPersistenceError(msg string, err error) *RecordError {
	return &RecordError{Kind: ErrPersistence, Message: msg, Code: http.StatusInternalServerError, Err: err}
}

// NewInvalidRequestError builds a 400 error for a malformed request body
func NewInvalidRequestError(msg string) *RecordError {
	return &RecordError{Kind: ErrInvalidRequest, Message: msg, Code: http.StatusBadRequest}
}

// WireCode returns the code string for err's kind. Unknown errors report as
// persistence failures since they come from below the record layer.
func WireCode(err error) string {
	switch {
	case errors.Is(err, ErrPersistence):
		return CodePersistence
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrConflict):
		return CodeConflict
	case errors.Is(err, ErrInvalidRequest):
		return CodeInvalidRequest
	default:
		return CodePersistence
	}
}

// FromWire rebuilds a RecordError from a failure body received over HTTP.
// When code is missing the HTTP status decides the kind.
func FromWire(status int, code, msg string) *RecordError {
	switch code {
	case CodeValidation:
		return NewValidationError(msg)
	case CodeNotFound:
		return NewNotFoundError(msg)
	case CodeConflict:
		return NewConflictError(msg)
	case CodeInvalidRequest:
		return NewInvalidRequestError(msg)
	case CodePersistence:
		return NewPersistenceError(msg, nil)
	}

	switch status {
	case http.StatusBadRequest:
		return NewValidationError(msg)
	case http.StatusNotFound:
		return NewNotFoundError(msg)
	case http.StatusConflict:
		return NewConflictError(msg)
	default:
		return NewPersistenceError(msg, fmt.Errorf("unexpected status %d", status))
	}
}

// StatusCode returns the HTTP status for err.
func StatusCode(err error) int {
	var re *RecordError
	if errors.As(err, &re) && re.Code != 0 {
		return re.Code
	}
	return http.StatusInternalServerError
}
