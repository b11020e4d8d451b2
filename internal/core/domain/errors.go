package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotAuthenticated     = errors.New("not authenticated")
	ErrForbidden            = errors.New("access forbidden")
	ErrScopeClosed          = errors.New("session scope closed")
	ErrUnknownEventKind     = errors.New("unknown notification event kind")
	ErrInvalidEvent         = errors.New("invalid notification event")
	ErrModalNotFound        = errors.New("confirmation request not found")
	ErrModalResolved        = errors.New("confirmation request already resolved")
	ErrDraftNotFound        = errors.New("registration draft not found")
	ErrUnknownStep          = errors.New("unknown registration step")
	ErrStepNotAccessible    = errors.New("registration step not accessible")
	ErrHandlerNotComparable = errors.New("event handler must be comparable")
)

// ErrorKind classifies every failure surfaced by the backend API client.
type ErrorKind string

const (
	KindNetwork    ErrorKind = "NETWORK_ERROR"
	KindAuth       ErrorKind = "AUTH_ERROR"
	KindForbidden  ErrorKind = "FORBIDDEN_ERROR"
	KindValidation ErrorKind = "VALIDATION_ERROR"
	KindAPI        ErrorKind = "API_ERROR"
	KindUnknown    ErrorKind = "UNKNOWN_ERROR"
)

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is the normalized error returned by the backend API client.
type APIError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Fields  []FieldError
	Cause   error
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *APIError) Unwrap() error { return e.Cause }

// KindForStatus maps an HTTP failure status to its error kind.
func KindForStatus(status int) ErrorKind {
	switch status {
	case http.StatusUnauthorized:
		return KindAuth
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusUnprocessableEntity:
		return KindValidation
	}
	if status >= 400 {
		return KindAPI
	}
	return KindUnknown
}

// KindOf returns the taxonomy kind of err, or KindUnknown when err is not an *APIError.
func KindOf(err error) ErrorKind {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// IsAuthError reports whether err is an AUTH_ERROR.
func IsAuthError(err error) bool {
	return KindOf(err) == KindAuth
}
