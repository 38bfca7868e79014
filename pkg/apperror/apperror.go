package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so adapters can react without parsing messages.
type Kind string

const (
	KindValidation       Kind = "VALIDATION"
	KindConflict         Kind = "CONFLICT"
	KindNotFound         Kind = "NOT_FOUND"
	KindAlreadyCancelled Kind = "ALREADY_CANCELLED"
	KindTransient        Kind = "TRANSIENT"
)

// Error is a typed application failure.
type Error struct {
	Kind    Kind   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrConflict)
// holds for every conflict regardless of message or details.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func (e *Error) WithMessage(msg string) *Error {
	return &Error{Kind: e.Kind, Message: msg, Details: e.Details, Err: e.Err}
}

func (e *Error) WithDetails(details any) *Error {
	return &Error{Kind: e.Kind, Message: e.Message, Details: details, Err: e.Err}
}

func (e *Error) WithError(err error) *Error {
	return &Error{Kind: e.Kind, Message: e.Message, Details: e.Details, Err: err}
}

var (
	ErrValidation = &Error{
		Kind:    KindValidation,
		Message: "validation failed",
	}

	ErrConflict = &Error{
		Kind:    KindConflict,
		Message: "time slot already booked",
	}

	ErrNotFound = &Error{
		Kind:    KindNotFound,
		Message: "not found",
	}

	ErrAlreadyCancelled = &Error{
		Kind:    KindAlreadyCancelled,
		Message: "booking already cancelled",
	}

	ErrTransient = &Error{
		Kind:    KindTransient,
		Message: "storage unavailable, try again",
	}
)

// KindOf returns the kind of err, or KindTransient for untyped errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindTransient
}

// HTTPStatus maps err to the status code an HTTP adapter should answer with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindAlreadyCancelled:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
