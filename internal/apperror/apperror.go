// Package apperror defines the error taxonomy shared by the dispatcher, the
// API facade and the view-models.
//
// ERROR FLOW:
// The dispatcher turns every non-2xx response into an *HTTPError. The facade
// returns it unchanged. Only the view-model layer classifies it (errors.Is
// against the sentinels below) and turns it into a user-visible message.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("Validation Error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrServer       = errors.New("server error")
	ErrTransport    = errors.New("transport error")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// The stub API maps this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized returns an AppError for a missing or rejected identity.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// HTTPError is a non-2xx response as seen by the client.
//
// It keeps the raw status and body so nothing is lost on the way up, and
// Unwrap returns the sentinel for the status so callers can write:
//
//	if errors.Is(err, apperror.ErrUnauthorized) { ... }
type HTTPError struct {
	Status  int
	Message string // server-provided message, if the body had one
	Field   string // server-provided field name for validation errors
	Body    []byte
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("http %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("http %d: %s", e.Status, http.StatusText(e.Status))
}

func (e *HTTPError) Unwrap() error {
	return Classify(e.Status)
}

// Classify maps an HTTP status code to its sentinel error.
// Statuses below 400 map to nil.
func Classify(status int) error {
	switch {
	case status < 400:
		return nil
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusConflict:
		return ErrConflict
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return ErrValidation
	case status >= 500:
		return ErrServer
	default:
		return ErrValidation
	}
}

// Transport wraps a failure that produced no response at all
// (DNS, refused connection, context cancelled mid-flight).
func Transport(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
}

// StatusOf returns the HTTP status carried by err, or 0 when there is none.
func StatusOf(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	return 0
}

// FieldOf returns the offending field of a validation failure, if known.
func FieldOf(err error) string {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Field
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}

// User-visible messages. The view-models show these verbatim.
const (
	MsgTransport    = "Could not reach the server. Check your connection and try again."
	MsgUnauthorized = "Your session has expired. Please log in again."
	MsgForbidden    = "You are not allowed to do that."
	MsgNotFound     = "Not found."
	MsgServer       = "Something went wrong on our side. Please try again."
	MsgUnknown      = "Something went wrong. Please try again."
)

// UserMessage turns any error into the message a screen should display.
//
// Validation failures surface the server's own message (e.g. "username
// already taken") because it is field-level and meant for the user. Every
// other class gets a fixed, generic message so internal details never leak.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTransport):
		return MsgTransport
	case errors.Is(err, ErrUnauthorized):
		return MsgUnauthorized
	case errors.Is(err, ErrForbidden):
		return MsgForbidden
	case errors.Is(err, ErrNotFound):
		return MsgNotFound
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConflict):
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.Message != "" {
			return httpErr.Message
		}
		var appErr *AppError
		if errors.As(err, &appErr) && appErr.Message != "" {
			return appErr.Message
		}
		return MsgUnknown
	case errors.Is(err, ErrServer):
		return MsgServer
	default:
		return MsgUnknown
	}
}
