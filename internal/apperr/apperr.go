// Package apperr defines the failure taxonomy shared by every layer of the
// API and the single translation of those failures into HTTP responses.
package apperr

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// Kind classifies a failure. The zero value is an uncategorized internal failure.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindInvalidCredentials
	KindForbidden
	KindNotFound
	KindDuplicateEmail
	KindPayloadTooLarge
	KindRateLimited
)

// String returns a stable code for the kind, used in logs.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindUnauthorized:
		return "UNAUTHORIZED"
	case KindInvalidCredentials:
		return "INVALID_CREDENTIALS"
	case KindForbidden:
		return "FORBIDDEN"
	case KindNotFound:
		return "NOT_FOUND"
	case KindDuplicateEmail:
		return "DUPLICATE_EMAIL"
	case KindPayloadTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case KindRateLimited:
		return "RATE_LIMITED"
	default:
		return "INTERNAL_ERROR"
	}
}

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized, KindInvalidCredentials:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindDuplicateEmail:
		return http.StatusConflict
	case KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a categorized failure. Message is safe to return to clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind, so the package
// sentinels below match any error of their kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrValidation         = &Error{Kind: KindValidation, Message: "Validation failed"}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized, Message: "Unauthorized"}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials, Message: "Invalid credentials"}
	ErrForbidden          = &Error{Kind: KindForbidden, Message: "Forbidden"}
	ErrNotFound           = &Error{Kind: KindNotFound, Message: "Not found"}
	ErrDuplicateEmail     = &Error{Kind: KindDuplicateEmail, Message: "Email already used"}
	ErrInternal           = &Error{Kind: KindInternal, Message: "Internal server error"}
)

// New returns an error of the given kind with a client-facing message.
func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Wrap returns an error of the given kind carrying err as its cause.
// The cause is never sent to clients.
func Wrap(kind Kind, message string, err error) error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation returns a validation failure with message.
func Validation(message string) error {
	return New(KindValidation, message)
}

// KindOf extracts the kind from err. Errors without a kind are internal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Respond writes err as a JSON error response. Internal failures get a
// generic message; their detail is only logged.
func Respond(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	kind := KindOf(err)
	message := ErrInternal.Message

	var appErr *Error
	if kind != KindInternal && errors.As(err, &appErr) {
		message = appErr.Message
	}

	if kind == KindInternal && logger != nil {
		logger.Error("internal_error",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", w.Header().Get("X-Request-ID")),
		)
	}

	Write(w, kind.Status(), message)
}

// Write writes a JSON error body with the given status.
func Write(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
