package output

import (
	"errors"
	"fmt"
)

// GenericMessage is shown when the gateway gives no usable explanation.
const GenericMessage = "Something went wrong. Please try again."

// MalformedMessage is shown when a response body cannot be decoded.
const MalformedMessage = "Unexpected response from server"

// Error is a structured error with code, message, and optional hint.
// Reason carries the gateway's machine-readable reason code, if any.
type Error struct {
	Code       string
	Message    string
	Hint       string
	Reason     string
	HTTPStatus int
	Retryable  bool
	RetryAfter int // seconds, from a Retry-After header
	Cause      error
}

func (e *Error) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Hint)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ExitCode returns the appropriate exit code for this error.
func (e *Error) ExitCode() int {
	return ExitCodeFor(e.Code)
}

// Error constructors for common cases.

func ErrUsage(msg string) *Error {
	return &Error{Code: CodeUsage, Message: msg}
}

func ErrUsageHint(msg, hint string) *Error {
	return &Error{Code: CodeUsage, Message: msg, Hint: hint}
}

func ErrNotFound(resource, identifier string) *Error {
	return &Error{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found: %s", resource, identifier),
		HTTPStatus: 404,
	}
}

func ErrNotFoundHint(resource, identifier, hint string) *Error {
	e := ErrNotFound(resource, identifier)
	e.Hint = hint
	return e
}

func ErrAuth(msg string) *Error {
	return &Error{
		Code:    CodeAuth,
		Message: msg,
		Hint:    "Run: taskhub auth login",
	}
}

func ErrForbidden(msg string) *Error {
	return &Error{
		Code:       CodeForbidden,
		Message:    msg,
		HTTPStatus: 403,
	}
}

func ErrRateLimit(retryAfter int) *Error {
	hint := "Try again later"
	if retryAfter > 0 {
		hint = fmt.Sprintf("Try again in %d seconds", retryAfter)
	}
	return &Error{
		Code:       CodeRateLimit,
		Message:    "Rate limited",
		Hint:       hint,
		HTTPStatus: 429,
		Retryable:  true,
		RetryAfter: retryAfter,
	}
}

func ErrNetwork(cause error) *Error {
	return &Error{
		Code:      CodeNetwork,
		Message:   "Network error",
		Hint:      cause.Error(),
		Retryable: true,
		Cause:     cause,
	}
}

func ErrAPI(status int, msg string) *Error {
	if msg == "" {
		msg = GenericMessage
	}
	return &Error{
		Code:       CodeAPI,
		Message:    msg,
		HTTPStatus: status,
	}
}

// ErrMalformed reports an undecodable or invalid response body. The parse
// error is kept as the cause and never shown.
func ErrMalformed(cause error) *Error {
	return &Error{
		Code:    CodeAPI,
		Message: MalformedMessage,
		Cause:   cause,
	}
}

// ErrValidation reports input rejected before any request is sent.
func ErrValidation(field, msg string) *Error {
	e := &Error{Code: CodeValidation, Message: msg}
	if field != "" {
		e.Message = fmt.Sprintf("%s: %s", field, msg)
	}
	return e
}

// ErrTimeout reports a client-declared deadline.
func ErrTimeout(operation string) *Error {
	return &Error{
		Code:    CodeTimeout,
		Message: fmt.Sprintf("%s timed out", operation),
		Hint:    "The request may still complete; check again later",
	}
}

func ErrAmbiguous(resource string, matches []string) *Error {
	hint := "Be more specific"
	if len(matches) > 0 && len(matches) <= 5 {
		hint = fmt.Sprintf("Did you mean: %v", matches)
	}
	return &Error{
		Code:    CodeAmbiguous,
		Message: fmt.Sprintf("Ambiguous %s", resource),
		Hint:    hint,
	}
}

// AsError attempts to convert an error to an *Error.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{
		Code:    CodeAPI,
		Message: err.Error(),
		Cause:   err,
	}
}

// ReasonOf returns the gateway reason code carried by err, or "".
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}
