// Package apierror provides the JSON error envelope shared by the middleware
// pipeline and the handlers:
//
//	{"error":{"code":"FORBIDDEN","message":"Insufficient permissions","details":{...}}}
package apierror

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error codes (strings) for programmatic error handling
const (
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeBadRequest       = "BAD_REQUEST"
	CodeValidation       = "VALIDATION_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeRateLimited      = "RATE_LIMITED"
	CodeInternal         = "INTERNAL_ERROR"
)

// MsgInternal is the only message an internal failure ever carries.
const MsgInternal = "Internal server error"

// Error is a structured API error.
type Error struct {
	Status  int            `json:"-"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// New creates an error with an explicit status and code.
func New(status int, code, message string, details map[string]any) *Error {
	return &Error{Status: status, Code: code, Message: message, Details: details}
}

// BadRequest creates a 400 error.
func BadRequest(message string) *Error {
	return New(http.StatusBadRequest, CodeBadRequest, message, nil)
}

// Validation creates a 400 error listing the offending fields.
func Validation(message string, details map[string]any) *Error {
	return New(http.StatusBadRequest, CodeValidation, message, details)
}

// NotFound creates a 404 error.
func NotFound(message string) *Error {
	return New(http.StatusNotFound, CodeNotFound, message, nil)
}

// MethodNotAllowed creates a 405 error.
func MethodNotAllowed() *Error {
	return New(http.StatusMethodNotAllowed, CodeMethodNotAllowed, "Method not allowed", nil)
}

// RateLimited creates a 429 error.
func RateLimited(retryAfterSeconds int) *Error {
	return New(http.StatusTooManyRequests, CodeRateLimited, "Too many requests",
		map[string]any{"retryAfter": retryAfterSeconds})
}

// Internal creates a 500 error. The cause is only included in details when
// expose is set (development mode).
func Internal(cause error, expose bool) *Error {
	e := New(http.StatusInternalServerError, CodeInternal, MsgInternal, nil)
	if expose && cause != nil {
		e.Details = map[string]any{"error": cause.Error()}
	}
	return e
}

type envelope struct {
	Error *Error `json:"error"`
}

// Write renders e as the error envelope.
func Write(w http.ResponseWriter, e *Error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(envelope{Error: e})
}

// WriteJSON renders a success payload as {"data": v}.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"data": v})
}
