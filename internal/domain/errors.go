package domain

import (
	"errors"
	"fmt"
)

// ErrKind is used to map domain errors to HTTP status codes consistently.
type ErrKind string

const (
	KindValidation     ErrKind = "validation"     // 422
	KindStateMismatch  ErrKind = "state_mismatch" // 400
	KindAuth           ErrKind = "auth"           // 401
	KindForbidden      ErrKind = "forbidden"      // 403
	KindNotFound       ErrKind = "not_found"      // 404
	KindConflict       ErrKind = "conflict"       // 409
	KindInfrastructure ErrKind = "infrastructure" // 500
	KindInternal       ErrKind = "internal"       // 500
)

// Error is a structured domain error.
// - Kind: high-level category for HTTP mapping
// - Code: stable machine code (do not change casually)
// - Message: safe summary for clients (avoid leaking sensitive details)
// - Meta: optional details (field -> reason for validation errors)
// - Cause: wrapped internal error for logging/diagnostics
type Error struct {
	Kind    ErrKind
	Code    string
	Message string
	Meta    map[string]string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Kind, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind ErrKind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func Wrap(kind ErrKind, code, msg string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: msg, Cause: cause}
}

func WithMeta(err *Error, meta map[string]string) *Error {
	err.Meta = meta
	return err
}

// Is reports whether err is a domain error with the given code.
func Is(err error, code string) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// KindOf returns the kind of a domain error, or KindInternal for anything else.
func KindOf(err error) ErrKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// ----------------------
// Validation errors (422)
// ----------------------

func ErrInvalidJSON(cause error) *Error {
	return Wrap(KindValidation, "invalid_json", "invalid JSON body", cause)
}

// ErrValidation carries per-field reasons, keyed by the JSON field name.
func ErrValidation(fields map[string]string) *Error {
	return WithMeta(New(KindValidation, "validation_failed", "the given data was invalid"), fields)
}

func ErrMissingField(field string) *Error {
	return ErrValidation(map[string]string{field: "is required"})
}

func ErrInvalidField(field, reason string) *Error {
	return ErrValidation(map[string]string{field: reason})
}

func ErrEmailTaken() *Error {
	return ErrInvalidField("email", "has already been taken")
}

// ----------------------
// State mismatch (400)
// ----------------------

// ErrOTPMismatch covers wrong, consumed, expired and absent codes as well as unknown emails.
func ErrOTPMismatch() *Error {
	return New(KindStateMismatch, "otp_mismatch", "Invalid OTP or email.")
}

// ----------------------
// Auth errors (401)
// ----------------------

// IMPORTANT: use this for login failures to avoid user enumeration.
func ErrInvalidCredentials() *Error {
	return New(KindAuth, "invalid_credentials", "Invalid email or password.")
}

func ErrCurrentPasswordIncorrect() *Error {
	return New(KindAuth, "current_password_incorrect", "Current password is incorrect.")
}

func ErrTokenMissing() *Error {
	return New(KindAuth, "token_missing", "no token provided")
}

func ErrTokenInvalid() *Error {
	return New(KindAuth, "token_invalid", "invalid token")
}

func ErrTokenExpired() *Error {
	return New(KindAuth, "token_expired", "token is expired")
}

// ----------------------
// Forbidden (403)
// ----------------------

func ErrEmailNotVerified() *Error {
	return New(KindForbidden, "email_not_verified", "Email is not verified.")
}

// ----------------------
// Not Found (404)
// ----------------------

func ErrUserNotFound() *Error {
	return New(KindNotFound, "user_not_found", "user not found")
}

func ErrEmailNotFound() *Error {
	return New(KindNotFound, "email_not_found", "Email does not exist.")
}

// ----------------------
// Conflict (409)
// ----------------------

// ErrEmailAlreadyExists is raised by stores on a uniqueness violation.
// The service translates it into a validation error for callers.
func ErrEmailAlreadyExists() *Error {
	return New(KindConflict, "email_already_exists", "email already registered")
}

// ----------------------
// Infrastructure / internal (5xx)
// ----------------------

func ErrDBUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, "db_unavailable", "database unavailable", cause)
}

func ErrRedisUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, "redis_unavailable", "cache unavailable", cause)
}

func ErrNotifierUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, "notifier_unavailable", "could not deliver the one-time code", cause)
}

func ErrHashFailed(cause error) *Error {
	return Wrap(KindInternal, "hash_failed", "password hashing failed", cause)
}

func ErrTokenSignFailed(cause error) *Error {
	return Wrap(KindInternal, "token_sign_failed", "token signing failed", cause)
}

func ErrRandomFailed(cause error) *Error {
	return Wrap(KindInternal, "random_failed", "random generation failed", cause)
}

func ErrInternal(cause error) *Error {
	return Wrap(KindInternal, "internal_error", "internal error", cause)
}
