package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeInvalid      ErrorCode = "INVALID"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeInternal     ErrorCode = "INTERNAL"
)

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches two domain errors carrying the same code and message, so that
// sentinel comparisons keep working after wrapping.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Invalid builds a validation error. Validation errors never reach the store.
func Invalid(message string) *Error {
	return NewError(ErrCodeInvalid, message)
}

// Common domain errors.
var (
	ErrNotFound          = NewError(ErrCodeNotFound, "record not found")
	ErrMemberNotFound    = NewError(ErrCodeNotFound, "member not found")
	ErrWorkspaceNotFound = NewError(ErrCodeNotFound, "workspace not found")
	ErrTaskNotFound      = NewError(ErrCodeNotFound, "task not found")
	ErrProjectNotFound   = NewError(ErrCodeNotFound, "project not found")
	ErrDocumentNotFound  = NewError(ErrCodeNotFound, "document not found")
	ErrSessionNotFound   = NewError(ErrCodeNotFound, "session not found")
	ErrResetTokenInvalid = NewError(ErrCodeInvalid, "password reset link is invalid or has expired")
	ErrInvalidJoinCode   = NewError(ErrCodeInvalid, "Invalid join code")
	ErrUnauthorized      = NewError(ErrCodeUnauthorized, "unauthorized")
	ErrBadCredentials    = NewError(ErrCodeUnauthorized, "invalid email or password")
	ErrEmailTaken        = NewError(ErrCodeConflict, "an account with this email already exists")
	ErrNoWorkspace       = NewError(ErrCodeForbidden, "join or create a workspace first")
	ErrAdminOnly         = NewError(ErrCodeForbidden, "only workspace admins can do this")
	ErrInvalidPayload    = NewError(ErrCodeInvalid, "invalid payload")
	ErrMissingScope      = NewError(ErrCodeInternal, "query has no scope filter")
	ErrScopeLeak         = NewError(ErrCodeInternal, "fetched record outside the requested scope")
	ErrInFlight          = NewError(ErrCodeConflict, "action already in progress")
	ErrScopeRevoked      = NewError(ErrCodeForbidden, "you no longer have access to this workspace")
)

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

// UserMessage returns the plain text shown next to the control that triggered err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "The request timed out. Please try again."
	}
	var dErr *Error
	if errors.As(err, &dErr) && dErr.Message != "" {
		return dErr.Message
	}
	return err.Error()
}
