// Package domainerrors carries coded errors across service boundaries.
//
// Services return *Error values; transport maps the code to a status via
// pkg/platform/httputil. Codes are stable machine-readable strings that clients
// may switch on.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies a class of domain failure.
type Code string

// Generic codes.
const (
	CodeInternal           Code = "internal_error"
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeValidation         Code = "validation_error"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeTimeout            Code = "timeout"
	CodeUnavailable        Code = "unavailable"
	CodeRateLimited        Code = "rate_limited"
	CodeInvariantViolation Code = "invariant_violation"
)

// Auth codes.
const (
	CodeInvalidVerifier     Code = "invalid_verifier"
	CodeSessionNotFound     Code = "session_not_found"
	CodeInvalidRefreshToken Code = "invalid_refresh_token"
	CodeMissingToken        Code = "missing_token"
	CodeMissingSubject      Code = "missing_subject"
	CodeExchangeFailed      Code = "exchange_failed"
	CodeInvalidIDToken      Code = "invalid_id_token"
	CodeInvalidAudience     Code = "invalid_audience"
	CodeProviderError       Code = "provider_error"
	CodeServerMisconfigured Code = "server_misconfigured"
)

// Identity codes.
const (
	CodeUserNotFound          Code = "user_not_found"
	CodeNicknameAlreadySet    Code = "nickname_already_set"
	CodeInvalidNickname       Code = "invalid_nickname"
	CodeInvalidUID            Code = "invalid_uid"
	CodeUIDCreateFailed       Code = "uid_create_failed"
	CodeIdentityConflict      Code = "identity_conflict"
	CodeProviderAlreadyLinked Code = "provider_already_linked"
	CodeInvalidProvider       Code = "invalid_provider"
)

// Error is a domain failure with a stable code, a human message, optional
// structured details and an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	Details map[string]any
	Err     error
}

// New builds an error with the given code and message.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details map[string]any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same code and message, so tests can
// write require.ErrorIs(err, domainerrors.New(code, msg)).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// As extracts the outermost *Error from err's chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	de, ok := As(err)
	return ok && de.Code == code
}

// HasCode reports whether any error in err's chain carries the given code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}
