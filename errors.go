package sessionx

import (
	"errors"
	"fmt"
)

// ErrorCode represents session resolution failure categories.
type ErrorCode string

const (
	ErrCodeMalformedToken     ErrorCode = "malformed_token"
	ErrCodeDecode             ErrorCode = "decode_error"
	ErrCodeExpired            ErrorCode = "expired_token"
	ErrCodeMissingIdentity    ErrorCode = "missing_identity"
	ErrCodeTokenAbsent        ErrorCode = "token_absent"
	ErrCodeStorageUnavailable ErrorCode = "storage_unavailable"
)

var errorMessages = map[ErrorCode]string{
	ErrCodeMalformedToken:     "Malformed token",
	ErrCodeDecode:             "Token payload could not be decoded",
	ErrCodeExpired:            "Token expired",
	ErrCodeMissingIdentity:    "Token carries no usable identity",
	ErrCodeTokenAbsent:        "No token found",
	ErrCodeStorageUnavailable: "Storage unavailable",
}

// Error wraps session errors with a stable code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	base := e.Message
	if base == "" {
		base = string(e.Code)
	}
	if e.Err == nil {
		return base
	}
	return fmt.Sprintf("%s: %v", base, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func newError(code ErrorCode, err error) error {
	msg, ok := errorMessages[code]
	if !ok {
		msg = string(code)
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf returns the code of err when it wraps an *Error, or "" otherwise.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
