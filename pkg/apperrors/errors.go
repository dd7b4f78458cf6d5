package apperrors

import (
	"errors"
	"fmt"
)

// Code identifies an error category. Every fallible operation in the core
// returns an *Error carrying one of these codes; callers branch on the code,
// never on message text.
type Code string

const (
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeConnectionState    Code = "CONNECTION_STATE_ERROR"
	CodeTimeoutActive      Code = "TIMEOUT_ACTIVE"
	CodeDailyLimitExceeded Code = "DAILY_LIMIT_EXCEEDED"
	CodeNotFound           Code = "NOT_FOUND"
	CodePermission         Code = "PERMISSION_DENIED"
	CodeTransientStore     Code = "TRANSIENT_STORE_ERROR"
	CodeUnknown            Code = "UNKNOWN"
)

// Error is a typed application error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error with no cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a typed error with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a typed error with an underlying cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Validation creates a CodeValidation error.
func Validation(message string) *Error {
	return New(CodeValidation, message)
}

// ConnectionState creates a CodeConnectionState error.
func ConnectionState(message string) *Error {
	return New(CodeConnectionState, message)
}

// TimeoutActive creates a CodeTimeoutActive error.
func TimeoutActive(message string) *Error {
	return New(CodeTimeoutActive, message)
}

// DailyLimitExceeded creates a CodeDailyLimitExceeded error.
func DailyLimitExceeded(message string) *Error {
	return New(CodeDailyLimitExceeded, message)
}

// NotFound creates a CodeNotFound error.
func NotFound(message string) *Error {
	return New(CodeNotFound, message)
}

// Permission creates a CodePermission error.
func Permission(message string) *Error {
	return New(CodePermission, message)
}

// TransientStore wraps a store failure that is worth retrying.
func TransientStore(message string, err error) *Error {
	return Wrap(CodeTransientStore, message, err)
}

// Unknown wraps a failure that fits no other category.
func Unknown(message string, err error) *Error {
	return Wrap(CodeUnknown, message, err)
}

// CodeOf extracts the code from an error, defaulting to CodeUnknown for
// errors that did not originate in this package.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// HasCode reports whether the error carries the given code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// IsRetryable reports whether the Sync/Retry layer should retry the
// operation that produced this error. Only transient store failures are
// retryable; everything else surfaces to the caller immediately.
func IsRetryable(err error) bool {
	return CodeOf(err) == CodeTransientStore
}
