package domain

import (
	"errors"
	"strings"
	"time"
)

// Code is the stable, client-visible error code.
type Code string

const (
	CodeNotFound         Code = "NOT_FOUND"
	CodeInvalid          Code = "INVALID"
	CodeSeatUnavailable  Code = "SEAT_UNAVAILABLE"
	CodeUnauthorized     Code = "UNAUTHORIZED"
	CodeTooLate          Code = "TOO_LATE"
	CodeAlreadyProcessed Code = "ALREADY_PROCESSED"
	CodePaymentFailed    Code = "PAYMENT_FAILED"
	CodeConflict         Code = "CONFLICT"
	CodeUnauthenticated  Code = "UNAUTHENTICATED"
	CodeRateLimited      Code = "RATE_LIMITED"
	CodeInternal         Code = "INTERNAL"
)

// Error carries a taxonomy code. Sentinels without a message match every
// error of the same code through errors.Is.
type Error struct {
	Code    Code
	Message string
}

func NewError(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return strings.ToLower(strings.ReplaceAll(string(e.Code), "_", " "))
	}
	return e.Message
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Code == e.Code
}

var (
	ErrNotFound         = &Error{Code: CodeNotFound}
	ErrInvalid          = &Error{Code: CodeInvalid}
	ErrSeatUnavailable  = &Error{Code: CodeSeatUnavailable}
	ErrUnauthorized     = &Error{Code: CodeUnauthorized}
	ErrTooLate          = &Error{Code: CodeTooLate}
	ErrAlreadyProcessed = &Error{Code: CodeAlreadyProcessed}
	ErrPaymentFailed    = &Error{Code: CodePaymentFailed}
	ErrConflict         = &Error{Code: CodeConflict}
	ErrUnauthenticated  = &Error{Code: CodeUnauthenticated}
	ErrRateLimited      = &Error{Code: CodeRateLimited}
)

// CodeOf returns the taxonomy code of err, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the client-safe message of err.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Error()
	}
	return "internal error"
}

// RetryLater attaches a retry hint to err.
func RetryLater(err error, after time.Duration) error {
	return &retryError{err: err, after: after}
}

type retryError struct {
	err   error
	after time.Duration
}

func (e *retryError) Error() string { return e.err.Error() }
func (e *retryError) Unwrap() error { return e.err }

// RetryAfterOf returns the hint set by RetryLater anywhere in err's chain.
func RetryAfterOf(err error) (time.Duration, bool) {
	var re *retryError
	if errors.As(err, &re) {
		return re.after, true
	}
	return 0, false
}
