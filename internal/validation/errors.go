package validation

import "errors"

// Code identifies a client-input failure.
type Code string

const (
	CodeMissingFields Code = "MissingFields"
	CodeInvalidPrice  Code = "InvalidPrice"
	CodeInvalidPhone  Code = "InvalidPhone"
	CodeInvalidEmail  Code = "InvalidEmail"
)

// Sentinels for errors.Is checks.
var (
	ErrMissingFields = errors.New("missing fields")
	ErrInvalidPrice  = errors.New("invalid price")
	ErrInvalidPhone  = errors.New("invalid phone number")
	ErrInvalidEmail  = errors.New("invalid email address")
)

// Error is the single rejection produced by a Parse function.
type Error struct {
	Code    Code
	Message string // Safe to show to the caller
	err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.err
}

func newError(code Code) *Error {
	switch code {
	case CodeMissingFields:
		return &Error{Code: code, Message: "Missing fields", err: ErrMissingFields}
	case CodeInvalidPrice:
		return &Error{Code: code, Message: "Invalid price", err: ErrInvalidPrice}
	case CodeInvalidPhone:
		return &Error{Code: code, Message: "Invalid phone number", err: ErrInvalidPhone}
	default:
		return &Error{Code: CodeInvalidEmail, Message: "Invalid email address", err: ErrInvalidEmail}
	}
}
