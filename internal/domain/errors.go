package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrNotCancellable  = errors.New("booking is not cancellable")
	ErrUnauthenticated = errors.New("no active session")
)

// ReasonCode identifies why user input was rejected.
type ReasonCode string

const (
	InvalidDateRange  ReasonCode = "InvalidDateRange"
	InvalidGuestCount ReasonCode = "InvalidGuestCount"
	InvalidRoomCount  ReasonCode = "InvalidRoomCount"
	InvalidRating     ReasonCode = "InvalidRating"
	EmptyComment      ReasonCode = "EmptyComment"
	InvalidName       ReasonCode = "InvalidName"
	InvalidEmail      ReasonCode = "InvalidEmail"
	WeakPassword      ReasonCode = "WeakPassword"
	PasswordMismatch  ReasonCode = "PasswordMismatch"
	InvalidHotel      ReasonCode = "InvalidHotel"
	MalformedDocument ReasonCode = "MalformedDocument"
)

// ValidationError is bad user input. It is reported back as-is and never retried.
type ValidationError struct {
	Code    ReasonCode
	Message string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func NewValidationError(code ReasonCode, msg string) *ValidationError {
	return &ValidationError{Code: code, Message: msg}
}

// AuthError codes.
const (
	AuthEmailInUse      = "email-already-in-use"
	AuthInvalidEmail    = "invalid-email"
	AuthWeakPassword    = "weak-password"
	AuthUserNotFound    = "user-not-found"
	AuthWrongPassword   = "wrong-password"
	AuthTooManyRequests = "too-many-requests"
	AuthSessionExpired  = "session-expired"
)

// AuthError is a credential or session failure with a message fit for end users.
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string { return "auth: " + e.Message }

func NewAuthError(code, msg string) *AuthError { return &AuthError{Code: code, Message: msg} }

// StoreError wraps a backend failure. The triggering action may be repeated.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

// StoreFailure wraps err as a StoreError unless it is nil, a not-found or already typed.
func StoreFailure(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
