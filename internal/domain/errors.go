package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Transport layers classify failures with errors.Is against these.
var (
	ErrValidation     = errors.New("validation failed")
	ErrConflict       = errors.New("conflict")
	ErrNotFound       = errors.New("not found")
	ErrAuthentication = errors.New("authentication failed")
)

var (
	// ErrUserNotFound is returned when no user matches a username or id.
	ErrUserNotFound = newError(ErrNotFound, "user not found")
	// ErrQuizNotFound indicates the quiz does not exist.
	ErrQuizNotFound = newError(ErrNotFound, "quiz not found")
	// ErrUsernameTaken is returned when registering an existing username.
	ErrUsernameTaken = newError(ErrConflict, "user already exists")
	// ErrInvalidPassword is returned when the password does not match the stored hash.
	ErrInvalidPassword = newError(ErrAuthentication, "invalid password")
	// ErrInvalidToken covers malformed, expired and revoked bearer tokens.
	ErrInvalidToken = newError(ErrAuthentication, "invalid or expired token")
)

// kindError carries a user-facing message and unwraps to its kind.
type kindError struct {
	kind error
	msg  string
}

func newError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// Validationf builds an ErrValidation error with a formatted message.
func Validationf(format string, args ...any) error {
	return newError(ErrValidation, fmt.Sprintf(format, args...))
}
