package services

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrInvalidInput    = errors.New("invalid input")
	ErrRateLimited     = errors.New("rate limited")
)

// serviceError pairs a user-facing message with one of the sentinel kinds so
// callers can both show the text and branch with errors.Is.
type serviceError struct {
	kind error
	msg  string
}

func (e *serviceError) Error() string { return e.msg }
func (e *serviceError) Unwrap() error { return e.kind }

func newError(kind error, msg string) error {
	return &serviceError{kind: kind, msg: msg}
}
