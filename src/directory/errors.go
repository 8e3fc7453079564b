package directory

import "errors"

// Error codes carried in GraphQL error extensions.
const (
	CodeNotFound        = "NOT_FOUND"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeForbidden       = "FORBIDDEN"
	CodeBadUserInput    = "BAD_USER_INPUT"
	CodeRateLimited     = "RATE_LIMITED"
	CodeInternal        = "INTERNAL"
)

// ErrUnavailable marks transport failures: the directory did not answer with a
// GraphQL response at all.
var ErrUnavailable = errors.New("directory unavailable")

// Error is a failure reported by the directory. Message is the server's text,
// shown to users verbatim.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// CodeOf returns the directory error code of err, or "" for other errors.
func CodeOf(err error) string {
	var dirErr *Error
	if errors.As(err, &dirErr) {
		return dirErr.Code
	}
	return ""
}

func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}

func IsUnauthenticated(err error) bool {
	return CodeOf(err) == CodeUnauthenticated
}

// IsTransient reports whether err is a transport failure worth retrying on the
// next poll tick.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsRetryable reports whether a poll should try again rather than give up:
// transport failures plus server-side INTERNAL and RATE_LIMITED answers.
func IsRetryable(err error) bool {
	if IsTransient(err) {
		return true
	}
	switch CodeOf(err) {
	case CodeInternal, CodeRateLimited:
		return true
	default:
		return false
	}
}
