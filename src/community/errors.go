package community

import (
	"errors"

	"campus-community/src/directory"
)

var (
	ErrEmptyToken       = errors.New("invite token is empty")
	ErrJoinNotAllowed   = errors.New("join request not allowed in the current state")
	ErrNotAuthenticated = errors.New("log in to continue")
	ErrSelfRemoval      = errors.New("admins cannot remove themselves here")
	ErrNoInviteToken    = errors.New("group has no invite link yet")
	ErrGroupNotFound    = errors.New("group not found")
	ErrStopped          = errors.New("resolver stopped")
	ErrImageTooLarge    = errors.New("Image size must be less than 2MB")
	ErrNotAnImage       = errors.New("File must be an image")
	ErrNoImageUploader  = errors.New("image uploads are not configured")
)

const unreachableMessage = "Could not reach the community service. Try again."

// userMessage is the inline text shown for a failed action. Directory errors
// carry the server's message verbatim.
func userMessage(err error) string {
	var dirErr *directory.Error
	switch {
	case errors.As(err, &dirErr):
		return dirErr.Message
	case directory.IsTransient(err):
		return unreachableMessage
	default:
		return err.Error()
	}
}
