package chatview

import "errors"

var (
	// ErrProviderUnavailable wraps any failed provider call. View state is unchanged when it is returned.
	ErrProviderUnavailable  = errors.New("conversation provider unavailable")
	ErrConversationNotFound = errors.New("conversation not found")
)
