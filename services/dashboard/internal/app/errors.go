package app

import "errors"

var (
	// ErrSessionRequired indicates a request carried no browser session id.
	ErrSessionRequired = errors.New("session required")
)
