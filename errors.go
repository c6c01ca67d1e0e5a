package garimpo

import "errors"

// Common errors returned by the garimpo package.
var (
	// ErrEmptyQuery is returned when Collect is called with a blank query.
	ErrEmptyQuery = errors.New("garimpo: query is required")

	// ErrInvalidSessionID is returned when the session id contains
	// characters unsafe for a directory name.
	ErrInvalidSessionID = errors.New("garimpo: session id must match [A-Za-z0-9_-]")

	// ErrStorageUnavailable is returned alongside the emergency artifact
	// when the session directory cannot be written.
	ErrStorageUnavailable = errors.New("garimpo: session storage unwritable")
)
