package storage

import "errors"

// Sentinel errors for storage operations.
var (
	// ErrSessionNotFound is returned when a session does not exist or has
	// been closed.
	ErrSessionNotFound = errors.New("session not found")

	// ErrFileNotFound is returned when no content was uploaded at the
	// requested path within the session.
	ErrFileNotFound = errors.New("file not found")

	// ErrSessionExists is returned when a session with the given ID already
	// exists (including closed sessions in stores that tombstone them).
	ErrSessionExists = errors.New("session already exists")
)
