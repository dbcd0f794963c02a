package post

import "errors"

// Common errors
var (
	// ErrCapacityExceeded is returned when publishing past the own-post cap
	ErrCapacityExceeded = errors.New("own post capacity exceeded")

	// ErrInvalidTransition is returned for an action undefined in the
	// candidate's current status; state is left unchanged
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrPostNotFound is returned when no post exists for the given id
	ErrPostNotFound = errors.New("post not found")
)
