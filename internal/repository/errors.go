package repository

import "errors"

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict indicates an insert collided with an existing row.
	ErrConflict = errors.New("repository: conflict")
	// ErrInconsistentState indicates a live row disagrees with the
	// changelog resolution at the present instant.
	ErrInconsistentState = errors.New("repository: inconsistent state")
)
