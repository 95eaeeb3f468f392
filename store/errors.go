package store

import "github.com/pkg/errors"

var (
	// ErrConflict is returned when an optimistic version check fails.
	ErrConflict = errors.New("store: version conflict")
	// ErrAlreadyExists is returned when a unique constraint is violated.
	ErrAlreadyExists = errors.New("store: already exists")
	// ErrNotFound is returned by mutations whose target row does not exist.
	ErrNotFound = errors.New("store: not found")
)
