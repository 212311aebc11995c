package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested document does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrStoreUnavailable indicates the backend could not serve the call.
	ErrStoreUnavailable = errors.New("repository: store unavailable")
	// ErrInvalidField indicates a field name that cannot be queried.
	ErrInvalidField = errors.New("repository: invalid field name")
)

// Unavailable wraps a backend failure so that it matches ErrStoreUnavailable
// while keeping the cause inspectable.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
