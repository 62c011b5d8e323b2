package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in
	// the store. This is a generic version of the entity-specific not
	// found errors.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity (e.g., a user with the same phone number).
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrUserNotFound indicates that the requested user does not exist in the store.
	ErrUserNotFound = fmt.Errorf("%w: user", ErrNotFound)

	// ErrPhoneExists indicates that a user with the given phone number
	// already exists.
	ErrPhoneExists = fmt.Errorf("%w: phone number", ErrDuplicate)

	// ErrAnimationNotFound indicates that the requested animation does not
	// exist, or the caller has no access to it.
	ErrAnimationNotFound = fmt.Errorf("%w: animation", ErrNotFound)

	// ErrShareCodeExists indicates a share code collision on save.
	ErrShareCodeExists = fmt.Errorf("%w: share code", ErrDuplicate)
)
