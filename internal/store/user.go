package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/voltlab/voltlab-api/internal/domain"
)

// UserStore defines the interface for user data persistence.
type UserStore interface {
	// Create saves a new user to the store. The user's HashedPassword
	// must already be set; plaintext passwords never reach the store.
	// Returns ErrPhoneExists if the phone number is already registered.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByPhone retrieves a user by their phone number.
	// Returns ErrUserNotFound if the user does not exist.
	GetByPhone(ctx context.Context, phoneNumber string) (*domain.User, error)

	// UpdatePassword replaces the user's password hash.
	// Returns ErrUserNotFound if the user does not exist.
	UpdatePassword(ctx context.Context, id uuid.UUID, hashedPassword string) error

	// UpdateLastLogin records a successful login at the given time.
	// Returns ErrUserNotFound if the user does not exist.
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error

	// UpdateVIPExpiry sets the user's VIP expiry. A nil value revokes the
	// membership. Returns ErrUserNotFound if the user does not exist.
	UpdateVIPExpiry(ctx context.Context, id uuid.UUID, expiresAt *time.Time) error
}
