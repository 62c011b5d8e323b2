package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/voltlab/voltlab-api/internal/domain"
)

// AnimationStore defines the interface for animation library persistence.
type AnimationStore interface {
	// Create saves a new animation.
	Create(ctx context.Context, anim *domain.Animation) error

	// GetByID retrieves an animation by its unique ID.
	// Returns ErrAnimationNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Animation, error)

	// ListByUser returns the user's animations, newest first. Scene data
	// is included; callers decide what to expose.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Animation, error)

	// ListPublished returns up to limit published animations, newest
	// first.
	ListPublished(ctx context.Context, limit int) ([]*domain.Animation, error)

	// Delete removes the animation if it is owned by userID.
	// Returns ErrAnimationNotFound otherwise.
	Delete(ctx context.Context, id, userID uuid.UUID) error

	// SetPublished flips plaza visibility for an animation owned by
	// userID. Returns ErrAnimationNotFound otherwise.
	SetPublished(ctx context.Context, id, userID uuid.UUID, published, showAuthor bool) error

	// SetShareCode records a share code for an animation owned by userID.
	// Returns ErrShareCodeExists when the code is already taken and
	// ErrAnimationNotFound when the animation is missing or not owned.
	SetShareCode(ctx context.Context, id, userID uuid.UUID, code string) error

	// GetByShareCode retrieves an animation by its share code.
	// Returns ErrAnimationNotFound if no animation carries the code.
	GetByShareCode(ctx context.Context, code string) (*domain.Animation, error)
}
