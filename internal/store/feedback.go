package store

import (
	"context"

	"github.com/voltlab/voltlab-api/internal/domain"
)

// FeedbackStore defines the interface for feedback persistence.
type FeedbackStore interface {
	// Create saves a new feedback record.
	Create(ctx context.Context, fb *domain.Feedback) error
}
