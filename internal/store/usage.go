package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UsageStore records analysis usage for the daily quota.
type UsageStore interface {
	// Record logs one completed analysis for the user at the given time.
	Record(ctx context.Context, userID uuid.UUID, at time.Time) error

	// CountSince returns the number of analyses the user ran at or after
	// the given time (typically midnight in server time).
	CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
}
