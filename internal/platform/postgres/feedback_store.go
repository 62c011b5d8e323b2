package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/voltlab/voltlab-api/internal/domain"
	"github.com/voltlab/voltlab-api/internal/platform/logger"
	"github.com/voltlab/voltlab-api/internal/store"
)

// PostgresFeedbackStore implements the store.FeedbackStore interface
// using a PostgreSQL database as the storage backend.
type PostgresFeedbackStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresFeedbackStore creates a new PostgreSQL implementation of the
// FeedbackStore interface. If logger is nil, a default logger will be used.
func NewPostgresFeedbackStore(db store.DBTX, logger *slog.Logger) *PostgresFeedbackStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresFeedbackStore{
		db:     db,
		logger: logger.With(slog.String("component", "feedback_store")),
	}
}

// Ensure PostgresFeedbackStore implements store.FeedbackStore interface
var _ store.FeedbackStore = (*PostgresFeedbackStore)(nil)

// Create implements store.FeedbackStore.Create
func (s *PostgresFeedbackStore) Create(ctx context.Context, fb *domain.Feedback) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := fb.Validate(); err != nil {
		log.Warn("feedback validation failed during create",
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO feedback (id, user_id, email, description, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		fb.ID,
		fb.UserID,
		fb.Email,
		fb.Description,
		fb.Status,
		fb.CreatedAt,
	)
	if err != nil {
		log.Error("failed to create feedback",
			slog.String("error", err.Error()),
			slog.String("feedback_id", fb.ID.String()))
		return err
	}

	log.Info("feedback created", slog.String("feedback_id", fb.ID.String()))
	return nil
}
