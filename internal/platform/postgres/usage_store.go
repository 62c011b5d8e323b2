package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/voltlab/voltlab-api/internal/platform/logger"
	"github.com/voltlab/voltlab-api/internal/store"
)

// PostgresUsageStore implements the store.UsageStore interface
// using a PostgreSQL database as the storage backend.
type PostgresUsageStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresUsageStore creates a new PostgreSQL implementation of the
// UsageStore interface. If logger is nil, a default logger will be used.
func NewPostgresUsageStore(db store.DBTX, logger *slog.Logger) *PostgresUsageStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresUsageStore{
		db:     db,
		logger: logger.With(slog.String("component", "usage_store")),
	}
}

// Ensure PostgresUsageStore implements store.UsageStore interface
var _ store.UsageStore = (*PostgresUsageStore)(nil)

// Record implements store.UsageStore.Record
func (s *PostgresUsageStore) Record(ctx context.Context, userID uuid.UUID, at time.Time) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO usage_log (id, user_id, used_at)
		VALUES ($1, $2, $3)
	`

	_, err := s.db.ExecContext(ctx, query, uuid.New(), userID, at)
	if err != nil {
		log.Error("failed to record usage",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return err
	}

	log.Debug("usage recorded", slog.String("user_id", userID.String()))
	return nil
}

// CountSince implements store.UsageStore.CountSince
func (s *PostgresUsageStore) CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT COUNT(*)
		FROM usage_log
		WHERE user_id = $1 AND used_at >= $2
	`

	var count int
	err := s.db.QueryRowContext(ctx, query, userID, since).Scan(&count)
	if err != nil {
		log.Error("failed to count usage",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return 0, err
	}

	return count, nil
}
