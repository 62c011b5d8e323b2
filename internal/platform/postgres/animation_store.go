package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/voltlab/voltlab-api/internal/domain"
	"github.com/voltlab/voltlab-api/internal/platform/logger"
	"github.com/voltlab/voltlab-api/internal/store"
)

const animationColumns = `id, user_id, title, description, thumbnail_url, scene_data,
	published, show_author, like_count, forked_from, share_code, created_at, updated_at`

// PostgresAnimationStore implements the store.AnimationStore interface
// using a PostgreSQL database as the storage backend.
type PostgresAnimationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresAnimationStore creates a new PostgreSQL implementation of the
// AnimationStore interface. If logger is nil, a default logger will be used.
func NewPostgresAnimationStore(db store.DBTX, logger *slog.Logger) *PostgresAnimationStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresAnimationStore{
		db:     db,
		logger: logger.With(slog.String("component", "animation_store")),
	}
}

// Ensure PostgresAnimationStore implements store.AnimationStore interface
var _ store.AnimationStore = (*PostgresAnimationStore)(nil)

// Create implements store.AnimationStore.Create
func (s *PostgresAnimationStore) Create(ctx context.Context, anim *domain.Animation) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := anim.Validate(); err != nil {
		log.Warn("animation validation failed during create",
			slog.String("error", err.Error()),
			slog.String("animation_id", anim.ID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO animations (` + animationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		anim.ID,
		anim.UserID,
		anim.Title,
		anim.Description,
		anim.ThumbnailURL,
		[]byte(anim.SceneData),
		anim.Published,
		anim.ShowAuthor,
		anim.LikeCount,
		anim.ForkedFrom,
		anim.ShareCode,
		anim.CreatedAt,
		anim.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create animation",
			slog.String("error", err.Error()),
			slog.String("animation_id", anim.ID.String()))
		return err
	}

	log.Info("animation created",
		slog.String("animation_id", anim.ID.String()),
		slog.String("user_id", anim.UserID.String()))
	return nil
}

// GetByID implements store.AnimationStore.GetByID
// Returns store.ErrAnimationNotFound if the animation does not exist.
func (s *PostgresAnimationStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Animation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + animationColumns + ` FROM animations WHERE id = $1`

	anim, err := scanAnimation(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrAnimationNotFound
		}
		log.Error("failed to get animation",
			slog.String("error", err.Error()),
			slog.String("animation_id", id.String()))
		return nil, err
	}

	return anim, nil
}

// ListByUser implements store.AnimationStore.ListByUser
func (s *PostgresAnimationStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Animation, error) {
	query := `
		SELECT ` + animationColumns + `
		FROM animations
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	return s.queryAnimations(ctx, query, userID)
}

// ListPublished implements store.AnimationStore.ListPublished
func (s *PostgresAnimationStore) ListPublished(ctx context.Context, limit int) ([]*domain.Animation, error) {
	query := `
		SELECT ` + animationColumns + `
		FROM animations
		WHERE published
		ORDER BY created_at DESC
		LIMIT $1
	`
	return s.queryAnimations(ctx, query, limit)
}

// Delete implements store.AnimationStore.Delete
// Returns store.ErrAnimationNotFound if the animation is missing or not
// owned by userID.
func (s *PostgresAnimationStore) Delete(ctx context.Context, id, userID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `DELETE FROM animations WHERE id = $1 AND user_id = $2`

	result, err := s.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		log.Error("failed to delete animation",
			slog.String("error", err.Error()),
			slog.String("animation_id", id.String()))
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return store.ErrAnimationNotFound
	}

	log.Info("animation deleted",
		slog.String("animation_id", id.String()),
		slog.String("user_id", userID.String()))
	return nil
}

// SetPublished implements store.AnimationStore.SetPublished
func (s *PostgresAnimationStore) SetPublished(ctx context.Context, id, userID uuid.UUID, published, showAuthor bool) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE animations
		SET published = $1, show_author = $2, updated_at = $3
		WHERE id = $4 AND user_id = $5
	`

	result, err := s.db.ExecContext(ctx, query, published, showAuthor, time.Now().UTC(), id, userID)
	if err != nil {
		log.Error("failed to update animation visibility",
			slog.String("error", err.Error()),
			slog.String("animation_id", id.String()))
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return store.ErrAnimationNotFound
	}

	return nil
}

// SetShareCode implements store.AnimationStore.SetShareCode
// Returns store.ErrShareCodeExists on a code collision.
func (s *PostgresAnimationStore) SetShareCode(ctx context.Context, id, userID uuid.UUID, code string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE animations
		SET share_code = $1, updated_at = $2
		WHERE id = $3 AND user_id = $4
	`

	result, err := s.db.ExecContext(ctx, query, code, time.Now().UTC(), id, userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
			return store.ErrShareCodeExists
		}
		log.Error("failed to set share code",
			slog.String("error", err.Error()),
			slog.String("animation_id", id.String()))
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return store.ErrAnimationNotFound
	}

	return nil
}

// GetByShareCode implements store.AnimationStore.GetByShareCode
func (s *PostgresAnimationStore) GetByShareCode(ctx context.Context, code string) (*domain.Animation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + animationColumns + ` FROM animations WHERE share_code = $1`

	anim, err := scanAnimation(s.db.QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrAnimationNotFound
		}
		log.Error("failed to get animation by share code",
			slog.String("error", err.Error()))
		return nil, err
	}

	return anim, nil
}

func (s *PostgresAnimationStore) queryAnimations(ctx context.Context, query string, args ...any) ([]*domain.Animation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query animations", slog.String("error", err.Error()))
		return nil, err
	}
	defer rows.Close()

	var animations []*domain.Animation
	for rows.Next() {
		anim, err := scanAnimation(rows)
		if err != nil {
			return nil, err
		}
		animations = append(animations, anim)
	}
	return animations, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnimation(row rowScanner) (*domain.Animation, error) {
	var (
		anim      domain.Animation
		sceneData []byte
	)
	err := row.Scan(
		&anim.ID,
		&anim.UserID,
		&anim.Title,
		&anim.Description,
		&anim.ThumbnailURL,
		&sceneData,
		&anim.Published,
		&anim.ShowAuthor,
		&anim.LikeCount,
		&anim.ForkedFrom,
		&anim.ShareCode,
		&anim.CreatedAt,
		&anim.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	anim.SceneData = sceneData
	return &anim, nil
}
