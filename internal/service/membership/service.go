// Package membership enforces the daily analysis quota. Free accounts get
// a fixed number of analyses per day; active VIP members are unlimited.
package membership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/voltlab/voltlab-api/internal/domain"
	"github.com/voltlab/voltlab-api/internal/store"
)

// ErrQuotaExceeded is returned when a free user has used up their daily
// analysis allowance.
var ErrQuotaExceeded = errors.New("daily analysis quota exceeded")

// Unlimited is returned as the remaining count for users without a quota.
const Unlimited = -1

// Service checks and records analysis usage against the daily quota.
type Service struct {
	usageStore store.UsageStore
	dailyLimit int
	logger     *slog.Logger
	now        func() time.Time // Injectable for testing
}

// NewService creates a membership service with the given free-tier daily
// limit. If logger is nil, a default logger will be used.
func NewService(usageStore store.UsageStore, dailyLimit int, logger *slog.Logger) *Service {
	if usageStore == nil {
		panic("usageStore cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		usageStore: usageStore,
		dailyLimit: dailyLimit,
		logger:     logger.With(slog.String("component", "membership")),
		now:        time.Now,
	}
}

// Remaining returns how many analyses the user may still run today.
// Returns Unlimited for active VIP members.
func (s *Service) Remaining(ctx context.Context, user *domain.User) (int, error) {
	now := s.now().UTC()
	if user.IsVIPActive(now) {
		return Unlimited, nil
	}

	used, err := s.usageStore.CountSince(ctx, user.ID, startOfDay(now))
	if err != nil {
		return 0, fmt.Errorf("failed to count usage: %w", err)
	}

	remaining := s.dailyLimit - used
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// CheckQuota returns ErrQuotaExceeded if the user has no analyses left
// today. Active VIP members always pass.
func (s *Service) CheckQuota(ctx context.Context, user *domain.User) error {
	remaining, err := s.Remaining(ctx, user)
	if err != nil {
		return err
	}
	if remaining == 0 {
		s.logger.Info("quota exceeded",
			slog.String("user_id", user.ID.String()),
			slog.Int("daily_limit", s.dailyLimit))
		return ErrQuotaExceeded
	}
	return nil
}

// UsageStats is the membership snapshot returned by the status endpoint.
type UsageStats struct {
	IsVIP        bool       `json:"is_vip"`
	VIPExpiresAt *time.Time `json:"vip_expires_at,omitempty"`
	TodayUsed    int        `json:"today_used"`
	DailyLimit   int        `json:"daily_limit"`

	// Remaining is Unlimited for active VIP members.
	Remaining int `json:"remaining"`
}

// Stats returns the user's membership state and today's usage. The daily
// counter is reported even for VIP members, whose Remaining is Unlimited.
func (s *Service) Stats(ctx context.Context, user *domain.User) (*UsageStats, error) {
	now := s.now().UTC()

	used, err := s.usageStore.CountSince(ctx, user.ID, startOfDay(now))
	if err != nil {
		return nil, fmt.Errorf("failed to count usage: %w", err)
	}

	stats := &UsageStats{
		IsVIP:        user.IsVIPActive(now),
		VIPExpiresAt: user.VIPExpiresAt,
		TodayUsed:    used,
		DailyLimit:   s.dailyLimit,
	}
	if stats.IsVIP {
		stats.Remaining = Unlimited
	} else {
		remaining := s.dailyLimit - used
		if remaining < 0 {
			remaining = 0
		}
		stats.Remaining = remaining
	}
	return stats, nil
}

// ExtendExpiry computes a new VIP expiry: an active membership is extended
// from its current expiry, anything else starts from now. days <= 0 grants
// an effectively permanent membership.
func ExtendExpiry(current *time.Time, days int, now time.Time) time.Time {
	if days <= 0 {
		return now.AddDate(100, 0, 0)
	}
	base := now
	if current != nil && current.After(now) {
		base = *current
	}
	return base.AddDate(0, 0, days)
}

// RecordUsage logs one completed analysis for the user.
func (s *Service) RecordUsage(ctx context.Context, userID uuid.UUID) error {
	if err := s.usageStore.Record(ctx, userID, s.now().UTC()); err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	return nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
