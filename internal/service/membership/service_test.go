package membership

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voltlab/voltlab-api/internal/domain"
)

// fakeUsageStore counts recorded usage in memory.
type fakeUsageStore struct {
	counts  map[uuid.UUID]int
	lastAt  time.Time
	countFn func() (int, error)
}

func newFakeUsageStore() *fakeUsageStore {
	return &fakeUsageStore{counts: make(map[uuid.UUID]int)}
}

func (f *fakeUsageStore) Record(_ context.Context, userID uuid.UUID, at time.Time) error {
	f.counts[userID]++
	f.lastAt = at
	return nil
}

func (f *fakeUsageStore) CountSince(_ context.Context, userID uuid.UUID, _ time.Time) (int, error) {
	if f.countFn != nil {
		return f.countFn()
	}
	return f.counts[userID], nil
}

func newFreeUser(t *testing.T) *domain.User {
	t.Helper()
	user, err := domain.NewUser("13800138000", "password123")
	require.NoError(t, err)
	return user
}

func TestCheckQuotaAllowsUnderLimit(t *testing.T) {
	t.Parallel()

	usage := newFakeUsageStore()
	svc := NewService(usage, 5, nil)
	user := newFreeUser(t)

	for i := 0; i < 4; i++ {
		require.NoError(t, usage.Record(context.Background(), user.ID, time.Now()))
	}

	assert.NoError(t, svc.CheckQuota(context.Background(), user))

	remaining, err := svc.Remaining(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)
}

func TestCheckQuotaRejectsAtLimit(t *testing.T) {
	t.Parallel()

	usage := newFakeUsageStore()
	svc := NewService(usage, 5, nil)
	user := newFreeUser(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, usage.Record(context.Background(), user.ID, time.Now()))
	}

	assert.ErrorIs(t, svc.CheckQuota(context.Background(), user), ErrQuotaExceeded)
}

func TestVIPUserBypassesQuota(t *testing.T) {
	t.Parallel()

	usage := newFakeUsageStore()
	svc := NewService(usage, 5, nil)
	user := newFreeUser(t)
	expires := time.Now().Add(24 * time.Hour)
	user.VIPExpiresAt = &expires

	for i := 0; i < 100; i++ {
		require.NoError(t, usage.Record(context.Background(), user.ID, time.Now()))
	}

	assert.NoError(t, svc.CheckQuota(context.Background(), user))

	remaining, err := svc.Remaining(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, Unlimited, remaining)
}

func TestExpiredVIPFallsBackToFreeQuota(t *testing.T) {
	t.Parallel()

	usage := newFakeUsageStore()
	svc := NewService(usage, 1, nil)
	user := newFreeUser(t)
	expires := time.Now().Add(-time.Hour)
	user.VIPExpiresAt = &expires

	require.NoError(t, usage.Record(context.Background(), user.ID, time.Now()))

	assert.ErrorIs(t, svc.CheckQuota(context.Background(), user), ErrQuotaExceeded)
}

func TestStatsForFreeUser(t *testing.T) {
	t.Parallel()

	usage := newFakeUsageStore()
	svc := NewService(usage, 5, nil)
	user := newFreeUser(t)

	for i := 0; i < 2; i++ {
		require.NoError(t, usage.Record(context.Background(), user.ID, time.Now()))
	}

	stats, err := svc.Stats(context.Background(), user)
	require.NoError(t, err)
	assert.False(t, stats.IsVIP)
	assert.Equal(t, 2, stats.TodayUsed)
	assert.Equal(t, 5, stats.DailyLimit)
	assert.Equal(t, 3, stats.Remaining)
}

func TestStatsForVIPUser(t *testing.T) {
	t.Parallel()

	usage := newFakeUsageStore()
	svc := NewService(usage, 5, nil)
	user := newFreeUser(t)
	expires := time.Now().Add(24 * time.Hour)
	user.VIPExpiresAt = &expires

	for i := 0; i < 9; i++ {
		require.NoError(t, usage.Record(context.Background(), user.ID, time.Now()))
	}

	stats, err := svc.Stats(context.Background(), user)
	require.NoError(t, err)
	assert.True(t, stats.IsVIP)
	assert.Equal(t, 9, stats.TodayUsed, "usage is still counted for members")
	assert.Equal(t, Unlimited, stats.Remaining)
}

func TestExtendExpiry(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Fresh grant starts from now.
	got := ExtendExpiry(nil, 30, now)
	assert.Equal(t, now.AddDate(0, 0, 30), got)

	// An active membership is extended from its current expiry.
	active := now.AddDate(0, 0, 10)
	got = ExtendExpiry(&active, 30, now)
	assert.Equal(t, active.AddDate(0, 0, 30), got)

	// A lapsed membership restarts from now.
	lapsed := now.AddDate(0, 0, -10)
	got = ExtendExpiry(&lapsed, 30, now)
	assert.Equal(t, now.AddDate(0, 0, 30), got)

	// Zero days means effectively permanent.
	got = ExtendExpiry(nil, 0, now)
	assert.True(t, got.After(now.AddDate(99, 0, 0)))
}

func TestRecordUsageStampsCurrentTime(t *testing.T) {
	t.Parallel()

	usage := newFakeUsageStore()
	svc := NewService(usage, 5, nil)
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	userID := uuid.New()
	require.NoError(t, svc.RecordUsage(context.Background(), userID))

	assert.Equal(t, 1, usage.counts[userID])
	assert.Equal(t, fixed, usage.lastAt)
}
