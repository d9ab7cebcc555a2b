package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/satyalens/domain"
	"github.com/fastygo/satyalens/repository/memory"
	"github.com/fastygo/satyalens/usecase/settings"
)

func newTracker(mem *memory.Store, now time.Time) *Tracker {
	store := settings.New(mem.Settings(), 0, nil)
	return New(mem.Scans(), mem.Usage(), store, nil).WithClock(func() time.Time { return now })
}

func TestRemaining_Anonymous(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	tracker := newTracker(mem, time.Now())
	guest := domain.Anonymous("device-1")

	a, err := tracker.Remaining(ctx, guest)
	require.NoError(t, err)
	assert.Equal(t, 1, a.Remaining)
	assert.False(t, a.LimitReached)

	require.NoError(t, mem.Usage().MarkUsed(ctx, "device-1"))

	a, err = tracker.Remaining(ctx, guest)
	require.NoError(t, err)
	assert.Equal(t, 0, a.Remaining)
	assert.True(t, a.LimitReached)

	// Time passing never restores a guest scan.
	later := newTracker(mem, time.Now().Add(30*24*time.Hour))
	a, err = later.Remaining(ctx, guest)
	require.NoError(t, err)
	assert.True(t, a.LimitReached)
}

func TestRemaining_IdentifiedCountsTrailingWeek(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tracker := newTracker(mem, now)
	user := domain.Identified("u1", "u1@example.com", "", "tok")

	for _, age := range []time.Duration{time.Hour, 3 * 24 * time.Hour, 8 * 24 * time.Hour} {
		require.NoError(t, mem.Scans().Create(ctx, &domain.ScanRecord{UserID: "u1", CreatedAt: now.Add(-age)}))
	}
	require.NoError(t, mem.Scans().Create(ctx, &domain.ScanRecord{UserID: "someone-else", CreatedAt: now}))

	a, err := tracker.Remaining(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 3, a.Limit)
	assert.Equal(t, 1, a.Remaining)
	assert.False(t, a.LimitReached)

	require.NoError(t, mem.Scans().Create(ctx, &domain.ScanRecord{UserID: "u1", CreatedAt: now}))

	next, err := tracker.Remaining(ctx, user)
	require.NoError(t, err)
	assert.Less(t, next.Remaining, a.Remaining)
	assert.True(t, next.LimitReached)
}

func TestRemaining_WindowEdge(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tracker := newTracker(mem, now)
	user := domain.Identified("u1", "", "", "tok")

	require.NoError(t, mem.Scans().Create(ctx, &domain.ScanRecord{UserID: "u1", CreatedAt: now.Add(-domain.QuotaWindow)}))
	require.NoError(t, mem.Scans().Create(ctx, &domain.ScanRecord{UserID: "u1", CreatedAt: now.Add(-domain.QuotaWindow - time.Nanosecond)}))

	a, err := tracker.Remaining(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultWeeklyLimit-1, a.Remaining, "only the scan exactly one window old counts")
}

func TestRemaining_ConfiguredLimitAndClamp(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	now := time.Now()
	tracker := newTracker(mem, now)
	user := domain.Identified("u1", "", "", "")

	require.NoError(t, mem.Settings().Upsert(ctx, domain.Setting{Key: domain.SettingFreeWeeklyLimit, Value: "1"}))
	for i := 0; i < 4; i++ {
		require.NoError(t, mem.Scans().Create(ctx, &domain.ScanRecord{UserID: "u1", CreatedAt: now}))
	}

	a, err := tracker.Remaining(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 1, a.Limit)
	assert.Equal(t, 0, a.Remaining)
	assert.True(t, a.LimitReached)
}

func TestRemaining_SettingsFailureFallsBackToDefault(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	tracker := newTracker(mem, time.Now())
	mem.FailSettingsRead = errors.New("settings unavailable")

	a, err := tracker.Remaining(ctx, domain.Identified("u1", "", "", ""))
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultWeeklyLimit, a.Limit)
	assert.Equal(t, 3, a.Remaining)
}

func TestRemaining_ScanCountFailure(t *testing.T) {
	mem := memory.New()
	mem.FailScanCount = errors.New("db down")
	tracker := newTracker(mem, time.Now())

	_, err := tracker.Remaining(context.Background(), domain.Identified("u1", "", "", ""))
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInternal))
}
