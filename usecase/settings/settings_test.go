package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/satyalens/domain"
	"github.com/fastygo/satyalens/repository/memory"
)

var admin = &domain.AdminSession{UserID: "admin-1", GrantedAt: time.Now()}

func TestSet_UpsertsAndOverwrites(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	store := New(mem.Settings(), time.Minute, nil)

	require.NoError(t, store.Set(ctx, admin, domain.SettingFreeWeeklyLimit, "5"))
	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Setting{{Key: domain.SettingFreeWeeklyLimit, Value: "5"}}, list)

	require.NoError(t, store.Set(ctx, admin, domain.SettingFreeWeeklyLimit, "10"))
	list, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Setting{{Key: domain.SettingFreeWeeklyLimit, Value: "10"}}, list)
}

func TestSet_InvalidatesCachedRead(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	store := New(mem.Settings(), time.Hour, nil)

	require.NoError(t, store.Set(ctx, admin, domain.SettingFreeWeeklyLimit, "4"))
	assert.Equal(t, 4, store.WeeklyLimit(ctx))

	require.NoError(t, store.Set(ctx, admin, domain.SettingFreeWeeklyLimit, "8"))
	assert.Equal(t, 8, store.WeeklyLimit(ctx))
}

func TestSet_RequiresAdminSession(t *testing.T) {
	store := New(memory.New().Settings(), 0, nil)

	err := store.Set(context.Background(), nil, domain.SettingAIEnabled, "false")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden))
}

func TestSet_RejectsUnknownKeyAndBadValues(t *testing.T) {
	ctx := context.Background()
	store := New(memory.New().Settings(), 0, nil)

	assert.True(t, domain.IsDomainError(store.Set(ctx, admin, "plan_price", "9"), domain.ErrCodeInvalid))
	assert.True(t, domain.IsDomainError(store.Set(ctx, admin, domain.SettingFreeWeeklyLimit, "-1"), domain.ErrCodeInvalid))
	assert.True(t, domain.IsDomainError(store.Set(ctx, admin, domain.SettingFreeWeeklyLimit, "lots"), domain.ErrCodeInvalid))
	assert.True(t, domain.IsDomainError(store.Set(ctx, admin, domain.SettingAIEnabled, "perhaps"), domain.ErrCodeInvalid))
}

func TestSet_RepositoryFailureLeavesOtherKeys(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	store := New(mem.Settings(), 0, nil)
	require.NoError(t, store.Set(ctx, admin, domain.SettingAIEnabled, "true"))

	mem.FailSettingsUpsert = errors.New("db down")
	err := store.Set(ctx, admin, domain.SettingFreeWeeklyLimit, "9")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeSettingsUpdate))

	mem.FailSettingsUpsert = nil
	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Setting{{Key: domain.SettingAIEnabled, Value: "true"}}, list)
}

func TestWeeklyLimit_Defaults(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	store := New(mem.Settings(), 0, nil)

	assert.Equal(t, 3, store.WeeklyLimit(ctx), "missing")

	require.NoError(t, mem.Settings().Upsert(ctx, domain.Setting{Key: domain.SettingFreeWeeklyLimit, Value: "abc"}))
	assert.Equal(t, 3, store.WeeklyLimit(ctx), "unparsable")

	mem.FailSettingsRead = errors.New("timeout")
	assert.Equal(t, 3, store.WeeklyLimit(ctx), "read failure")
}

func TestAIEnabled(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	store := New(mem.Settings(), 0, nil)

	assert.True(t, store.AIEnabled(ctx))
	require.NoError(t, store.Set(ctx, admin, domain.SettingAIEnabled, "false"))
	assert.False(t, store.AIEnabled(ctx))

	mem.FailSettingsRead = errors.New("timeout")
	assert.True(t, store.AIEnabled(ctx))
}
