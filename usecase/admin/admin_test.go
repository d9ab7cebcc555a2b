package admin

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

func newUseCase(mem *memory.Store) *UseCase {
	return New(NewAuthorizer(mem.Users(), nil), mem.Users(), mem.Scans(), settings.New(mem.Settings(), 0, nil), nil)
}

func TestAuthorize(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	auth := NewAuthorizer(mem.Users(), nil)
	require.NoError(t, mem.Users().GrantRole(ctx, "boss", domain.RoleAdmin))

	_, err := auth.Authorize(ctx, domain.Anonymous("dev"))
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnauthorized))

	// A role claim on the token is not enough.
	_, err = auth.Authorize(ctx, domain.Identified("u1", "", domain.RoleAdmin, "tok"))
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden))

	session, err := auth.Authorize(ctx, domain.Identified("boss", "boss@example.com", "", "tok"))
	require.NoError(t, err)
	assert.Equal(t, "boss", session.UserID)
	assert.True(t, session.Valid())

	mem.FailRoles = errors.New("db down")
	_, err = auth.Authorize(ctx, domain.Identified("boss", "", "", "tok"))
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInternal))
}

func TestAuthorize_EmailFromProfile(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	auth := NewAuthorizer(mem.Users(), nil)
	require.NoError(t, mem.Users().GrantRole(ctx, "boss", domain.RoleAdmin))

	session, err := auth.Authorize(ctx, domain.Identified("boss", "", "", "tok"))
	require.NoError(t, err)
	assert.Empty(t, session.Email)

	require.NoError(t, mem.Users().Upsert(ctx, &domain.User{ID: "boss", Email: "boss@example.com"}))
	session, err = auth.Authorize(ctx, domain.Identified("boss", "", "", "tok"))
	require.NoError(t, err)
	assert.Equal(t, "boss@example.com", session.Email)

	session, err = auth.Authorize(ctx, domain.Identified("boss", "claim@example.com", "", "tok"))
	require.NoError(t, err)
	assert.Equal(t, "claim@example.com", session.Email)
}

func TestStats_ForbiddenForNonAdmin(t *testing.T) {
	mem := memory.New()
	uc := newUseCase(mem)

	stats, err := uc.Stats(context.Background(), domain.Identified("u1", "", "", "tok"))
	assert.Nil(t, stats)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden))
}

func TestStats_Aggregates(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	uc := newUseCase(mem)
	require.NoError(t, mem.Users().GrantRole(ctx, "boss", domain.RoleAdmin))

	for _, u := range []domain.User{{ID: "a", Email: "a@x.io"}, {ID: "b", Email: "b@x.io"}, {ID: "c", Email: "c@x.io"}} {
		u := u
		require.NoError(t, mem.Users().Upsert(ctx, &u))
	}
	now := time.Now()
	scans := []domain.ScanRecord{
		{UserID: "a", CreatedAt: now},
		{UserID: "a", CreatedAt: now.Add(-time.Hour)},
		{UserID: "b", CreatedAt: now.Add(-10 * 24 * time.Hour)},
	}
	for i := range scans {
		require.NoError(t, mem.Scans().Create(ctx, &scans[i]))
	}
	require.NoError(t, mem.Settings().Upsert(ctx, domain.Setting{Key: domain.SettingFreeWeeklyLimit, Value: "3"}))

	stats, err := uc.Stats(ctx, domain.Identified("boss", "", "", "tok"))
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalUsers)
	assert.Equal(t, 3, stats.TotalScans)
	assert.Equal(t, 1, stats.ActiveUsersWeek)
	assert.Equal(t, []domain.UserScanCount{{Email: "a@x.io", ScanCount: 2}, {Email: "b@x.io", ScanCount: 1}}, stats.TopUsers)
	assert.Equal(t, []domain.Setting{{Key: domain.SettingFreeWeeklyLimit, Value: "3"}}, stats.Settings)
}

func updateSetting(ctx context.Context, uc *UseCase, actor domain.Actor, key, value string) error {
	session, err := uc.Authorize(ctx, actor)
	if err != nil {
		return err
	}
	return uc.ApplySetting(ctx, session, key, value)
}

func TestUpdateSetting(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	uc := newUseCase(mem)
	require.NoError(t, mem.Users().GrantRole(ctx, "boss", domain.RoleAdmin))
	boss := domain.Identified("boss", "", "", "tok")

	require.NoError(t, updateSetting(ctx, uc, boss, domain.SettingFreeWeeklyLimit, "5"))
	require.NoError(t, updateSetting(ctx, uc, boss, domain.SettingFreeWeeklyLimit, "10"))

	stats, err := uc.Stats(ctx, boss)
	require.NoError(t, err)
	assert.Equal(t, []domain.Setting{{Key: domain.SettingFreeWeeklyLimit, Value: "10"}}, stats.Settings)

	err = updateSetting(ctx, uc, domain.Identified("u1", "", "", "tok"), domain.SettingAIEnabled, "false")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden))

	// Revoking the role takes effect on the very next call.
	require.NoError(t, mem.Users().RevokeRole(ctx, "boss", domain.RoleAdmin))
	err = updateSetting(ctx, uc, boss, domain.SettingAIEnabled, "false")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden))
}
