package admin

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/satyalens/domain"
	"github.com/fastygo/satyalens/pkg/logger"
	"github.com/fastygo/satyalens/repository"
)

const topUsersLimit = 10

// Authorizer decides whether an actor may use the admin surface. The role is always
// read from user_roles; role claims carried by the actor are ignored.
type Authorizer struct {
	users  repository.UserRepository
	now    func() time.Time
	logger *zap.Logger
}

func NewAuthorizer(users repository.UserRepository, logger *zap.Logger) *Authorizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authorizer{users: users, now: time.Now, logger: logger}
}

func (a *Authorizer) Authorize(ctx context.Context, actor domain.Actor) (*domain.AdminSession, error) {
	if !actor.IsIdentified() {
		return nil, domain.ErrUnauthorized
	}
	ok, err := a.users.HasRole(ctx, actor.ID, domain.RoleAdmin)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "failed to check role", err)
	}
	if !ok {
		logger.WithRequestID(ctx, a.logger).Warn("admin access denied", zap.String("user_id", actor.ID))
		return nil, domain.ErrForbidden
	}

	email := actor.Email
	if email == "" {
		if profile, err := a.users.GetByID(ctx, actor.ID); err == nil {
			email = profile.Email
		} else if !domain.IsDomainError(err, domain.ErrCodeNotFound) {
			logger.WithRequestID(ctx, a.logger).Warn("admin profile lookup failed", zap.Error(err))
		}
	}
	return &domain.AdminSession{UserID: actor.ID, Email: email, GrantedAt: a.now()}, nil
}

// SettingsWriter is the write half of the settings accessor.
type SettingsWriter interface {
	List(ctx context.Context) ([]domain.Setting, error)
	Set(ctx context.Context, session *domain.AdminSession, key, value string) error
}

// UseCase serves dashboard reads and toggle writes. Every call re-authorizes.
type UseCase struct {
	auth     *Authorizer
	users    repository.UserRepository
	scans    repository.ScanRepository
	settings SettingsWriter
	now      func() time.Time
	logger   *zap.Logger
}

func New(auth *Authorizer, users repository.UserRepository, scans repository.ScanRepository, settings SettingsWriter, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		auth:     auth,
		users:    users,
		scans:    scans,
		settings: settings,
		now:      time.Now,
		logger:   logger,
	}
}

func (uc *UseCase) Stats(ctx context.Context, actor domain.Actor) (*domain.Stats, error) {
	if _, err := uc.auth.Authorize(ctx, actor); err != nil {
		return nil, err
	}

	var (
		stats domain.Stats
		err   error
	)
	if stats.TotalUsers, err = uc.users.Count(ctx); err != nil {
		return nil, err
	}
	if stats.TotalScans, err = uc.scans.Count(ctx); err != nil {
		return nil, err
	}
	if stats.ActiveUsersWeek, err = uc.scans.CountActiveUsersSince(ctx, uc.now().Add(-domain.QuotaWindow)); err != nil {
		return nil, err
	}
	if stats.TopUsers, err = uc.scans.TopUsers(ctx, topUsersLimit); err != nil {
		return nil, err
	}
	if stats.Settings, err = uc.settings.List(ctx); err != nil {
		return nil, err
	}
	if stats.TopUsers == nil {
		stats.TopUsers = []domain.UserScanCount{}
	}
	if stats.Settings == nil {
		stats.Settings = []domain.Setting{}
	}
	return &stats, nil
}

// Authorize lets the HTTP boundary check the caller before it reads the request body.
func (uc *UseCase) Authorize(ctx context.Context, actor domain.Actor) (*domain.AdminSession, error) {
	return uc.auth.Authorize(ctx, actor)
}

// ApplySetting writes one toggle under an already granted session.
func (uc *UseCase) ApplySetting(ctx context.Context, session *domain.AdminSession, key, value string) error {
	return uc.settings.Set(ctx, session, key, value)
}
