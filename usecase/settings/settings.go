package settings

import (
	"context"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/fastygo/satyalens/domain"
	"github.com/fastygo/satyalens/pkg/logger"
	"github.com/fastygo/satyalens/repository"
)

// Store is the single accessor for app settings. Reads are public and cached
// briefly; writes require an AdminSession and drop the cached value.
type Store struct {
	repo   repository.SettingRepository
	cache  *gocache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

func New(repo repository.SettingRepository, ttl time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	// go-cache treats a zero default expiration as "never expire".
	cacheTTL := ttl
	if cacheTTL <= 0 {
		cacheTTL = gocache.NoExpiration
	}
	return &Store{
		repo:   repo,
		cache:  gocache.New(cacheTTL, time.Minute),
		ttl:    ttl,
		logger: logger,
	}
}

// List returns every setting ordered by key. It always hits the repository.
func (s *Store) List(ctx context.Context) ([]domain.Setting, error) {
	return s.repo.List(ctx)
}

// Get returns a single setting, serving from cache when possible.
func (s *Store) Get(ctx context.Context, key string) (*domain.Setting, error) {
	if v, ok := s.cache.Get(key); ok {
		setting := v.(domain.Setting)
		return &setting, nil
	}
	setting, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if s.ttl > 0 {
		s.cache.SetDefault(key, *setting)
	}
	return setting, nil
}

// WeeklyLimit never fails: any read or parse problem yields the default limit.
func (s *Store) WeeklyLimit(ctx context.Context) int {
	setting, err := s.Get(ctx, domain.SettingFreeWeeklyLimit)
	if err != nil {
		if !domain.IsDomainError(err, domain.ErrCodeNotFound) {
			logger.WithRequestID(ctx, s.logger).Warn("weekly limit read failed, using default", zap.Error(err))
		}
		return domain.DefaultWeeklyLimit
	}
	return domain.ParseWeeklyLimit(setting.Value)
}

// AIEnabled reports the analysis toggle; unreadable means enabled.
func (s *Store) AIEnabled(ctx context.Context) bool {
	setting, err := s.Get(ctx, domain.SettingAIEnabled)
	if err != nil {
		if !domain.IsDomainError(err, domain.ErrCodeNotFound) {
			logger.WithRequestID(ctx, s.logger).Warn("ai toggle read failed, assuming enabled", zap.Error(err))
		}
		return true
	}
	return domain.ParseAIEnabled(setting.Value)
}

// Set upserts one setting. Other keys are never touched.
func (s *Store) Set(ctx context.Context, session *domain.AdminSession, key, value string) error {
	if !session.Valid() {
		return domain.ErrForbidden
	}
	key = strings.TrimSpace(key)
	if !domain.IsKnownSetting(key) {
		return domain.ErrUnknownSetting
	}
	value = strings.TrimSpace(value)
	if err := validate(key, value); err != nil {
		return err
	}

	if err := s.repo.Upsert(ctx, domain.Setting{Key: key, Value: value}); err != nil {
		return domain.WrapError(domain.ErrCodeSettingsUpdate, "failed to update setting", err)
	}
	s.cache.Delete(key)

	logger.WithRequestID(ctx, s.logger).Info("setting updated",
		zap.String("key", key),
		zap.String("value", value),
		zap.String("admin_id", session.UserID))
	return nil
}

func validate(key, value string) error {
	switch key {
	case domain.SettingFreeWeeklyLimit:
		limit, err := strconv.Atoi(value)
		if err != nil || limit < 0 {
			return domain.NewError(domain.ErrCodeInvalid, "free_weekly_limit must be a non-negative integer")
		}
	case domain.SettingAIEnabled:
		if _, err := strconv.ParseBool(value); err != nil {
			return domain.NewError(domain.ErrCodeInvalid, "ai_enabled must be true or false")
		}
	}
	return nil
}
