package quota

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/satyalens/domain"
	"github.com/fastygo/satyalens/pkg/logger"
	"github.com/fastygo/satyalens/repository"
)

// LimitSource yields the weekly scan limit for identified actors.
type LimitSource interface {
	WeeklyLimit(ctx context.Context) int
}

// Tracker computes how many scans an actor has left. It never writes.
type Tracker struct {
	scans  repository.ScanRepository
	usage  repository.UsageRepository
	limits LimitSource
	now    func() time.Time
	logger *zap.Logger
}

func New(scans repository.ScanRepository, usage repository.UsageRepository, limits LimitSource, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		scans:  scans,
		usage:  usage,
		limits: limits,
		now:    time.Now,
		logger: logger,
	}
}

// WithClock overrides the time source.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	if now != nil {
		t.now = now
	}
	return t
}

// Remaining returns the current allowance for actor.
func (t *Tracker) Remaining(ctx context.Context, actor domain.Actor) (domain.Allowance, error) {
	if !actor.IsIdentified() {
		used, err := t.usage.IsUsed(ctx, actor.DeviceID)
		if err != nil {
			return domain.Allowance{}, domain.WrapError(domain.ErrCodeInternal, "failed to read guest usage", err)
		}
		if used {
			return domain.NewAllowance(1, 1, true), nil
		}
		return domain.NewAllowance(1, 0, true), nil
	}

	since := t.now().Add(-domain.QuotaWindow)
	used, err := t.scans.CountByUserSince(ctx, actor.ID, since)
	if err != nil {
		return domain.Allowance{}, domain.WrapError(domain.ErrCodeInternal, "failed to count scans", err)
	}

	limit := domain.DefaultWeeklyLimit
	if t.limits != nil {
		limit = t.limits.WeeklyLimit(ctx)
	}

	allowance := domain.NewAllowance(limit, used, false)
	logger.WithRequestID(ctx, t.logger).Debug("quota computed",
		zap.Int("limit", limit),
		zap.Int("used", used),
		zap.Int("remaining", allowance.Remaining))
	return allowance, nil
}
