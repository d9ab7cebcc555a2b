package analysis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fastygo/satyalens/domain"
	"github.com/fastygo/satyalens/pkg/logger"
	"github.com/fastygo/satyalens/repository"
	"github.com/fastygo/satyalens/usecase"
)

// DefaultMinDuration is the floor applied to every analyze call.
const DefaultMinDuration = 2 * time.Second

// Oracle scores an encoded image. credential is forwarded as a bearer token.
type Oracle interface {
	Score(ctx context.Context, credential, imageBase64 string) (domain.Verdict, error)
}

// QuotaChecker reports the allowance of an actor.
type QuotaChecker interface {
	Remaining(ctx context.Context, actor domain.Actor) (domain.Allowance, error)
}

// Toggles exposes the admin-controlled analysis switch.
type Toggles interface {
	AIEnabled(ctx context.Context) bool
}

type Config struct {
	MinDuration time.Duration
	// AnonKey is the public credential used for anonymous actors.
	AnonKey string
}

type UseCase struct {
	oracle  Oracle
	quota   QuotaChecker
	toggles Toggles
	users   repository.UserRepository
	scans   repository.ScanRepository
	usage   repository.UsageRepository
	buffer  usecase.ScanBuffer
	cfg     Config
	logger  *zap.Logger
}

func New(
	oracle Oracle,
	quota QuotaChecker,
	toggles Toggles,
	users repository.UserRepository,
	scans repository.ScanRepository,
	usage repository.UsageRepository,
	buffer usecase.ScanBuffer,
	cfg Config,
	logger *zap.Logger,
) *UseCase {
	if cfg.MinDuration <= 0 {
		cfg.MinDuration = DefaultMinDuration
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		oracle:  oracle,
		quota:   quota,
		toggles: toggles,
		users:   users,
		scans:   scans,
		usage:   usage,
		buffer:  buffer,
		cfg:     cfg,
		logger:  logger,
	}
}

// Allowance exposes the quota tracker for the read-only quota endpoint.
func (uc *UseCase) Allowance(ctx context.Context, actor domain.Actor) (domain.Allowance, error) {
	return uc.quota.Remaining(ctx, actor)
}

// Analyze checks quota, scores the image and records usage. Two concurrent calls by
// the same actor may both pass the quota check; that overshoot is accepted.
func (uc *UseCase) Analyze(ctx context.Context, actor domain.Actor, image domain.Image) (*domain.Analysis, error) {
	log := logger.WithRequestID(ctx, uc.logger)

	if !image.IsImage() {
		return nil, domain.ErrUnsupportedMedia
	}
	if !actor.IsIdentified() && actor.DeviceID == "" {
		return nil, domain.NewError(domain.ErrCodeInvalid, "missing device id")
	}
	if uc.toggles != nil && !uc.toggles.AIEnabled(ctx) {
		return nil, domain.ErrAnalysisDisabled
	}

	allowance, err := uc.quota.Remaining(ctx, actor)
	if err != nil {
		return nil, err
	}
	if allowance.LimitReached {
		return nil, domain.WrapError(domain.ErrCodeQuotaExceeded, allowance.Notice, domain.ErrQuotaExceeded)
	}

	raw, err := uc.score(ctx, uc.credential(actor), image.DataURL())
	if err != nil {
		log.Warn("analysis failed", zap.Error(err))
		return nil, err
	}
	verdict := domain.NewVerdict(raw.Confidence, raw.Label)

	recorded := uc.recordUsage(ctx, log, actor, verdict)

	// A buffered scan is not yet visible to the counter, so decrement locally.
	after := domain.NewAllowance(allowance.Limit, allowance.Limit-allowance.Remaining+1, !actor.IsIdentified())
	if recorded {
		if refreshed, err := uc.quota.Remaining(ctx, actor); err == nil {
			after = refreshed
		} else {
			log.Warn("quota refresh failed", zap.Error(err))
		}
	}

	log.Info("image analyzed",
		zap.String("verdict", verdict.Label),
		zap.Int("confidence", verdict.Confidence),
		zap.Int("remaining", after.Remaining))

	return &domain.Analysis{Verdict: verdict, Allowance: after}, nil
}

// score runs the oracle call alongside the minimum-duration timer and returns once
// both have settled.
func (uc *UseCase) score(ctx context.Context, credential, payload string) (domain.Verdict, error) {
	var (
		g        errgroup.Group
		verdict  domain.Verdict
		scoreErr error
	)

	g.Go(func() error {
		verdict, scoreErr = uc.oracle.Score(ctx, credential, payload)
		return nil
	})
	g.Go(func() error {
		timer := time.NewTimer(uc.cfg.MinDuration)
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	if err := g.Wait(); err != nil {
		return domain.Verdict{}, domain.WrapError(domain.ErrCodeOracleFailure, "analysis failed", err)
	}
	if scoreErr != nil {
		var dErr *domain.Error
		if errors.As(scoreErr, &dErr) {
			return domain.Verdict{}, scoreErr
		}
		return domain.Verdict{}, domain.WrapError(domain.ErrCodeOracleFailure, "analysis failed", scoreErr)
	}
	return verdict, nil
}

func (uc *UseCase) credential(actor domain.Actor) string {
	if actor.IsIdentified() && actor.Token != "" {
		return actor.Token
	}
	return uc.cfg.AnonKey
}

// recordUsage never fails the analysis. It reports whether the usage marker is
// visible to the quota tracker right away.
func (uc *UseCase) recordUsage(ctx context.Context, log *zap.Logger, actor domain.Actor, verdict domain.Verdict) bool {
	if !actor.IsIdentified() {
		if err := uc.usage.MarkUsed(ctx, actor.DeviceID); err != nil {
			log.Error("failed to mark guest usage", zap.String("device_id", actor.DeviceID), zap.Error(err))
			return false
		}
		return true
	}

	user := &domain.User{ID: actor.ID, Email: actor.Email}
	scan := &domain.ScanRecord{
		ID:         uuid.NewString(),
		UserID:     actor.ID,
		Confidence: verdict.Confidence,
		Verdict:    verdict.Label,
		CreatedAt:  time.Now().UTC(),
	}

	err := uc.users.Upsert(ctx, user)
	if err == nil {
		err = uc.scans.Create(ctx, scan)
	}
	if err == nil {
		return true
	}

	if uc.buffer == nil {
		log.Error("failed to record scan", zap.Error(err))
		return false
	}
	if bufErr := uc.buffer.BufferScan(ctx, user, scan); bufErr != nil {
		log.Error("failed to buffer scan record", zap.Error(bufErr), zap.NamedError("cause", err))
		return false
	}
	log.Warn("scan record buffered due to repository error", zap.Error(err))
	return false
}
