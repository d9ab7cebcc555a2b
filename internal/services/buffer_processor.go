package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/satyalens/internal/infrastructure/buffer"
	"github.com/fastygo/satyalens/internal/metrics"
	"github.com/fastygo/satyalens/pkg/logger"
	"github.com/fastygo/satyalens/repository"
)

// ConnectionHealth abstracts the connection monitor.
type ConnectionHealth interface {
	IsOnline() bool
}

// ProcessorConfig controls how often the buffer is drained and how long items live.
type ProcessorConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
	Retention  time.Duration
}

// BufferProcessor replays buffered scan records into Postgres.
type BufferProcessor struct {
	store  *buffer.Store
	health ConnectionHealth
	users  repository.UserRepository
	scans  repository.ScanRepository
	logger *zap.Logger
	cron   *cron.Cron
	cfg    ProcessorConfig
	now    func() time.Time
}

func NewBufferProcessor(
	store *buffer.Store,
	health ConnectionHealth,
	users repository.UserRepository,
	scans repository.ScanRepository,
	logger *zap.Logger,
	cfg ProcessorConfig,
) *BufferProcessor {
	if cfg.Interval < time.Second {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 72 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	bp := &BufferProcessor{
		store:  store,
		health: health,
		users:  users,
		scans:  scans,
		logger: logger,
		cfg:    cfg,
		cron:   cron.New(cron.WithSeconds()),
		now:    time.Now,
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = bp.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := bp.Drain(ctx); err != nil {
			bp.logger.Error("buffer drain failed", zap.Error(err))
		}
	})
	_, _ = bp.cron.AddFunc("@hourly", func() {
		if err := bp.Cleanup(); err != nil {
			bp.logger.Error("buffer cleanup failed", zap.Error(err))
		}
	})

	return bp
}

// Start launches the cron scheduler.
func (bp *BufferProcessor) Start() {
	if bp == nil || bp.cron == nil {
		return
	}
	bp.cron.Start()
	bp.logger.Info("buffer processor started", zap.Duration("interval", bp.cfg.Interval))
}

// Stop waits for a running job to finish or ctx to end.
func (bp *BufferProcessor) Stop(ctx context.Context) {
	if bp == nil || bp.cron == nil {
		return
	}
	stopCtx := bp.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	bp.logger.Info("buffer processor stopped")
}

// Drain replays one batch. It does nothing while the monitor reports an outage.
func (bp *BufferProcessor) Drain(ctx context.Context) error {
	if bp == nil || bp.store == nil {
		return nil
	}
	if bp.health != nil && !bp.health.IsOnline() {
		bp.logger.Debug("skipping buffer drain (offline)")
		return nil
	}

	items, err := bp.store.GetBatch(bp.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, item := range items {
		if err := bp.replay(ctx, item); err != nil {
			bp.logger.Error("failed to replay buffered scan",
				zap.String("item_id", item.ID),
				zap.Int("retries", item.Retries),
				zap.Error(err))

			item.Retries++
			if item.Retries >= bp.cfg.MaxRetries {
				bp.logger.Warn("dropping buffered scan (max retries reached)", zap.String("item_id", item.ID))
				_ = bp.store.Remove(item)
				continue
			}
			if err := bp.store.Requeue(item); err != nil {
				bp.logger.Error("failed to requeue buffered scan", zap.Error(err))
			}
			continue
		}

		if err := bp.store.Remove(item); err != nil {
			bp.logger.Warn("failed to purge replayed scan", zap.Error(err))
		}
	}
	metrics.SetBufferedScans(bp.Size())
	return nil
}

// Cleanup removes items older than the retention window.
func (bp *BufferProcessor) Cleanup() error {
	if bp == nil || bp.store == nil {
		return nil
	}
	removed, err := bp.store.Cleanup(bp.now().Add(-bp.cfg.Retention))
	if err != nil {
		return err
	}
	if removed > 0 {
		bp.logger.Warn("expired buffered scans discarded", zap.Int("count", removed))
	}
	metrics.SetBufferedScans(bp.Size())
	return nil
}

// Buffer persists an item for a later drain.
func (bp *BufferProcessor) Buffer(ctx context.Context, item buffer.Item) error {
	if bp == nil || bp.store == nil {
		return fmt.Errorf("buffer processor not configured")
	}
	if err := bp.store.Enqueue(item); err != nil {
		return err
	}
	logger.WithRequestID(ctx, bp.logger).Warn("scan record buffered", zap.String("item_id", item.ID))
	metrics.SetBufferedScans(bp.Size())
	return nil
}

// Size returns the number of buffered items.
func (bp *BufferProcessor) Size() int {
	if bp == nil || bp.store == nil {
		return 0
	}
	size, err := bp.store.Size()
	if err != nil {
		return 0
	}
	return size
}

func (bp *BufferProcessor) replay(ctx context.Context, item buffer.Item) error {
	payload, err := item.Scan()
	if err != nil {
		return err
	}
	if err := bp.users.Upsert(ctx, &payload.User); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	if err := bp.scans.Create(ctx, &payload.Scan); err != nil {
		return fmt.Errorf("create scan: %w", err)
	}
	return nil
}
