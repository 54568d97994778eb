package services

import (
	"context"
	"io"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/internal/infrastructure/ledger"
)

// ObjectReader is the part of the blob store the janitor needs to see whether
// an orphaned object is still there.
type ObjectReader interface {
	Download(ctx context.Context, path string) (io.ReadCloser, error)
}

// JanitorConfig controls the orphan ledger sweep.
type JanitorConfig struct {
	Schedule  string
	Retention time.Duration
	// ReportLimit caps how many outstanding entries one sweep logs.
	ReportLimit int
}

// LedgerJanitor periodically reports outstanding orphans and prunes entries
// older than the retention window. It never touches storage or rows itself;
// an object entry is resolved once an operator has removed the object.
type LedgerJanitor struct {
	store   *ledger.Store
	objects ObjectReader
	logger *zap.Logger
	cron   *cron.Cron
	cfg    JanitorConfig
	now    func() time.Time
}

func NewLedgerJanitor(store *ledger.Store, objects ObjectReader, cfg JanitorConfig, logger *zap.Logger) (*LedgerJanitor, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 1h"
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 30 * 24 * time.Hour
	}
	if cfg.ReportLimit <= 0 {
		cfg.ReportLimit = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	j := &LedgerJanitor{
		store:   store,
		objects: objects,
		logger:  logger,
		cfg:     cfg,
		cron:    cron.New(),
		now:     time.Now,
	}

	if _, err := j.cron.AddFunc(cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := j.Sweep(ctx); err != nil {
			j.logger.Error("ledger sweep failed", zap.Error(err))
		}
	}); err != nil {
		return nil, err
	}
	return j, nil
}

// Start launches the cron scheduler.
func (j *LedgerJanitor) Start() {
	if j == nil || j.cron == nil {
		return
	}
	j.cron.Start()
	j.logger.Info("ledger janitor started", zap.String("schedule", j.cfg.Schedule))
}

// Stop waits for a running sweep or for ctx, whichever ends first.
func (j *LedgerJanitor) Stop(ctx context.Context) {
	if j == nil || j.cron == nil {
		return
	}
	stopCtx := j.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	j.logger.Info("ledger janitor stopped")
}

// Sweep prunes expired entries and logs the ones still outstanding. It
// returns the number of entries pruned.
func (j *LedgerJanitor) Sweep(ctx context.Context) (int, error) {
	if j == nil || j.store == nil {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	pruned, err := j.store.Prune(j.now().Add(-j.cfg.Retention))
	if err != nil {
		return 0, err
	}

	entries, err := j.store.List(j.cfg.ReportLimit)
	if err != nil {
		return pruned, err
	}
	for _, e := range entries {
		if j.cleared(ctx, e) {
			if err := j.store.Resolve(e.ID); err != nil {
				return pruned, err
			}
			j.logger.Info("orphan cleared", zap.String("id", e.ID), zap.String("path", e.Path))
			continue
		}
		j.logger.Warn("orphan awaiting manual cleanup",
			zap.String("id", e.ID),
			zap.String("kind", e.Kind),
			zap.String("table", e.Table),
			zap.String("row_id", e.RowID),
			zap.String("path", e.Path),
			zap.Time("recorded_at", e.RecordedAt),
		)
	}
	if pruned > 0 {
		j.logger.Info("ledger entries pruned", zap.Int("count", pruned))
	}
	return pruned, nil
}

// cleared reports whether an orphaned object entry no longer has an object
// behind it. Row entries stay until retention removes them.
func (j *LedgerJanitor) cleared(ctx context.Context, e ledger.Entry) bool {
	if j.objects == nil || e.Kind != ledger.KindObject || e.Path == "" {
		return false
	}
	body, err := j.objects.Download(ctx, e.Path)
	if err == nil {
		body.Close()
		return false
	}
	return domain.IsDomainError(err, domain.ErrCodeNotFound)
}
