package realtime

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/internal/infrastructure/ledger"
	appLogger "github.com/fastygo/teamspace/pkg/logger"
	"github.com/fastygo/teamspace/repository"
)

// Target is the mounted view a mutation reconciles into. A nil Target means
// the caller has no view open and relies on change notifications alone.
type Target[T domain.Scoped] interface {
	PatchOne(id string, fn func(*T)) bool
	Append(item T)
	Remove(id string) bool
	Refresh(ctx context.Context) error
}

// OrphanLedger records storage that fell out of step with metadata.
type OrphanLedger interface {
	Record(entry ledger.Entry) error
}

// SideEffect runs before a row is deleted. If it fails the row stays.
type SideEffect struct {
	Name  string
	Paths []string
	Run   func(ctx context.Context) error
}

// Dispatcher performs mutations against one table. Failures are returned
// once; nothing is retried.
type Dispatcher[T domain.Scoped] struct {
	table  repository.Table[T]
	ledger OrphanLedger
	logger *zap.Logger
}

func NewDispatcher[T domain.Scoped](table repository.Table[T], orphans OrphanLedger, logger *zap.Logger) *Dispatcher[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher[T]{
		table:  table,
		ledger: orphans,
		logger: logger.With(zap.String("table", table.Name())),
	}
}

// Create inserts rec and appends the stored row to target.
func (d *Dispatcher[T]) Create(ctx context.Context, rec *T, target Target[T]) (*T, error) {
	stored, err := d.table.Insert(ctx, rec)
	if err != nil {
		return nil, err
	}
	if target != nil {
		target.Append(*stored)
	}
	return stored, nil
}

// Update writes fields. With a patch, target is edited before the call and
// the next re-fetch settles any disagreement; without one, target re-fetches
// once the store acknowledged the write.
func (d *Dispatcher[T]) Update(ctx context.Context, id string, fields domain.Fields, target Target[T], patch func(*T)) (*T, error) {
	optimistic := target != nil && patch != nil
	if optimistic {
		target.PatchOne(id, patch)
	}
	updated, err := d.table.Update(ctx, id, fields)
	if err != nil {
		if optimistic {
			d.reconcile(ctx, target)
		}
		return nil, err
	}
	if target != nil && !optimistic {
		d.reconcile(ctx, target)
	}
	return updated, nil
}

// Delete removes the row with id.
func (d *Dispatcher[T]) Delete(ctx context.Context, id string, target Target[T]) error {
	if err := d.table.Delete(ctx, id); err != nil {
		return err
	}
	if target != nil {
		target.Remove(id)
	}
	return nil
}

// DeleteWith runs effects in order, then deletes rec. A failing effect aborts
// before the row is touched. If the row delete fails after the effects ran,
// the row now points at removed storage: this is logged and recorded in the
// ledger, not repaired.
func (d *Dispatcher[T]) DeleteWith(ctx context.Context, rec T, target Target[T], effects ...SideEffect) error {
	for _, effect := range effects {
		if err := effect.Run(ctx); err != nil {
			appLogger.For(ctx, d.logger).Warn("side effect failed, row kept",
				zap.String("id", rec.RecordID()),
				zap.String("effect", effect.Name),
				zap.Error(err),
			)
			return err
		}
	}

	if err := d.table.Delete(ctx, rec.RecordID()); err != nil {
		if len(effects) == 0 {
			return err
		}
		var paths []string
		for _, effect := range effects {
			paths = append(paths, effect.Paths...)
		}
		appLogger.For(ctx, d.logger).Error("row delete failed after side effects; storage orphaned",
			zap.String("id", rec.RecordID()),
			zap.Strings("paths", paths),
			zap.Error(err),
		)
		d.recordOrphan(ledger.Entry{
			Kind:        ledger.KindRow,
			WorkspaceID: rec.ScopeValue(domain.ColumnWorkspaceID),
			Table:       d.table.Name(),
			RowID:       rec.RecordID(),
			Path:        strings.Join(paths, ","),
			Reason:      err.Error(),
		})
		return err
	}
	if target != nil {
		target.Remove(rec.RecordID())
	}
	return nil
}

// RecordOrphanObject notes a stored object left behind without a row.
func (d *Dispatcher[T]) RecordOrphanObject(workspaceID, path string, cause error) {
	d.logger.Error("stored object orphaned", zap.String("path", path), zap.Error(cause))
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	d.recordOrphan(ledger.Entry{
		Kind:        ledger.KindObject,
		WorkspaceID: workspaceID,
		Table:       d.table.Name(),
		Path:        path,
		Reason:      reason,
	})
}

func (d *Dispatcher[T]) recordOrphan(entry ledger.Entry) {
	if d.ledger == nil {
		return
	}
	if err := d.ledger.Record(entry); err != nil {
		d.logger.Error("failed to record orphan", zap.String("path", entry.Path), zap.Error(err))
	}
}

func (d *Dispatcher[T]) reconcile(ctx context.Context, target Target[T]) {
	if err := target.Refresh(ctx); err != nil && !errors.Is(err, ErrUnmounted) {
		appLogger.For(ctx, d.logger).Warn("re-fetch after mutation failed", zap.Error(err))
	}
}
