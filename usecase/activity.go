package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/repository"
)

// ActivityLog appends entries to the workspace activity feed. Writing an
// entry never fails the action it describes.
type ActivityLog struct {
	table  repository.Table[domain.Activity]
	logger *zap.Logger
}

func NewActivityLog(table repository.Table[domain.Activity], logger *zap.Logger) *ActivityLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityLog{table: table, logger: logger}
}

func (a *ActivityLog) Record(ctx context.Context, actor domain.Actor, action, entity, entityID string, data map[string]string) {
	if a == nil || a.table == nil || !actor.HasWorkspace() {
		return
	}
	if data == nil {
		data = map[string]string{}
	}
	_, err := a.table.Insert(ctx, &domain.Activity{
		WorkspaceID: actor.WorkspaceID,
		ActorID:     actor.MemberID,
		Action:      action,
		Entity:      entity,
		EntityID:    entityID,
		Data:        data,
	})
	if err != nil {
		a.logger.Warn("failed to record activity",
			zap.String("action", action),
			zap.String("entity", entity),
			zap.String("entity_id", entityID),
			zap.Error(err),
		)
	}
}
