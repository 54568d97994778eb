package task

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/internal/realtime"
	"github.com/fastygo/teamspace/repository"
	"github.com/fastygo/teamspace/usecase"
)

// Notifier sends notifications to chosen members.
type Notifier interface {
	Notify(ctx context.Context, workspaceID string, recipients []string, typ domain.NotificationType, data map[string]string, exclude ...string) error
}

type UseCase struct {
	tasks      repository.Table[domain.Task]
	hub        *realtime.Hub
	dispatcher *realtime.Dispatcher[domain.Task]
	notifier   Notifier
	activity   *usecase.ActivityLog
	guard      *realtime.Guard
	now        func() time.Time
	logger     *zap.Logger
}

func New(store repository.Store, hub *realtime.Hub, notifier Notifier, activity *usecase.ActivityLog, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		tasks:      store.Tasks,
		hub:        hub,
		dispatcher: realtime.NewDispatcher(store.Tasks, nil, logger),
		notifier:   notifier,
		activity:   activity,
		guard:      realtime.NewGuard(),
		now:        time.Now,
		logger:     logger,
	}
}

func boardQuery(scope domain.Scope) repository.Query {
	return repository.Query{Scope: scope, OrderBy: "created_at"}
}

func (uc *UseCase) ListTasks(ctx context.Context, actor domain.Actor) ([]domain.Task, error) {
	if err := actor.RequireWorkspace(); err != nil {
		return nil, err
	}
	return uc.tasks.Select(ctx, boardQuery(actor.WorkspaceScope()))
}

// Mount opens a live view of the workspace's tasks.
func (uc *UseCase) Mount(ctx context.Context, actor domain.Actor) (*realtime.LiveView[domain.Task], error) {
	if err := actor.RequireWorkspace(); err != nil {
		return nil, err
	}
	return realtime.Mount(ctx, uc.hub, realtime.Selecting(uc.tasks, actor.MemberID, boardQuery(actor.WorkspaceScope())))
}

// Open mounts the board screen. The filter only affects the derived board.
func (uc *UseCase) Open(ctx context.Context, actor domain.Actor, filter Filter) (*usecase.Screen, error) {
	lv, err := uc.Mount(ctx, actor)
	if err != nil {
		return nil, err
	}
	page := realtime.NewPage(uc.hub, "tasks", actor.MemberID, lv)
	return usecase.NewScreen(page, func() (any, any) {
		tasks := lv.Snapshot()
		return tasks, Build(tasks, filter, uc.now())
	}), nil
}

func (uc *UseCase) GetTask(ctx context.Context, actor domain.Actor, id string) (*domain.Task, error) {
	if err := actor.RequireWorkspace(); err != nil {
		return nil, err
	}
	t, err := uc.tasks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.WorkspaceID != actor.WorkspaceID {
		return nil, domain.ErrTaskNotFound
	}
	return t, nil
}

// CreateTask validates the form, stores the task and notifies its assignee.
func (uc *UseCase) CreateTask(ctx context.Context, actor domain.Actor, in domain.TaskInput) (*domain.Task, error) {
	if err := actor.RequireWorkspace(); err != nil {
		return nil, err
	}
	task, err := in.Build(actor)
	if err != nil {
		return nil, err
	}

	var created *domain.Task
	err = uc.guard.Do("create:"+actor.MemberID, func() error {
		target := usecase.TargetFrom[domain.Task](ctx, uc.hub, actor)
		created, err = uc.dispatcher.Create(ctx, task, target)
		return err
	})
	if err != nil {
		return nil, err
	}

	uc.notifyAssignee(ctx, actor, created, "")
	uc.activity.Record(ctx, actor, domain.ActionCreated, domain.TableTasks, created.ID, map[string]string{"title": created.Title})
	return created, nil
}

// UpdateTask applies the edit form. The caller's view re-fetches once the
// store accepted the write.
func (uc *UseCase) UpdateTask(ctx context.Context, actor domain.Actor, id string, in domain.TaskInput) (*domain.Task, error) {
	fields, err := in.Changes()
	if err != nil {
		return nil, err
	}
	existing, err := uc.GetTask(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	target := usecase.TargetFrom[domain.Task](ctx, uc.hub, actor)
	updated, err := uc.dispatcher.Update(ctx, id, fields, target, nil)
	if err != nil {
		return nil, err
	}

	uc.notifyAssignee(ctx, actor, updated, domain.Deref(existing.AssignedTo))
	uc.activity.Record(ctx, actor, domain.ActionUpdated, domain.TableTasks, updated.ID, map[string]string{"title": updated.Title})
	return updated, nil
}

// ChangeStatus moves a task to another column. The caller's view shows the
// move before the store answers.
func (uc *UseCase) ChangeStatus(ctx context.Context, actor domain.Actor, id string, status domain.TaskStatus) (*domain.Task, error) {
	if !status.Valid() {
		return nil, domain.Invalid("Invalid task status.")
	}
	if _, err := uc.GetTask(ctx, actor, id); err != nil {
		return nil, err
	}

	target := usecase.TargetFrom[domain.Task](ctx, uc.hub, actor)
	updated, err := uc.dispatcher.Update(ctx, id, domain.Fields{"status": string(status)}, target, func(t *domain.Task) {
		t.Status = status
	})
	if err != nil {
		return nil, err
	}
	uc.activity.Record(ctx, actor, domain.ActionUpdated, domain.TableTasks, updated.ID, map[string]string{
		"title":  updated.Title,
		"status": string(updated.Status),
	})
	return updated, nil
}

// ChangePriority sets a task's priority. Concurrent changes are not merged:
// the last write the store accepts is what every view shows after re-fetching.
func (uc *UseCase) ChangePriority(ctx context.Context, actor domain.Actor, id string, priority domain.Priority) (*domain.Task, error) {
	if !priority.Valid() {
		return nil, domain.Invalid("Invalid task priority.")
	}
	if _, err := uc.GetTask(ctx, actor, id); err != nil {
		return nil, err
	}
	target := usecase.TargetFrom[domain.Task](ctx, uc.hub, actor)
	return uc.dispatcher.Update(ctx, id, domain.Fields{"priority": string(priority)}, target, func(t *domain.Task) {
		t.Priority = priority
	})
}

func (uc *UseCase) DeleteTask(ctx context.Context, actor domain.Actor, id string) error {
	existing, err := uc.GetTask(ctx, actor, id)
	if err != nil {
		return err
	}
	target := usecase.TargetFrom[domain.Task](ctx, uc.hub, actor)
	if err := uc.dispatcher.Delete(ctx, id, target); err != nil {
		return err
	}
	uc.activity.Record(ctx, actor, domain.ActionDeleted, domain.TableTasks, id, map[string]string{"title": existing.Title})
	return nil
}

// notifyAssignee tells a newly assigned member about the task. Assigning a
// task to oneself sends nothing.
func (uc *UseCase) notifyAssignee(ctx context.Context, actor domain.Actor, t *domain.Task, previous string) {
	assignee := strings.TrimSpace(domain.Deref(t.AssignedTo))
	if uc.notifier == nil || assignee == "" || assignee == previous {
		return
	}
	err := uc.notifier.Notify(ctx, t.WorkspaceID, []string{assignee}, domain.NotifyTaskAssigned, map[string]string{
		"title":   t.Title,
		"task_id": t.ID,
	}, actor.MemberID)
	if err != nil {
		uc.logger.Warn("task assignment notification failed", zap.String("task_id", t.ID), zap.Error(err))
	}
}
