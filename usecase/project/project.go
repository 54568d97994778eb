package project

import (
	"context"
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
	projects   repository.Table[domain.Project]
	tasks      repository.Table[domain.Task]
	hub        *realtime.Hub
	dispatcher *realtime.Dispatcher[domain.Project]
	notifier   Notifier
	activity   *usecase.ActivityLog
	guard      *realtime.Guard
	logger     *zap.Logger
}

func New(store repository.Store, hub *realtime.Hub, notifier Notifier, activity *usecase.ActivityLog, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		projects:   store.Projects,
		tasks:      store.Tasks,
		hub:        hub,
		dispatcher: realtime.NewDispatcher(store.Projects, nil, logger),
		notifier:   notifier,
		activity:   activity,
		guard:      realtime.NewGuard(),
		logger:     logger,
	}
}

func portfolioQuery(scope domain.Scope) repository.Query {
	return repository.Query{Scope: scope, OrderBy: "created_at", Desc: true}
}

func (uc *UseCase) ListProjects(ctx context.Context, actor domain.Actor) ([]domain.Project, error) {
	if err := actor.RequireWorkspace(); err != nil {
		return nil, err
	}
	return uc.projects.Select(ctx, portfolioQuery(actor.WorkspaceScope()))
}

func (uc *UseCase) GetProject(ctx context.Context, actor domain.Actor, id string) (*domain.Project, error) {
	if err := actor.RequireWorkspace(); err != nil {
		return nil, err
	}
	p, err := uc.projects.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.WorkspaceID != actor.WorkspaceID {
		return nil, domain.ErrProjectNotFound
	}
	return p, nil
}

// Detail is one project with its tasks.
type Detail struct {
	Project  *domain.Project `json:"project"`
	Tasks    []domain.Task   `json:"tasks"`
	Progress int             `json:"progress"`
}

// GetDetail loads a project together with the tasks that belong to it.
func (uc *UseCase) GetDetail(ctx context.Context, actor domain.Actor, id string) (*Detail, error) {
	p, err := uc.GetProject(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	all, err := uc.tasks.Select(ctx, repository.Query{Scope: actor.WorkspaceScope(), OrderBy: "created_at"})
	if err != nil {
		return nil, err
	}
	tasks := TasksOf(p.ID, all)
	return &Detail{Project: p, Tasks: tasks, Progress: progress(tasks)}, nil
}

// Open mounts the projects screen. Progress needs the tasks, so both tables
// are watched.
func (uc *UseCase) Open(ctx context.Context, actor domain.Actor, filter Filter) (*usecase.Screen, error) {
	if err := actor.RequireWorkspace(); err != nil {
		return nil, err
	}
	scope := actor.WorkspaceScope()
	src := realtime.Selecting(uc.projects, actor.MemberID, portfolioQuery(scope))
	src.Less = func(a, b domain.Project) bool { return a.CreatedAt.After(b.CreatedAt) }
	projects, err := realtime.Mount(ctx, uc.hub, src)
	if err != nil {
		return nil, err
	}
	tasks, err := realtime.Mount(ctx, uc.hub, realtime.Selecting(uc.tasks, actor.MemberID, repository.Query{Scope: scope, OrderBy: "created_at"}))
	if err != nil {
		projects.Unmount()
		return nil, err
	}

	page := realtime.NewPage(uc.hub, "projects", actor.MemberID, projects, tasks)
	return usecase.NewScreen(page, func() (any, any) {
		list := projects.Snapshot()
		return list, Build(list, tasks.Snapshot(), filter)
	}), nil
}

// CreateProject stores a new active project and notifies its members.
func (uc *UseCase) CreateProject(ctx context.Context, actor domain.Actor, in domain.ProjectInput) (*domain.Project, error) {
	if err := actor.RequireWorkspace(); err != nil {
		return nil, err
	}
	project, err := in.Build(actor)
	if err != nil {
		return nil, err
	}

	var created *domain.Project
	err = uc.guard.Do("create:"+actor.MemberID, func() error {
		target := usecase.TargetFrom[domain.Project](ctx, uc.hub, actor)
		created, err = uc.dispatcher.Create(ctx, project, target)
		return err
	})
	if err != nil {
		return nil, err
	}

	uc.notifyAssigned(ctx, actor, created, created.AssignedMembers)
	uc.activity.Record(ctx, actor, domain.ActionCreated, domain.TableProjects, created.ID, map[string]string{"name": created.Name})
	return created, nil
}

// UpdateProject applies the edit form and notifies members newly assigned.
func (uc *UseCase) UpdateProject(ctx context.Context, actor domain.Actor, id string, in domain.ProjectInput) (*domain.Project, error) {
	fields, err := in.Changes()
	if err != nil {
		return nil, err
	}
	existing, err := uc.GetProject(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	target := usecase.TargetFrom[domain.Project](ctx, uc.hub, actor)
	updated, err := uc.dispatcher.Update(ctx, id, fields, target, nil)
	if err != nil {
		return nil, err
	}
	uc.notifyAssigned(ctx, actor, updated, added(existing.AssignedMembers, updated.AssignedMembers))
	uc.activity.Record(ctx, actor, domain.ActionUpdated, domain.TableProjects, updated.ID, map[string]string{"name": updated.Name})
	return updated, nil
}

// SetStatus marks a project active or completed.
func (uc *UseCase) SetStatus(ctx context.Context, actor domain.Actor, id string, status domain.ProjectStatus) (*domain.Project, error) {
	if !status.Valid() {
		return nil, domain.Invalid("Invalid project status.")
	}
	if _, err := uc.GetProject(ctx, actor, id); err != nil {
		return nil, err
	}
	target := usecase.TargetFrom[domain.Project](ctx, uc.hub, actor)
	return uc.dispatcher.Update(ctx, id, domain.Fields{"status": string(status)}, target, func(p *domain.Project) {
		p.Status = status
	})
}

func (uc *UseCase) DeleteProject(ctx context.Context, actor domain.Actor, id string) error {
	existing, err := uc.GetProject(ctx, actor, id)
	if err != nil {
		return err
	}
	target := usecase.TargetFrom[domain.Project](ctx, uc.hub, actor)
	if err := uc.dispatcher.Delete(ctx, id, target); err != nil {
		return err
	}
	uc.activity.Record(ctx, actor, domain.ActionDeleted, domain.TableProjects, id, map[string]string{"name": existing.Name})
	return nil
}

func (uc *UseCase) notifyAssigned(ctx context.Context, actor domain.Actor, p *domain.Project, recipients []string) {
	if uc.notifier == nil || len(recipients) == 0 {
		return
	}
	data := map[string]string{"name": p.Name, "project_id": p.ID}
	if p.DueDate != nil {
		data["due_date"] = p.DueDate.Format(time.DateOnly)
	}
	if err := uc.notifier.Notify(ctx, p.WorkspaceID, recipients, domain.NotifyProjectAssigned, data, actor.MemberID); err != nil {
		uc.logger.Warn("project assignment notification failed", zap.String("project_id", p.ID), zap.Error(err))
	}
}

func added(before, after []string) []string {
	had := make(map[string]struct{}, len(before))
	for _, id := range before {
		had[id] = struct{}{}
	}
	var out []string
	for _, id := range after {
		if _, ok := had[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
