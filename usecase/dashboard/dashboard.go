package dashboard

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/internal/realtime"
	"github.com/fastygo/teamspace/repository"
	"github.com/fastygo/teamspace/usecase"
)

type UseCase struct {
	store  repository.Store
	hub    *realtime.Hub
	now    func() time.Time
	logger *zap.Logger
}

func New(store repository.Store, hub *realtime.Hub, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{store: store, hub: hub, now: time.Now, logger: logger}
}

func activityQuery(scope domain.Scope) repository.Query {
	return repository.Query{Scope: scope, OrderBy: "created_at", Desc: true, Limit: ActivityLimit}
}

// Load reads everything once and computes the dashboard.
func (uc *UseCase) Load(ctx context.Context, actor domain.Actor) (*Stats, error) {
	if err := actor.RequireWorkspace(); err != nil {
		return nil, err
	}
	q := repository.ScopedQuery(actor.WorkspaceScope())
	var (
		in  Input
		err error
	)
	if in.Tasks, err = uc.store.Tasks.Select(ctx, q); err != nil {
		return nil, err
	}
	if in.Projects, err = uc.store.Projects.Select(ctx, q); err != nil {
		return nil, err
	}
	if in.Members, err = uc.store.Members.Select(ctx, q); err != nil {
		return nil, err
	}
	if in.Meetings, err = uc.store.Meetings.Select(ctx, q); err != nil {
		return nil, err
	}
	if in.Documents, err = uc.store.Documents.Select(ctx, q); err != nil {
		return nil, err
	}
	if in.Activity, err = uc.store.Activity.Select(ctx, activityQuery(actor.WorkspaceScope())); err != nil {
		return nil, err
	}
	stats := Compute(in, actor.MemberID, uc.now())
	return &stats, nil
}

func mount[T domain.Scoped](ctx context.Context, hub *realtime.Hub, actor domain.Actor, table repository.Table[T], q repository.Query) (*realtime.LiveView[T], error) {
	return realtime.Mount(ctx, hub, realtime.Selecting(table, actor.MemberID, q))
}

// Open mounts the dashboard screen. It watches every table it summarizes.
func (uc *UseCase) Open(ctx context.Context, actor domain.Actor) (*usecase.Screen, error) {
	if err := actor.RequireWorkspace(); err != nil {
		return nil, err
	}
	scope := actor.WorkspaceScope()
	all := repository.ScopedQuery(scope)
	var parts []realtime.Mounted
	fail := func(err error) (*usecase.Screen, error) {
		for _, p := range parts {
			p.Unmount()
		}
		return nil, err
	}

	tasks, err := mount(ctx, uc.hub, actor, uc.store.Tasks, all)
	if err != nil {
		return fail(err)
	}
	parts = append(parts, tasks)
	projects, err := mount(ctx, uc.hub, actor, uc.store.Projects, all)
	if err != nil {
		return fail(err)
	}
	parts = append(parts, projects)
	members, err := mount(ctx, uc.hub, actor, uc.store.Members, all)
	if err != nil {
		return fail(err)
	}
	parts = append(parts, members)
	meetings, err := mount(ctx, uc.hub, actor, uc.store.Meetings, all)
	if err != nil {
		return fail(err)
	}
	parts = append(parts, meetings)
	documents, err := mount(ctx, uc.hub, actor, uc.store.Documents, all)
	if err != nil {
		return fail(err)
	}
	parts = append(parts, documents)
	activity, err := mount(ctx, uc.hub, actor, uc.store.Activity, activityQuery(scope))
	if err != nil {
		return fail(err)
	}
	parts = append(parts, activity)

	page := realtime.NewPage(uc.hub, "dashboard", actor.MemberID, parts...)
	return usecase.NewScreen(page, func() (any, any) {
		stats := Compute(Input{
			Tasks:     tasks.Snapshot(),
			Projects:  projects.Snapshot(),
			Members:   members.Snapshot(),
			Meetings:  meetings.Snapshot(),
			Documents: documents.Snapshot(),
			Activity:  activity.Snapshot(),
		}, actor.MemberID, uc.now())
		return nil, stats
	}), nil
}

// OpenActivity mounts the activity feed on its own.
func (uc *UseCase) OpenActivity(ctx context.Context, actor domain.Actor) (*usecase.Screen, error) {
	if err := actor.RequireWorkspace(); err != nil {
		return nil, err
	}
	lv, err := mount(ctx, uc.hub, actor, uc.store.Activity, activityQuery(actor.WorkspaceScope()))
	if err != nil {
		return nil, err
	}
	page := realtime.NewPage(uc.hub, "activity", actor.MemberID, lv)
	return usecase.NewScreen(page, func() (any, any) {
		entries := latestActivity(lv.Snapshot())
		return entries, len(entries)
	}), nil
}
