package calendar

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/internal/realtime"
	"github.com/fastygo/teamspace/repository"
	"github.com/fastygo/teamspace/usecase"
)

// Month identifies a calendar page.
type Month struct {
	Year     int
	Month    time.Month
	Location *time.Location
}

func (m Month) Window() (time.Time, time.Time) {
	return domain.MonthWindow(m.Year, m.Month, m.Location)
}

// Events is everything scheduled in one month.
type Events struct {
	Meetings []domain.Meeting `json:"meetings"`
	Tasks    []domain.Task    `json:"tasks"`
}

type UseCase struct {
	meetings   repository.Table[domain.Meeting]
	tasks      repository.Table[domain.Task]
	hub        *realtime.Hub
	dispatcher *realtime.Dispatcher[domain.Meeting]
	activity   *usecase.ActivityLog
	guard      *realtime.Guard
	logger     *zap.Logger
}

func New(store repository.Store, hub *realtime.Hub, activity *usecase.ActivityLog, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		meetings:   store.Meetings,
		tasks:      store.Tasks,
		hub:        hub,
		dispatcher: realtime.NewDispatcher(store.Meetings, nil, logger),
		activity:   activity,
		guard:      realtime.NewGuard(),
		logger:     logger,
	}
}

func meetingQuery(scope domain.Scope, m Month) repository.Query {
	from, to := m.Window()
	return repository.Query{
		Scope:   scope,
		Range:   &repository.TimeRange{Column: "start_time", From: from, To: to},
		OrderBy: "start_time",
	}
}

// dueQuery selects the tasks due inside the month. Tasks without a due date
// never match a range.
func dueQuery(scope domain.Scope, m Month) repository.Query {
	from, to := m.Window()
	return repository.Query{
		Scope:   scope,
		Range:   &repository.TimeRange{Column: "due_date", From: from, To: to},
		OrderBy: "due_date",
	}
}

// MonthEvents loads the meetings and due tasks of one month.
func (uc *UseCase) MonthEvents(ctx context.Context, actor domain.Actor, m Month) (*Events, error) {
	if err := actor.RequireWorkspace(); err != nil {
		return nil, err
	}
	scope := actor.WorkspaceScope()
	meetings, err := uc.meetings.Select(ctx, meetingQuery(scope, m))
	if err != nil {
		return nil, err
	}
	tasks, err := uc.tasks.Select(ctx, dueQuery(scope, m))
	if err != nil {
		return nil, err
	}
	return &Events{Meetings: meetings, Tasks: tasks}, nil
}

// Open mounts the calendar screen for one month.
func (uc *UseCase) Open(ctx context.Context, actor domain.Actor, m Month) (*usecase.Screen, error) {
	if err := actor.RequireWorkspace(); err != nil {
		return nil, err
	}
	scope := actor.WorkspaceScope()
	src := realtime.Selecting(uc.meetings, actor.MemberID, meetingQuery(scope, m))
	src.Less = func(a, b domain.Meeting) bool { return a.StartTime.Before(b.StartTime) }
	meetings, err := realtime.Mount(ctx, uc.hub, src)
	if err != nil {
		return nil, err
	}
	tasks, err := realtime.Mount(ctx, uc.hub, realtime.Selecting(uc.tasks, actor.MemberID, dueQuery(scope, m)))
	if err != nil {
		meetings.Unmount()
		return nil, err
	}

	page := realtime.NewPage(uc.hub, "meetings", actor.MemberID, meetings, tasks)
	return usecase.NewScreen(page, func() (any, any) {
		ev := Events{Meetings: meetings.Snapshot(), Tasks: tasks.Snapshot()}
		return ev, Days(m, ev.Meetings, ev.Tasks)
	}), nil
}

// CreateMeeting validates the form before anything reaches the store.
func (uc *UseCase) CreateMeeting(ctx context.Context, actor domain.Actor, in domain.MeetingInput) (*domain.Meeting, error) {
	if err := actor.RequireWorkspace(); err != nil {
		return nil, err
	}
	meeting, err := in.Build(actor)
	if err != nil {
		return nil, err
	}

	var created *domain.Meeting
	err = uc.guard.Do("create:"+actor.MemberID, func() error {
		target := usecase.TargetFrom[domain.Meeting](ctx, uc.hub, actor)
		created, err = uc.dispatcher.Create(ctx, meeting, target)
		return err
	})
	if err != nil {
		return nil, err
	}
	uc.activity.Record(ctx, actor, domain.ActionCreated, domain.TableMeetings, created.ID, map[string]string{
		"title":      created.Title,
		"start_time": created.StartTime.Format(time.RFC3339),
	})
	return created, nil
}

func (uc *UseCase) GetMeeting(ctx context.Context, actor domain.Actor, id string) (*domain.Meeting, error) {
	if err := actor.RequireWorkspace(); err != nil {
		return nil, err
	}
	m, err := uc.meetings.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.WorkspaceID != actor.WorkspaceID {
		return nil, domain.ErrNotFound
	}
	return m, nil
}

func (uc *UseCase) DeleteMeeting(ctx context.Context, actor domain.Actor, id string) error {
	existing, err := uc.GetMeeting(ctx, actor, id)
	if err != nil {
		return err
	}
	target := usecase.TargetFrom[domain.Meeting](ctx, uc.hub, actor)
	if err := uc.dispatcher.Delete(ctx, id, target); err != nil {
		return err
	}
	uc.activity.Record(ctx, actor, domain.ActionDeleted, domain.TableMeetings, id, map[string]string{"title": existing.Title})
	return nil
}
