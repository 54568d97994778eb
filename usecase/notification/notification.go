package notification

import (
	"context"

	"go.uber.org/zap"

	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/internal/realtime"
	"github.com/fastygo/teamspace/repository"
	"github.com/fastygo/teamspace/usecase"
)

// ListLimit caps the notifications fetched for one member.
const ListLimit = 100

// Summary is derived from a member's notifications.
type Summary struct {
	Unread int `json:"unread"`
	Total  int `json:"total"`
}

type UseCase struct {
	notifications repository.Table[domain.Notification]
	members       repository.Table[domain.Member]
	lookup        repository.Lookup
	hub           *realtime.Hub
	dispatcher    *realtime.Dispatcher[domain.Notification]
	logger        *zap.Logger
}

func New(store repository.Store, hub *realtime.Hub, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		notifications: store.Notifications,
		members:       store.Members,
		lookup:        store.Lookup,
		hub:           hub,
		dispatcher:    realtime.NewDispatcher(store.Notifications, nil, logger),
		logger:        logger,
	}
}

func inboxQuery(scope domain.Scope) repository.Query {
	return repository.Query{Scope: scope, OrderBy: "created_at", Desc: true, Limit: ListLimit}
}

func newestFirst(a, b domain.Notification) bool {
	return a.CreatedAt.After(b.CreatedAt)
}

// List returns the actor's notifications, newest first.
func (uc *UseCase) List(ctx context.Context, actor domain.Actor) ([]domain.Notification, error) {
	if actor.MemberID == "" {
		return nil, domain.ErrUnauthorized
	}
	return uc.notifications.Select(ctx, inboxQuery(actor.RecipientScope()))
}

// Mount opens a live view of the actor's notifications.
func (uc *UseCase) Mount(ctx context.Context, actor domain.Actor) (*realtime.LiveView[domain.Notification], error) {
	if actor.MemberID == "" {
		return nil, domain.ErrUnauthorized
	}
	src := realtime.Selecting(uc.notifications, actor.MemberID, inboxQuery(actor.RecipientScope()))
	src.Less = newestFirst
	return realtime.Mount(ctx, uc.hub, src)
}

// Open mounts the notifications screen.
func (uc *UseCase) Open(ctx context.Context, actor domain.Actor) (*usecase.Screen, error) {
	lv, err := uc.Mount(ctx, actor)
	if err != nil {
		return nil, err
	}
	page := realtime.NewPage(uc.hub, "notifications", actor.MemberID, lv)
	return usecase.NewScreen(page, func() (any, any) {
		items := lv.Snapshot()
		return items, Summarize(items)
	}), nil
}

// MarkRead flags a notification as read, patching the caller's view first.
func (uc *UseCase) MarkRead(ctx context.Context, actor domain.Actor, id string) (*domain.Notification, error) {
	n, err := uc.notifications.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.RecipientID != actor.MemberID {
		return nil, domain.ErrNotFound
	}
	if n.Read {
		return n, nil
	}
	target := usecase.TargetFrom[domain.Notification](ctx, uc.hub, actor)
	return uc.dispatcher.Update(ctx, id, domain.Fields{"read": true}, target, func(n *domain.Notification) {
		n.Read = true
	})
}

// MarkAllRead flags every unread notification of the actor. It stops at the
// first failure.
func (uc *UseCase) MarkAllRead(ctx context.Context, actor domain.Actor) (int, error) {
	items, err := uc.List(ctx, actor)
	if err != nil {
		return 0, err
	}
	target := usecase.TargetFrom[domain.Notification](ctx, uc.hub, actor)
	marked := 0
	for _, n := range items {
		if n.Read {
			continue
		}
		if _, err := uc.dispatcher.Update(ctx, n.ID, domain.Fields{"read": true}, target, func(n *domain.Notification) {
			n.Read = true
		}); err != nil {
			return marked, err
		}
		marked++
	}
	return marked, nil
}

// NotifyTeam sends one notification to every member of the workspace except
// the excluded ids.
func (uc *UseCase) NotifyTeam(ctx context.Context, workspaceID string, typ domain.NotificationType, data map[string]string, exclude ...string) error {
	if workspaceID == "" {
		return domain.ErrNoWorkspace
	}
	members, err := uc.members.Select(ctx, repository.ScopedQuery(domain.Scope{Column: domain.ColumnWorkspaceID, Value: workspaceID}))
	if err != nil {
		return err
	}
	recipients := make([]string, 0, len(members))
	for _, m := range members {
		recipients = append(recipients, m.ID)
	}
	return uc.Notify(ctx, workspaceID, recipients, typ, data, exclude...)
}

// Notify sends one notification to each recipient. Duplicates, blanks and
// excluded ids are skipped.
func (uc *UseCase) Notify(ctx context.Context, workspaceID string, recipients []string, typ domain.NotificationType, data map[string]string, exclude ...string) error {
	if !typ.Valid() {
		return domain.Invalid("unknown notification type " + string(typ))
	}
	skip := make(map[string]struct{}, len(exclude)+len(recipients))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}
	rows := make([]domain.Notification, 0, len(recipients))
	for _, id := range recipients {
		if id == "" {
			continue
		}
		if _, ok := skip[id]; ok {
			continue
		}
		skip[id] = struct{}{}
		rows = append(rows, domain.Notification{
			WorkspaceID: workspaceID,
			RecipientID: id,
			Type:        typ,
			Data:        copyData(data),
		})
	}
	if len(rows) == 0 {
		return nil
	}
	if err := uc.lookup.InsertNotifications(ctx, rows); err != nil {
		uc.logger.Warn("failed to send notifications",
			zap.String("type", string(typ)),
			zap.Int("recipients", len(rows)),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// Summarize counts unread notifications.
func Summarize(items []domain.Notification) Summary {
	s := Summary{Total: len(items)}
	for _, n := range items {
		if !n.Read {
			s.Unread++
		}
	}
	return s
}

// UnreadCount returns the number of unread notifications.
func UnreadCount(items []domain.Notification) int {
	return Summarize(items).Unread
}

func copyData(data map[string]string) map[string]string {
	out := make(map[string]string, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
