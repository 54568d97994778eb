package team

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/internal/realtime"
	"github.com/fastygo/teamspace/repository"
	"github.com/fastygo/teamspace/usecase"
)

// Notifier fans a notification out to a workspace.
type Notifier interface {
	NotifyTeam(ctx context.Context, workspaceID string, typ domain.NotificationType, data map[string]string, exclude ...string) error
}

var (
	ErrAlreadyInWorkspace = domain.NewError(domain.ErrCodeConflict, "You already belong to a workspace.")
	ErrLastAdmin          = domain.NewError(domain.ErrCodeConflict, "A workspace needs at least one admin.")
	ErrRemoveSelf         = domain.Invalid("You cannot remove yourself from the workspace.")
	ErrNotInWorkspace     = domain.NewError(domain.ErrCodeNotFound, "member is not part of this workspace")
)

// Roster is derived from the team screen.
type Roster struct {
	Workspace *domain.Workspace `json:"workspace"`
	Members   int               `json:"members"`
	Admins    int               `json:"admins"`
	IsAdmin   bool              `json:"is_admin"`
}

type UseCase struct {
	workspaces repository.Table[domain.Workspace]
	members    repository.Table[domain.Member]
	lookup     repository.Lookup
	hub        *realtime.Hub
	roster     *realtime.Dispatcher[domain.Member]
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
		workspaces: store.Workspaces,
		members:    store.Members,
		lookup:     store.Lookup,
		hub:        hub,
		roster:     realtime.NewDispatcher(store.Members, nil, logger),
		notifier:   notifier,
		activity:   activity,
		guard:      realtime.NewGuard(),
		logger:     logger,
	}
}

// CreateWorkspace creates a workspace with a fresh join code and makes the
// actor its admin.
func (uc *UseCase) CreateWorkspace(ctx context.Context, actor domain.Actor, name, description string) (*domain.Workspace, *domain.Member, error) {
	if actor.MemberID == "" {
		return nil, nil, domain.ErrUnauthorized
	}
	if actor.HasWorkspace() {
		return nil, nil, ErrAlreadyInWorkspace
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil, domain.Invalid("Workspace name is required.")
	}

	var (
		ws     *domain.Workspace
		member *domain.Member
	)
	err := uc.guard.Do("workspace:"+actor.MemberID, func() error {
		var err error
		ws, err = uc.workspaces.Insert(ctx, &domain.Workspace{
			Name:        name,
			JoinCode:    domain.NewJoinCode(),
			Description: domain.NullIfBlank(description),
			CreatedBy:   domain.NullIfBlank(actor.MemberID),
		})
		if err != nil {
			return err
		}
		member, err = uc.members.Update(ctx, actor.MemberID, domain.MembershipFields(ws.ID, domain.RoleAdmin))
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	uc.logger.Info("workspace created", zap.String("workspace_id", ws.ID), zap.String("member_id", actor.MemberID))
	uc.hub.UnmountOwner(actor.MemberID)
	uc.activity.Record(ctx, domain.ActorFor(member), domain.ActionCreated, domain.TableWorkspaces, ws.ID, map[string]string{"name": ws.Name})
	return ws, member, nil
}

// JoinWorkspace adds the actor to the workspace owning code as a member.
func (uc *UseCase) JoinWorkspace(ctx context.Context, actor domain.Actor, code string) (*domain.Workspace, *domain.Member, error) {
	if actor.MemberID == "" {
		return nil, nil, domain.ErrUnauthorized
	}
	if actor.HasWorkspace() {
		return nil, nil, ErrAlreadyInWorkspace
	}
	code = domain.NormalizeJoinCode(code)
	if code == "" {
		return nil, nil, domain.Invalid("Join code is required.")
	}

	var (
		ws     *domain.Workspace
		member *domain.Member
	)
	err := uc.guard.Do("workspace:"+actor.MemberID, func() error {
		var err error
		ws, err = uc.lookup.WorkspaceByJoinCode(ctx, code)
		if err != nil {
			return err
		}
		member, err = uc.members.Update(ctx, actor.MemberID, domain.MembershipFields(ws.ID, domain.RoleMember))
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	uc.hub.UnmountOwner(actor.MemberID)
	joined := domain.ActorFor(member)
	uc.notify(ctx, ws.ID, domain.NotifyMemberAdded, member, actor.MemberID)
	uc.activity.Record(ctx, joined, domain.ActionJoined, domain.TableMembers, member.ID, map[string]string{"name": member.Name})
	return ws, member, nil
}

// Workspace returns the actor's workspace.
func (uc *UseCase) Workspace(ctx context.Context, actor domain.Actor) (*domain.Workspace, error) {
	if err := actor.RequireWorkspace(); err != nil {
		return nil, err
	}
	return uc.workspaces.Get(ctx, actor.WorkspaceID)
}

// RenameWorkspace changes the workspace name and description. Admin only.
func (uc *UseCase) RenameWorkspace(ctx context.Context, actor domain.Actor, name, description string) (*domain.Workspace, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Invalid("Workspace name is required.")
	}
	ws, err := uc.workspaces.Update(ctx, actor.WorkspaceID, domain.Fields{
		"name":        name,
		"description": domain.NullableString(domain.NullIfBlank(description)),
	})
	if err != nil {
		return nil, err
	}
	uc.activity.Record(ctx, actor, domain.ActionUpdated, domain.TableWorkspaces, ws.ID, map[string]string{"name": ws.Name})
	return ws, nil
}

// Members lists the actor's workspace.
func (uc *UseCase) Members(ctx context.Context, actor domain.Actor) ([]domain.Member, error) {
	if err := actor.RequireWorkspace(); err != nil {
		return nil, err
	}
	return uc.members.Select(ctx, rosterQuery(actor.WorkspaceScope()))
}

func rosterQuery(scope domain.Scope) repository.Query {
	return repository.Query{Scope: scope, OrderBy: "name"}
}

// Open mounts the team screen: the roster and the workspace row.
func (uc *UseCase) Open(ctx context.Context, actor domain.Actor) (*usecase.Screen, error) {
	if err := actor.RequireWorkspace(); err != nil {
		return nil, err
	}
	scope := actor.WorkspaceScope()
	src := realtime.Selecting(uc.members, actor.MemberID, rosterQuery(scope))
	src.Less = func(a, b domain.Member) bool { return a.Name < b.Name }
	members, err := realtime.Mount(ctx, uc.hub, src)
	if err != nil {
		return nil, err
	}
	wsScope := domain.Scope{Column: domain.ColumnID, Value: actor.WorkspaceID}
	workspace, err := realtime.Mount(ctx, uc.hub, realtime.Selecting(uc.workspaces, actor.MemberID, repository.ScopedQuery(wsScope)))
	if err != nil {
		members.Unmount()
		return nil, err
	}

	page := realtime.NewPage(uc.hub, "team", actor.MemberID, members, workspace)
	return usecase.NewScreen(page, func() (any, any) {
		roster := members.Snapshot()
		var ws *domain.Workspace
		if rows := workspace.Snapshot(); len(rows) > 0 {
			ws = &rows[0]
		}
		return roster, Summarize(roster, ws, actor.MemberID)
	}), nil
}

// Summarize counts the roster and tells whether viewer administers it.
func Summarize(members []domain.Member, ws *domain.Workspace, viewer string) Roster {
	r := Roster{Workspace: ws, Members: len(members)}
	for _, m := range members {
		if m.Role == domain.RoleAdmin {
			r.Admins++
			if m.ID == viewer {
				r.IsAdmin = true
			}
		}
	}
	return r
}

// ToggleRole flips a member between admin and member. Admin only.
func (uc *UseCase) ToggleRole(ctx context.Context, actor domain.Actor, memberID string) (*domain.Member, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	target, err := uc.memberOf(ctx, actor, memberID)
	if err != nil {
		return nil, err
	}
	next := target.Role.Toggled()
	if target.Role == domain.RoleAdmin {
		if err := uc.keepAnAdmin(ctx, actor, target.ID); err != nil {
			return nil, err
		}
	}

	view := usecase.TargetFrom[domain.Member](ctx, uc.hub, actor)
	updated, err := uc.roster.Update(ctx, target.ID, domain.Fields{"role": string(next)}, view, func(m *domain.Member) {
		m.Role = next
	})
	if err != nil {
		return nil, err
	}
	uc.notify(ctx, actor.WorkspaceID, domain.NotifyMemberUpdated, updated, actor.MemberID)
	uc.activity.Record(ctx, actor, domain.ActionUpdated, domain.TableMembers, updated.ID, map[string]string{
		"name": updated.Name,
		"role": string(updated.Role),
	})
	return updated, nil
}

// RemoveMember takes a member out of the workspace, clearing its workspace
// and role together. Admin only.
func (uc *UseCase) RemoveMember(ctx context.Context, actor domain.Actor, memberID string) error {
	if err := actor.RequireAdmin(); err != nil {
		return err
	}
	if memberID == actor.MemberID {
		return ErrRemoveSelf
	}
	target, err := uc.memberOf(ctx, actor, memberID)
	if err != nil {
		return err
	}

	view := usecase.TargetFrom[domain.Member](ctx, uc.hub, actor)
	if _, err := uc.roster.Update(ctx, target.ID, domain.MembershipFields("", ""), view, nil); err != nil {
		return err
	}
	uc.hub.UnmountOwner(target.ID)
	uc.notify(ctx, actor.WorkspaceID, domain.NotifyMemberRemoved, target, actor.MemberID)
	uc.activity.Record(ctx, actor, domain.ActionLeft, domain.TableMembers, target.ID, map[string]string{"name": target.Name})
	return nil
}

func (uc *UseCase) memberOf(ctx context.Context, actor domain.Actor, memberID string) (*domain.Member, error) {
	m, err := uc.members.Get(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if m.ScopeValue(domain.ColumnWorkspaceID) != actor.WorkspaceID {
		return nil, ErrNotInWorkspace
	}
	return m, nil
}

func (uc *UseCase) keepAnAdmin(ctx context.Context, actor domain.Actor, demoted string) error {
	roster, err := uc.Members(ctx, actor)
	if err != nil {
		return err
	}
	for _, m := range roster {
		if m.ID != demoted && m.Role == domain.RoleAdmin {
			return nil
		}
	}
	return ErrLastAdmin
}

func (uc *UseCase) notify(ctx context.Context, workspaceID string, typ domain.NotificationType, m *domain.Member, exclude string) {
	if uc.notifier == nil {
		return
	}
	data := map[string]string{"name": m.Name, "member_id": m.ID}
	if m.Role != "" {
		data["role"] = string(m.Role)
	}
	if err := uc.notifier.NotifyTeam(ctx, workspaceID, typ, data, exclude); err != nil && !errors.Is(err, context.Canceled) {
		uc.logger.Warn("team notification failed", zap.String("type", string(typ)), zap.Error(err))
	}
}
