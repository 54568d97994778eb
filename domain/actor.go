package domain

// Actor is the explicit workspace context of the member performing an action.
// Use cases and live views receive it as a value instead of reading ambient state.
type Actor struct {
	MemberID    string
	WorkspaceID string
	Role        MemberRole
}

// ActorFor derives the context from a loaded member profile.
func ActorFor(m *Member) Actor {
	if m == nil {
		return Actor{}
	}
	actor := Actor{MemberID: m.ID, Role: m.Role}
	if m.WorkspaceID != nil {
		actor.WorkspaceID = *m.WorkspaceID
	}
	return actor
}

func (a Actor) HasWorkspace() bool {
	return a.WorkspaceID != ""
}

func (a Actor) IsAdmin() bool {
	return a.HasWorkspace() && a.Role == RoleAdmin
}

// RequireWorkspace fails for members still in onboarding.
func (a Actor) RequireWorkspace() error {
	if a.MemberID == "" {
		return ErrUnauthorized
	}
	if !a.HasWorkspace() {
		return ErrNoWorkspace
	}
	return nil
}

// RequireAdmin fails unless the actor administers its workspace.
func (a Actor) RequireAdmin() error {
	if err := a.RequireWorkspace(); err != nil {
		return err
	}
	if !a.IsAdmin() {
		return ErrAdminOnly
	}
	return nil
}

func (a Actor) WorkspaceScope() Scope {
	return Scope{Column: ColumnWorkspaceID, Value: a.WorkspaceID}
}

func (a Actor) RecipientScope() Scope {
	return Scope{Column: ColumnRecipientID, Value: a.MemberID}
}
