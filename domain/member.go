package domain

import "time"

// MemberRole is the member's role inside its workspace.
type MemberRole string

const (
	RoleAdmin  MemberRole = "admin"
	RoleMember MemberRole = "member"
)

func (r MemberRole) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// Toggled flips admin and member.
func (r MemberRole) Toggled() MemberRole {
	if r == RoleAdmin {
		return RoleMember
	}
	return RoleAdmin
}

// Member is a profile. A member without a workspace id is still onboarding.
type Member struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	AvatarURL   *string    `json:"avatar_url"`
	WorkspaceID *string    `json:"workspace_id"`
	Role        MemberRole `json:"role"`
	Title       *string    `json:"title"`
	Department  *string    `json:"department"`
	Phone       *string    `json:"phone"`
	Location    *string    `json:"location"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (m Member) RecordID() string { return m.ID }

func (m Member) ScopeValue(column string) string {
	switch column {
	case ColumnWorkspaceID:
		if m.WorkspaceID != nil {
			return *m.WorkspaceID
		}
	case ColumnID:
		return m.ID
	}
	return ""
}

func (m *Member) Onboarding() bool {
	return m != nil && (m.WorkspaceID == nil || *m.WorkspaceID == "")
}

// MembershipFields sets workspace id and role together, as join, create and
// remove always do. An empty workspace id clears both.
func MembershipFields(workspaceID string, role MemberRole) Fields {
	if workspaceID == "" {
		return Fields{"workspace_id": nil, "role": nil}
	}
	return Fields{"workspace_id": workspaceID, "role": string(role)}
}
