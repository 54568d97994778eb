package domain

import "time"

// ProjectStatus is either active or completed.
type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
)

func (s ProjectStatus) Valid() bool {
	return s == ProjectActive || s == ProjectCompleted
}

type Project struct {
	ID              string        `json:"id"`
	WorkspaceID     string        `json:"workspace_id"`
	Name            string        `json:"name"`
	Description     *string       `json:"description"`
	Status          ProjectStatus `json:"status"`
	Priority        Priority      `json:"priority"`
	DueDate         *time.Time    `json:"due_date"`
	AssignedMembers []string      `json:"assigned_members"`
	CreatedBy       *string       `json:"created_by"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

func (p Project) RecordID() string { return p.ID }

func (p Project) ScopeValue(column string) string {
	if column == ColumnWorkspaceID {
		return p.WorkspaceID
	}
	return ""
}
