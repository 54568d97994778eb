package domain

import "fmt"

// Scope is the filter restricting a fetch or a subscription to one tenant's rows,
// typically workspace_id equality.
type Scope struct {
	Column string `json:"column"`
	Value  string `json:"value"`
}

func (s Scope) IsZero() bool {
	return s.Column == "" || s.Value == ""
}

// Key identifies the scope inside registries and channel names.
func (s Scope) Key() string {
	return fmt.Sprintf("%s=%s", s.Column, s.Value)
}

func (s Scope) String() string {
	return s.Key()
}

// Record is implemented by every entity mirrored into a live view.
type Record interface {
	RecordID() string
}

// Scoped records expose the value of the column their table is scoped by.
type Scoped interface {
	Record
	ScopeValue(column string) string
}

// Table names as stored in the remote store.
const (
	TableWorkspaces    = "workspaces"
	TableMembers       = "members"
	TableTasks         = "tasks"
	TableProjects      = "projects"
	TableDocuments     = "documents"
	TableComments      = "document_comments"
	TableMeetings      = "meetings"
	TableNotifications = "notifications"
	TableActivity      = "activity_log"
)

// Scope columns.
const (
	ColumnWorkspaceID = "workspace_id"
	ColumnRecipientID = "recipient_id"
	ColumnID          = "id"
)
