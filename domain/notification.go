package domain

import "time"

// NotificationType is drawn from a fixed set of tags.
type NotificationType string

const (
	NotifyTaskAssigned    NotificationType = "task_assigned"
	NotifyMemberAdded     NotificationType = "team_member_added"
	NotifyMemberRemoved   NotificationType = "team_member_removed"
	NotifyMemberUpdated   NotificationType = "team_member_updated"
	NotifyProjectAssigned NotificationType = "project_assigned"
	NotifyDocumentTagged  NotificationType = "document_tagged"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotifyTaskAssigned, NotifyMemberAdded, NotifyMemberRemoved, NotifyMemberUpdated,
		NotifyProjectAssigned, NotifyDocumentTagged:
		return true
	}
	return false
}

type Notification struct {
	ID          string            `json:"id"`
	WorkspaceID string            `json:"workspace_id"`
	RecipientID string            `json:"recipient_id"`
	Type        NotificationType  `json:"type"`
	Data        map[string]string `json:"data"`
	Read        bool              `json:"read"`
	CreatedAt   time.Time         `json:"created_at"`
}

func (n Notification) RecordID() string { return n.ID }

func (n Notification) ScopeValue(column string) string {
	switch column {
	case ColumnWorkspaceID:
		return n.WorkspaceID
	case ColumnRecipientID:
		return n.RecipientID
	}
	return ""
}

// Summary renders the notification as one line of text.
func (n Notification) Summary() string {
	switch n.Type {
	case NotifyTaskAssigned:
		return "Task assigned: " + n.Data["title"]
	case NotifyMemberAdded:
		return "New teammate: " + n.Data["name"]
	case NotifyMemberRemoved:
		return "Teammate removed: " + n.Data["name"]
	case NotifyMemberUpdated:
		return "Teammate updated: " + n.Data["name"]
	case NotifyProjectAssigned:
		return "Project assigned: " + n.Data["name"]
	case NotifyDocumentTagged:
		return "Tagged in document: " + n.Data["title"]
	}
	if msg := n.Data["message"]; msg != "" {
		return msg
	}
	return string(n.Type)
}
