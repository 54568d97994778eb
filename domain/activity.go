package domain

import "time"

// Activity is one entry of the workspace activity log shown on the dashboard.
type Activity struct {
	ID          string            `json:"id"`
	WorkspaceID string            `json:"workspace_id"`
	ActorID     string            `json:"actor_id"`
	Action      string            `json:"action"`
	Entity      string            `json:"entity"`
	EntityID    string            `json:"entity_id"`
	Data        map[string]string `json:"data"`
	CreatedAt   time.Time         `json:"created_at"`
}

func (a Activity) RecordID() string { return a.ID }

func (a Activity) ScopeValue(column string) string {
	if column == ColumnWorkspaceID {
		return a.WorkspaceID
	}
	return ""
}

// Activity actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
	ActionJoined  = "joined"
	ActionLeft    = "left"
)
