package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Workspace is the tenant boundary grouping members, tasks, projects, documents and meetings.
type Workspace struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	JoinCode    string    `json:"join_code"`
	Description *string   `json:"description"`
	CreatedBy   *string   `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

func (w Workspace) RecordID() string { return w.ID }

func (w Workspace) ScopeValue(column string) string {
	if column == ColumnID {
		return w.ID
	}
	return ""
}

// JoinCodeLength is the number of characters in a workspace join code.
const JoinCodeLength = 6

// NewJoinCode returns an upper-case alphanumeric code shared with invitees.
func NewJoinCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:JoinCodeLength])
}

// NormalizeJoinCode trims and upper-cases user input.
func NormalizeJoinCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
