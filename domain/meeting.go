package domain

import "time"

type Meeting struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Location    *string   `json:"location"`
	MeetingLink *string   `json:"meeting_link"`
	CreatedBy   *string   `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

func (m Meeting) RecordID() string { return m.ID }

func (m Meeting) ScopeValue(column string) string {
	if column == ColumnWorkspaceID {
		return m.WorkspaceID
	}
	return ""
}

// MonthWindow returns the first instant and the last millisecond of a calendar month in loc.
func MonthWindow(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 1, 0).Add(-time.Millisecond)
	return start, end
}
