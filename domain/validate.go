package domain

import (
	"strings"
	"time"
)

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

const dateLayout = "2006-01-02"

// ParseDateTime accepts RFC 3339 timestamps and the zone-less forms produced by
// datetime-local inputs. Zone-less values are read as UTC.
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range dateTimeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// ParseDueDate parses an optional due date. Blank input means unset.
func ParseDueDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return &t, nil
	}
	t, err := ParseDateTime(s)
	if err != nil {
		return nil, Invalid("Invalid due date.")
	}
	t = t.UTC()
	return &t, nil
}

// MeetingInput is the meeting creation form.
type MeetingInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Location    string `json:"location"`
	MeetingLink string `json:"meeting_link"`
}

// Build validates the form. Any error here blocks the call to the store.
func (in MeetingInput) Build(actor Actor) (*Meeting, error) {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.StartTime) == "" || strings.TrimSpace(in.EndTime) == "" {
		return nil, Invalid("Title, start time, and end time are required.")
	}
	start, startErr := ParseDateTime(in.StartTime)
	end, endErr := ParseDateTime(in.EndTime)
	if startErr != nil || endErr != nil {
		return nil, Invalid("Invalid date/time format.")
	}
	if !start.Before(end) {
		return nil, Invalid("End time must be after start time.")
	}
	return &Meeting{
		WorkspaceID: actor.WorkspaceID,
		Title:       strings.TrimSpace(in.Title),
		Description: NullIfBlank(in.Description),
		StartTime:   start.UTC(),
		EndTime:     end.UTC(),
		Location:    NullIfBlank(in.Location),
		MeetingLink: NullIfBlank(in.MeetingLink),
		CreatedBy:   NullIfBlank(actor.MemberID),
	}, nil
}

// TaskInput is the task create/edit form. Blank optional fields are sent as NULL.
type TaskInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	DueDate     string `json:"due_date"`
	ProjectID   string `json:"project_id"`
	AssignedTo  string `json:"assigned_to"`
}

func (in TaskInput) validate() (*time.Time, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, Invalid("Title is required.")
	}
	if s := strings.TrimSpace(in.Status); s != "" && !TaskStatus(s).Valid() {
		return nil, Invalid("Invalid task status.")
	}
	if p := strings.TrimSpace(in.Priority); p != "" && !Priority(p).Valid() {
		return nil, Invalid("Invalid task priority.")
	}
	return ParseDueDate(in.DueDate)
}

// Build validates the form for creation. A blank status or priority is left
// empty so the store applies its default.
func (in TaskInput) Build(actor Actor) (*Task, error) {
	due, err := in.validate()
	if err != nil {
		return nil, err
	}
	return &Task{
		WorkspaceID: actor.WorkspaceID,
		Title:       strings.TrimSpace(in.Title),
		Description: NullIfBlank(in.Description),
		Status:      TaskStatus(strings.TrimSpace(in.Status)),
		Priority:    Priority(strings.TrimSpace(in.Priority)),
		ProjectID:   NullIfBlank(in.ProjectID),
		AssignedTo:  NullIfBlank(in.AssignedTo),
		DueDate:     due,
		CreatedBy:   NullIfBlank(actor.MemberID),
	}, nil
}

// Changes validates the form for an edit and returns the partial update.
// Status and priority are closed enumerations and are only sent when set.
func (in TaskInput) Changes() (Fields, error) {
	due, err := in.validate()
	if err != nil {
		return nil, err
	}
	fields := Fields{
		"title":       strings.TrimSpace(in.Title),
		"description": NullableString(NullIfBlank(in.Description)),
		"due_date":    NullableTime(due),
		"project_id":  NullableString(NullIfBlank(in.ProjectID)),
		"assigned_to": NullableString(NullIfBlank(in.AssignedTo)),
	}
	if s := strings.TrimSpace(in.Status); s != "" {
		fields["status"] = s
	}
	if p := strings.TrimSpace(in.Priority); p != "" {
		fields["priority"] = p
	}
	return fields, nil
}

// ProjectInput is the project create/edit form.
type ProjectInput struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Status          string   `json:"status"`
	Priority        string   `json:"priority"`
	DueDate         string   `json:"due_date"`
	AssignedMembers []string `json:"assigned_members"`
}

func (in ProjectInput) validate() (*time.Time, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, Invalid("Project name is required.")
	}
	if s := strings.TrimSpace(in.Status); s != "" && !ProjectStatus(s).Valid() {
		return nil, Invalid("Invalid project status.")
	}
	if p := strings.TrimSpace(in.Priority); p != "" && !Priority(p).Valid() {
		return nil, Invalid("Invalid project priority.")
	}
	return ParseDueDate(in.DueDate)
}

// Build validates the form for creation. New projects always start active.
func (in ProjectInput) Build(actor Actor) (*Project, error) {
	due, err := in.validate()
	if err != nil {
		return nil, err
	}
	return &Project{
		WorkspaceID:     actor.WorkspaceID,
		Name:            strings.TrimSpace(in.Name),
		Description:     NullIfBlank(in.Description),
		Status:          ProjectActive,
		Priority:        Priority(strings.TrimSpace(in.Priority)),
		DueDate:         due,
		AssignedMembers: compactIDs(in.AssignedMembers),
		CreatedBy:       NullIfBlank(actor.MemberID),
	}, nil
}

// Changes validates the form for an edit and returns the partial update.
func (in ProjectInput) Changes() (Fields, error) {
	due, err := in.validate()
	if err != nil {
		return nil, err
	}
	fields := Fields{
		"name":             strings.TrimSpace(in.Name),
		"description":      NullableString(NullIfBlank(in.Description)),
		"due_date":         NullableTime(due),
		"assigned_members": compactIDs(in.AssignedMembers),
	}
	if s := strings.TrimSpace(in.Status); s != "" {
		fields["status"] = s
	}
	if p := strings.TrimSpace(in.Priority); p != "" {
		fields["priority"] = p
	}
	return fields, nil
}

func compactIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
