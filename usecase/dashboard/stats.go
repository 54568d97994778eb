package dashboard

import (
	"sort"
	"time"

	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/usecase/task"
)

const (
	trendDays      = 30
	deadlineWindow = 7 * 24 * time.Hour
	recentLimit    = 5
	ActivityLimit  = 20
)

// Input is the workspace data the dashboard is computed from.
type Input struct {
	Tasks     []domain.Task
	Projects  []domain.Project
	Members   []domain.Member
	Meetings  []domain.Meeting
	Documents []domain.Document
	Activity  []domain.Activity
}

type Slice struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type Load struct {
	MemberID string `json:"member_id"`
	Name     string `json:"name"`
	Tasks    int    `json:"tasks"`
}

type Point struct {
	Date      string `json:"date"`
	Completed int    `json:"completed"`
}

type ProjectProgress struct {
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
	Progress  int    `json:"progress"`
}

type Stats struct {
	TotalTasks       int               `json:"total_tasks"`
	CompletedTasks   int               `json:"completed_tasks"`
	CompletionRate   int               `json:"completion_rate"`
	ActiveProjects   int               `json:"active_projects"`
	TotalMembers     int               `json:"total_members"`
	TotalMeetings    int               `json:"total_meetings"`
	TotalDocuments   int               `json:"total_documents"`
	Status           []Slice           `json:"status"`
	Workload         []Load            `json:"workload"`
	Trend            []Point           `json:"trend"`
	ProjectProgress  []ProjectProgress `json:"project_progress"`
	Deadlines        []domain.Task     `json:"deadlines"`
	MyOpenTasks      []domain.Task     `json:"my_open_tasks"`
	UpcomingMeetings []domain.Meeting  `json:"upcoming_meetings"`
	RecentDocuments  []domain.Document `json:"recent_documents"`
	Activity         []domain.Activity `json:"activity"`
}

// Compute derives every dashboard figure. viewer is the member whose open
// tasks are listed.
func Compute(in Input, viewer string, now time.Time) Stats {
	s := Stats{
		TotalTasks:     len(in.Tasks),
		CompletionRate: task.CompletionRate(in.Tasks),
		TotalMembers:   len(in.Members),
		TotalMeetings:  len(in.Meetings),
		TotalDocuments: len(in.Documents),
	}

	perStatus := make(map[domain.TaskStatus]int)
	perMember := make(map[string]int)
	perProject := make(map[string][2]int)
	s.Deadlines = []domain.Task{}
	s.MyOpenTasks = []domain.Task{}
	for _, t := range in.Tasks {
		perStatus[t.Status]++
		if t.IsDone() {
			s.CompletedTasks++
		}
		if a := domain.Deref(t.AssignedTo); a != "" {
			perMember[a]++
		}
		if p := domain.Deref(t.ProjectID); p != "" {
			c := perProject[p]
			c[0]++
			if t.IsDone() {
				c[1]++
			}
			perProject[p] = c
		}
		if t.DueDate != nil && !t.DueDate.Before(now) && !t.DueDate.After(now.Add(deadlineWindow)) {
			s.Deadlines = append(s.Deadlines, t)
		}
		if viewer != "" && domain.Deref(t.AssignedTo) == viewer && !t.IsDone() {
			s.MyOpenTasks = append(s.MyOpenTasks, t)
		}
	}

	for _, status := range domain.TaskStatuses {
		s.Status = append(s.Status, Slice{Name: status.Label(), Value: perStatus[status]})
	}
	s.Workload = make([]Load, 0, len(in.Members))
	for _, m := range in.Members {
		s.Workload = append(s.Workload, Load{MemberID: m.ID, Name: m.Name, Tasks: perMember[m.ID]})
	}
	s.ProjectProgress = make([]ProjectProgress, 0, len(in.Projects))
	for _, p := range in.Projects {
		if p.Status == domain.ProjectActive {
			s.ActiveProjects++
		}
		c := perProject[p.ID]
		s.ProjectProgress = append(s.ProjectProgress, ProjectProgress{ProjectID: p.ID, Name: p.Name, Progress: task.Percent(c[1], c[0])})
	}
	s.Trend = Trend(in.Tasks, now)
	s.UpcomingMeetings = upcomingMeetings(in.Meetings, now)
	s.RecentDocuments = recentDocuments(in.Documents)
	s.Activity = latestActivity(in.Activity)
	return s
}

// Trend counts done tasks by the UTC day they were last updated, for the 30
// days ending today.
func Trend(tasks []domain.Task, now time.Time) []Point {
	done := make(map[string]int)
	for _, t := range tasks {
		if t.IsDone() && !t.UpdatedAt.IsZero() {
			done[t.UpdatedAt.UTC().Format(time.DateOnly)]++
		}
	}
	today := now.UTC()
	points := make([]Point, 0, trendDays)
	for i := trendDays - 1; i >= 0; i-- {
		key := today.AddDate(0, 0, -i).Format(time.DateOnly)
		points = append(points, Point{Date: key, Completed: done[key]})
	}
	return points
}

func upcomingMeetings(meetings []domain.Meeting, now time.Time) []domain.Meeting {
	out := []domain.Meeting{}
	for _, m := range meetings {
		if !m.StartTime.Before(now) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	if len(out) > recentLimit {
		out = out[:recentLimit]
	}
	return out
}

func recentDocuments(docs []domain.Document) []domain.Document {
	out := append([]domain.Document(nil), docs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > recentLimit {
		out = out[:recentLimit]
	}
	if out == nil {
		out = []domain.Document{}
	}
	return out
}

func latestActivity(entries []domain.Activity) []domain.Activity {
	out := append([]domain.Activity(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > ActivityLimit {
		out = out[:ActivityLimit]
	}
	if out == nil {
		out = []domain.Activity{}
	}
	return out
}
