package task

import (
	"fmt"
	"math"
	"time"

	"github.com/fastygo/teamspace/domain"
)

// Filter narrows the board. Empty fields match everything.
type Filter struct {
	AssigneeID string `json:"assignee_id"`
	Priority   string `json:"priority"`
	ProjectID  string `json:"project_id"`
}

func (f Filter) Match(t domain.Task) bool {
	if f.AssigneeID != "" && domain.Deref(t.AssignedTo) != f.AssigneeID {
		return false
	}
	if f.Priority != "" && string(t.Priority) != f.Priority {
		return false
	}
	if f.ProjectID != "" && domain.Deref(t.ProjectID) != f.ProjectID {
		return false
	}
	return true
}

// Card is a task as rendered on the board.
type Card struct {
	domain.Task
	Badge    string `json:"badge"`
	DueLabel string `json:"due_label"`
}

type Column struct {
	Status domain.TaskStatus `json:"status"`
	Label  string            `json:"label"`
	Count  int               `json:"count"`
	Cards  []Card            `json:"cards"`
}

type Board struct {
	Columns        []Column `json:"columns"`
	Total          int      `json:"total"`
	Done           int      `json:"done"`
	CompletionRate int      `json:"completion_rate"`
}

// Build groups the filtered tasks into the board columns.
func Build(tasks []domain.Task, filter Filter, now time.Time) Board {
	index := make(map[domain.TaskStatus]int, len(domain.TaskStatuses))
	board := Board{Columns: make([]Column, 0, len(domain.TaskStatuses))}
	for i, status := range domain.TaskStatuses {
		index[status] = i
		board.Columns = append(board.Columns, Column{Status: status, Label: status.Label(), Cards: []Card{}})
	}

	var visible []domain.Task
	for _, t := range tasks {
		if !filter.Match(t) {
			continue
		}
		visible = append(visible, t)
		i, ok := index[t.Status]
		if !ok {
			continue
		}
		col := &board.Columns[i]
		col.Cards = append(col.Cards, Card{Task: t, Badge: t.Priority.Badge(), DueLabel: DueLabel(t.DueDate, now)})
		col.Count++
	}

	board.Total = len(visible)
	board.Done = countDone(visible)
	board.CompletionRate = CompletionRate(visible)
	return board
}

// CompletionRate is the rounded percentage of done tasks, 0 for no tasks.
func CompletionRate(tasks []domain.Task) int {
	return Percent(countDone(tasks), len(tasks))
}

// Percent returns round(part/total*100), or 0 when total is 0.
func Percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

func countDone(tasks []domain.Task) int {
	n := 0
	for i := range tasks {
		if tasks[i].IsDone() {
			n++
		}
	}
	return n
}

const dueDateLayout = "Jan 2, 2006"

// DueLabel describes a due date relative to now in days.
func DueLabel(due *time.Time, now time.Time) string {
	if due == nil {
		return "No due date"
	}
	days := due.Sub(now).Hours() / 24
	switch {
	case days < -1:
		return fmt.Sprintf("Overdue (%s)", due.Format(dueDateLayout))
	case days < 0:
		return "Due yesterday"
	case days < 1:
		return "Due today"
	case days < 2:
		return "Due tomorrow"
	}
	return due.Format(dueDateLayout)
}
