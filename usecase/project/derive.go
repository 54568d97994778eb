package project

import (
	"strings"

	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/usecase/task"
)

// Filter narrows the project list by name and status.
type Filter struct {
	Search string `json:"search"`
	Status string `json:"status"`
}

func (f Filter) Match(p domain.Project) bool {
	if f.Status != "" && string(p.Status) != f.Status {
		return false
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		return strings.Contains(strings.ToLower(p.Name), strings.ToLower(q))
	}
	return true
}

// Card is a project with the progress of its tasks.
type Card struct {
	domain.Project
	Tasks    int `json:"tasks"`
	Done     int `json:"done"`
	Progress int `json:"progress"`
}

// Build filters projects and attaches each one's progress.
func Build(projects []domain.Project, tasks []domain.Task, filter Filter) []Card {
	byProject := make(map[string][]domain.Task)
	for _, t := range tasks {
		if id := domain.Deref(t.ProjectID); id != "" {
			byProject[id] = append(byProject[id], t)
		}
	}
	cards := make([]Card, 0, len(projects))
	for _, p := range projects {
		if !filter.Match(p) {
			continue
		}
		own := byProject[p.ID]
		done := 0
		for i := range own {
			if own[i].IsDone() {
				done++
			}
		}
		cards = append(cards, Card{Project: p, Tasks: len(own), Done: done, Progress: task.Percent(done, len(own))})
	}
	return cards
}

// TasksOf returns the tasks that belong to project id.
func TasksOf(id string, tasks []domain.Task) []domain.Task {
	out := []domain.Task{}
	for _, t := range tasks {
		if domain.Deref(t.ProjectID) == id {
			out = append(out, t)
		}
	}
	return out
}

func progress(tasks []domain.Task) int {
	return task.CompletionRate(tasks)
}
