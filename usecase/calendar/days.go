package calendar

import (
	"time"

	"github.com/fastygo/teamspace/domain"
)

// Day is one cell of the month grid.
type Day struct {
	Date     string           `json:"date"`
	Meetings []domain.Meeting `json:"meetings"`
	Tasks    []domain.Task    `json:"tasks"`
}

// Days lays out every day of the month with the events that fall on it.
func Days(m Month, meetings []domain.Meeting, tasks []domain.Task) []Day {
	loc := m.Location
	if loc == nil {
		loc = time.UTC
	}
	start, end := m.Window()
	var days []Day
	index := make(map[string]int)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := d.Format(time.DateOnly)
		index[key] = len(days)
		days = append(days, Day{Date: key, Meetings: []domain.Meeting{}, Tasks: []domain.Task{}})
	}
	for _, mt := range meetings {
		if i, ok := index[mt.StartTime.In(loc).Format(time.DateOnly)]; ok {
			days[i].Meetings = append(days[i].Meetings, mt)
		}
	}
	for _, t := range tasks {
		if t.DueDate == nil {
			continue
		}
		if i, ok := index[t.DueDate.In(loc).Format(time.DateOnly)]; ok {
			days[i].Tasks = append(days[i].Tasks, t)
		}
	}
	return days
}

// On returns the events scheduled on date, formatted as YYYY-MM-DD.
func On(date string, days []Day) (Day, bool) {
	for _, d := range days {
		if d.Date == date {
			return d, true
		}
	}
	return Day{}, false
}
