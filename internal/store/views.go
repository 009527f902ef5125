package store

import (
	"sort"
	"time"

	"taskflow/internal/model"
)

// Column is one Kanban column.
type Column struct {
	Status model.Status
	Tasks  []model.Task
}

// Columns groups tasks by status in board order, keeping each column's
// incoming order.
func Columns(tasks []model.Task) []Column {
	cols := make([]Column, len(model.Statuses))
	index := make(map[model.Status]int, len(model.Statuses))
	for i, st := range model.Statuses {
		cols[i] = Column{Status: st}
		index[st] = i
	}
	for _, t := range tasks {
		i, ok := index[t.Status]
		if !ok {
			i = index[model.StatusTodo]
		}
		cols[i].Tasks = append(cols[i].Tasks, t)
	}
	return cols
}

// Day is one calendar cell.
type Day struct {
	Date  time.Time
	Tasks []model.Task
}

// Calendar buckets tasks with a due date by local day, earliest first.
// Tasks without a due date are returned separately.
func Calendar(tasks []model.Task, loc *time.Location) (days []Day, undated []model.Task) {
	if loc == nil {
		loc = time.Local
	}
	byDay := make(map[time.Time]int)
	for _, t := range tasks {
		if t.DueDate == nil {
			undated = append(undated, t)
			continue
		}
		d := t.DueDate.In(loc)
		key := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
		i, ok := byDay[key]
		if !ok {
			i = len(days)
			byDay[key] = i
			days = append(days, Day{Date: key})
		}
		days[i].Tasks = append(days[i].Tasks, t)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })
	for _, d := range days {
		sort.SliceStable(d.Tasks, func(i, j int) bool { return d.Tasks[i].DueDate.Before(*d.Tasks[j].DueDate) })
	}
	return days, undated
}
