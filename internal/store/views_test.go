package store

import (
	"testing"
	"time"

	"taskflow/internal/model"
)

func TestColumns(t *testing.T) {
	tasks := []model.Task{
		{ID: "1", Status: model.StatusCompleted},
		{ID: "2", Status: model.StatusTodo},
		{ID: "3", Status: model.StatusInProgress},
		{ID: "4", Status: model.StatusTodo},
		{ID: "5", Status: "archived"},
	}
	cols := Columns(tasks)
	if len(cols) != 3 {
		t.Fatalf("len(cols) = %d, want 3", len(cols))
	}
	if cols[0].Status != model.StatusTodo || len(cols[0].Tasks) != 3 || cols[0].Tasks[0].ID != "2" {
		t.Fatalf("todo column = %+v", cols[0])
	}
	if len(cols[1].Tasks) != 1 || cols[1].Tasks[0].ID != "3" {
		t.Fatalf("in progress column = %+v", cols[1])
	}
	if len(cols[2].Tasks) != 1 || cols[2].Tasks[0].ID != "1" {
		t.Fatalf("completed column = %+v", cols[2])
	}
}

func TestCalendar(t *testing.T) {
	at := func(day, hour int) *time.Time {
		v := time.Date(2026, 5, day, hour, 0, 0, 0, time.UTC)
		return &v
	}
	tasks := []model.Task{
		{ID: "late", DueDate: at(12, 18)},
		{ID: "none"},
		{ID: "early", DueDate: at(11, 9)},
		{ID: "morning", DueDate: at(12, 8)},
	}
	days, undated := Calendar(tasks, time.UTC)
	if len(undated) != 1 || undated[0].ID != "none" {
		t.Fatalf("undated = %+v", undated)
	}
	if len(days) != 2 {
		t.Fatalf("len(days) = %d, want 2", len(days))
	}
	if days[0].Date.Day() != 11 || days[0].Tasks[0].ID != "early" {
		t.Fatalf("first day = %+v", days[0])
	}
	if days[1].Tasks[0].ID != "morning" || days[1].Tasks[1].ID != "late" {
		t.Fatalf("second day order = %+v", days[1].Tasks)
	}
}
