package model

import (
	"testing"
	"time"
)

func TestEscalate(t *testing.T) {
	tests := []struct {
		in, want Priority
	}{
		{PriorityLow, PriorityMedium},
		{PriorityMedium, PriorityHigh},
		{PriorityHigh, PriorityHigh},
	}
	for _, tt := range tests {
		if got := tt.in.Escalate(); got != tt.want {
			t.Errorf("%s.Escalate() = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want Status
		ok   bool
	}{
		{"todo", StatusTodo, true},
		{"In Progress", StatusInProgress, true},
		{"in-progress", StatusInProgress, true},
		{"done", StatusCompleted, true},
		{"archived", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseStatus(tt.raw)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseStatus(%q) = %q, %v; want %q, %v", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}

func TestTaskPatch(t *testing.T) {
	due := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	task := Task{Title: "old", DueDate: &due, Priority: PriorityLow}

	title := "new"
	p := TaskPatch{Title: &title, ClearDueDate: true}
	if p.Empty() {
		t.Fatal("patch with fields reported empty")
	}
	p.Apply(&task)
	if task.Title != "new" || task.DueDate != nil || task.Priority != PriorityLow {
		t.Fatalf("Apply = %+v", task)
	}

	cols := p.Columns()
	if len(cols) != 2 || cols["title"] != "new" {
		t.Fatalf("Columns = %v", cols)
	}
	if v, ok := cols["due_date"]; !ok || v != nil {
		t.Fatalf("due_date column = %v (present=%v), want explicit nil", v, ok)
	}
	if !(TaskPatch{UpdatedAt: due}).Empty() {
		t.Fatal("timestamp-only patch should be empty")
	}
}

func TestTaskCloneCopiesDueDate(t *testing.T) {
	due := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	a := Task{DueDate: &due}
	b := a.Clone()
	*b.DueDate = due.AddDate(0, 0, 1)
	if !a.DueDate.Equal(due) {
		t.Fatal("clone shares the due date")
	}
}

func TestIdentityName(t *testing.T) {
	if got := (Identity{Email: "maria@example.com"}).Name(); got != "maria" {
		t.Errorf("Name = %q", got)
	}
	if got := (Identity{Email: "maria@example.com", DisplayName: "Maria S"}).Name(); got != "Maria S" {
		t.Errorf("Name = %q", got)
	}
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings("u")
	if s.Theme != ThemeLight || s.DefaultView != ViewKanban || s.ColorTheme != "blue-purple" || s.UserID != "u" {
		t.Fatalf("DefaultSettings = %+v", s)
	}
}
