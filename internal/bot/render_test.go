package bot

import (
	"strings"
	"testing"
	"time"

	"taskflow/internal/model"
)

var now = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

func due(day, hour int) *time.Time {
	t := time.Date(2026, 5, day, hour, 0, 0, 0, time.UTC)
	return &t
}

func sampleTasks() []model.Task {
	return []model.Task{
		{ID: "a", Title: "write report", Status: model.StatusTodo, Priority: model.PriorityHigh, DueDate: due(9, 12), Important: true},
		{ID: "b", Title: "review <PR>", Status: model.StatusInProgress, Priority: model.PriorityMedium, Category: "Work", DueDate: due(11, 10)},
		{ID: "c", Title: "buy milk", Status: model.StatusCompleted, Priority: model.PriorityLow},
	}
}

func TestRenderKanban(t *testing.T) {
	text := renderTasks(model.ViewKanban, sampleTasks(), now)
	for _, want := range []string{"Quadro", "A fazer</b> (1)", "Em andamento</b> (1)", "Concluídas</b> (1)", "Write report", "⭐", "Review &lt;PR&gt;", "<i>(Work)</i>", "<s>Buy milk</s>"} {
		if !strings.Contains(text, want) {
			t.Errorf("kanban missing %q:\n%s", want, text)
		}
	}
	if !strings.Contains(text, iconOverdue+" 🔴 Write report") {
		t.Errorf("overdue task not flagged:\n%s", text)
	}
	if !strings.Contains(text, iconDue+" 🟡 Review") {
		t.Errorf("task due within two days not flagged:\n%s", text)
	}
}

func TestRenderCalendar(t *testing.T) {
	text := renderTasks(model.ViewCalendar, sampleTasks(), now)
	first := strings.Index(text, "09/05/2026 · atrasado")
	second := strings.Index(text, "Amanhã · 11/05")
	undated := strings.Index(text, "Sem data")
	if first < 0 || second < 0 || undated < 0 {
		t.Fatalf("calendar sections missing:\n%s", text)
	}
	if !(first < second && second < undated) {
		t.Fatalf("calendar sections out of order:\n%s", text)
	}
}

func TestRenderEmptyBoard(t *testing.T) {
	if text := renderTasks(model.ViewKanban, nil, now); !strings.Contains(text, "/newtask") {
		t.Fatalf("empty board = %q", text)
	}
}

func TestTaskKeyboard(t *testing.T) {
	kb := taskKeyboard(sampleTasks())
	if kb == nil {
		t.Fatal("no keyboard for open tasks")
	}
	rows := kb.InlineKeyboard
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want one per open task", len(rows))
	}
	if got := *rows[0][0].CallbackData; got != cbStartPrefix+"a" {
		t.Errorf("todo task primary action = %q", got)
	}
	if got := *rows[1][0].CallbackData; got != cbCompletePrefix+"b" {
		t.Errorf("in-progress task primary action = %q", got)
	}
	if got := *rows[1][2].CallbackData; got != cbDeletePrefix+"b" {
		t.Errorf("delete action = %q", got)
	}

	if taskKeyboard([]model.Task{{ID: "x", Status: model.StatusCompleted}}) != nil {
		t.Error("keyboard offered for completed tasks only")
	}

	many := make([]model.Task, 40)
	for i := range many {
		many[i] = model.Task{ID: string(rune('a' + i%26)), Status: model.StatusTodo, Title: "t"}
	}
	if got := len(taskKeyboard(many).InlineKeyboard); got != maxTaskButtons {
		t.Errorf("rows = %d, want capped at %d", got, maxTaskButtons)
	}
}

func TestParseCallback(t *testing.T) {
	tests := []struct {
		data   string
		prefix string
		id     string
		ok     bool
	}{
		{"done:123e4567", cbCompletePrefix, "123e4567", true},
		{"delcat:c-1", cbDelCategoryPref, "c-1", true},
		{"del:", cbDeletePrefix, "", false},
		{"complete:1", "", "", false},
	}
	for _, tt := range tests {
		prefix, id, ok := parseCallback(tt.data)
		if prefix != tt.prefix || id != tt.id || ok != tt.ok {
			t.Errorf("parseCallback(%q) = %q, %q, %v", tt.data, prefix, id, ok)
		}
	}
}

func TestPlainText(t *testing.T) {
	got := plainText("<p>Buy <b>oat</b> milk &amp; bread</p>")
	if got != "Buy oat milk & bread" {
		t.Fatalf("plainText = %q", got)
	}
}

func TestShortTitle(t *testing.T) {
	if got := shortTitle("relatório mensal de vendas", 10); got != "Relatório…" {
		t.Fatalf("shortTitle = %q", got)
	}
	if got := shortTitle("ok", 10); got != "Ok" {
		t.Fatalf("shortTitle = %q", got)
	}
}

func TestRenderCategoriesAndProfile(t *testing.T) {
	text, kb := renderCategories([]model.Category{{ID: "c1", Name: "Home", Color: "#00f"}})
	if !strings.Contains(text, "Home") || !strings.Contains(text, "#00f") || kb == nil {
		t.Fatalf("categories = %q, %v", text, kb)
	}
	if _, kb := renderCategories(nil); kb != nil {
		t.Fatal("keyboard for no categories")
	}

	profile := renderProfile(model.UserProfile{DisplayName: "Ana", Email: "ana@example.com"})
	if !strings.Contains(profile, "Nome: Ana") || !strings.Contains(profile, "Telefone: —") {
		t.Fatalf("profile = %q", profile)
	}
}

func TestParseYesNo(t *testing.T) {
	if v, ok := parseYesNo("Sim"); !v || !ok {
		t.Error("Sim not accepted")
	}
	if v, ok := parseYesNo("não"); v || !ok {
		t.Error("não not accepted")
	}
	if _, ok := parseYesNo("talvez"); ok {
		t.Error("talvez accepted")
	}
}
