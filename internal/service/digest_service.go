package service

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"taskflow/internal/model"
)

// Digest groups the open tasks worth a reminder. A task appears in the first
// group it qualifies for only.
type Digest struct {
	Overdue    []model.Task
	DueToday   []model.Task
	InProgress []model.Task
	Important  []model.Task
}

func (d Digest) Empty() bool {
	return len(d.Overdue)+len(d.DueToday)+len(d.InProgress)+len(d.Important) == 0
}

// DigestService builds the daily summary sent to users.
type DigestService struct {
	loc *time.Location
}

func NewDigestService(loc *time.Location) *DigestService {
	if loc == nil {
		loc = time.Local
	}
	return &DigestService{loc: loc}
}

// Collect sorts open tasks into digest groups relative to now.
func (s *DigestService) Collect(tasks []model.Task, now time.Time) Digest {
	now = now.In(s.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	tomorrow := today.AddDate(0, 0, 1)

	var d Digest
	for _, task := range tasks {
		if task.Status == model.StatusCompleted {
			continue
		}
		switch {
		case task.DueDate != nil && task.DueDate.Before(today):
			d.Overdue = append(d.Overdue, task)
		case task.DueDate != nil && task.DueDate.Before(tomorrow):
			d.DueToday = append(d.DueToday, task)
		case task.Status == model.StatusInProgress:
			d.InProgress = append(d.InProgress, task)
		case task.Important:
			d.Important = append(d.Important, task)
		}
	}
	for _, group := range [][]model.Task{d.Overdue, d.DueToday, d.InProgress, d.Important} {
		sortByDueDate(group)
	}
	return d
}

// Summary renders the digest as Telegram HTML.
func (s *DigestService) Summary(tasks []model.Task, categories []model.Category, now time.Time) string {
	now = now.In(s.loc)
	d := s.Collect(tasks, now)
	colors := make(map[string]string, len(categories))
	for _, c := range categories {
		colors[c.Name] = c.Color
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Resumo do dia</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n", now.Format("02/01/2006")))

	if d.Empty() {
		builder.WriteString("\n🎉 Nada pendente para hoje.")
		return builder.String()
	}

	section := func(title string, tasks []model.Task) {
		if len(tasks) == 0 {
			return
		}
		builder.WriteString(fmt.Sprintf("\n<b>%s</b> (%d)\n", title, len(tasks)))
		for _, task := range tasks {
			builder.WriteString(s.formatTask(task, colors, now))
		}
	}
	section("⚠️ Atrasadas", d.Overdue)
	section("⏰ Vencem hoje", d.DueToday)
	section("🔄 Em andamento", d.InProgress)
	section("⭐ Importantes", d.Important)

	return strings.TrimSpace(builder.String())
}

func (s *DigestService) formatTask(task model.Task, colors map[string]string, now time.Time) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s %s", PriorityIcon(task.Priority), html.EscapeString(strings.TrimSpace(task.Title))))

	if name := strings.TrimSpace(task.Category); name != "" {
		if color := colors[name]; color != "" {
			sb.WriteString(fmt.Sprintf(" <i>(%s · %s)</i>", html.EscapeString(name), html.EscapeString(color)))
		} else {
			sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(name)))
		}
	}

	if task.DueDate != nil {
		d := task.DueDate.In(s.loc)
		if d.Before(now) {
			days := int(now.Sub(d).Hours() / 24)
			if days > 0 {
				sb.WriteString(fmt.Sprintf("\n   ⏰ %s · %d dia(s) de atraso", d.Format("02/01 15:04"), days))
			} else {
				sb.WriteString(fmt.Sprintf("\n   ⏰ %s", d.Format("02/01 15:04")))
			}
		} else {
			sb.WriteString(fmt.Sprintf("\n   ⏰ %s", d.Format("02/01 15:04")))
		}
	}

	sb.WriteByte('\n')
	return sb.String()
}

// PriorityIcon is the marker views put in front of a task title.
func PriorityIcon(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "🔴"
	case model.PriorityLow:
		return "🟢"
	default:
		return "🟡"
	}
}

func sortByDueDate(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		switch {
		case a.DueDate == nil && b.DueDate == nil:
			return a.CreatedAt.After(b.CreatedAt)
		case a.DueDate == nil:
			return false
		case b.DueDate == nil:
			return true
		default:
			return a.DueDate.Before(*b.DueDate)
		}
	})
}
