package bot

import (
	"fmt"
	"html"
	"strings"
	"time"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskflow/internal/model"
	"taskflow/internal/service"
	"taskflow/internal/store"
)

const (
	cbStartPrefix     = "start:"
	cbCompletePrefix  = "done:"
	cbNextDayPrefix   = "next:"
	cbDeletePrefix    = "del:"
	cbConfirmPrefix   = "confirm:"
	cbCancelPrefix    = "cancel:"
	cbDelCategoryPref = "delcat:"
)

const (
	iconDefault = "🟢"
	iconDue     = "⏳"
	iconOverdue = "⚠️"
	iconStar    = "⭐"
	noCategory  = "Sem categoria"
)

// Telegram caps inline keyboards well below what a busy board produces.
const maxTaskButtons = 15

var columnTitles = map[model.Status]string{
	model.StatusTodo:       "📝 A fazer",
	model.StatusInProgress: "🔄 Em andamento",
	model.StatusCompleted:  "✅ Concluídas",
}

// renderTasks renders the board in the user's default view.
func renderTasks(view model.View, tasks []model.Task, now time.Time) string {
	if len(tasks) == 0 {
		return "Você ainda não tem tarefas. Crie uma com /newtask."
	}
	if view == model.ViewCalendar {
		return renderCalendar(tasks, now)
	}
	return renderKanban(tasks, now)
}

func renderKanban(tasks []model.Task, now time.Time) string {
	var b strings.Builder
	b.WriteString("📋 <b>Quadro</b>\n")
	for _, col := range store.Columns(tasks) {
		b.WriteString(fmt.Sprintf("\n<b>%s</b> (%d)\n", columnTitles[col.Status], len(col.Tasks)))
		if len(col.Tasks) == 0 {
			b.WriteString("— vazio\n")
			continue
		}
		for _, task := range col.Tasks {
			b.WriteString(formatTask(task, now))
		}
	}
	return strings.TrimSpace(b.String())
}

func renderCalendar(tasks []model.Task, now time.Time) string {
	days, undated := store.Calendar(tasks, now.Location())
	var b strings.Builder
	b.WriteString("🗓 <b>Calendário</b>\n")
	for _, day := range days {
		b.WriteString(fmt.Sprintf("\n<b>%s</b>\n", dayLabel(day.Date, now)))
		for _, task := range day.Tasks {
			b.WriteString(formatTask(task, now))
		}
	}
	if len(undated) > 0 {
		b.WriteString("\n<b>Sem data</b>\n")
		for _, task := range undated {
			b.WriteString(formatTask(task, now))
		}
	}
	return strings.TrimSpace(b.String())
}

func dayLabel(day, now time.Time) string {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch {
	case day.Equal(today):
		return "Hoje · " + day.Format("02/01")
	case day.Equal(today.AddDate(0, 0, 1)):
		return "Amanhã · " + day.Format("02/01")
	case day.Before(today):
		return day.Format("02/01/2006") + " · atrasado"
	default:
		return day.Format("02/01/2006")
	}
}

func formatTask(task model.Task, now time.Time) string {
	var b strings.Builder
	icon := iconDefault
	if task.DueDate != nil && task.Status != model.StatusCompleted {
		d := task.DueDate.In(now.Location())
		if now.After(d) {
			icon = iconOverdue
		} else if d.Sub(now) <= 48*time.Hour {
			icon = iconDue
		}
	}
	title := escape(normalizeTitle(task.Title))
	if task.Status == model.StatusCompleted {
		title = "<s>" + title + "</s>"
	}
	b.WriteString(fmt.Sprintf("%s %s %s", icon, service.PriorityIcon(task.Priority), title))
	if task.Important {
		b.WriteString(" " + iconStar)
	}
	if c := strings.TrimSpace(task.Category); c != "" {
		b.WriteString(fmt.Sprintf(" <i>(%s)</i>", escape(c)))
	}
	b.WriteByte('\n')
	if task.DueDate != nil {
		b.WriteString(fmt.Sprintf("   ⏰ %s\n", task.DueDate.In(now.Location()).Format("02/01/2006 15:04")))
	}
	if d := plainText(task.Description); d != "" {
		b.WriteString(fmt.Sprintf("   📝 %s\n", escape(shortTitle(d, 80))))
	}
	return b.String()
}

// taskKeyboard offers actions for open tasks. Completed tasks get none.
func taskKeyboard(tasks []model.Task) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, task := range tasks {
		if task.Status == model.StatusCompleted {
			continue
		}
		if len(rows) == maxTaskButtons {
			break
		}
		label := shortTitle(task.Title, 18)
		var row []tgbotapi.InlineKeyboardButton
		if task.Status == model.StatusTodo {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData("▶️ "+label, cbStartPrefix+task.ID))
		} else {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData("✅ "+label, cbCompletePrefix+task.ID))
		}
		row = append(row,
			tgbotapi.NewInlineKeyboardButtonData("⏭", cbNextDayPrefix+task.ID),
			tgbotapi.NewInlineKeyboardButtonData("🗑", cbDeletePrefix+task.ID),
		)
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func confirmDeleteKeyboard(taskID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🗑 Excluir", cbConfirmPrefix+taskID),
		tgbotapi.NewInlineKeyboardButtonData("↩️ Cancelar", cbCancelPrefix+taskID),
	))
}

func renderCategories(categories []model.Category) (string, *tgbotapi.InlineKeyboardMarkup) {
	if len(categories) == 0 {
		return "Nenhuma categoria ainda. Crie uma com /newcategory Nome #cor", nil
	}
	var b strings.Builder
	b.WriteString("📂 <b>Categorias</b>\n")
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, c := range categories {
		line := "• " + escape(c.Name)
		if c.Color != "" {
			line += fmt.Sprintf(" <code>%s</code>", escape(c.Color))
		}
		b.WriteString(line + "\n")
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 "+shortTitle(c.Name, 24), cbDelCategoryPref+c.ID),
		))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return strings.TrimSpace(b.String()), &kb
}

func renderSettings(s model.UserSettings) string {
	return fmt.Sprintf("⚙️ <b>Preferências</b>\n• Tema: %s\n• Visualização padrão: %s\n• Paleta: %s",
		escape(string(s.Theme)), escape(string(s.DefaultView)), escape(s.ColorTheme))
}

func renderProfile(p model.UserProfile) string {
	var b strings.Builder
	b.WriteString("👤 <b>Perfil</b>\n")
	field := func(label, value string) {
		if value == "" {
			value = "—"
		}
		b.WriteString(fmt.Sprintf("• %s: %s\n", label, escape(value)))
	}
	field("Nome", p.DisplayName)
	field("E-mail", p.Email)
	field("Telefone", p.Phone)
	field("Profissão", p.Profession)
	field("Avatar", p.AvatarURL)
	return strings.TrimSpace(b.String())
}

// parseCallback splits callback data into its prefix and id.
func parseCallback(data string) (prefix, id string, ok bool) {
	for _, p := range []string{cbStartPrefix, cbCompletePrefix, cbNextDayPrefix, cbDeletePrefix, cbConfirmPrefix, cbCancelPrefix, cbDelCategoryPref} {
		if strings.HasPrefix(data, p) {
			id = strings.TrimPrefix(data, p)
			return p, id, id != ""
		}
	}
	return "", "", false
}

// plainText strips markup from rich-text descriptions.
func plainText(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>' && inTag:
			inTag = false
			b.WriteByte(' ')
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(html.UnescapeString(b.String())), " ")
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	clean = normalizeTitle(clean)
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func escape(s string) string {
	return html.EscapeString(s)
}
