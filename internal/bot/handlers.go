package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"taskflow/internal/model"
	"taskflow/internal/service"
	"taskflow/internal/store"
)

const maxAvatarBytes = 5 << 20

var errAvatarTooLarge = fmt.Errorf("%w: a imagem passa de %d MB", store.ErrInvalidInput, maxAvatarBytes>>20)

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	sess, err := b.session(ctx, msg.From)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("👋 Olá, <b>%s</b>!\nEu mostro suas tarefas do TaskFlow. Use /tasks para ver o quadro ou /newtask para criar uma tarefa.",
		escape(sess.Identity.Name()))
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	lines := []string{
		"ℹ️ <b>Comandos</b>",
		"/tasks: tarefas na sua visualização padrão",
		"/newtask: criar uma tarefa passo a passo",
		"/categories: listar e excluir categorias",
		"/newcategory Nome #cor: criar categoria",
		"/theme light|dark",
		"/view kanban|calendar",
		"/palette " + strings.Join(model.ColorThemes, "|"),
		"/profile [nome|telefone|profissao valor]",
		"/digest: resumo do dia agora",
		"Envie uma foto para trocar seu avatar.",
	}
	return b.sendText(msg.Chat.ID, strings.Join(lines, "\n"))
}

func (b *Bot) handleListTasks(ctx context.Context, msg *tgbotapi.Message) error {
	sess, err := b.session(ctx, msg.From)
	if err != nil {
		return err
	}
	return b.sendTaskList(ctx, msg.Chat.ID, sess)
}

// sendTaskList pulls the latest rows and renders the board in the user's
// default view. A failed pull falls back to the cached collection.
func (b *Bot) sendTaskList(ctx context.Context, chatID int64, sess *store.Session) error {
	stale := sess.Tasks.Fetch(ctx) != nil

	view := model.ViewKanban
	if settings, ok := sess.Settings.Settings(); ok {
		view = settings.DefaultView
	}
	tasks := sess.Tasks.Tasks()
	text := renderTasks(view, tasks, time.Now().In(b.loc))
	if stale {
		text += "\n\n<i>Mostrando a última versão carregada.</i>"
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if kb := taskKeyboard(tasks); kb != nil {
		msg.ReplyMarkup = *kb
	}
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) startNewTaskConversation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.session(ctx, msg.From); err != nil {
		return err
	}
	b.setConversation(msg.From.ID, &conversationState{stage: stageTitle})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 Nova tarefa.\n<b>Passo 1:</b> qual o título?", cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}
	sess, err := b.session(ctx, msg.From)
	if err != nil {
		return err
	}

	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageTitle:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "O título é obrigatório.", cancelKeyboard())
		}
		state.input.Title = text
		state.stage = stageDescription
		return b.sendWithReplyMarkup(msg.Chat.ID, "✏️ Uma descrição curta (ou «Pular»).", skipKeyboard())
	case stageDescription:
		if !isSkipInput(text) {
			state.input.Description = text
		}
		state.stage = stageCategory
		return b.sendWithReplyMarkup(msg.Chat.ID, "🏷 Escolha uma categoria ou digite outra (ou «Pular»).", categoryKeyboard(sess.Categories.Categories()))
	case stageCategory:
		if !isSkipInput(text) {
			state.input.Category = text
		}
		state.stage = stageDueDate
		return b.sendWithReplyMarkup(msg.Chat.ID, "⏰ Prazo: <code>2026-05-30</code>, <code>30/05</code>, «hoje» ou «amanhã» (ou «Pular»).", skipKeyboard())
	case stageDueDate:
		if !isSkipInput(text) {
			due, err := service.ParseDueDate(text, time.Now().In(b.loc))
			if err != nil {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Não reconheci a data. Tente <code>2026-05-30</code> ou «Pular».", skipKeyboard())
			}
			state.input.DueDate = &due
		}
		state.stage = stagePriority
		return b.sendWithReplyMarkup(msg.Chat.ID, "📊 Prioridade?", priorityKeyboard())
	case stagePriority:
		p, ok := service.ParsePriority(text)
		if !ok {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Escolha Alta, Média ou Baixa.", priorityKeyboard())
		}
		state.input.Priority = p
		state.stage = stageImportant
		return b.sendWithReplyMarkup(msg.Chat.ID, "⭐ Marcar como importante?", yesNoKeyboard())
	case stageImportant:
		important, ok := parseYesNo(text)
		if !ok {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Responda «Sim» ou «Não».", yesNoKeyboard())
		}
		state.input.Important = important
		b.clearConversation(msg.From.ID)
		return b.finishTaskCreation(ctx, msg.Chat.ID, sess, state.input)
	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Conversa reiniciada. Tente de novo com /newtask.")
	}
}

func (b *Bot) finishTaskCreation(ctx context.Context, chatID int64, sess *store.Session, input model.TaskInput) error {
	task, err := sess.Tasks.Create(ctx, input)
	if err != nil {
		return b.sendError(chatID, err)
	}
	b.log.WithFields(logrus.Fields{"task_id": task.ID, "user_id": sess.Identity.UserID}).Info("task created")

	var summary strings.Builder
	summary.WriteString("✅ <b>Tarefa criada</b>\n")
	summary.WriteString(fmt.Sprintf("• <b>Título:</b> %s\n", escape(normalizeTitle(task.Title))))
	summary.WriteString(fmt.Sprintf("• <b>Prioridade:</b> %s %s\n", service.PriorityIcon(task.Priority), escape(string(task.Priority))))
	if task.Category != "" {
		summary.WriteString(fmt.Sprintf("• <b>Categoria:</b> %s\n", escape(task.Category)))
	}
	if task.DueDate != nil {
		summary.WriteString(fmt.Sprintf("• <b>Prazo:</b> %s\n", task.DueDate.In(b.loc).Format("02/01/2006 15:04")))
	}
	if err := b.sendText(chatID, strings.TrimSpace(summary.String())); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID, sess)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	prefix, id, ok := parseCallback(cb.Data)
	if !ok {
		b.ack(cb, "")
		return nil
	}
	b.log.WithFields(logrus.Fields{"telegram_id": cb.From.ID, "action": strings.TrimSuffix(prefix, ":"), "id": id}).Info("callback received")

	sess, err := b.session(ctx, cb.From)
	if err != nil {
		b.ack(cb, "")
		return err
	}
	chatID := cb.Message.Chat.ID

	switch prefix {
	case cbStartPrefix, cbCompletePrefix:
		status := model.StatusInProgress
		if prefix == cbCompletePrefix {
			status = model.StatusCompleted
		}
		if _, err := sess.Tasks.SetStatus(ctx, id, status); err != nil {
			b.ack(cb, store.UserMessage(err))
			return nil
		}
		b.ack(cb, "")
		return b.sendTaskList(ctx, chatID, sess)
	case cbNextDayPrefix:
		task, err := sess.Tasks.MoveToNextDay(ctx, id)
		if err != nil {
			b.ack(cb, store.UserMessage(err))
			return nil
		}
		b.ack(cb, fmt.Sprintf("Adiada para amanhã · %s", task.Priority))
		return b.sendTaskList(ctx, chatID, sess)
	case cbDeletePrefix:
		b.ack(cb, "")
		task, ok := sess.Tasks.Get(id)
		if !ok {
			return b.sendText(chatID, "Tarefa não encontrada.")
		}
		text := fmt.Sprintf("Excluir a tarefa «%s»?", escape(normalizeTitle(task.Title)))
		return b.sendWithReplyMarkup(chatID, text, confirmDeleteKeyboard(id))
	case cbConfirmPrefix:
		task, _ := sess.Tasks.Get(id)
		if err := sess.Tasks.Delete(ctx, id); err != nil {
			b.ack(cb, "")
			return b.sendError(chatID, err)
		}
		b.ack(cb, "Excluída")
		b.log.WithFields(logrus.Fields{"task_id": id, "user_id": sess.Identity.UserID}).Info("task deleted")
		if err := b.sendText(chatID, fmt.Sprintf("🗑 Tarefa «%s» excluída.", escape(normalizeTitle(task.Title)))); err != nil {
			return err
		}
		return b.sendTaskList(ctx, chatID, sess)
	case cbCancelPrefix:
		b.ack(cb, "Cancelado")
		return nil
	case cbDelCategoryPref:
		if err := sess.Categories.Delete(ctx, id); err != nil {
			b.ack(cb, store.UserMessage(err))
			return nil
		}
		b.ack(cb, "Categoria excluída")
		return b.sendCategories(chatID, sess)
	}
	b.ack(cb, "")
	return nil
}

func (b *Bot) handleCategories(ctx context.Context, msg *tgbotapi.Message) error {
	sess, err := b.session(ctx, msg.From)
	if err != nil {
		return err
	}
	if err := sess.Categories.Fetch(ctx); err != nil {
		return b.sendError(msg.Chat.ID, err)
	}
	return b.sendCategories(msg.Chat.ID, sess)
}

func (b *Bot) sendCategories(chatID int64, sess *store.Session) error {
	text, kb := renderCategories(sess.Categories.Categories())
	if kb == nil {
		return b.sendText(chatID, text)
	}
	return b.sendWithReplyMarkup(chatID, text, *kb)
}

// handleNewCategory takes "/newcategory Name words #color"; the color is
// optional and recognised by a leading '#'.
func (b *Bot) handleNewCategory(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		return b.sendText(msg.Chat.ID, "Use: /newcategory Nome #cor")
	}
	var color string
	if last := args[len(args)-1]; strings.HasPrefix(last, "#") && len(args) > 1 {
		color = last
		args = args[:len(args)-1]
	}
	sess, err := b.session(ctx, msg.From)
	if err != nil {
		return err
	}
	c, err := sess.Categories.Create(ctx, strings.Join(args, " "), color)
	if err != nil {
		return b.sendError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("📂 Categoria «%s» criada.", escape(c.Name)))
}

func (b *Bot) handleTheme(ctx context.Context, msg *tgbotapi.Message) error {
	return b.updateSetting(ctx, msg, func(sess *store.Session, arg string) (model.UserSettings, error) {
		return sess.Settings.UpdateTheme(ctx, model.Theme(arg))
	})
}

func (b *Bot) handleView(ctx context.Context, msg *tgbotapi.Message) error {
	return b.updateSetting(ctx, msg, func(sess *store.Session, arg string) (model.UserSettings, error) {
		return sess.Settings.UpdateDefaultView(ctx, model.View(arg))
	})
}

func (b *Bot) handlePalette(ctx context.Context, msg *tgbotapi.Message) error {
	return b.updateSetting(ctx, msg, func(sess *store.Session, arg string) (model.UserSettings, error) {
		return sess.Settings.UpdateColorTheme(ctx, arg)
	})
}

// updateSetting shows the settings when the command has no argument and
// applies update otherwise.
func (b *Bot) updateSetting(ctx context.Context, msg *tgbotapi.Message, update func(*store.Session, string) (model.UserSettings, error)) error {
	sess, err := b.session(ctx, msg.From)
	if err != nil {
		return err
	}
	arg := strings.ToLower(strings.TrimSpace(msg.CommandArguments()))
	if arg == "" {
		settings, err := sess.Settings.Fetch(ctx)
		if err != nil {
			return b.sendError(msg.Chat.ID, err)
		}
		return b.sendText(msg.Chat.ID, renderSettings(settings))
	}
	settings, err := update(sess, arg)
	if err != nil {
		return b.sendError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, "✅ Salvo.\n"+renderSettings(settings))
}

func (b *Bot) handleProfile(ctx context.Context, msg *tgbotapi.Message) error {
	sess, err := b.session(ctx, msg.From)
	if err != nil {
		return err
	}
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		profile, err := sess.Profile.Fetch(ctx)
		if err != nil {
			return b.sendError(msg.Chat.ID, err)
		}
		return b.sendText(msg.Chat.ID, renderProfile(profile))
	}

	field, value, _ := strings.Cut(args, " ")
	value = strings.TrimSpace(value)
	var patch model.ProfilePatch
	switch strings.ToLower(field) {
	case "nome", "name":
		patch.DisplayName = &value
	case "telefone", "phone":
		patch.Phone = &value
	case "profissao", "profissão", "profession":
		patch.Profession = &value
	default:
		return b.sendText(msg.Chat.ID, "Use: /profile nome|telefone|profissao valor")
	}
	profile, err := sess.Profile.Update(ctx, patch)
	if err != nil {
		return b.sendError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, "✅ Salvo.\n"+renderProfile(profile))
}

func (b *Bot) handleDigest(ctx context.Context, msg *tgbotapi.Message) error {
	sess, err := b.session(ctx, msg.From)
	if err != nil {
		return err
	}
	if err := sess.Tasks.Fetch(ctx); err != nil {
		b.log.WithError(err).Warn("digest uses cached tasks")
	}
	text := b.digests.Summary(sess.Tasks.Tasks(), sess.Categories.Categories(), time.Now().In(b.loc))
	return b.sendText(msg.Chat.ID, text)
}

// handleAvatar stores a sent photo as the user's avatar.
func (b *Bot) handleAvatar(ctx context.Context, msg *tgbotapi.Message) error {
	sess, err := b.session(ctx, msg.From)
	if err != nil {
		return err
	}

	fileID, filename, size := "", "avatar.jpg", 0
	if len(msg.Photo) > 0 {
		photo := msg.Photo[len(msg.Photo)-1]
		fileID, size = photo.FileID, photo.FileSize
	} else {
		fileID, filename, size = msg.Document.FileID, msg.Document.FileName, msg.Document.FileSize
	}
	if size > maxAvatarBytes {
		return b.sendError(msg.Chat.ID, errAvatarTooLarge)
	}
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return b.sendError(msg.Chat.ID, err)
	}
	body, err := download(ctx, url)
	if err != nil {
		b.log.WithError(err).Error("download avatar")
		return b.sendError(msg.Chat.ID, err)
	}
	defer body.Close()

	data, err := readAvatar(body, maxAvatarBytes)
	if err != nil {
		return b.sendError(msg.Chat.ID, err)
	}
	publicURL, err := sess.Profile.UploadAvatar(ctx, filename, bytes.NewReader(data))
	if err != nil {
		return b.sendError(msg.Chat.ID, err)
	}
	if _, err := sess.Profile.Fetch(ctx); err != nil {
		return b.sendError(msg.Chat.ID, err)
	}
	if _, err := sess.Profile.Update(ctx, model.ProfilePatch{AvatarURL: &publicURL}); err != nil {
		return b.sendError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, "🖼 Avatar atualizado.")
}

// readAvatar reads at most limit bytes and fails instead of truncating.
func readAvatar(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read avatar: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, errAvatarTooLarge
	}
	return data, nil
}

func download(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.New("download file: " + resp.Status)
	}
	return resp.Body, nil
}
