package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gorm.io/gorm"

	"deadline-planner/internal/model"
	"deadline-planner/internal/planner"
)

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Ввод отменён. Можно начать заново.")
	}

	if msg.IsCommand() {
		b.log.Info().Int64("from", msg.From.ID).Str("command", msg.Command()).Str("args", msg.CommandArguments()).Msg("command")
		return b.handleCommand(ctx, msg)
	}

	if pending, ok := b.getConfirmation(msg.From.ID); ok {
		return b.handleConfirmationResponse(ctx, msg, pending)
	}

	if b.hasConversation(msg.From.ID) {
		b.log.Debug().Int64("from", msg.From.ID).Int("stage", int(b.getConversation(msg.From.ID).stage)).Msg("conversation step")
		return b.handleConversation(ctx, msg)
	}

	if handled, err := b.handleMenuAlias(ctx, msg); handled {
		return err
	}

	return b.sendText(msg.Chat.ID, "Я пока не понял сообщение. Набери /newtask, чтобы добавить задачу, или /help для списка команд.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "report":
		return b.handleReport(ctx, msg)
	case "newtask":
		return b.startNewTaskConversation(ctx, msg)
	case "tasks":
		return b.handleListTasks(ctx, msg)
	case "plan":
		return b.handlePlan(ctx, msg)
	case "complete":
		return b.handleTaskAction(ctx, msg, actionComplete)
	case "drop":
		return b.handleTaskAction(ctx, msg, actionDrop)
	case "delete":
		return b.handleTaskAction(ctx, msg, actionDelete)
	case "extend":
		return b.handleExtend(ctx, msg)
	case "events":
		return b.handleEvents(ctx, msg)
	case "addevent":
		return b.startNewEventConversation(ctx, msg)
	case "delevent":
		return b.handleDeleteEvent(ctx, msg)
	case "cancel":
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Ввод отменён.")
	default:
		return b.sendText(msg.Chat.ID, "Команда не поддерживается. Загляни в /help.")
	}
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelNewTask):
		return true, b.startNewTaskConversation(ctx, msg)
	case strings.ToLower(menuLabelTasks):
		return true, b.handleListTasks(ctx, msg)
	case strings.ToLower(menuLabelPlan):
		return true, b.handlePlan(ctx, msg)
	case strings.ToLower(menuLabelEvents):
		return true, b.handleEvents(ctx, msg)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "друг"
	}

	text := fmt.Sprintf(
		"👋 Привет, %s!\n<b>Я раскладываю задачи по дням так, чтобы всё успеть к дедлайнам.</b>\n\n"+
			"1. Добавь постоянное расписание (пары, смены) через /addevent.\n"+
			"2. Добавь задачи с дедлайном и длительностью через /newtask.\n"+
			"3. Смотри план в /plan: задачи ставятся как можно ближе к дедлайну и не пересекаются с расписанием.\n\n"+
			"Все команды — в /help.",
		escape(name),
	)

	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Подсказки</b>\n" +
		"• /newtask — добавить задачу пошагово\n" +
		"• /tasks — активные задачи с кнопками (/tasks done — выполненные)\n" +
		"• /plan — пересчитать и показать план\n" +
		"• /complete &lt;id&gt; — отметить задачу выполненной\n" +
		"• /drop &lt;id&gt; — отказаться от задачи\n" +
		"• /extend &lt;id&gt; &lt;минуты&gt; — изменить длительность (например, /extend 3 30 или /extend 3 -15)\n" +
		"• /delete &lt;id&gt; — удалить задачу полностью\n" +
		"• /events — постоянное расписание\n" +
		"• /addevent — добавить занятие или смену\n" +
		"• /delevent &lt;id&gt; — удалить событие из расписания\n" +
		"• /report — отчёт на сегодня\n" +
		"• /cancel — отменить текущий ввод"
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	text, err := b.reminderSvc.DailySummary(ctx, *user, b.now())
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось сформировать отчёт: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handlePlan(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	plan, err := b.planningSvc.Replan(ctx, user, b.now())
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось построить план: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, formatPlan(plan))
}

func (b *Bot) handleListTasks(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	if msg.IsCommand() && isDoneFilter(msg.CommandArguments()) {
		return b.sendCompletedList(ctx, msg.Chat.ID, user)
	}
	return b.sendTaskList(ctx, msg.Chat.ID, user)
}

func isDoneFilter(args string) bool {
	switch strings.ToLower(strings.TrimSpace(args)) {
	case "done", "готово", "выполненные":
		return true
	default:
		return false
	}
}

func (b *Bot) sendCompletedList(ctx context.Context, chatID int64, user *model.User) error {
	tasks, err := b.taskSvc.ListCompleted(ctx, user)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Не удалось получить задачи: %s", escape(err.Error())))
	}
	if len(tasks) == 0 {
		return b.sendText(chatID, "Выполненных задач пока нет.")
	}
	loc := b.location()
	var builder strings.Builder
	builder.WriteString("✅ <b>Выполненные задачи</b>\n")
	for _, task := range tasks {
		line := fmt.Sprintf("• <b>#%d</b> %s", task.ID, escape(normalizeTitle(task.Title)))
		if task.CompletedAt != nil {
			line += " · " + task.CompletedAt.In(loc).Format("02.01 15:04")
		}
		builder.WriteString(line + "\n")
	}
	return b.sendText(chatID, strings.TrimSpace(builder.String()))
}

func (b *Bot) sendTaskList(ctx context.Context, chatID int64, user *model.User) error {
	tasks, err := b.taskSvc.ListActive(ctx, user)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Не удалось получить задачи: %s", escape(err.Error())))
	}
	if len(tasks) == 0 {
		return b.sendText(chatID, "У тебя нет активных задач. Добавь новую через /newtask.")
	}

	type categoryGroup struct {
		Name  string
		Tasks []model.Task
	}
	groups := make(map[string]*categoryGroup)
	order := make([]string, 0, len(tasks))
	for _, task := range tasks {
		key, display := normalizedCategory(task.Category)
		group, ok := groups[key]
		if !ok {
			group = &categoryGroup{Name: display}
			groups[key] = group
			order = append(order, key)
		}
		group.Tasks = append(group.Tasks, task)
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i] == noCategoryKey {
			return false
		}
		if order[j] == noCategoryKey {
			return true
		}
		return strings.Compare(groups[order[i]].Name, groups[order[j]].Name) < 0
	})

	now := b.now()
	var builder strings.Builder
	builder.WriteString("📋 <b>Текущие задачи</b>\n")
	builder.WriteString("Кнопки: ✅ выполнено, ❌ отказаться.\n\n")

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, key := range order {
		section := groups[key]
		sort.SliceStable(section.Tasks, func(i, j int) bool {
			return taskSortKey(section.Tasks[i]).Before(taskSortKey(section.Tasks[j]))
		})

		builder.WriteString(fmt.Sprintf("<b>%s</b>\n", section.Name))
		for _, task := range section.Tasks {
			builder.WriteString(formatTask(task, now))
			buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✅ #%d · %s", task.ID, shortTitle(task.Title, 20)), fmt.Sprintf("%s%d", cbCompletePrefix, task.ID)),
				tgbotapi.NewInlineKeyboardButtonData("❌", fmt.Sprintf("%s%d", cbDropPrefix, task.ID)),
			))
		}
		builder.WriteByte('\n')
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err = b.api.Send(msg)
	return err
}

// taskSortKey orders placed tasks by slot and the rest by deadline.
func taskSortKey(task model.Task) time.Time {
	if task.ScheduledStart != nil {
		return *task.ScheduledStart
	}
	return task.Deadline
}

func (b *Bot) handleTaskAction(ctx context.Context, msg *tgbotapi.Message, action confirmationAction) error {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Укажи ID задачи: /%s 12", msg.Command()))
	}
	taskID, err := parseID(args)
	if err != nil {
		return b.sendText(msg.Chat.ID, "ID задачи должен быть числом.")
	}
	if action == actionDelete {
		return b.askConfirmation(ctx, msg.Chat.ID, msg.From, taskID, action)
	}
	return b.applyTaskAction(ctx, msg.Chat.ID, msg.From, taskID, action)
}

func (b *Bot) handleExtend(ctx context.Context, msg *tgbotapi.Message) error {
	taskID, extra, err := parseExtendArgs(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Формат: /extend &lt;id&gt; &lt;минуты&gt;, например /extend 3 30")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	task, err := b.taskSvc.ExtendTask(ctx, user, taskID, extra)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return b.sendText(msg.Chat.ID, "Задача не найдена.")
	case errors.Is(err, planner.ErrInvalidDuration):
		return b.sendText(msg.Chat.ID, "Длительность должна остаться положительной.")
	case err != nil:
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Ошибка: %s", escape(err.Error())))
	}

	text := fmt.Sprintf("⏱ Задача «%s» теперь занимает %s.", escape(normalizeTitle(task.Title)), formatDuration(task))
	if plan := b.replan(ctx, user); plan != nil {
		text += "\n\n" + formatPlan(plan)
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleEvents(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	events, err := b.eventSvc.List(ctx, user)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось получить расписание: %s", escape(err.Error())))
	}
	if len(events) == 0 {
		return b.sendText(msg.Chat.ID, "Постоянное расписание пусто. Добавь занятия или смены через /addevent.")
	}
	var builder strings.Builder
	builder.WriteString("📌 <b>Постоянное расписание</b>\n")
	for _, event := range events {
		builder.WriteString(formatEvent(event))
	}
	builder.WriteString("\nУдалить: /delevent &lt;id&gt;")
	return b.sendText(msg.Chat.ID, builder.String())
}

func (b *Bot) handleDeleteEvent(ctx context.Context, msg *tgbotapi.Message) error {
	eventID, err := parseID(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Укажи ID события: /delevent 4")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	event, err := b.eventSvc.GetEvent(ctx, user, eventID)
	if err == nil {
		err = b.eventSvc.DeleteEvent(ctx, user, eventID)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return b.sendText(msg.Chat.ID, "Событие не найдено.")
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Ошибка: %s", escape(err.Error())))
	}
	b.log.Info().Uint("user", user.ID).Uint("event", eventID).Msg("fixed event deleted")
	b.replan(ctx, user)
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🗑 Событие «%s» удалено, план пересчитан.", escape(normalizeTitle(event.Name))))
}

func (b *Bot) askConfirmation(ctx context.Context, chatID int64, from *tgbotapi.User, taskID uint, action confirmationAction) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	task, err := b.taskSvc.GetTask(ctx, user, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return b.sendText(chatID, "Задача не найдена.")
		}
		return err
	}
	if action != actionDelete && planner.Status(task.Status).Terminal() {
		return b.sendText(chatID, "Задача уже закрыта.")
	}

	var text string
	title := escape(normalizeTitle(task.Title))
	switch action {
	case actionComplete:
		text = fmt.Sprintf("Отметить задачу «%s» (#%d) как выполненную?", title, task.ID)
	case actionDrop:
		text = fmt.Sprintf("Отказаться от задачи «%s» (#%d)? Она больше не попадёт в план.", title, task.ID)
	default:
		text = fmt.Sprintf("Удалить задачу «%s» (#%d) полностью?", title, task.ID)
	}
	b.setConfirmation(from.ID, confirmationRequest{taskID: task.ID, action: action})
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, req confirmationRequest) error {
	text := strings.TrimSpace(msg.Text)
	switch {
	case isConfirmInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.applyTaskAction(ctx, msg.Chat.ID, msg.From, req.taskID, req.action)
	case isCancelInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.sendMenuPlaceholder(msg.Chat.ID)
	default:
		return b.sendWithReplyMarkup(msg.Chat.ID, "Подтверди или отмени действие.", confirmKeyboard())
	}
}

func (b *Bot) applyTaskAction(ctx context.Context, chatID int64, from *tgbotapi.User, taskID uint, action confirmationAction) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	var (
		task *model.Task
		info string
	)
	switch action {
	case actionComplete:
		task, err = b.taskSvc.CompleteTask(ctx, user, taskID, b.now())
		if err == nil {
			info = fmt.Sprintf("✅ Задача «%s» выполнена.", escape(normalizeTitle(task.Title)))
		}
	case actionDrop:
		task, err = b.taskSvc.CancelTask(ctx, user, taskID)
		if err == nil {
			info = fmt.Sprintf("❌ Задача «%s» снята с плана.", escape(normalizeTitle(task.Title)))
		}
	case actionDelete:
		task, err = b.taskSvc.GetTask(ctx, user, taskID)
		if err == nil {
			err = b.taskSvc.DeleteTask(ctx, user, taskID)
		}
		if err == nil {
			info = fmt.Sprintf("🗑 Задача «%s» удалена.", escape(normalizeTitle(task.Title)))
		}
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return b.sendTextWithRemove(chatID, "Задача не найдена или уже удалена.")
		}
		return b.sendTextWithRemove(chatID, fmt.Sprintf("Ошибка: %s", escape(err.Error())))
	}

	b.log.Info().Uint("user", user.ID).Uint("task", taskID).Int("action", int(action)).Msg("task action applied")
	if err := b.sendTextWithRemove(chatID, info); err != nil {
		return err
	}
	b.replan(ctx, user)
	return b.sendTaskList(ctx, chatID, user)
}
