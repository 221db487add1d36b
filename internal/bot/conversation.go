package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"deadline-planner/internal/model"
	"deadline-planner/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTitle
	stageCategory
	stageDeadline
	stageDuration
	stagePriority
	stageEventName
	stageEventDays
	stageEventTime
	stageEventCategory
)

type conversationState struct {
	stage conversationStage
	task  service.TaskInput
	event service.EventInput
}

func (b *Bot) startNewTaskConversation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	b.clearConfirmation(msg.From.ID)
	b.setConversation(msg.From.ID, &conversationState{stage: stageTitle})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 Создаём новую задачу.\n<b>Шаг 1:</b> как её назвать?", cancelKeyboard())
}

func (b *Bot) startNewEventConversation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	b.clearConfirmation(msg.From.ID)
	b.setConversation(msg.From.ID, &conversationState{stage: stageEventName})
	return b.sendWithReplyMarkup(msg.Chat.ID, "📌 Добавляем событие в расписание.\n<b>Шаг 1:</b> как оно называется? (например, «Матанализ» или «Смена в кафе»)", cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageTitle:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Название не может быть пустым.", cancelKeyboard())
		}
		state.task.Title = text
		state.stage = stageCategory
		return b.sendWithReplyMarkup(msg.Chat.ID, "🏷 <b>Шаг 2:</b> выбери категорию или отправь свою (можно «Пропустить»).", categoryKeyboard())
	case stageCategory:
		if !isSkipInput(text) {
			state.task.Category = text
		}
		state.stage = stageDeadline
		return b.sendWithReplyMarkup(msg.Chat.ID, "⏰ <b>Шаг 3:</b> дедлайн в формате <code>2025-11-30 18:00</code> или <code>30.11 18:00</code>. Если указать только дату, возьму конец рабочего дня.", cancelKeyboard())
	case stageDeadline:
		deadline, err := parseDeadline(text, b.location(), b.config.Planner.WorkEndHour, b.now())
		if err != nil {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Не могу распознать дату. Пример: <code>2025-11-30 18:00</code>.", cancelKeyboard())
		}
		if !deadline.After(b.now()) {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Этот дедлайн уже прошёл. Укажи время в будущем.", cancelKeyboard())
		}
		state.task.Deadline = deadline
		state.stage = stageDuration
		return b.sendWithReplyMarkup(msg.Chat.ID, "⌛ <b>Шаг 4:</b> сколько минут займёт задача? Можно <code>90</code> или <code>1:30</code>.", durationKeyboard())
	case stageDuration:
		duration, err := parseDurationInput(text)
		if err != nil {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Длительность должна быть положительной, например <code>45</code>.", durationKeyboard())
		}
		state.task.Duration = duration
		state.stage = stagePriority
		return b.sendWithReplyMarkup(msg.Chat.ID, "🔥 <b>Шаг 5:</b> приоритет?", priorityKeyboard())
	case stagePriority:
		priority, err := parsePriorityInput(text)
		if err != nil {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Выбери приоритет кнопкой.", priorityKeyboard())
		}
		state.task.Priority = priority
		b.clearConversation(msg.From.ID)
		return b.finishTaskCreation(ctx, msg.From, state.task, msg.Chat.ID)
	case stageEventName:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Название не может быть пустым.", cancelKeyboard())
		}
		state.event.Name = text
		state.stage = stageEventDays
		return b.sendWithReplyMarkup(msg.Chat.ID, "📆 <b>Шаг 2:</b> по каким дням? Например <code>пн, ср</code>, <code>пн-пт</code> или кнопкой.", weekdayKeyboard())
	case stageEventDays:
		days, err := parseWeekdaysInput(text)
		if err != nil {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Не понял дни. Пример: <code>вт, чт</code>.", weekdayKeyboard())
		}
		state.event.Weekdays = days
		state.stage = stageEventTime
		return b.sendWithReplyMarkup(msg.Chat.ID, "🕘 <b>Шаг 3:</b> время в формате <code>09:00-10:30</code>.", cancelKeyboard())
	case stageEventTime:
		start, end, err := parseTimeRange(text)
		if err != nil {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Нужен интервал внутри одного дня, например <code>09:00-10:30</code>.", cancelKeyboard())
		}
		state.event.Start, state.event.End = start, end
		state.stage = stageEventCategory
		return b.sendWithReplyMarkup(msg.Chat.ID, "🏷 <b>Шаг 4:</b> категория (например, «Учеба» или «Работа»), можно «Пропустить».", categoryKeyboard())
	case stageEventCategory:
		if !isSkipInput(text) {
			state.event.Category = text
		}
		b.clearConversation(msg.From.ID)
		return b.finishEventCreation(ctx, msg.From, state.event, msg.Chat.ID)
	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Диалог сброшен. Попробуй ещё раз через /newtask.")
	}
}

func (b *Bot) finishTaskCreation(ctx context.Context, from *tgbotapi.User, input service.TaskInput, chatID int64) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	task, err := b.taskSvc.CreateTask(ctx, user, input)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Не удалось сохранить задачу: %s", escape(err.Error())))
	}

	var summary strings.Builder
	summary.WriteString("✅ <b>Задача сохранена</b>\n")
	summary.WriteString(fmt.Sprintf("• <b>ID:</b> %d\n", task.ID))
	summary.WriteString(fmt.Sprintf("• <b>Название:</b> %s\n", escape(normalizeTitle(task.Title))))
	if task.Category != "" {
		summary.WriteString(fmt.Sprintf("• <b>Категория:</b> %s\n", categoryLabel(task.Category)))
	}
	summary.WriteString(fmt.Sprintf("• <b>Дедлайн:</b> %s\n", task.Deadline.In(b.location()).Format("02.01.2006 15:04")))
	summary.WriteString(fmt.Sprintf("• <b>Длительность:</b> %s\n", formatDuration(task)))
	summary.WriteString(fmt.Sprintf("• <b>Приоритет:</b> %s\n", service.PriorityLabel(input.Priority)))

	if b.replan(ctx, user) != nil {
		if placed, err := b.taskSvc.GetTask(ctx, user, task.ID); err == nil {
			summary.WriteString(placementLine(placed, b.location()))
		}
	}

	return b.sendTextWithRemove(chatID, strings.TrimSpace(summary.String()))
}

func (b *Bot) finishEventCreation(ctx context.Context, from *tgbotapi.User, input service.EventInput, chatID int64) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	event, err := b.eventSvc.AddEvent(ctx, user, input)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Не удалось сохранить событие: %s", escape(err.Error())))
	}

	text := "✅ <b>Событие добавлено</b>\n" + formatEvent(*event)
	if b.replan(ctx, user) != nil {
		text += "\nПлан пересчитан с учётом нового расписания."
	}
	return b.sendTextWithRemove(chatID, text)
}

func formatDuration(task *model.Task) string {
	return service.FormatMinutes(task.Duration())
}
