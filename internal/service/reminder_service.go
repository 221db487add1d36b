package service

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"deadline-planner/internal/model"
	"deadline-planner/internal/planner"
	"deadline-planner/internal/repository"
)

const upcomingLimit = 5

// ReminderService builds human-readable summaries for daily notifications.
type ReminderService struct {
	taskRepo *repository.TaskRepository
	loc      *time.Location
}

func NewReminderService(taskRepo *repository.TaskRepository, loc *time.Location) *ReminderService {
	if loc == nil {
		loc = time.Local
	}
	return &ReminderService{taskRepo: taskRepo, loc: loc}
}

func (s *ReminderService) DailySummary(ctx context.Context, user model.User, now time.Time) (string, error) {
	records, err := s.taskRepo.ListOpen(ctx, user.ID)
	if err != nil {
		return "", err
	}
	now = now.In(s.loc)
	today := planner.DateOf(now)

	var (
		agenda, upcoming []*planner.Task
		unplaced         = planner.NewOrderTree()
		waiting          = planner.NewOrderTree()
	)
	for _, rec := range records {
		task, err := toPlannerTask(rec, s.loc)
		if err != nil {
			continue
		}
		switch {
		case task.Status == planner.StatusScheduled && task.Interval != nil:
			day := planner.DateOf(task.Interval.Start)
			switch {
			case day.Equal(today):
				agenda = append(agenda, task)
			case day.After(today):
				upcoming = append(upcoming, task)
			}
		case task.Status == planner.StatusUnscheduled:
			unplaced.Insert(task)
		default:
			waiting.Insert(task)
		}
	}
	byStart := func(list []*planner.Task) {
		sort.SliceStable(list, func(i, j int) bool { return list[i].Interval.Start.Before(list[j].Interval.Start) })
	}
	byStart(agenda)
	byStart(upcoming)
	if len(upcoming) > upcomingLimit {
		upcoming = upcoming[:upcomingLimit]
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Ежедневный отчёт</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("02.01.2006")))

	builder.WriteString("📅 <b>План на сегодня</b>\n")
	if len(agenda) == 0 {
		builder.WriteString("— на сегодня ничего не запланировано\n")
	}
	for _, task := range agenda {
		builder.WriteString(formatSlot(task, false))
	}

	if len(upcoming) > 0 {
		builder.WriteString("\n🔜 <b>Дальше</b>\n")
		for _, task := range upcoming {
			builder.WriteString(formatSlot(task, true))
		}
	}

	if unplaced.Len() > 0 {
		builder.WriteString("\n⚠️ <b>Не помещается до дедлайна</b>\n")
		for task := range unplaced.All() {
			builder.WriteString(formatPending(task, now))
		}
	}

	if waiting.Len() > 0 {
		builder.WriteString("\n⏳ <b>Ещё не распланировано</b> — набери /plan\n")
		for task := range waiting.All() {
			builder.WriteString(formatPending(task, now))
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

func formatSlot(task *planner.Task, withDate bool) string {
	layout := "15:04"
	if withDate {
		layout = "02.01 15:04"
	}
	return fmt.Sprintf("• %s–%s %s <i>(%s)</i>\n",
		task.Interval.Start.Format(layout),
		task.Interval.End.Format("15:04"),
		html.EscapeString(strings.TrimSpace(task.Name)),
		PriorityLabel(task.Priority),
	)
}

func formatPending(task *planner.Task, now time.Time) string {
	icon := "🟢"
	switch {
	case now.After(task.Deadline):
		icon = "⚠️"
	case task.Deadline.Sub(now) <= 48*time.Hour:
		icon = "⏳"
	}
	line := fmt.Sprintf("%s %s · до %s · %s", icon, html.EscapeString(strings.TrimSpace(task.Name)),
		task.Deadline.Format("02.01 15:04"), FormatMinutes(task.Duration))
	if task.IsOverdue(now) {
		line += " — <b>просрочено</b>"
	}
	return line + "\n"
}

// PriorityLabel is the Russian label shown to users.
func PriorityLabel(p planner.Priority) string {
	switch p {
	case planner.PriorityHigh:
		return "высокий"
	case planner.PriorityMedium:
		return "средний"
	case planner.PriorityLow:
		return "низкий"
	default:
		return p.String()
	}
}

// FormatMinutes renders a duration as "2 ч 30 мин".
func FormatMinutes(d time.Duration) string {
	total := int(d / time.Minute)
	hours, minutes := total/60, total%60
	switch {
	case hours == 0:
		return fmt.Sprintf("%d мин", minutes)
	case minutes == 0:
		return fmt.Sprintf("%d ч", hours)
	default:
		return fmt.Sprintf("%d ч %d мин", hours, minutes)
	}
}
