package bot

import (
	"errors"
	"fmt"
	"html"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"

	"deadline-planner/internal/model"
	"deadline-planner/internal/planner"
	"deadline-planner/internal/service"
)

const (
	noCategory    = "Без категории"
	noCategoryKey = "__no_category__"
	iconDefault   = "🟢"
	iconDue       = "⏳"
	iconOverdue   = "⚠️"
	iconPlaced    = "📌"
)

var deadlineLayouts = []string{
	"2006-01-02 15:04",
	"02.01.2006 15:04",
	"02.01 15:04",
}

var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"02.01",
}

// parseDeadline reads a deadline typed by the user in loc. A bare date means
// the end of the work window on that day.
func parseDeadline(text string, loc *time.Location, endHour int, now time.Time) (time.Time, error) {
	text = strings.TrimSpace(text)
	for _, layout := range deadlineLayouts {
		if parsed, err := time.ParseInLocation(layout, text, loc); err == nil {
			return withYear(parsed, layout, now), nil
		}
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.ParseInLocation(layout, text, loc); err == nil {
			parsed = withYear(parsed, layout, now)
			y, m, d := parsed.Date()
			return time.Date(y, m, d, endHour, 0, 0, 0, loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized deadline %q", text)
}

// withYear fills in the current year for layouts without one.
func withYear(t time.Time, layout string, now time.Time) time.Time {
	if strings.Contains(layout, "2006") {
		return t
	}
	return time.Date(now.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
}

// parseDurationInput accepts "90" (minutes), "1:30" or Go duration syntax
// such as "1h30m".
func parseDurationInput(text string) (time.Duration, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return 0, planner.ErrInvalidDuration
	}
	var d time.Duration
	if minutes, err := strconv.Atoi(text); err == nil {
		d = time.Duration(minutes) * time.Minute
	} else if h, m, ok := strings.Cut(text, ":"); ok {
		hours, errH := strconv.Atoi(h)
		minutes, errM := strconv.Atoi(m)
		if errH != nil || errM != nil || minutes < 0 || minutes > 59 {
			return 0, fmt.Errorf("unrecognized duration %q", text)
		}
		d = time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute
	} else {
		parsed, err := time.ParseDuration(text)
		if err != nil {
			return 0, fmt.Errorf("unrecognized duration %q", text)
		}
		d = parsed
	}
	if d < time.Minute {
		return 0, planner.ErrInvalidDuration
	}
	return d.Truncate(time.Minute), nil
}

// parsePriorityInput understands the keyboard labels and Russian words on
// top of what planner.ParsePriority accepts.
func parsePriorityInput(text string) (planner.Priority, error) {
	value := strings.ToLower(strings.TrimSpace(text))
	switch value {
	case strings.ToLower(btnPriorityHigh), "высокий", "в":
		return planner.PriorityHigh, nil
	case strings.ToLower(btnPriorityMedium), "средний", "с":
		return planner.PriorityMedium, nil
	case strings.ToLower(btnPriorityLow), "низкий", "н":
		return planner.PriorityLow, nil
	}
	return planner.ParsePriority(value)
}

var weekdayNames = map[string]time.Weekday{
	"вс": time.Sunday, "воскресенье": time.Sunday, "sun": time.Sunday,
	"пн": time.Monday, "понедельник": time.Monday, "mon": time.Monday,
	"вт": time.Tuesday, "вторник": time.Tuesday, "tue": time.Tuesday,
	"ср": time.Wednesday, "среда": time.Wednesday, "wed": time.Wednesday,
	"чт": time.Thursday, "четверг": time.Thursday, "thu": time.Thursday,
	"пт": time.Friday, "пятница": time.Friday, "fri": time.Friday,
	"сб": time.Saturday, "суббота": time.Saturday, "sat": time.Saturday,
}

var weekdayShort = [...]string{"вс", "пн", "вт", "ср", "чт", "пт", "сб"}

// parseWeekdaysInput parses lists like "пн, ср", ranges like "пн-пт" and the
// words "будни" and "ежедневно".
func parseWeekdaysInput(text string) ([]time.Weekday, error) {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})
	var days []time.Weekday
	for _, field := range fields {
		switch field {
		case "будни":
			days = append(days, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday)
			continue
		case "выходные":
			days = append(days, time.Saturday, time.Sunday)
			continue
		case "ежедневно":
			for d := time.Sunday; d <= time.Saturday; d++ {
				days = append(days, d)
			}
			continue
		}
		if from, to, ok := strings.Cut(field, "-"); ok {
			first, okFirst := weekdayNames[from]
			last, okLast := weekdayNames[to]
			if !okFirst || !okLast {
				return nil, fmt.Errorf("unknown weekday range %q", field)
			}
			// "сб-пн" wraps over the end of the week.
			for d := first; ; d = (d + 1) % 7 {
				days = append(days, d)
				if d == last {
					break
				}
			}
			continue
		}
		day, ok := weekdayNames[field]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", field)
		}
		days = append(days, day)
	}
	if len(days) == 0 {
		return nil, planner.ErrNoWeekdays
	}
	slices.Sort(days)
	return slices.Compact(days), nil
}

// parseTimeRange parses "09:00-10:30".
func parseTimeRange(text string) (planner.TimeOfDay, planner.TimeOfDay, error) {
	normalized := strings.NewReplacer("–", "-", "—", "-", " ", "").Replace(strings.TrimSpace(text))
	from, to, ok := strings.Cut(normalized, "-")
	if !ok {
		return planner.TimeOfDay{}, planner.TimeOfDay{}, fmt.Errorf("time range %q needs a dash", text)
	}
	start, err := planner.ParseTimeOfDay(from)
	if err != nil {
		return planner.TimeOfDay{}, planner.TimeOfDay{}, err
	}
	end, err := planner.ParseTimeOfDay(to)
	if err != nil {
		return planner.TimeOfDay{}, planner.TimeOfDay{}, err
	}
	if end.Minutes() <= start.Minutes() {
		return planner.TimeOfDay{}, planner.TimeOfDay{}, planner.ErrInvalidEventTime
	}
	return start, end, nil
}

func parseID(raw string) (uint, error) {
	value, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(raw), "#"), 10, 64)
	if err != nil || value == 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return uint(value), nil
}

func parseTaskID(data, prefix string) (uint, error) {
	return parseID(strings.TrimPrefix(data, prefix))
}

// parseExtendArgs parses "<id> <duration>" where duration may be negative.
func parseExtendArgs(args string) (uint, time.Duration, error) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return 0, 0, errors.New("expected task id and minutes")
	}
	id, err := parseID(fields[0])
	if err != nil {
		return 0, 0, err
	}
	raw := fields[1]
	sign := time.Duration(1)
	if strings.HasPrefix(raw, "-") {
		sign = -1
		raw = raw[1:]
	}
	raw = strings.TrimPrefix(raw, "+")
	extra, err := parseDurationInput(raw)
	if err != nil {
		return 0, 0, err
	}
	return id, sign * extra, nil
}

func formatWeekdays(days []time.Weekday) string {
	// Monday first, the way a Russian calendar reads.
	sorted := slices.Clone(days)
	slices.SortFunc(sorted, func(a, b time.Weekday) int { return (int(a)+6)%7 - (int(b)+6)%7 })
	names := make([]string, 0, len(sorted))
	for _, d := range sorted {
		names = append(names, weekdayShort[d])
	}
	return strings.Join(names, ", ")
}

func formatTask(task model.Task, now time.Time) string {
	var b strings.Builder
	deadline := task.Deadline.In(now.Location())
	icon := iconDefault
	switch {
	case task.Status == string(planner.StatusScheduled):
		icon = iconPlaced
	case now.After(deadline):
		icon = iconOverdue
	case deadline.Sub(now) <= 48*time.Hour:
		icon = iconDue
	}
	b.WriteString(fmt.Sprintf("%s <b>#%d</b> %s\n", icon, task.ID, escape(normalizeTitle(task.Title))))
	if now.After(deadline) {
		b.WriteString(fmt.Sprintf("   ⏰ Дедлайн: %s — <b>просрочено</b>\n", deadline.Format("02.01 15:04")))
	} else {
		b.WriteString(fmt.Sprintf("   ⏰ Дедлайн: %s\n", deadline.Format("02.01 15:04")))
	}
	priority, err := planner.ParsePriority(task.Priority)
	if err == nil {
		b.WriteString(fmt.Sprintf("   ⌛ %s · приоритет %s\n", service.FormatMinutes(task.Duration()), service.PriorityLabel(priority)))
	}
	switch {
	case task.Status == string(planner.StatusScheduled) && task.ScheduledStart != nil && task.ScheduledEnd != nil:
		b.WriteString(fmt.Sprintf("   🗓 %s–%s\n",
			task.ScheduledStart.In(now.Location()).Format("02.01 15:04"),
			task.ScheduledEnd.In(now.Location()).Format("15:04")))
	case task.Status == string(planner.StatusUnscheduled):
		b.WriteString("   🚫 Не помещается до дедлайна\n")
	}
	if task.Description != "" {
		b.WriteString(fmt.Sprintf("   📝 %s\n", escape(task.Description)))
	}
	b.WriteByte('\n')
	return b.String()
}

func formatEvent(event model.FixedEvent) string {
	days := event.Weekdays
	if parsed, err := service.ParseWeekdayList(event.Weekdays); err == nil {
		days = formatWeekdays(parsed)
	}
	line := fmt.Sprintf("• <b>#%d</b> %s · %s · %s–%s", event.ID, escape(normalizeTitle(event.Name)), days, event.StartTime, event.EndTime)
	if category := strings.TrimSpace(event.Category); category != "" {
		line += " · " + categoryLabel(category)
	}
	return line + "\n"
}

// formatPlan renders the outcome of a planning run.
func formatPlan(plan *service.Plan) string {
	var b strings.Builder
	b.WriteString("🗓 <b>План обновлён</b>\n")
	b.WriteString(fmt.Sprintf("Горизонт: %s — %s\n\n", plan.Horizon.Start.Format("02.01 15:04"), plan.Horizon.End.Format("02.01 15:04")))
	if len(plan.Result.Scheduled) == 0 {
		b.WriteString("Запланированных задач нет.\n")
	}
	var day time.Time
	for _, task := range plan.Result.Scheduled {
		if d := planner.DateOf(task.Interval.Start); !d.Equal(day) {
			day = d
			b.WriteString(fmt.Sprintf("<b>%s, %s</b>\n", weekdayShort[d.Weekday()], d.Format("02.01")))
		}
		b.WriteString(fmt.Sprintf("• %s–%s #%d %s\n",
			task.Interval.Start.Format("15:04"), task.Interval.End.Format("15:04"), task.ID, escape(normalizeTitle(task.Name))))
	}
	if len(plan.Result.Unscheduled) > 0 {
		b.WriteString("\n⚠️ <b>Не удалось распланировать</b>\n")
		for _, task := range plan.Result.Unscheduled {
			b.WriteString(fmt.Sprintf("• #%d %s: %s\n", task.ID, escape(normalizeTitle(task.Name)), reasonLabel(plan.Result.Reason(task))))
		}
	}
	return strings.TrimSpace(b.String())
}

func reasonLabel(err error) string {
	switch {
	case err == nil:
		return "причина неизвестна"
	case errors.Is(err, planner.ErrDeadlinePassed):
		return "дедлайн уже прошёл"
	case errors.Is(err, planner.ErrBeforeHorizon):
		return "не хватает времени до дедлайна"
	case errors.Is(err, planner.ErrSchedulingExhausted):
		return "не помещается в рабочее окно"
	default:
		return escape(err.Error())
	}
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

func escape(s string) string {
	return html.EscapeString(s)
}

func normalizedCategory(category string) (string, string) {
	trimmed := strings.TrimSpace(category)
	if trimmed == "" {
		return noCategoryKey, categoryLabel(noCategory)
	}
	return strings.ToLower(trimmed), categoryLabel(trimmed)
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

func categoryLabel(name string) string {
	base := strings.TrimSpace(name)
	var icon string
	switch strings.ToLower(base) {
	case "учеба", "учёба", "пары":
		icon = "🎓"
	case "работа", "смена":
		icon = "💼"
	case "покупки":
		icon = "🛒"
	case "здоровье", "спорт":
		icon = "🩺"
	case "личное":
		icon = "🧩"
	case strings.ToLower(noCategory):
		icon = "📁"
	default:
		icon = "🏷️"
	}
	return fmt.Sprintf("%s %s", icon, escape(normalizeTitle(base)))
}

func placementLine(task *model.Task, loc *time.Location) string {
	switch {
	case task.Status == string(planner.StatusScheduled) && task.ScheduledStart != nil && task.ScheduledEnd != nil:
		return fmt.Sprintf("• <b>В плане:</b> %s–%s\n",
			task.ScheduledStart.In(loc).Format("02.01 15:04"), task.ScheduledEnd.In(loc).Format("15:04"))
	case task.Status == string(planner.StatusUnscheduled):
		return "⚠️ До дедлайна для неё нет свободного окна. Загляни в /plan.\n"
	default:
		return ""
	}
}
