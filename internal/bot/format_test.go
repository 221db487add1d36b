package bot

import (
	"errors"
	"strings"
	"testing"
	"time"

	"deadline-planner/internal/model"
	"deadline-planner/internal/planner"
	"deadline-planner/internal/service"
)

func TestParseDeadline(t *testing.T) {
	loc := time.FixedZone("MSK", 3*60*60)
	now := time.Date(2025, time.October, 27, 10, 0, 0, 0, loc)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-11-30 18:00", time.Date(2025, time.November, 30, 18, 0, 0, 0, loc)},
		{"30.11.2025 09:15", time.Date(2025, time.November, 30, 9, 15, 0, 0, loc)},
		{"30.11 09:15", time.Date(2025, time.November, 30, 9, 15, 0, 0, loc)},
		{"2025-11-30", time.Date(2025, time.November, 30, 22, 0, 0, 0, loc)},
		{" 01.12 ", time.Date(2025, time.December, 1, 22, 0, 0, 0, loc)},
	}
	for _, tt := range tests {
		got, err := parseDeadline(tt.in, loc, 22, now)
		if err != nil {
			t.Fatalf("parseDeadline(%q): %v", tt.in, err)
		}
		if !got.Equal(tt.want) {
			t.Fatalf("parseDeadline(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := parseDeadline("завтра", loc, 22, now); err == nil {
		t.Fatalf("expected error for free text")
	}
}

func TestParseDurationInput(t *testing.T) {
	tests := map[string]time.Duration{
		"90":    90 * time.Minute,
		"1:30":  90 * time.Minute,
		"2h":    2 * time.Hour,
		"1h15m": 75 * time.Minute,
	}
	for in, want := range tests {
		got, err := parseDurationInput(in)
		if err != nil {
			t.Fatalf("parseDurationInput(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("parseDurationInput(%q) = %v, want %v", in, got, want)
		}
	}
	for _, in := range []string{"", "0", "-5", "30s", "1:75", "долго"} {
		if _, err := parseDurationInput(in); err == nil {
			t.Fatalf("parseDurationInput(%q) should fail", in)
		}
	}
}

func TestParsePriorityInput(t *testing.T) {
	tests := map[string]planner.Priority{
		btnPriorityHigh:   planner.PriorityHigh,
		"средний":         planner.PriorityMedium,
		btnPriorityLow:    planner.PriorityLow,
		"high":            planner.PriorityHigh,
		"3":               planner.PriorityLow,
	}
	for in, want := range tests {
		got, err := parsePriorityInput(in)
		if err != nil || got != want {
			t.Fatalf("parsePriorityInput(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := parsePriorityInput("срочно"); err == nil {
		t.Fatalf("expected error for unknown priority")
	}
}

func TestParseWeekdaysInput(t *testing.T) {
	tests := []struct {
		in   string
		want []time.Weekday
	}{
		{"пн, ср", []time.Weekday{time.Monday, time.Wednesday}},
		{"Пн-Пт", []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}},
		{"сб-пн", []time.Weekday{time.Sunday, time.Monday, time.Saturday}},
		{"вт чт вт", []time.Weekday{time.Tuesday, time.Thursday}},
		{"выходные", []time.Weekday{time.Sunday, time.Saturday}},
	}
	for _, tt := range tests {
		got, err := parseWeekdaysInput(tt.in)
		if err != nil {
			t.Fatalf("parseWeekdaysInput(%q): %v", tt.in, err)
		}
		if len(got) != len(tt.want) {
			t.Fatalf("parseWeekdaysInput(%q) = %v, want %v", tt.in, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Fatalf("parseWeekdaysInput(%q) = %v, want %v", tt.in, got, tt.want)
			}
		}
	}

	if _, err := parseWeekdaysInput(" , "); !errors.Is(err, planner.ErrNoWeekdays) {
		t.Fatalf("empty input: err = %v", err)
	}
	if _, err := parseWeekdaysInput("пн, пятн"); err == nil {
		t.Fatalf("expected error for unknown weekday")
	}
}

func TestFormatWeekdaysMondayFirst(t *testing.T) {
	got := formatWeekdays([]time.Weekday{time.Sunday, time.Wednesday, time.Monday})
	if got != "пн, ср, вс" {
		t.Fatalf("formatWeekdays = %q", got)
	}
}

func TestParseTimeRange(t *testing.T) {
	start, end, err := parseTimeRange("09:00 – 10:30")
	if err != nil {
		t.Fatalf("parseTimeRange: %v", err)
	}
	if start.String() != "09:00" || end.String() != "10:30" {
		t.Fatalf("got %s-%s", start, end)
	}
	if _, _, err := parseTimeRange("10:30-09:00"); !errors.Is(err, planner.ErrInvalidEventTime) {
		t.Fatalf("reversed range: err = %v", err)
	}
	for _, in := range []string{"09:00", "9-10", "25:00-26:00"} {
		if _, _, err := parseTimeRange(in); err == nil {
			t.Fatalf("parseTimeRange(%q) should fail", in)
		}
	}
}

func TestParseExtendArgs(t *testing.T) {
	id, extra, err := parseExtendArgs("#7 30")
	if err != nil || id != 7 || extra != 30*time.Minute {
		t.Fatalf("got %d %v %v", id, extra, err)
	}
	id, extra, err = parseExtendArgs("3 -15")
	if err != nil || id != 3 || extra != -15*time.Minute {
		t.Fatalf("got %d %v %v", id, extra, err)
	}
	for _, in := range []string{"", "3", "x 30", "3 abc", "0 30"} {
		if _, _, err := parseExtendArgs(in); err == nil {
			t.Fatalf("parseExtendArgs(%q) should fail", in)
		}
	}
}

func TestFormatPlan(t *testing.T) {
	loc := time.UTC
	day := time.Date(2025, time.October, 27, 0, 0, 0, 0, loc)
	placed, _ := planner.NewTask(1, "report", day.Add(18*time.Hour), time.Hour, planner.PriorityHigh, "")
	placed.Assign(day.Add(17 * time.Hour))
	late, _ := planner.NewTask(2, "essay", day.Add(-time.Hour), time.Hour, planner.PriorityLow, "")

	plan := &service.Plan{
		Horizon: planner.Horizon{Start: day.Add(8 * time.Hour), End: day.AddDate(0, 0, 7)},
		Result: &planner.ScheduleResult{
			Scheduled:   []*planner.Task{placed},
			Unscheduled: []*planner.Task{late},
			Reasons:     map[*planner.Task]error{late: planner.ErrDeadlinePassed},
		},
	}
	out := formatPlan(plan)
	for _, want := range []string{"пн, 27.10", "17:00–18:00 #1 Report", "#2 Essay: дедлайн уже прошёл"} {
		if !strings.Contains(out, want) {
			t.Fatalf("formatPlan misses %q:\n%s", want, out)
		}
	}
}

func TestFormatTaskShowsSlot(t *testing.T) {
	loc := time.UTC
	now := time.Date(2025, time.October, 27, 8, 0, 0, 0, loc)
	start := now.Add(2 * time.Hour)
	end := start.Add(90 * time.Minute)
	task := model.Task{
		ID:              4,
		Title:           "<lab>",
		Deadline:        now.Add(5 * time.Hour),
		DurationMinutes: 90,
		Priority:        "high",
		Status:          string(planner.StatusScheduled),
		ScheduledStart:  &start,
		ScheduledEnd:    &end,
	}
	out := formatTask(task, now)
	for _, want := range []string{iconPlaced, "&lt;lab&gt;", "1 ч 30 мин · приоритет высокий", "27.10 10:00–11:30"} {
		if !strings.Contains(out, want) {
			t.Fatalf("formatTask misses %q:\n%s", want, out)
		}
	}
}

func TestShortTitle(t *testing.T) {
	if got := shortTitle("подготовить отчёт по практике", 10); got != "Подготовк…" {
		t.Fatalf("shortTitle = %q", got)
	}
	if got := shortTitle("  тест ", 10); got != "Тест" {
		t.Fatalf("shortTitle = %q", got)
	}
}
