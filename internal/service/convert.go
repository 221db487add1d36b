package service

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"deadline-planner/internal/model"
	"deadline-planner/internal/planner"
)

// toPlannerTask builds the scheduling entity for a stored task. Times are
// moved to loc so that work windows and fixed events project onto the
// user's wall clock.
func toPlannerTask(rec model.Task, loc *time.Location) (*planner.Task, error) {
	priority, err := planner.ParsePriority(rec.Priority)
	if err != nil {
		return nil, fmt.Errorf("task %d: %w", rec.ID, err)
	}
	status, err := planner.ParseStatus(rec.Status)
	if err != nil {
		return nil, fmt.Errorf("task %d: %w", rec.ID, err)
	}
	task, err := planner.NewTask(rec.ID, rec.Title, rec.Deadline.In(loc), rec.Duration(), priority, rec.Category)
	if err != nil {
		return nil, fmt.Errorf("task %d: %w", rec.ID, err)
	}
	task.Status = status
	if status == planner.StatusScheduled {
		// A scheduled row without a slot is treated as waiting for placement.
		if rec.ScheduledStart == nil {
			task.Status = planner.StatusPending
		} else {
			task.Assign(rec.ScheduledStart.In(loc))
		}
	}
	return task, nil
}

// applyPlannerTask copies scheduling state back onto the record.
func applyPlannerTask(rec *model.Task, task *planner.Task) {
	rec.Status = string(task.Status)
	rec.DurationMinutes = int(task.Duration / time.Minute)
	if task.Interval == nil {
		rec.ScheduledStart = nil
		rec.ScheduledEnd = nil
		return
	}
	start, end := task.Interval.Start, task.Interval.End
	rec.ScheduledStart = &start
	rec.ScheduledEnd = &end
}

func toPlannerEvent(rec model.FixedEvent) (planner.FixedEvent, error) {
	days, err := ParseWeekdayList(rec.Weekdays)
	if err != nil {
		return planner.FixedEvent{}, fmt.Errorf("event %d: %w", rec.ID, err)
	}
	start, err := planner.ParseTimeOfDay(rec.StartTime)
	if err != nil {
		return planner.FixedEvent{}, fmt.Errorf("event %d: %w", rec.ID, err)
	}
	end, err := planner.ParseTimeOfDay(rec.EndTime)
	if err != nil {
		return planner.FixedEvent{}, fmt.Errorf("event %d: %w", rec.ID, err)
	}
	event, err := planner.NewFixedEvent(rec.Name, rec.Category, days, start, end)
	if err != nil {
		return planner.FixedEvent{}, err
	}
	event.ID = rec.ID
	return event, nil
}

// ParseWeekdayList parses the stored "1,3,5" weekday form.
func ParseWeekdayList(raw string) ([]time.Weekday, error) {
	var days []time.Weekday
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > 6 {
			return nil, fmt.Errorf("invalid weekday %q", part)
		}
		days = append(days, time.Weekday(n))
	}
	if len(days) == 0 {
		return nil, planner.ErrNoWeekdays
	}
	return days, nil
}

// FormatWeekdayList is the inverse of ParseWeekdayList.
func FormatWeekdayList(days []time.Weekday) string {
	sorted := slices.Clone(days)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	parts := make([]string, 0, len(sorted))
	for _, d := range sorted {
		parts = append(parts, strconv.Itoa(int(d)))
	}
	return strings.Join(parts, ",")
}
