package planner

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

var window = WorkWindow{StartHour: 8, EndHour: 22}

func newScheduler(t *testing.T, cal *FixedCalendar, opts ...Option) *Scheduler {
	t.Helper()
	s, err := NewScheduler(cal, window, opts...)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	return s
}

func weekHorizon() Horizon {
	return Horizon{Start: at(-7, 0, 0), End: at(7, 0, 0)}
}

func assertPlaced(t *testing.T, task *Task, want Interval) {
	t.Helper()
	if task.Status != StatusScheduled {
		t.Fatalf("%s: status = %s, want scheduled", task.Name, task.Status)
	}
	if task.Interval == nil || !sameInterval(*task.Interval, want) {
		t.Fatalf("%s: interval = %v, want %s", task.Name, task.Interval, want)
	}
}

// assertScheduleInvariants checks the properties every result must satisfy.
func assertScheduleInvariants(t *testing.T, res *ScheduleResult, cal *FixedCalendar) {
	t.Helper()
	for i, a := range res.Scheduled {
		iv := *a.Interval
		if iv.End.After(a.Deadline) {
			t.Fatalf("%s ends %v after deadline %v", a.Name, iv.End, a.Deadline)
		}
		if !window.Fits(iv, iv.Start) {
			t.Fatalf("%s at %s is outside the work window", a.Name, iv)
		}
		if iv.Duration() != a.Duration {
			t.Fatalf("%s interval %s does not match duration %v", a.Name, iv, a.Duration)
		}
		if !cal.IsSlotAvailable(iv) {
			t.Fatalf("%s at %s overlaps a fixed event", a.Name, iv)
		}
		if i > 0 && res.Scheduled[i-1].Interval.Start.After(iv.Start) {
			t.Fatalf("scheduled tasks not ordered by start")
		}
		for _, b := range res.Scheduled[i+1:] {
			if Overlaps(iv, *b.Interval) {
				t.Fatalf("%s %s overlaps %s %s", a.Name, iv, b.Name, b.Interval)
			}
		}
	}
	for _, task := range res.Unscheduled {
		if task.Status != StatusUnscheduled || task.Interval != nil {
			t.Fatalf("%s: unscheduled task has status %s interval %v", task.Name, task.Status, task.Interval)
		}
		if res.Reason(task) == nil {
			t.Fatalf("%s: missing unscheduled reason", task.Name)
		}
	}
}

func TestGenerateScheduleTwoDeadlines(t *testing.T) {
	t.Parallel()
	report := mustTask(t, 1, "Report", at(1, 18, 0), 180, PriorityHigh)
	exam := mustTask(t, 2, "Exam study", at(0, 21, 0), 120, PriorityHigh)

	res, err := GenerateSchedule([]*Task{report, exam}, nil, window, at(0, 8, 0), at(3, 0, 0))
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	if len(res.Scheduled) != 2 || len(res.Unscheduled) != 0 {
		t.Fatalf("scheduled=%d unscheduled=%d, want 2/0", len(res.Scheduled), len(res.Unscheduled))
	}
	assertPlaced(t, exam, span(0, 19, 0, 21, 0))
	assertPlaced(t, report, span(1, 15, 0, 18, 0))
	if res.Scheduled[0] != exam || res.Scheduled[1] != report {
		t.Fatalf("scheduled order = %v", res.Scheduled)
	}
	assertScheduleInvariants(t, res, NewFixedCalendar())
}

func TestGenerateScheduleFixedEventConflict(t *testing.T) {
	t.Parallel()
	cal := NewFixedCalendar(mustEvent(t, "CS101", []time.Weekday{time.Monday}, "09:00", "10:30"))
	task := mustTask(t, 1, "Quiz prep", at(0, 10, 0), 60, PriorityMedium)

	res, err := newScheduler(t, cal).GenerateSchedule([]*Task{task}, weekHorizon())
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	assertPlaced(t, task, span(0, 8, 0, 9, 0))
	assertScheduleInvariants(t, res, cal)
}

func TestGenerateScheduleFixedEventConflictInfeasible(t *testing.T) {
	t.Parallel()
	cal := NewFixedCalendar(mustEvent(t, "CS101", []time.Weekday{time.Monday}, "09:00", "10:30"))
	task := mustTask(t, 1, "Quiz prep", at(0, 10, 0), 60, PriorityMedium)

	s, err := NewScheduler(cal, WorkWindow{StartHour: 9, EndHour: 22})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	res, err := s.GenerateSchedule([]*Task{task}, Horizon{Start: at(0, 0, 0), End: at(1, 0, 0)})
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	if len(res.Unscheduled) != 1 || task.Status != StatusUnscheduled {
		t.Fatalf("task should be unscheduled, got %s", task.Status)
	}
	if !errors.Is(res.Reason(task), ErrBeforeHorizon) {
		t.Fatalf("reason = %v, want ErrBeforeHorizon", res.Reason(task))
	}
}

func TestGenerateSchedulePriorityPrecedence(t *testing.T) {
	t.Parallel()
	low := mustTask(t, 1, "Low", at(0, 10, 0), 120, PriorityLow)
	high := mustTask(t, 2, "High", at(0, 10, 0), 120, PriorityHigh)

	res, err := newScheduler(t, nil).GenerateSchedule([]*Task{low, high}, Horizon{Start: at(0, 8, 0), End: at(1, 0, 0)})
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	assertPlaced(t, high, span(0, 8, 0, 10, 0))
	if low.Status != StatusUnscheduled {
		t.Fatalf("low priority task status = %s, want unscheduled", low.Status)
	}
	if len(res.Unscheduled) != 1 || res.Unscheduled[0] != low {
		t.Fatalf("unscheduled = %v, want [Low]", res.Unscheduled)
	}
}

func TestGenerateScheduleLowerPriorityMovesEarlier(t *testing.T) {
	t.Parallel()
	low := mustTask(t, 1, "Low", at(0, 12, 0), 60, PriorityLow)
	high := mustTask(t, 2, "High", at(0, 12, 0), 60, PriorityHigh)

	res, err := newScheduler(t, nil).GenerateSchedule([]*Task{low, high}, weekHorizon())
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	assertPlaced(t, high, span(0, 11, 0, 12, 0))
	assertPlaced(t, low, span(0, 10, 0, 11, 0))
	assertScheduleInvariants(t, res, NewFixedCalendar())
}

func TestGenerateScheduleSpillsToPreviousDay(t *testing.T) {
	t.Parallel()
	var tasks []*Task
	for i := 0; i < 3; i++ {
		tasks = append(tasks, mustTask(t, uint(i+1), fmt.Sprintf("Block %d", i+1), at(0, 22, 0), 360, PriorityHigh))
	}

	res, err := newScheduler(t, nil).GenerateSchedule(tasks, weekHorizon())
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	assertPlaced(t, tasks[0], span(0, 16, 0, 22, 0))
	assertPlaced(t, tasks[1], span(0, 10, 0, 16, 0))
	assertPlaced(t, tasks[2], span(-1, 16, 0, 22, 0))
	assertScheduleInvariants(t, res, NewFixedCalendar())
}

func TestGenerateScheduleDeadlineOutsideWindow(t *testing.T) {
	t.Parallel()
	early := mustTask(t, 1, "Early", at(1, 7, 0), 60, PriorityHigh)
	late := mustTask(t, 2, "Late", at(1, 23, 30), 60, PriorityMedium)

	res, err := newScheduler(t, nil).GenerateSchedule([]*Task{early, late}, weekHorizon())
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	assertPlaced(t, early, span(0, 21, 0, 22, 0))
	assertPlaced(t, late, span(1, 21, 0, 22, 0))
	assertScheduleInvariants(t, res, NewFixedCalendar())
}

func TestGenerateScheduleOversizedTaskIsNeverFragmented(t *testing.T) {
	t.Parallel()
	huge := mustTask(t, 1, "Marathon", at(2, 22, 0), 15*60, PriorityHigh)
	small := mustTask(t, 2, "Small", at(2, 22, 0), 30, PriorityLow)

	res, err := newScheduler(t, nil).GenerateSchedule([]*Task{huge, small}, weekHorizon())
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	if huge.Status != StatusUnscheduled || !errors.Is(res.Reason(huge), ErrSchedulingExhausted) {
		t.Fatalf("huge task: status %s reason %v", huge.Status, res.Reason(huge))
	}
	assertPlaced(t, small, span(2, 21, 30, 22, 0))
}

func TestGenerateScheduleDayStepBound(t *testing.T) {
	t.Parallel()
	everyDay := []time.Weekday{time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday}
	cal := NewFixedCalendar(mustEvent(t, "Always busy", everyDay, "08:00", "22:00"))
	task := mustTask(t, 1, "No room", at(0, 22, 0), 60, PriorityHigh)

	res, err := newScheduler(t, cal, WithMaxDaySteps(3)).GenerateSchedule([]*Task{task}, Horizon{Start: at(-60, 0, 0), End: at(1, 0, 0)})
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	if !errors.Is(res.Reason(task), ErrSchedulingExhausted) {
		t.Fatalf("reason = %v, want ErrSchedulingExhausted", res.Reason(task))
	}
}

func TestGenerateSchedulePastDeadline(t *testing.T) {
	t.Parallel()
	past := mustTask(t, 1, "Past", at(0, 9, 0), 30, PriorityHigh)
	future := mustTask(t, 2, "Future", at(1, 12, 0), 30, PriorityLow)

	res, err := newScheduler(t, nil).GenerateSchedule([]*Task{past, future}, Horizon{Start: at(0, 10, 0), End: at(7, 0, 0)})
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	if !errors.Is(res.Reason(past), ErrDeadlinePassed) {
		t.Fatalf("reason = %v, want ErrDeadlinePassed", res.Reason(past))
	}
	assertPlaced(t, future, span(1, 11, 30, 12, 0))
}

func TestGenerateScheduleClampsToHorizonEnd(t *testing.T) {
	t.Parallel()
	task := mustTask(t, 1, "Far away", at(10, 12, 0), 60, PriorityHigh)

	_, err := newScheduler(t, nil).GenerateSchedule([]*Task{task}, Horizon{Start: at(0, 8, 0), End: at(2, 15, 0)})
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	assertPlaced(t, task, span(2, 14, 0, 15, 0))
}

func TestGenerateScheduleSkipsTerminalTasks(t *testing.T) {
	t.Parallel()
	done := mustTask(t, 1, "Done", at(0, 12, 0), 60, PriorityHigh)
	done.MarkComplete()
	dropped := mustTask(t, 2, "Dropped", at(0, 12, 0), 60, PriorityHigh)
	dropped.MarkCancelled()
	open := mustTask(t, 3, "Open", at(0, 12, 0), 60, PriorityLow)

	res, err := newScheduler(t, nil).GenerateSchedule([]*Task{done, dropped, open}, weekHorizon())
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	if len(res.Scheduled) != 1 || len(res.Unscheduled) != 0 {
		t.Fatalf("scheduled=%d unscheduled=%d, want 1/0", len(res.Scheduled), len(res.Unscheduled))
	}
	assertPlaced(t, open, span(0, 11, 0, 12, 0))
	if done.Status != StatusCompleted || dropped.Status != StatusCancelled {
		t.Fatalf("terminal statuses changed: %s %s", done.Status, dropped.Status)
	}
}

func TestGenerateScheduleEmpty(t *testing.T) {
	t.Parallel()
	res, err := newScheduler(t, nil).GenerateSchedule(nil, weekHorizon())
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	if len(res.Scheduled) != 0 || len(res.Unscheduled) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
}

func TestGenerateScheduleConfigurationErrors(t *testing.T) {
	t.Parallel()
	if _, err := GenerateSchedule(nil, nil, WorkWindow{StartHour: 22, EndHour: 8}, at(0, 0, 0), at(1, 0, 0)); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("err = %v, want ErrInvalidWindow", err)
	}
	task := mustTask(t, 1, "Any", at(0, 12, 0), 60, PriorityHigh)
	if _, err := GenerateSchedule([]*Task{task}, nil, window, at(1, 0, 0), at(0, 0, 0)); !errors.Is(err, ErrEmptyHorizon) {
		t.Fatalf("err = %v, want ErrEmptyHorizon", err)
	}
	if task.Status != StatusPending {
		t.Fatalf("fatal error must not touch tasks, status %s", task.Status)
	}
}

func TestGenerateScheduleDeterministic(t *testing.T) {
	t.Parallel()
	cal := NewFixedCalendar(
		mustEvent(t, "CS101", []time.Weekday{time.Monday, time.Wednesday}, "09:00", "10:30"),
		mustEvent(t, "MATH285", []time.Weekday{time.Monday, time.Wednesday}, "11:00", "12:30"),
		mustEvent(t, "Work Shift", []time.Weekday{time.Tuesday, time.Thursday}, "13:00", "17:00"),
	)
	build := func() []*Task {
		return []*Task{
			mustTask(t, 1, "High Priority Assignment", at(1, 23, 59), 120, PriorityHigh),
			mustTask(t, 2, "Medium Priority Reading", at(0, 20, 0), 60, PriorityMedium),
			mustTask(t, 3, "Low Priority Review", at(0, 17, 0), 30, PriorityLow),
			mustTask(t, 4, "Urgent Project", at(-1, 16, 0), 90, PriorityHigh),
			mustTask(t, 5, "Same key A", at(1, 12, 0), 60, PriorityMedium),
			mustTask(t, 6, "Same key B", at(1, 12, 0), 60, PriorityMedium),
		}
	}

	first, second := build(), build()
	s := newScheduler(t, cal)
	resA, err := s.GenerateSchedule(first, weekHorizon())
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	resB, err := s.GenerateSchedule(second, weekHorizon())
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	assertScheduleInvariants(t, resA, cal)

	if len(resA.Scheduled) != len(resB.Scheduled) || len(resA.Unscheduled) != len(resB.Unscheduled) {
		t.Fatalf("runs differ in size")
	}
	for i := range resA.Scheduled {
		a, b := resA.Scheduled[i], resB.Scheduled[i]
		if a.ID != b.ID || !sameInterval(*a.Interval, *b.Interval) {
			t.Fatalf("position %d differs: %s vs %s", i, a, b)
		}
	}

	treeRes, err := newScheduler(t, cal, WithTreeOrdering()).GenerateSchedule(build(), weekHorizon())
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	for i := range resA.Scheduled {
		a, b := resA.Scheduled[i], treeRes.Scheduled[i]
		if a.ID != b.ID || !sameInterval(*a.Interval, *b.Interval) {
			t.Fatalf("tree ordering differs at %d: %s vs %s", i, a, b)
		}
	}
}

func TestGenerateScheduleResolvesExtension(t *testing.T) {
	t.Parallel()
	first := mustTask(t, 1, "First", at(0, 12, 0), 60, PriorityHigh)
	second := mustTask(t, 2, "Second", at(0, 12, 0), 60, PriorityMedium)
	tasks := []*Task{first, second}
	s := newScheduler(t, nil)

	if _, err := s.GenerateSchedule(tasks, weekHorizon()); err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	assertPlaced(t, first, span(0, 11, 0, 12, 0))
	assertPlaced(t, second, span(0, 10, 0, 11, 0))

	if err := second.ExtendDuration(time.Hour); err != nil {
		t.Fatalf("ExtendDuration: %v", err)
	}
	if !Overlaps(*first.Interval, *second.Interval) {
		t.Fatalf("extension should leave an overlap until the next run")
	}

	res, err := s.GenerateSchedule(tasks, weekHorizon())
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	assertPlaced(t, first, span(0, 11, 0, 12, 0))
	assertPlaced(t, second, span(0, 9, 0, 11, 0))
	assertScheduleInvariants(t, res, NewFixedCalendar())
}

func TestGenerateScheduleManyTasksInvariants(t *testing.T) {
	t.Parallel()
	cal := NewFixedCalendar(
		mustEvent(t, "Lecture", []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}, "10:00", "12:00"),
		mustEvent(t, "Shift", []time.Weekday{time.Saturday}, "14:00", "20:00"),
	)
	var tasks []*Task
	for i := 0; i < 40; i++ {
		p := Priority(i%3 + 1)
		deadline := at(i%6, 9+(i*7)%13, (i*15)%60)
		tasks = append(tasks, mustTask(t, uint(i+1), fmt.Sprintf("task-%d", i+1), deadline, 30+(i*25)%200, p))
	}

	res, err := newScheduler(t, cal).GenerateSchedule(tasks, Horizon{Start: at(-3, 8, 0), End: at(7, 0, 0)})
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	if len(res.Scheduled)+len(res.Unscheduled) != len(tasks) {
		t.Fatalf("tasks lost: %d + %d != %d", len(res.Scheduled), len(res.Unscheduled), len(tasks))
	}
	assertScheduleInvariants(t, res, cal)
}
