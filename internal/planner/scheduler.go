// Package planner places deadline-bound tasks into a daily work window.
//
// Placement is greedy and works backward from each deadline: tasks are taken
// in (priority, deadline) order, each one is put as late as possible before
// its deadline, and later tasks avoid fixed events and the slots already
// taken. A task never spans two days; if the block does not fit in a day's
// window it moves whole to the previous day.
package planner

import (
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// DefaultMaxDaySteps bounds how many days a single task may be carried back.
const DefaultMaxDaySteps = 1000

// ScheduleResult is the outcome of one scheduling run.
type ScheduleResult struct {
	// Scheduled tasks ordered by start time.
	Scheduled []*Task
	// Unscheduled tasks in placement order.
	Unscheduled []*Task
	// Reasons holds the placement error of every unscheduled task.
	Reasons map[*Task]error
}

// Reason returns why task could not be placed, or nil.
func (r *ScheduleResult) Reason(task *Task) error {
	if r == nil || r.Reasons == nil {
		return nil
	}
	return r.Reasons[task]
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithMaxDaySteps bounds how many days a task may be carried back. Non-positive values keep the default.
func WithMaxDaySteps(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.maxDaySteps = n
		}
	}
}

// WithLogger sets the logger used for per-task placement traces.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Scheduler) {
		s.log = logger
	}
}

// WithTreeOrdering enumerates tasks through an OrderTree instead of sorting.
func WithTreeOrdering() Option {
	return func(s *Scheduler) {
		s.useTree = true
	}
}

// Scheduler holds the calendar and window shared by scheduling runs.
// It keeps no state between runs and is not safe for concurrent use on
// overlapping task sets.
type Scheduler struct {
	calendar    *FixedCalendar
	window      WorkWindow
	maxDaySteps int
	useTree     bool
	log         zerolog.Logger
}

// NewScheduler validates window and returns a scheduler over calendar. A nil calendar is empty.
func NewScheduler(calendar *FixedCalendar, window WorkWindow, opts ...Option) (*Scheduler, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	if calendar == nil {
		calendar = NewFixedCalendar()
	}
	s := &Scheduler{
		calendar:    calendar,
		window:      window,
		maxDaySteps: DefaultMaxDaySteps,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// GenerateSchedule builds a scheduler for a single run.
func GenerateSchedule(tasks []*Task, calendar *FixedCalendar, window WorkWindow, horizonStart, horizonEnd time.Time) (*ScheduleResult, error) {
	s, err := NewScheduler(calendar, window)
	if err != nil {
		return nil, err
	}
	return s.GenerateSchedule(tasks, Horizon{Start: horizonStart, End: horizonEnd})
}

// OrderTasks returns the non-terminal tasks sorted by priority then deadline.
// Ties keep their input order.
func OrderTasks(tasks []*Task) []*Task {
	out := activeTasks(tasks)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func activeTasks(tasks []*Task) []*Task {
	out := make([]*Task, 0, len(tasks))
	for _, t := range tasks {
		if t == nil || t.Status.Terminal() {
			continue
		}
		out = append(out, t)
	}
	return out
}

// GenerateSchedule places every non-terminal task and writes the outcome back
// into the tasks. Previous placements are discarded first. Only invalid
// horizons fail the run; a task that cannot be placed ends up in Unscheduled.
func (s *Scheduler) GenerateSchedule(tasks []*Task, horizon Horizon) (*ScheduleResult, error) {
	if err := horizon.Validate(); err != nil {
		return nil, err
	}

	var ordered []*Task
	if s.useTree {
		ordered = NewOrderTree(activeTasks(tasks)...).Tasks()
	} else {
		ordered = OrderTasks(tasks)
	}

	result := &ScheduleResult{Reasons: make(map[*Task]error)}
	placed := make([]Interval, 0, len(ordered))

	for _, task := range ordered {
		task.Reset()
	}

	for _, task := range ordered {
		start, err := s.place(task, placed, horizon)
		if err != nil {
			task.markUnscheduled()
			result.Unscheduled = append(result.Unscheduled, task)
			result.Reasons[task] = err
			s.log.Warn().
				Uint("task", task.ID).
				Str("name", task.Name).
				Time("deadline", task.Deadline).
				Err(err).
				Msg("task left unscheduled")
			continue
		}
		task.Assign(start)
		placed = append(placed, *task.Interval)
		result.Scheduled = append(result.Scheduled, task)
		s.log.Debug().
			Uint("task", task.ID).
			Str("name", task.Name).
			Stringer("interval", task.Interval).
			Msg("task placed")
	}

	sort.SliceStable(result.Scheduled, func(i, j int) bool {
		return result.Scheduled[i].Interval.Start.Before(result.Scheduled[j].Interval.Start)
	})

	s.log.Info().
		Int("scheduled", len(result.Scheduled)).
		Int("unscheduled", len(result.Unscheduled)).
		Msg("schedule generated")
	return result, nil
}

// place finds the latest conflict-free start for task. Every retry either
// moves end strictly earlier within a day or consumes one day step, so the
// loop terminates.
func (s *Scheduler) place(task *Task, placed []Interval, horizon Horizon) (time.Time, error) {
	if !task.Deadline.After(horizon.Start) {
		return time.Time{}, ErrDeadlinePassed
	}
	// No day can hold the block; the day search would only run out its bound.
	if task.Duration > s.window.Span() {
		return time.Time{}, ErrSchedulingExhausted
	}

	end := task.Deadline
	if horizon.End.Before(end) {
		end = horizon.End
	}
	if closing := s.window.EndOn(end); closing.Before(end) {
		end = closing
	}

	steps := 0
	for {
		start := end.Add(-task.Duration)

		if start.Before(s.window.StartOn(end)) {
			steps++
			if steps > s.maxDaySteps {
				return time.Time{}, ErrSchedulingExhausted
			}
			end = s.window.EndOn(prevDay(end))
			continue
		}

		if start.Before(horizon.Start) {
			return time.Time{}, ErrBeforeHorizon
		}

		candidate := Interval{Start: start, End: end}

		if conflicts := s.calendar.Conflicts(candidate); len(conflicts) > 0 {
			end = conflicts[0].Start
			continue
		}

		if earliest, ok := earliestOverlap(candidate, placed); ok {
			end = earliest
			continue
		}

		return start, nil
	}
}

// earliestOverlap returns the smallest start among placed intervals that
// overlap candidate.
func earliestOverlap(candidate Interval, placed []Interval) (time.Time, bool) {
	var (
		earliest time.Time
		found    bool
	)
	for _, iv := range placed {
		if !iv.Overlaps(candidate) {
			continue
		}
		if !found || iv.Start.Before(earliest) {
			earliest = iv.Start
			found = true
		}
	}
	return earliest, found
}
