package planner

import (
	"fmt"
	"strings"
	"time"
)

// Priority orders tasks for placement. Lower values are placed first.
type Priority int

const (
	PriorityHigh Priority = iota + 1
	PriorityMedium
	PriorityLow
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

func (p Priority) Valid() bool {
	return p >= PriorityHigh && p <= PriorityLow
}

// ParsePriority accepts high, medium and low in any letter case.
func ParsePriority(raw string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high", "h", "1":
		return PriorityHigh, nil
	case "medium", "m", "2":
		return PriorityMedium, nil
	case "low", "l", "3":
		return PriorityLow, nil
	default:
		return 0, fmt.Errorf("unknown priority %q", raw)
	}
}

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending     Status = "pending"
	StatusScheduled   Status = "scheduled"
	StatusUnscheduled Status = "unscheduled"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
)

// Terminal reports whether the scheduler must skip tasks in this state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ParseStatus accepts the stored status names. Empty means pending.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusPending, StatusScheduled, StatusUnscheduled, StatusCompleted, StatusCancelled:
		return s, nil
	case "":
		return StatusPending, nil
	default:
		return "", fmt.Errorf("unknown status %q", raw)
	}
}

// Task is one unit of schedulable work.
type Task struct {
	ID       uint
	Name     string
	Deadline time.Time
	Duration time.Duration
	Priority Priority
	Category string
	Status   Status

	// Interval is set iff Status is StatusScheduled.
	Interval *Interval
}

// NewTask validates the fields and returns a pending task.
func NewTask(id uint, name string, deadline time.Time, duration time.Duration, priority Priority, category string) (*Task, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyName
	}
	if duration <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDuration, duration)
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("task %q: invalid priority %d", name, int(priority))
	}
	return &Task{
		ID:       id,
		Name:     name,
		Deadline: deadline,
		Duration: duration,
		Priority: priority,
		Category: category,
		Status:   StatusPending,
	}, nil
}

// ExtendDuration adds extra (which may be negative) to the duration.
// A placed task keeps its start and gets a new end; conflicts are not
// re-checked, so callers must run the scheduler again.
func (t *Task) ExtendDuration(extra time.Duration) error {
	next := t.Duration + extra
	if next <= 0 {
		return fmt.Errorf("%w: %s + %s", ErrInvalidDuration, t.Duration, extra)
	}
	t.Duration = next
	if t.Interval != nil {
		t.Interval.End = t.Interval.Start.Add(t.Duration)
	}
	return nil
}

// MarkComplete moves the task to the completed state. It returns false if
// the task was already terminal and nothing changed.
func (t *Task) MarkComplete() bool {
	return t.terminate(StatusCompleted)
}

// MarkCancelled moves the task to the cancelled state. It returns false if
// the task was already terminal and nothing changed.
func (t *Task) MarkCancelled() bool {
	return t.terminate(StatusCancelled)
}

func (t *Task) terminate(status Status) bool {
	if t.Status.Terminal() {
		return false
	}
	t.Status = status
	t.Interval = nil
	return true
}

func (t *Task) IsOverdue(now time.Time) bool {
	return t.Status == StatusPending && now.After(t.Deadline)
}

// Assign places the task at [start, start+duration).
func (t *Task) Assign(start time.Time) {
	t.Interval = &Interval{Start: start, End: start.Add(t.Duration)}
	t.Status = StatusScheduled
}

// Reset clears any placement of a non-terminal task.
func (t *Task) Reset() {
	if t.Status.Terminal() {
		return
	}
	t.Interval = nil
	t.Status = StatusPending
}

func (t *Task) markUnscheduled() {
	t.Interval = nil
	t.Status = StatusUnscheduled
}

func (t *Task) String() string {
	if t.Interval == nil {
		return fmt.Sprintf("%s (%s) - %s", t.Name, t.Priority, t.Status)
	}
	return fmt.Sprintf("%s (%s) - %s", t.Name, t.Priority, t.Interval)
}

// less is the placement order: priority first, then the earlier deadline.
func less(a, b *Task) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	return a.Deadline.Before(b.Deadline)
}
