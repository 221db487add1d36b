package planner

import "errors"

var (
	// ErrInvalidDuration is returned when a task duration would not be strictly positive.
	ErrInvalidDuration = errors.New("duration must be positive")
	// ErrEmptyName is returned for tasks without a display name.
	ErrEmptyName = errors.New("task name is required")

	// ErrInvalidWindow means the work window does not satisfy 0 <= start < end <= 23.
	ErrInvalidWindow = errors.New("invalid work window")
	// ErrEmptyHorizon means the horizon start is not before its end.
	ErrEmptyHorizon = errors.New("empty scheduling horizon")

	ErrNoWeekdays       = errors.New("fixed event needs at least one weekday")
	ErrInvalidEventTime = errors.New("fixed event start must be before end")

	// Per-task placement failures. They never abort a run; the task is
	// reported as unscheduled with one of these as its reason.
	ErrSchedulingExhausted = errors.New("day search limit reached")
	ErrDeadlinePassed      = errors.New("deadline is before the horizon start")
	ErrBeforeHorizon       = errors.New("no slot left inside the horizon")
)
