package planner

import (
	"fmt"
	"iter"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 {
		return TimeOfDay{}, fmt.Errorf("invalid time %q, expected HH:MM", raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return TimeOfDay{}, fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid minute in %q", raw)
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// On returns the instant of t on the calendar date of day.
func (t TimeOfDay) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, 0, 0, day.Location())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// FixedEvent is an immovable weekly commitment such as a class or a shift.
type FixedEvent struct {
	ID       uint
	Name     string
	Category string
	Weekdays []time.Weekday
	Start    TimeOfDay
	End      TimeOfDay
}

// NewFixedEvent validates the event. Repeated weekdays are collapsed, so an
// event projects to at most one interval per date.
func NewFixedEvent(name, category string, weekdays []time.Weekday, start, end TimeOfDay) (FixedEvent, error) {
	days := make([]time.Weekday, 0, len(weekdays))
	for _, wd := range weekdays {
		if wd < time.Sunday || wd > time.Saturday {
			return FixedEvent{}, fmt.Errorf("event %q: invalid weekday %d", name, int(wd))
		}
		if !slices.Contains(days, wd) {
			days = append(days, wd)
		}
	}
	if len(days) == 0 {
		return FixedEvent{}, fmt.Errorf("event %q: %w", name, ErrNoWeekdays)
	}
	if start.Minutes() >= end.Minutes() {
		return FixedEvent{}, fmt.Errorf("event %q %s-%s: %w", name, start, end, ErrInvalidEventTime)
	}
	slices.Sort(days)
	return FixedEvent{
		Name:     name,
		Category: category,
		Weekdays: days,
		Start:    start,
		End:      end,
	}, nil
}

// OccursOn reports whether the event repeats on the weekday of day.
func (e FixedEvent) OccursOn(day time.Time) bool {
	return slices.Contains(e.Weekdays, day.Weekday())
}

// On projects the event onto the date of day.
func (e FixedEvent) On(day time.Time) Interval {
	return Interval{Start: e.Start.On(day), End: e.End.On(day)}
}

// FixedCalendar is an ordered set of fixed events queried by date.
type FixedCalendar struct {
	events []FixedEvent
}

// NewFixedCalendar returns a calendar holding events.
func NewFixedCalendar(events ...FixedEvent) *FixedCalendar {
	c := &FixedCalendar{}
	c.Add(events...)
	return c
}

// Add appends events. Duplicates are kept.
func (c *FixedCalendar) Add(events ...FixedEvent) {
	c.events = append(c.events, events...)
}

// Remove drops every event with the given name and reports how many were removed.
func (c *FixedCalendar) Remove(name string) int {
	before := len(c.events)
	c.events = slices.DeleteFunc(c.events, func(e FixedEvent) bool { return e.Name == name })
	return before - len(c.events)
}

// Events returns a copy of the registered events.
func (c *FixedCalendar) Events() []FixedEvent {
	if c == nil {
		return nil
	}
	return slices.Clone(c.events)
}

// ByCategory filters events by exact category.
func (c *FixedCalendar) ByCategory(category string) []FixedEvent {
	var out []FixedEvent
	for _, e := range c.Events() {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out
}

func (c *FixedCalendar) Len() int {
	if c == nil {
		return 0
	}
	return len(c.events)
}

// EventsOn yields the occurrences on the date of day, sorted by start.
// The sequence can be ranged over any number of times.
func (c *FixedCalendar) EventsOn(day time.Time) iter.Seq[Interval] {
	return func(yield func(Interval) bool) {
		for _, iv := range c.occurrences(day) {
			if !yield(iv) {
				return
			}
		}
	}
}

func (c *FixedCalendar) occurrences(day time.Time) []Interval {
	if c == nil {
		return nil
	}
	var out []Interval
	for _, e := range c.events {
		if e.OccursOn(day) {
			out = append(out, e.On(day))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// Conflicts returns the occurrences overlapping iv on every date iv touches,
// sorted by start.
func (c *FixedCalendar) Conflicts(iv Interval) []Interval {
	if c.Len() == 0 || !iv.Valid() {
		return nil
	}
	var out []Interval
	last := DateOf(iv.End.Add(-time.Nanosecond))
	for day := DateOf(iv.Start); !day.After(last); day = nextDay(day) {
		for occ := range c.EventsOn(day) {
			if occ.Overlaps(iv) {
				out = append(out, occ)
			}
		}
	}
	return out
}

// IsSlotAvailable reports whether no event overlaps [iv.Start, iv.End),
// including intervals that cross midnight.
func (c *FixedCalendar) IsSlotAvailable(iv Interval) bool {
	return len(c.Conflicts(iv)) == 0
}
