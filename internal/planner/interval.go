package planner

import (
	"fmt"
	"time"
)

// Interval is a half-open span of time [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether a and b share any instant. Touching intervals do not overlap.
func Overlaps(a, b Interval) bool {
	return a.End.After(b.Start) && b.End.After(a.Start)
}

// Overlaps reports whether iv and other share any instant.
func (iv Interval) Overlaps(other Interval) bool {
	return Overlaps(iv, other)
}

// Duration returns End - Start.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Valid reports whether the interval is non-empty.
func (iv Interval) Valid() bool {
	return iv.Start.Before(iv.End)
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%s, %s)", iv.Start.Format("2006-01-02 15:04"), iv.End.Format("2006-01-02 15:04"))
}

// WorkWindow is the daily span, in whole hours, in which tasks may be placed.
// It applies to every calendar day.
type WorkWindow struct {
	StartHour int `yaml:"start_hour"`
	EndHour   int `yaml:"end_hour"`
}

// Validate requires 0 <= StartHour < EndHour <= 23.
func (w WorkWindow) Validate() error {
	if w.StartHour < 0 || w.EndHour > 23 || w.StartHour >= w.EndHour {
		return fmt.Errorf("%w: %02d:00-%02d:00", ErrInvalidWindow, w.StartHour, w.EndHour)
	}
	return nil
}

// StartOn returns the window opening on the calendar date of day.
func (w WorkWindow) StartOn(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, w.StartHour, 0, 0, 0, day.Location())
}

// EndOn returns the window closing on the calendar date of day.
func (w WorkWindow) EndOn(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, w.EndHour, 0, 0, 0, day.Location())
}

// Span is the length of one day's window.
func (w WorkWindow) Span() time.Duration {
	return time.Duration(w.EndHour-w.StartHour) * time.Hour
}

// Fits reports whether iv lies inside the window of the given date.
// An interval may end exactly when the window closes.
func (w WorkWindow) Fits(iv Interval, day time.Time) bool {
	return !iv.Start.Before(w.StartOn(day)) && !iv.End.After(w.EndOn(day))
}

// Horizon bounds the days a scheduling run may use.
type Horizon struct {
	Start time.Time
	End   time.Time
}

// Validate rejects horizons whose start is not before their end.
func (h Horizon) Validate() error {
	if !h.Start.Before(h.End) {
		return fmt.Errorf("%w: %s >= %s", ErrEmptyHorizon, h.Start.Format(time.RFC3339), h.End.Format(time.RFC3339))
	}
	return nil
}

// DateOf truncates t to midnight of its calendar date in t's location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func prevDay(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d-1, 0, 0, 0, 0, day.Location())
}

func nextDay(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, day.Location())
}
