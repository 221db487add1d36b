package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v3"

	"deadline-planner/internal/planner"
)

// PlanFile is the YAML document read by "planctl simulate".
//
//	timezone: Europe/Moscow
//	window: {start_hour: 8, end_hour: 22}
//	horizon: {start: "2025-10-27 08:00", end: "2025-11-03 00:00"}
//	events:
//	  - {name: CS101, category: Class, days: [mon, wed], start: "09:00", end: "10:30"}
//	tasks:
//	  - {id: 1, name: Report, deadline: "2025-10-28 18:00", duration: 3h, priority: high}
type PlanFile struct {
	Timezone    string             `yaml:"timezone"`
	Window      planner.WorkWindow `yaml:"window"`
	Horizon     HorizonSpec        `yaml:"horizon"`
	MaxDaySteps int                `yaml:"max_day_steps"`
	Events      []EventSpec        `yaml:"events"`
	Tasks       []TaskSpec         `yaml:"tasks"`
}

type HorizonSpec struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

type EventSpec struct {
	Name     string   `yaml:"name"`
	Category string   `yaml:"category"`
	Days     []string `yaml:"days"`
	Start    string   `yaml:"start"`
	End      string   `yaml:"end"`
}

type TaskSpec struct {
	ID       uint   `yaml:"id"`
	Name     string `yaml:"name"`
	Deadline string `yaml:"deadline"`
	Duration string `yaml:"duration"`
	Priority string `yaml:"priority"`
	Category string `yaml:"category"`
	Status   string `yaml:"status"`
}

// Scenario is a plan file resolved into planner values.
type Scenario struct {
	Window      planner.WorkWindow
	Horizon     planner.Horizon
	MaxDaySteps int
	Calendar    *planner.FixedCalendar
	Tasks       []*planner.Task
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// LoadPlanFile reads and resolves a plan file.
func LoadPlanFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan file: %w", err)
	}
	var pf PlanFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse plan file %s: %w", path, err)
	}
	return pf.Resolve()
}

// Resolve validates the file and converts it into planner values.
func (pf PlanFile) Resolve() (*Scenario, error) {
	loc := time.UTC
	if pf.Timezone != "" {
		l, err := time.LoadLocation(pf.Timezone)
		if err != nil {
			return nil, fmt.Errorf("timezone: %w", err)
		}
		loc = l
	}

	if err := pf.Window.Validate(); err != nil {
		return nil, err
	}
	start, err := parseTime(pf.Horizon.Start, loc)
	if err != nil {
		return nil, fmt.Errorf("horizon start: %w", err)
	}
	end, err := parseTime(pf.Horizon.End, loc)
	if err != nil {
		return nil, fmt.Errorf("horizon end: %w", err)
	}
	sc := &Scenario{
		Window:      pf.Window,
		Horizon:     planner.Horizon{Start: start, End: end},
		MaxDaySteps: pf.MaxDaySteps,
		Calendar:    planner.NewFixedCalendar(),
	}
	if err := sc.Horizon.Validate(); err != nil {
		return nil, err
	}
	if sc.MaxDaySteps <= 0 {
		sc.MaxDaySteps = planner.DefaultMaxDaySteps
	}

	for i, spec := range pf.Events {
		event, err := spec.resolve()
		if err != nil {
			return nil, fmt.Errorf("event %d (%s): %w", i+1, spec.Name, err)
		}
		sc.Calendar.Add(event)
	}

	seen := make(map[uint]bool, len(pf.Tasks))
	for i, spec := range pf.Tasks {
		if spec.ID == 0 {
			spec.ID = uint(i + 1)
		}
		if seen[spec.ID] {
			return nil, fmt.Errorf("task %d: duplicate id", spec.ID)
		}
		seen[spec.ID] = true
		task, err := spec.resolve(loc)
		if err != nil {
			return nil, fmt.Errorf("task %d (%s): %w", spec.ID, spec.Name, err)
		}
		sc.Tasks = append(sc.Tasks, task)
	}
	return sc, nil
}

func (spec EventSpec) resolve() (planner.FixedEvent, error) {
	days := make([]time.Weekday, 0, len(spec.Days))
	for _, raw := range spec.Days {
		day, err := parseWeekday(raw)
		if err != nil {
			return planner.FixedEvent{}, err
		}
		days = append(days, day)
	}
	start, err := planner.ParseTimeOfDay(spec.Start)
	if err != nil {
		return planner.FixedEvent{}, err
	}
	end, err := planner.ParseTimeOfDay(spec.End)
	if err != nil {
		return planner.FixedEvent{}, err
	}
	return planner.NewFixedEvent(spec.Name, spec.Category, days, start, end)
}

func (spec TaskSpec) resolve(loc *time.Location) (*planner.Task, error) {
	deadline, err := parseTime(spec.Deadline, loc)
	if err != nil {
		return nil, fmt.Errorf("deadline: %w", err)
	}
	duration, err := time.ParseDuration(strings.TrimSpace(spec.Duration))
	if err != nil {
		return nil, fmt.Errorf("duration: %w", err)
	}
	priority := planner.PriorityMedium
	if spec.Priority != "" {
		if priority, err = planner.ParsePriority(spec.Priority); err != nil {
			return nil, err
		}
	}
	task, err := planner.NewTask(spec.ID, spec.Name, deadline, duration, priority, spec.Category)
	if err != nil {
		return nil, err
	}
	status, err := planner.ParseStatus(spec.Status)
	if err != nil {
		return nil, err
	}
	task.Status = status
	return task, nil
}

func parseTime(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", raw)
}

// parseWeekday accepts English day names, their three-letter forms, and the
// numbers 0 (Sunday) to 6.
func parseWeekday(raw string) (time.Weekday, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if n, err := strconv.Atoi(value); err == nil && n >= 0 && n <= 6 {
		return time.Weekday(n), nil
	}
	if len(value) >= 3 {
		for d := time.Sunday; d <= time.Saturday; d++ {
			if strings.HasPrefix(strings.ToLower(d.String()), value) {
				return d, nil
			}
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", raw)
}
