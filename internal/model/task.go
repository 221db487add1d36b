package model

import "time"

// Task is the stored form of a planner task.
type Task struct {
	ID              uint   `gorm:"primaryKey"`
	UserID          uint   `gorm:"index"`
	Title           string
	Description     string
	Category        string
	Deadline        time.Time
	DurationMinutes int
	Priority        string `gorm:"default:medium"`
	Status          string `gorm:"index;default:pending"`
	ScheduledStart  *time.Time
	ScheduledEnd    *time.Time
	CompletedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Duration returns the planned effort.
func (t Task) Duration() time.Duration {
	return time.Duration(t.DurationMinutes) * time.Minute
}
