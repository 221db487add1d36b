package model

import "time"

// FixedEvent is a weekly commitment (class, work shift) that blocks planning.
type FixedEvent struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"index"`
	Name      string `gorm:"index"`
	Category  string
	Weekdays  string // comma separated time.Weekday numbers, Sunday = 0
	StartTime string // HH:MM
	EndTime   string // HH:MM
	CreatedAt time.Time
	UpdatedAt time.Time
}
