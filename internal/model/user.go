package model

import "time"

// User stores Telegram user metadata. Tasks and fixed events are owned per user.
type User struct {
	ID         uint  `gorm:"primaryKey"`
	TelegramID int64 `gorm:"uniqueIndex"`
	FirstName  string
	LastName   string
	Username   string
	LastPlanAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Tasks      []Task       `gorm:"foreignKey:UserID"`
	Events     []FixedEvent `gorm:"foreignKey:UserID"`
}
