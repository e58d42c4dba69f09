package model

import "time"

// User owns tasks and one set of reminder settings.
type User struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	Name       string `json:"name"`
	Email      string `json:"email" gorm:"uniqueIndex;size:191"`
	TelegramID *int64 `json:"telegramId,omitempty" gorm:"uniqueIndex"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
