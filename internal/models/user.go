package models

import (
	"time"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:31;uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"` // bcrypt
	CreatedAt    time.Time `json:"createdAt"`
	// No UpdatedAt: users are immutable once created
}
