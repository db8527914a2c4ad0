package models

import (
	"time"
)

// Session is a logged in browser. Data holds its tokens as JSON; the
// browser only ever sees the ID.
type Session struct {
	ID        string `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt time.Time `gorm:"index"`
	Data      string
}
