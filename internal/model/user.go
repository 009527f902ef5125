package model

import (
	"strings"
	"time"
)

// User is an authenticated identity. Telegram users may have no email.
type User struct {
	ID          string `gorm:"primaryKey;size:36"`
	Email       string `gorm:"index"`
	TelegramID  *int64 `gorm:"uniqueIndex"`
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Identity is what a session reports about the signed-in user.
type Identity struct {
	UserID      string
	Email       string
	DisplayName string
}

func (u User) Identity() Identity {
	return Identity{UserID: u.ID, Email: u.Email, DisplayName: u.DisplayName}
}

// Name returns the display name, falling back to the local part of the email.
func (id Identity) Name() string {
	if name := strings.TrimSpace(id.DisplayName); name != "" {
		return name
	}
	if at := strings.Index(id.Email, "@"); at > 0 {
		return id.Email[:at]
	}
	return id.Email
}
