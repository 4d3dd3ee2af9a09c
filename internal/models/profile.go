package models

import (
	"strings"
	"time"
)

// DefaultDisplayName is used when the email has no usable local part.
const DefaultDisplayName = "Usuario"

// Profile holds the public details of a user. It is created on first access.
type Profile struct {
	UserID      uint      `gorm:"primaryKey" json:"user_id"`
	DisplayName string    `gorm:"size:100;not null" json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	Country     string    `gorm:"size:100" json:"country,omitempty"`
	Province    string    `gorm:"size:100" json:"province,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DisplayNameFromEmail returns the local part of email, or DefaultDisplayName.
func DisplayNameFromEmail(email string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	if local == "" {
		return DefaultDisplayName
	}
	return local
}
