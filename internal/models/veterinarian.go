package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Veterinarian is an entry in the clinic directory.
type Veterinarian struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Name        string     `gorm:"size:200;not null" json:"name"`
	Description string     `gorm:"type:text" json:"description,omitempty"`
	Address     string     `json:"address,omitempty"`
	Province    string     `gorm:"size:100;index" json:"province,omitempty"`
	Country     string     `gorm:"size:100" json:"country,omitempty"`
	LocationLat *float64   `json:"location_lat,omitempty"`
	LocationLng *float64   `json:"location_lng,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	WhatsApp    string     `gorm:"column:whatsapp" json:"whatsapp,omitempty"`
	Email       string     `json:"email,omitempty"`
	Website     string     `json:"website,omitempty"`
	Services    StringList `json:"services"`
	Images      StringList `json:"images"`
	Status      Status     `gorm:"size:16;not null;default:active;index" json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (v *Veterinarian) BeforeCreate(_ *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.Status == "" {
		v.Status = StatusActive
	}
	return nil
}
