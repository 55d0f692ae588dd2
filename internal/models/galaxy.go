package models

import "time"

// Galaxy is a catalog entry users can add to a request.
type Galaxy struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:255;not null;index" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	ImageKey    string    `gorm:"size:255" json:"-"`
	ImageURL    string    `gorm:"size:512" json:"image_url,omitempty"`
	IsActive    bool      `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
