package models

import (
	"time"
)

// Role is the closed set of account kinds.
type Role string

const (
	// RoleRegular is an ordinary catalog user who assembles and submits requests.
	RoleRegular Role = "regular"
	// RoleModerator finalizes submitted requests and curates the catalog.
	RoleModerator Role = "moderator"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleRegular, RoleModerator:
		return true
	}
	return false
}

// User represents an account in the system
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"size:254" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	FirstName string    `gorm:"size:150" json:"first_name"`
	LastName  string    `gorm:"size:150" json:"last_name"`
	Role      Role      `gorm:"type:varchar(20);not null;default:'regular'" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsModerator reports whether the user holds the moderator role.
func (u *User) IsModerator() bool {
	return u != nil && u.Role == RoleModerator
}
