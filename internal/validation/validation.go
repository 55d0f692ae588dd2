// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.@+-]+$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	digitPattern    = regexp.MustCompile(`[0-9]`)
)

// Field limits shared with the schema.
const (
	MaxUsernameLen    = 150
	MaxNameLen        = 150
	MaxGalaxyNameLen  = 255
	MaxTelescopeLen   = 255
	MinPasswordLen    = 8
	MaxPasswordLen    = 128
	MaxDescriptionLen = 5000
)

// ValidatePassword checks if a password meets security requirements
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLen {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLen)
	}
	if len(password) > MaxPasswordLen {
		return fmt.Errorf("password must not exceed %d characters", MaxPasswordLen)
	}

	var hasUpper, hasLower bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		}
	}
	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !digitPattern.MatchString(password) {
		return fmt.Errorf("password must contain at least one digit")
	}
	return nil
}

// ValidateUsername checks if a username meets requirements
func ValidateUsername(username string) error {
	if len(username) < 3 {
		return fmt.Errorf("username must be at least 3 characters long")
	}
	if len(username) > MaxUsernameLen {
		return fmt.Errorf("username must not exceed %d characters", MaxUsernameLen)
	}
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("username can only contain letters, digits and @.+-_")
	}
	return nil
}

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if len(email) > 254 {
		return fmt.Errorf("email must not exceed 254 characters")
	}
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidatePersonName checks an optional first or last name.
func ValidatePersonName(field, name string) error {
	if utf8.RuneCountInString(name) > MaxNameLen {
		return fmt.Errorf("%s must not exceed %d characters", field, MaxNameLen)
	}
	return nil
}

// ValidateGalaxyName checks a catalog entry name.
func ValidateGalaxyName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if utf8.RuneCountInString(name) > MaxGalaxyNameLen {
		return fmt.Errorf("name must not exceed %d characters", MaxGalaxyNameLen)
	}
	return nil
}

// ValidateDescription checks a catalog entry description.
func ValidateDescription(description string) error {
	if utf8.RuneCountInString(description) > MaxDescriptionLen {
		return fmt.Errorf("description must not exceed %d characters", MaxDescriptionLen)
	}
	return nil
}

// ValidateTelescope checks the telescope of a draft request.
func ValidateTelescope(telescope string) error {
	telescope = strings.TrimSpace(telescope)
	if telescope == "" {
		return fmt.Errorf("telescope must not be empty")
	}
	if utf8.RuneCountInString(telescope) > MaxTelescopeLen {
		return fmt.Errorf("telescope must not exceed %d characters", MaxTelescopeLen)
	}
	return nil
}

// ValidateMagnitude checks an apparent magnitude value.
func ValidateMagnitude(m float64) error {
	if m != m || m < -30 || m > 40 {
		return fmt.Errorf("magnitude must be between -30 and 40")
	}
	return nil
}
