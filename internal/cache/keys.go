package cache

import (
	"fmt"
	"time"
)

const (
	GuestSessionKeyPrefix = "guest_session:%s"
	SessionKeyPrefix      = "session:%s"
	ViewedKeyPrefix       = "viewed_galaxies:%s"
	RateLimitKeyPrefix    = "ratelimit:%s:%s"
)

const (
	DefaultSessionTTL      = 7 * 24 * time.Hour
	DefaultGuestSessionTTL = 20 * time.Minute
)

func GuestSessionKey(token string) string {
	return fmt.Sprintf(GuestSessionKeyPrefix, token)
}

func SessionKey(token string) string {
	return fmt.Sprintf(SessionKeyPrefix, token)
}

// ViewedKey is the sorted set of galaxies viewed under a guest token.
func ViewedKey(guestToken string) string {
	return fmt.Sprintf(ViewedKeyPrefix, guestToken)
}

func RateLimitKey(resource, identifier string) string {
	return fmt.Sprintf(RateLimitKeyPrefix, resource, identifier)
}
