// Package session keeps guest and authenticated sessions in Redis.
//
// Both flavors are opaque tokens with a sliding TTL. A guest token maps to its
// creation time, an authenticated token to a user id. The key namespaces are
// disjoint and a newly minted token never collides with a live key of either
// flavor.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"galaxydistance/internal/cache"
	"galaxydistance/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const maxMintAttempts = 3

// ErrTokenCollision is returned when no unused token could be minted.
var ErrTokenCollision = errors.New("could not mint an unused session token")

// Store manages session keys.
type Store struct {
	rdb        redis.Cmdable
	sessionTTL time.Duration
	guestTTL   time.Duration
	newToken   func() string
	now        func() time.Time
}

// NewStore returns a Store using the given windows. Non-positive windows fall back to the defaults.
func NewStore(rdb redis.Cmdable, sessionTTL, guestTTL time.Duration) *Store {
	if sessionTTL <= 0 {
		sessionTTL = cache.DefaultSessionTTL
	}
	if guestTTL <= 0 {
		guestTTL = cache.DefaultGuestSessionTTL
	}
	return &Store{
		rdb:        rdb,
		sessionTTL: sessionTTL,
		guestTTL:   guestTTL,
		newToken:   uuid.NewString,
		now:        time.Now,
	}
}

// SessionTTL is the authenticated sliding window.
func (s *Store) SessionTTL() time.Duration { return s.sessionTTL }

// GuestTTL is the guest sliding window.
func (s *Store) GuestTTL() time.Duration { return s.guestTTL }

// Resolve returns the user bound to token and slides its expiry forward.
// Unknown, expired or empty tokens resolve to ok=false without error.
func (s *Store) Resolve(ctx context.Context, token string) (uint, bool, error) {
	if token == "" {
		return 0, false, nil
	}

	val, err := s.rdb.GetEx(ctx, cache.SessionKey(token), s.sessionTTL).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, models.NewDependencyError("session store", err)
	}

	userID, err := strconv.ParseUint(val, 10, 64)
	if err != nil || userID == 0 {
		return 0, false, nil
	}
	return uint(userID), true, nil
}

// Create mints a new authenticated session for userID.
func (s *Store) Create(ctx context.Context, userID uint) (string, error) {
	return s.mint(ctx, cache.SessionKey, cache.GuestSessionKey, strconv.FormatUint(uint64(userID), 10), s.sessionTTL)
}

// Revoke removes an authenticated session. Unknown tokens are not an error.
func (s *Store) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.rdb.Del(ctx, cache.SessionKey(token)).Err(); err != nil {
		return models.NewDependencyError("session store", err)
	}
	return nil
}

// TouchGuest refreshes a live guest token, or mints a new one when token is
// empty, unknown or expired. minted reports whether the returned token is new.
func (s *Store) TouchGuest(ctx context.Context, token string) (string, bool, error) {
	if token != "" {
		live, err := s.rdb.Expire(ctx, cache.GuestSessionKey(token), s.guestTTL).Result()
		if err != nil {
			return "", false, models.NewDependencyError("session store", err)
		}
		if live {
			return token, false, nil
		}
	}

	created := strconv.FormatInt(s.now().Unix(), 10)
	minted, err := s.mint(ctx, cache.GuestSessionKey, cache.SessionKey, created, s.guestTTL)
	if err != nil {
		return "", false, err
	}
	return minted, true, nil
}

func (s *Store) mint(ctx context.Context, key, otherKey func(string) string, value string, ttl time.Duration) (string, error) {
	for attempt := 0; attempt < maxMintAttempts; attempt++ {
		token := s.newToken()

		taken, err := s.rdb.Exists(ctx, otherKey(token)).Result()
		if err != nil {
			return "", models.NewDependencyError("session store", err)
		}
		if taken > 0 {
			continue
		}

		ok, err := s.rdb.SetNX(ctx, key(token), value, ttl).Result()
		if err != nil {
			return "", models.NewDependencyError("session store", err)
		}
		if ok {
			return token, nil
		}
	}
	return "", models.NewDependencyError("session store", fmt.Errorf("%w after %d attempts", ErrTokenCollision, maxMintAttempts))
}
