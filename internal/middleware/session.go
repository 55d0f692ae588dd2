package middleware

import (
	"context"
	"log/slog"
	"time"

	"galaxydistance/internal/authz"
	"galaxydistance/internal/models"
	"galaxydistance/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// Cookie names.
const (
	SessionCookie = "session_id"
	GuestCookie   = "guest_session_id"
)

// Fiber locals set by Sessions.
const (
	localIdentity     = "identity"
	localUserID       = "userID"
	localSessionToken = "sessionToken"
	localGuestToken   = "guestToken"
)

// SessionStore is the part of the session store the resolver needs.
type SessionStore interface {
	Resolve(ctx context.Context, token string) (uint, bool, error)
	Revoke(ctx context.Context, token string) error
	TouchGuest(ctx context.Context, token string) (string, bool, error)
	SessionTTL() time.Duration
	GuestTTL() time.Duration
}

// UserLookup loads the account behind a resolved session.
type UserLookup interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

// SessionConfig configures the Sessions middleware.
type SessionConfig struct {
	Store        SessionStore
	Users        UserLookup
	CookieSecure bool
}

// Sessions resolves the caller on every request. An authenticated session
// puts an *authz.Identity into locals; otherwise the caller is a guest and
// gets a live guest token. Both cookies are re-issued so Max-Age follows the
// sliding window.
func Sessions(cfg SessionConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		if token := c.Cookies(SessionCookie); token != "" {
			id, err := resolveIdentity(ctx, cfg, token)
			if err != nil {
				observability.ObserveSession(observability.FlavorSession, observability.ResultError)
				Logger.ErrorContext(ctx, "session resolution failed", slog.String("error", err.Error()))
				return models.Respond(c, err)
			}
			if id != nil {
				observability.ObserveSession(observability.FlavorSession, observability.ResultHit)
				c.Locals(localIdentity, id)
				c.Locals(localUserID, id.UserID)
				c.Locals(localSessionToken, token)
				ctx = context.WithValue(ctx, UserIDKey, id.UserID)
				c.SetUserContext(ctx)
				SetSessionCookie(c, token, cfg.Store.SessionTTL(), cfg.CookieSecure)
			} else {
				observability.ObserveSession(observability.FlavorSession, observability.ResultMiss)
			}
		}

		guest, minted, err := cfg.Store.TouchGuest(ctx, c.Cookies(GuestCookie))
		switch {
		case err != nil:
			observability.ObserveSession(observability.FlavorGuest, observability.ResultError)
			Logger.WarnContext(ctx, "guest session unavailable", slog.String("error", err.Error()))
		default:
			result := observability.ResultHit
			if minted {
				result = observability.ResultMinted
			}
			observability.ObserveSession(observability.FlavorGuest, result)
			c.Locals(localGuestToken, guest)
			setCookie(c, GuestCookie, guest, cfg.Store.GuestTTL(), cfg.CookieSecure)
		}

		return c.Next()
	}
}

func resolveIdentity(ctx context.Context, cfg SessionConfig, token string) (*authz.Identity, error) {
	userID, ok, err := cfg.Store.Resolve(ctx, token)
	if err != nil || !ok {
		return nil, err
	}

	user, err := cfg.Users.GetByID(ctx, userID)
	if err != nil {
		if !models.IsCode(err, models.CodeNotFound) {
			return nil, err
		}
		// The account is gone; drop the orphaned session.
		if revokeErr := cfg.Store.Revoke(ctx, token); revokeErr != nil {
			Logger.WarnContext(ctx, "failed to revoke orphaned session", slog.String("error", revokeErr.Error()))
		}
		return nil, nil
	}
	return authz.FromUser(user), nil
}

// SetSessionCookie issues the authenticated session cookie.
func SetSessionCookie(c *fiber.Ctx, token string, ttl time.Duration, secure bool) {
	setCookie(c, SessionCookie, token, ttl, secure)
}

// ClearSessionCookie expires the authenticated session cookie.
func ClearSessionCookie(c *fiber.Ctx, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   secure || c.Protocol() == "https",
	})
}

func setCookie(c *fiber.Ctx, name, value string, ttl time.Duration, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   secure || c.Protocol() == "https",
	})
}

// IdentityFrom returns the caller resolved by Sessions, or nil for guests.
func IdentityFrom(c *fiber.Ctx) *authz.Identity {
	id, _ := c.Locals(localIdentity).(*authz.Identity)
	return id
}

// SetIdentity stores id as the caller of the current request.
func SetIdentity(c *fiber.Ctx, id *authz.Identity) {
	c.Locals(localIdentity, id)
	if id != nil {
		c.Locals(localUserID, id.UserID)
	}
}

// SessionTokenFrom returns the authenticated session token of the request, if any.
func SessionTokenFrom(c *fiber.Ctx) string {
	token, _ := c.Locals(localSessionToken).(string)
	return token
}

// GuestTokenFrom returns the live guest token of the request, if any.
func GuestTokenFrom(c *fiber.Ctx) string {
	token, _ := c.Locals(localGuestToken).(string)
	return token
}
