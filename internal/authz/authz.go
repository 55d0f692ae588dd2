// Package authz decides which callers may perform which operations.
package authz

import (
	"galaxydistance/internal/models"
)

// Identity is the resolved caller of a request. A nil *Identity is an anonymous guest.
type Identity struct {
	UserID   uint
	Username string
	Role     models.Role
}

// FromUser builds the identity carried through a request for u.
func FromUser(u *models.User) *Identity {
	if u == nil {
		return nil
	}
	return &Identity{UserID: u.ID, Username: u.Username, Role: u.Role}
}

// IsModerator reports whether the identity holds the moderator role.
func (i *Identity) IsModerator() bool {
	return i != nil && i.Role == models.RoleModerator
}

// Predicate is a single access rule.
type Predicate func(*Identity) bool

// Guest holds for callers without an authenticated session.
func Guest(id *Identity) bool { return id == nil }

// Authenticated holds for any signed-in caller.
func Authenticated(id *Identity) bool { return id != nil }

// RegularUser holds for signed-in callers that are not moderators.
func RegularUser(id *Identity) bool { return id != nil && id.Role != models.RoleModerator }

// Moderator holds for signed-in moderators.
func Moderator(id *Identity) bool { return id.IsModerator() }

// Check passes when any of preds holds for id. With no predicates it always passes.
// A failing anonymous caller gets an authentication error, a failing signed-in
// caller a forbidden error.
func Check(id *Identity, preds ...Predicate) error {
	if len(preds) == 0 {
		return nil
	}
	for _, p := range preds {
		if p(id) {
			return nil
		}
	}
	if id == nil {
		return models.NewUnauthorizedError("authentication required")
	}
	return models.NewForbiddenError("you do not have permission to perform this action")
}
