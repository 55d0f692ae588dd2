package models

import (
	"fmt"
	"strings"
	"time"

	"galaxydistance/internal/astro"
)

// RequestStatus defines lifecycle states for galaxy distance requests.
type RequestStatus string

const (
	// RequestStatusDraft is the creator's open cart.
	RequestStatusDraft RequestStatus = "draft"
	// RequestStatusSubmitted is awaiting a moderator.
	RequestStatusSubmitted RequestStatus = "submitted"
	// RequestStatusCompleted has distances computed for its line items.
	RequestStatusCompleted RequestStatus = "completed"
	// RequestStatusRejected was declined by a moderator.
	RequestStatusRejected RequestStatus = "rejected"
	// RequestStatusDeleted is a soft-deleted draft.
	RequestStatusDeleted RequestStatus = "deleted"
)

// Valid reports whether s is one of the known statuses.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusDraft, RequestStatusSubmitted, RequestStatusCompleted,
		RequestStatusRejected, RequestStatusDeleted:
		return true
	}
	return false
}

// Terminal reports whether no further transition leaves s.
func (s RequestStatus) Terminal() bool {
	return s == RequestStatusCompleted || s == RequestStatusRejected || s == RequestStatusDeleted
}

// RequestEvent is an input to the request state machine.
type RequestEvent string

const (
	EventEdit     RequestEvent = "edit"
	EventSubmit   RequestEvent = "submit"
	EventDelete   RequestEvent = "delete"
	EventComplete RequestEvent = "complete"
	EventReject   RequestEvent = "reject"
)

// TransitionError is returned when an event is not allowed from a status.
type TransitionError struct {
	From  RequestStatus
	Event RequestEvent
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s a %s request", e.Event, e.From)
}

// Next returns the status reached by applying event to s.
func (s RequestStatus) Next(event RequestEvent) (RequestStatus, error) {
	switch s {
	case RequestStatusDraft:
		switch event {
		case EventEdit:
			return RequestStatusDraft, nil
		case EventSubmit:
			return RequestStatusSubmitted, nil
		case EventDelete:
			return RequestStatusDeleted, nil
		}
	case RequestStatusSubmitted:
		switch event {
		case EventComplete:
			return RequestStatusCompleted, nil
		case EventReject:
			return RequestStatusRejected, nil
		}
	}
	return s, &TransitionError{From: s, Event: event}
}

// GalaxyRequest is a user's request to have distances computed for a set of galaxies.
type GalaxyRequest struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	Status      RequestStatus     `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	CreatorID   uint              `gorm:"not null;index:idx_galaxy_requests_creator;uniqueIndex:ux_galaxy_requests_one_draft,where:status = 'draft'" json:"creator_id"`
	Creator     *User             `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	ModeratorID *uint             `json:"moderator_id"`
	Moderator   *User             `gorm:"foreignKey:ModeratorID" json:"moderator,omitempty"`
	Telescope   string            `gorm:"size:255" json:"telescope"`
	CreatedAt   time.Time         `json:"created_at"`
	SubmittedAt *time.Time        `json:"submitted_at"`
	CompletedAt *time.Time        `json:"completed_at"`
	Items       []GalaxyInRequest `gorm:"foreignKey:GalaxyRequestID" json:"items,omitempty"`
}

// GalaxyInRequest is a line item linking a galaxy to a request.
type GalaxyInRequest struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	GalaxyRequestID uint      `gorm:"not null;uniqueIndex:ux_galaxy_in_request_pair" json:"galaxy_request_id"`
	GalaxyID        uint      `gorm:"not null;uniqueIndex:ux_galaxy_in_request_pair" json:"galaxy_id"`
	Galaxy          *Galaxy   `gorm:"foreignKey:GalaxyID" json:"galaxy,omitempty"`
	Magnitude       *float64  `json:"magnitude"`
	Distance        *float64  `json:"distance"`
	AddedAt         time.Time `gorm:"autoCreateTime" json:"added_at"`
}

// TableName keeps the line item table name readable.
func (GalaxyInRequest) TableName() string {
	return "galaxies_in_requests"
}

// ItemLabel names a line item as name(id) in validation messages.
func ItemLabel(name string, galaxyID uint) string {
	return fmt.Sprintf("%s(%d)", name, galaxyID)
}

// NewMissingMagnitudeError reports the line items that block a submission.
func NewMissingMagnitudeError(labels []string) *AppError {
	return NewValidationError("magnitude is missing for galaxies: " + strings.Join(labels, ", "))
}

// Submit moves a draft to submitted. Items must be loaded with their galaxies.
func (r *GalaxyRequest) Submit(now time.Time) error {
	next, err := r.Status.Next(EventSubmit)
	if err != nil {
		return err
	}
	if strings.TrimSpace(r.Telescope) == "" {
		return NewValidationError("telescope is required to submit a request")
	}

	var missing []string
	for _, item := range r.Items {
		if item.Magnitude != nil {
			continue
		}
		name := ""
		if item.Galaxy != nil {
			name = item.Galaxy.Name
		}
		missing = append(missing, ItemLabel(name, item.GalaxyID))
	}
	if len(missing) > 0 {
		return NewMissingMagnitudeError(missing)
	}

	r.Status = next
	r.SubmittedAt = &now
	return nil
}

// SoftDelete marks a draft as deleted. submitted_at records when it was discarded.
func (r *GalaxyRequest) SoftDelete(now time.Time) error {
	next, err := r.Status.Next(EventDelete)
	if err != nil {
		return err
	}
	r.Status = next
	r.SubmittedAt = &now
	return nil
}

// Complete finalizes a submitted request and computes distances for every
// line item carrying a magnitude.
func (r *GalaxyRequest) Complete(moderatorID uint, now time.Time) error {
	next, err := r.Status.Next(EventComplete)
	if err != nil {
		return err
	}
	r.resolve(next, moderatorID, now)
	for i := range r.Items {
		if r.Items[i].Magnitude == nil {
			continue
		}
		d := astro.DistanceMpc(*r.Items[i].Magnitude)
		r.Items[i].Distance = &d
	}
	return nil
}

// Reject declines a submitted request.
func (r *GalaxyRequest) Reject(moderatorID uint, now time.Time) error {
	next, err := r.Status.Next(EventReject)
	if err != nil {
		return err
	}
	r.resolve(next, moderatorID, now)
	return nil
}

func (r *GalaxyRequest) resolve(next RequestStatus, moderatorID uint, now time.Time) {
	// completed_at never precedes submitted_at.
	if r.SubmittedAt != nil && now.Before(*r.SubmittedAt) {
		now = *r.SubmittedAt
	}
	r.Status = next
	r.ModeratorID = &moderatorID
	r.CompletedAt = &now
}
