package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"galaxydistance/internal/authz"
	"galaxydistance/internal/models"
	"galaxydistance/internal/observability"
	"galaxydistance/internal/repository"
	"galaxydistance/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// DateLayout is the accepted format of list date filters.
const DateLayout = "2006-01-02"

// Moderator resolutions.
const (
	ActionComplete = "complete"
	ActionReject   = "reject"
	// ActionRejected is accepted for older clients.
	ActionRejected = "rejected"
)

type RequestService struct {
	requestRepo repository.GalaxyRequestRepository
	galaxyRepo  repository.GalaxyRepository
	logger      *slog.Logger
	now         func() time.Time
}

// ListRequestsInput carries the list filters. Only moderators may filter.
type ListRequestsInput struct {
	Status   string
	DateFrom string
	DateTo   string
}

// AddResult describes the outcome of adding a galaxy to the caller's draft.
type AddResult struct {
	RequestID uint
	Added     bool
	Created   bool
}

// Cart summarizes the caller's draft.
type Cart struct {
	DraftID *uint
	Count   int64
}

func NewRequestService(requestRepo repository.GalaxyRequestRepository, galaxyRepo repository.GalaxyRepository, logger *slog.Logger) *RequestService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RequestService{
		requestRepo: requestRepo,
		galaxyRepo:  galaxyRepo,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock stamping transitions.
func (s *RequestService) WithClock(now func() time.Time) *RequestService {
	s.now = now
	return s
}

// AddToDraft puts an active galaxy into the caller's draft, creating the draft if needed.
func (s *RequestService) AddToDraft(ctx context.Context, userID, galaxyID uint) (*AddResult, error) {
	if _, err := s.galaxyRepo.GetActive(ctx, galaxyID); err != nil {
		return nil, err
	}

	draft, created, err := s.requestRepo.GetOrCreateDraft(ctx, userID)
	if err != nil {
		return nil, err
	}
	if created {
		s.logger.InfoContext(ctx, "draft request created",
			slog.Uint64("request_id", uint64(draft.ID)),
			slog.Uint64("creator_id", uint64(userID)),
		)
	}

	added, err := s.requestRepo.AddItem(ctx, draft.ID, galaxyID)
	if err != nil {
		return nil, err
	}
	return &AddResult{RequestID: draft.ID, Added: added, Created: created}, nil
}

func (s *RequestService) RemoveItem(ctx context.Context, userID, galaxyID uint) error {
	draft, err := s.requestRepo.FindDraft(ctx, userID)
	if err != nil {
		return err
	}
	return s.requestRepo.RemoveItem(ctx, draft.ID, galaxyID)
}

func (s *RequestService) SetMagnitude(ctx context.Context, userID, galaxyID uint, magnitude float64) error {
	if err := validation.ValidateMagnitude(magnitude); err != nil {
		return models.NewValidationError(err.Error())
	}
	draft, err := s.requestRepo.FindDraft(ctx, userID)
	if err != nil {
		return err
	}
	return s.requestRepo.SetMagnitude(ctx, draft.ID, galaxyID, magnitude)
}

func (s *RequestService) SetTelescope(ctx context.Context, userID uint, telescope string) (*models.GalaxyRequest, error) {
	if err := validation.ValidateTelescope(telescope); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	draft, err := s.requestRepo.FindDraft(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.requestRepo.SetTelescope(ctx, draft.ID, strings.TrimSpace(telescope)); err != nil {
		return nil, err
	}
	return s.requestRepo.GetByID(ctx, draft.ID)
}

// Submit hands the caller's draft to the moderators.
func (s *RequestService) Submit(ctx context.Context, userID uint) (*models.GalaxyRequest, error) {
	draft, err := s.requestRepo.FindDraft(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := draft.Submit(s.now()); err != nil {
		return nil, stateError(err)
	}
	if err := s.save(ctx, draft, models.RequestStatusDraft, models.EventSubmit); err != nil {
		return nil, err
	}
	return draft, nil
}

// Delete soft-deletes the caller's draft.
func (s *RequestService) Delete(ctx context.Context, userID uint) error {
	draft, err := s.requestRepo.FindDraft(ctx, userID)
	if err != nil {
		return err
	}
	if err := draft.SoftDelete(s.now()); err != nil {
		return stateError(err)
	}
	return s.save(ctx, draft, models.RequestStatusDraft, models.EventDelete)
}

// Resolve completes or rejects a submitted request.
func (s *RequestService) Resolve(ctx context.Context, moderatorID, requestID uint, action string) (*models.GalaxyRequest, error) {
	var event models.RequestEvent
	switch action {
	case ActionComplete:
		event = models.EventComplete
	case ActionReject, ActionRejected:
		event = models.EventReject
	default:
		return nil, models.NewValidationError("action must be complete or reject")
	}

	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.RequestStatusSubmitted {
		return nil, models.NewNotFoundError("GalaxyRequest", requestID)
	}

	now := s.now()
	if event == models.EventComplete {
		err = req.Complete(moderatorID, now)
	} else {
		err = req.Reject(moderatorID, now)
	}
	if err != nil {
		return nil, stateError(err)
	}

	if err := s.save(ctx, req, models.RequestStatusSubmitted, event); err != nil {
		return nil, err
	}
	return s.requestRepo.GetByID(ctx, requestID)
}

func (s *RequestService) save(ctx context.Context, req *models.GalaxyRequest, from models.RequestStatus, event models.RequestEvent) (err error) {
	ctx, span := observability.StartSpan(ctx, "requests", string(event),
		attribute.Int64("request.id", int64(req.ID)),
		attribute.String("request.from", string(from)),
	)
	defer func() { observability.EndSpan(span, err) }()

	if err = s.requestRepo.SaveTransition(ctx, req, from); err != nil {
		return err
	}
	observability.ObserveTransition(string(event))
	s.logger.InfoContext(ctx, "galaxy request transition",
		slog.Uint64("request_id", uint64(req.ID)),
		slog.String("event", string(event)),
		slog.String("from", string(from)),
		slog.String("to", string(req.Status)),
	)
	return nil
}

// Get returns a request the caller may see. Anything else is reported as not found.
func (s *RequestService) Get(ctx context.Context, caller *authz.Identity, id uint) (*models.GalaxyRequest, error) {
	if caller == nil {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	req, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visibleTo(caller, req) {
		return nil, models.NewNotFoundError("GalaxyRequest", id)
	}
	return req, nil
}

func visibleTo(caller *authz.Identity, req *models.GalaxyRequest) bool {
	switch {
	case req.Status == models.RequestStatusDeleted:
		return false
	case caller.IsModerator():
		return req.Status != models.RequestStatusDraft
	default:
		return req.CreatorID == caller.UserID
	}
}

// List returns the requests visible to the caller.
func (s *RequestService) List(ctx context.Context, caller *authz.Identity, in ListRequestsInput) ([]models.GalaxyRequest, error) {
	if caller == nil {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	if !caller.IsModerator() {
		return s.requestRepo.List(ctx, repository.RequestFilter{CreatorID: caller.UserID})
	}

	filter := repository.RequestFilter{ExcludeDrafts: true}
	if in.Status != "" {
		status := models.RequestStatus(in.Status)
		if !status.Valid() {
			return nil, models.NewValidationError("invalid status filter")
		}
		filter.Status = status
	}
	if in.DateFrom != "" {
		from, err := time.ParseInLocation(DateLayout, in.DateFrom, time.UTC)
		if err != nil {
			return nil, models.NewValidationError("date_from must be YYYY-MM-DD")
		}
		filter.SubmittedFrom = &from
	}
	if in.DateTo != "" {
		to, err := time.ParseInLocation(DateLayout, in.DateTo, time.UTC)
		if err != nil {
			return nil, models.NewValidationError("date_to must be YYYY-MM-DD")
		}
		before := to.AddDate(0, 0, 1)
		filter.SubmittedBefore = &before
	}
	if filter.SubmittedFrom != nil && filter.SubmittedBefore != nil && !filter.SubmittedFrom.Before(*filter.SubmittedBefore) {
		return nil, models.NewValidationError("date_from must not be after date_to")
	}
	return s.requestRepo.List(ctx, filter)
}

// Cart reports the caller's draft id and its line item count.
func (s *RequestService) Cart(ctx context.Context, userID uint) (*Cart, error) {
	draft, err := s.requestRepo.FindDraft(ctx, userID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return &Cart{}, nil
		}
		return nil, err
	}
	count, err := s.requestRepo.CountItems(ctx, draft.ID)
	if err != nil {
		return nil, err
	}
	id := draft.ID
	return &Cart{DraftID: &id, Count: count}, nil
}

// stateError reports a refused transition as not found.
func stateError(err error) error {
	var te *models.TransitionError
	if errors.As(err, &te) {
		return models.NewNotFoundMessage(te.Error())
	}
	return err
}
