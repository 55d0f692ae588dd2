package repository

import (
	"context"
	"errors"
	"time"

	"galaxydistance/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RequestFilter narrows List.
type RequestFilter struct {
	// CreatorID restricts to one creator when non-zero.
	CreatorID uint
	// ExcludeDrafts hides draft requests.
	ExcludeDrafts bool
	// Status restricts to a single status when non-empty.
	Status models.RequestStatus
	// SubmittedFrom and SubmittedBefore bound submitted_at, [from, before).
	SubmittedFrom   *time.Time
	SubmittedBefore *time.Time
}

// GalaxyRequestRepository defines persistence operations for requests and their line items.
type GalaxyRequestRepository interface {
	GetByID(ctx context.Context, id uint) (*models.GalaxyRequest, error)
	FindDraft(ctx context.Context, creatorID uint) (*models.GalaxyRequest, error)
	GetOrCreateDraft(ctx context.Context, creatorID uint) (*models.GalaxyRequest, bool, error)
	List(ctx context.Context, filter RequestFilter) ([]models.GalaxyRequest, error)
	CountItems(ctx context.Context, requestID uint) (int64, error)
	AddItem(ctx context.Context, requestID, galaxyID uint) (bool, error)
	RemoveItem(ctx context.Context, requestID, galaxyID uint) error
	SetMagnitude(ctx context.Context, requestID, galaxyID uint, magnitude float64) error
	SetTelescope(ctx context.Context, requestID uint, telescope string) error
	SaveTransition(ctx context.Context, req *models.GalaxyRequest, from models.RequestStatus) error
}

type galaxyRequestRepository struct {
	db *gorm.DB
}

// NewGalaxyRequestRepository returns a new GalaxyRequestRepository implementation.
func NewGalaxyRequestRepository(db *gorm.DB) GalaxyRequestRepository {
	return &galaxyRequestRepository{db: db}
}

func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Creator").
		Preload("Moderator").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("added_at ASC, id ASC") }).
		Preload("Items.Galaxy")
}

func (r *galaxyRequestRepository) GetByID(ctx context.Context, id uint) (*models.GalaxyRequest, error) {
	var req models.GalaxyRequest
	if err := withDetails(r.db.WithContext(ctx)).First(&req, id).Error; err != nil {
		return nil, mapLookupError(err, "GalaxyRequest", id)
	}
	return &req, nil
}

// FindDraft returns the creator's draft with its line items, or NotFound.
func (r *galaxyRequestRepository) FindDraft(ctx context.Context, creatorID uint) (*models.GalaxyRequest, error) {
	var req models.GalaxyRequest
	err := withDetails(r.db.WithContext(ctx)).
		Where("creator_id = ? AND status = ?", creatorID, models.RequestStatusDraft).
		First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundMessage("no active draft request")
		}
		return nil, models.NewInternalError(err)
	}
	return &req, nil
}

// GetOrCreateDraft returns the creator's draft, inserting one if none exists.
// The one-draft partial unique index turns a concurrent insert into a no-op,
// after which the winner's row is read back. created reports whether this call inserted it.
func (r *galaxyRequestRepository) GetOrCreateDraft(ctx context.Context, creatorID uint) (*models.GalaxyRequest, bool, error) {
	draft := models.GalaxyRequest{
		CreatorID: creatorID,
		Status:    models.RequestStatusDraft,
		CreatedAt: time.Now().UTC(),
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:     []clause.Column{{Name: "creator_id"}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "status = 'draft'"}}},
			DoNothing:   true,
		}).
		Omit(clause.Associations).
		Create(&draft)
	if res.Error != nil {
		return nil, false, models.NewInternalError(res.Error)
	}

	existing, err := r.FindDraft(ctx, creatorID)
	if err != nil {
		return nil, false, err
	}
	return existing, res.RowsAffected > 0, nil
}

const listOrder = "CASE status WHEN 'submitted' THEN 0 WHEN 'completed' THEN 1 WHEN 'rejected' THEN 2 ELSE 3 END, submitted_at ASC, id ASC"

// List returns requests ordered submitted, completed, rejected, then the rest,
// each group by submitted_at. Deleted requests are never listed.
func (r *galaxyRequestRepository) List(ctx context.Context, filter RequestFilter) ([]models.GalaxyRequest, error) {
	q := withDetails(r.db.WithContext(ctx)).
		Where("status <> ?", models.RequestStatusDeleted)

	if filter.CreatorID != 0 {
		q = q.Where("creator_id = ?", filter.CreatorID)
	}
	if filter.ExcludeDrafts {
		q = q.Where("status <> ?", models.RequestStatusDraft)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.SubmittedFrom != nil {
		q = q.Where("submitted_at >= ?", *filter.SubmittedFrom)
	}
	if filter.SubmittedBefore != nil {
		q = q.Where("submitted_at < ?", *filter.SubmittedBefore)
	}

	var requests []models.GalaxyRequest
	err := q.Order(listOrder).Find(&requests).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return requests, nil
}

func (r *galaxyRequestRepository) CountItems(ctx context.Context, requestID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.GalaxyInRequest{}).
		Where("galaxy_request_id = ?", requestID).
		Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

// lockDraft holds a shared lock on the request row while it is still a draft,
// so a concurrent transition waits for the line-item write to commit.
func lockDraft(tx *gorm.DB, requestID uint) error {
	var req models.GalaxyRequest
	err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
		Select("id").
		Where("id = ? AND status = ?", requestID, models.RequestStatusDraft).
		First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundMessage("no active draft request")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// AddItem links galaxyID to the draft. added is false when it was already present.
func (r *galaxyRequestRepository) AddItem(ctx context.Context, requestID, galaxyID uint) (bool, error) {
	var added bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockDraft(tx, requestID); err != nil {
			return err
		}
		item := models.GalaxyInRequest{
			GalaxyRequestID: requestID,
			GalaxyID:        galaxyID,
			AddedAt:         time.Now().UTC(),
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "galaxy_request_id"}, {Name: "galaxy_id"}},
			DoNothing: true,
		}).
			Omit(clause.Associations).
			Create(&item)
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		added = res.RowsAffected > 0
		return nil
	})
	return added, err
}

func (r *galaxyRequestRepository) RemoveItem(ctx context.Context, requestID, galaxyID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockDraft(tx, requestID); err != nil {
			return err
		}
		res := tx.Where("galaxy_request_id = ? AND galaxy_id = ?", requestID, galaxyID).
			Delete(&models.GalaxyInRequest{})
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundMessage("galaxy is not in the request")
		}
		return nil
	})
}

func (r *galaxyRequestRepository) SetMagnitude(ctx context.Context, requestID, galaxyID uint, magnitude float64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockDraft(tx, requestID); err != nil {
			return err
		}
		res := tx.Model(&models.GalaxyInRequest{}).
			Where("galaxy_request_id = ? AND galaxy_id = ?", requestID, galaxyID).
			Update("magnitude", magnitude)
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundMessage("galaxy is not in the request")
		}
		return nil
	})
}

// SetTelescope updates the telescope of a request that is still a draft.
func (r *galaxyRequestRepository) SetTelescope(ctx context.Context, requestID uint, telescope string) error {
	res := r.db.WithContext(ctx).Model(&models.GalaxyRequest{}).
		Where("id = ? AND status = ?", requestID, models.RequestStatusDraft).
		Update("telescope", telescope)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("GalaxyRequest", requestID)
	}
	return nil
}

// SaveTransition persists a status change made on req, provided the stored
// row is still in status from. A submission is re-checked against the stored
// line items after the row is locked by the update. On completion the
// computed line-item distances are written in the same transaction.
func (r *galaxyRequestRepository) SaveTransition(ctx context.Context, req *models.GalaxyRequest, from models.RequestStatus) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.GalaxyRequest{}).
			Where("id = ? AND status = ?", req.ID, from).
			Updates(map[string]interface{}{
				"status":       req.Status,
				"moderator_id": req.ModeratorID,
				"submitted_at": req.SubmittedAt,
				"completed_at": req.CompletedAt,
			})
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("GalaxyRequest", req.ID)
		}

		if req.Status == models.RequestStatusSubmitted {
			return checkMagnitudes(tx, req.ID)
		}
		if req.Status != models.RequestStatusCompleted {
			return nil
		}
		for _, item := range req.Items {
			if item.Distance == nil {
				continue
			}
			if err := tx.Model(&models.GalaxyInRequest{}).
				Where("id = ?", item.ID).
				Update("distance", *item.Distance).Error; err != nil {
				return models.NewInternalError(err)
			}
		}
		return nil
	})
}

// checkMagnitudes fails with a validation error when any stored line item of
// the request has no magnitude.
func checkMagnitudes(tx *gorm.DB, requestID uint) error {
	var missing []struct {
		GalaxyID uint
		Name     string
	}
	err := tx.Table("galaxies_in_requests AS i").
		Select("i.galaxy_id, COALESCE(g.name, '') AS name").
		Joins("LEFT JOIN galaxies g ON g.id = i.galaxy_id").
		Where("i.galaxy_request_id = ? AND i.magnitude IS NULL", requestID).
		Order("i.added_at ASC, i.id ASC").
		Scan(&missing).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	if len(missing) == 0 {
		return nil
	}
	labels := make([]string, 0, len(missing))
	for _, m := range missing {
		labels = append(labels, models.ItemLabel(m.Name, m.GalaxyID))
	}
	return models.NewMissingMagnitudeError(labels)
}
