package repository

import (
	"context"
	"strings"

	"galaxydistance/internal/models"

	"gorm.io/gorm"
)

// GalaxyRepository defines persistence operations for the catalog.
type GalaxyRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Galaxy, error)
	GetActive(ctx context.Context, id uint) (*models.Galaxy, error)
	GetByName(ctx context.Context, name string) (*models.Galaxy, error)
	ListActive(ctx context.Context, search string) ([]models.Galaxy, error)
	ListActiveByIDs(ctx context.Context, ids []uint) ([]models.Galaxy, error)
	Create(ctx context.Context, galaxy *models.Galaxy) error
	Update(ctx context.Context, galaxy *models.Galaxy) error
	SetImage(ctx context.Context, id uint, key, url string) error
	Deactivate(ctx context.Context, id uint) error
}

type galaxyRepository struct {
	db *gorm.DB
}

// NewGalaxyRepository returns a new GalaxyRepository implementation.
func NewGalaxyRepository(db *gorm.DB) GalaxyRepository {
	return &galaxyRepository{db: db}
}

func (r *galaxyRepository) GetByID(ctx context.Context, id uint) (*models.Galaxy, error) {
	var galaxy models.Galaxy
	if err := r.db.WithContext(ctx).First(&galaxy, id).Error; err != nil {
		return nil, mapLookupError(err, "Galaxy", id)
	}
	return &galaxy, nil
}

func (r *galaxyRepository) GetActive(ctx context.Context, id uint) (*models.Galaxy, error) {
	var galaxy models.Galaxy
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).First(&galaxy, id).Error; err != nil {
		return nil, mapLookupError(err, "Galaxy", id)
	}
	return &galaxy, nil
}

// GetByName returns nil, nil when no galaxy is called name.
func (r *galaxyRepository) GetByName(ctx context.Context, name string) (*models.Galaxy, error) {
	var galaxies []models.Galaxy
	if err := r.db.WithContext(ctx).Where("name = ?", name).Limit(1).Find(&galaxies).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if len(galaxies) == 0 {
		return nil, nil
	}
	return &galaxies[0], nil
}

// ListActive returns active galaxies whose name contains search, case-insensitively.
func (r *galaxyRepository) ListActive(ctx context.Context, search string) ([]models.Galaxy, error) {
	q := r.db.WithContext(ctx).Where("is_active = ?", true)
	if s := strings.TrimSpace(search); s != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(s)+"%")
	}

	var galaxies []models.Galaxy
	if err := q.Order("id ASC").Find(&galaxies).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return galaxies, nil
}

// ListActiveByIDs returns the active galaxies among ids in no particular order.
func (r *galaxyRepository) ListActiveByIDs(ctx context.Context, ids []uint) ([]models.Galaxy, error) {
	if len(ids) == 0 {
		return []models.Galaxy{}, nil
	}
	var galaxies []models.Galaxy
	if err := r.db.WithContext(ctx).Where("is_active = ? AND id IN ?", true, ids).Find(&galaxies).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return galaxies, nil
}

func (r *galaxyRepository) Create(ctx context.Context, galaxy *models.Galaxy) error {
	if err := r.db.WithContext(ctx).Create(galaxy).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *galaxyRepository) Update(ctx context.Context, galaxy *models.Galaxy) error {
	res := r.db.WithContext(ctx).Model(&models.Galaxy{}).
		Where("id = ? AND is_active = ?", galaxy.ID, true).
		Updates(map[string]interface{}{
			"name":        galaxy.Name,
			"description": galaxy.Description,
		})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Galaxy", galaxy.ID)
	}
	return nil
}

func (r *galaxyRepository) SetImage(ctx context.Context, id uint, key, url string) error {
	res := r.db.WithContext(ctx).Model(&models.Galaxy{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"image_key": key, "image_url": url})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Galaxy", id)
	}
	return nil
}

// Deactivate hides an active galaxy from the catalog.
func (r *galaxyRepository) Deactivate(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.Galaxy{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Galaxy", id)
	}
	return nil
}
