package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"galaxydistance/internal/models"
	"galaxydistance/internal/repository"
	"galaxydistance/internal/storage"
	"galaxydistance/internal/validation"
)

const DefaultImageMaxUploadSizeMB = 10

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ErrStorageDisabled is returned by image operations when no object store is configured.
var ErrStorageDisabled = errors.New("object storage is not configured")

// ViewTracker records and lists the galaxies a guest opened.
type ViewTracker interface {
	Record(ctx context.Context, guestToken string, galaxyID uint) error
	Recent(ctx context.Context, guestToken string, count int) ([]uint, error)
}

// PartialFailureError reports a deactivation that succeeded while its image cleanup did not.
type PartialFailureError struct {
	Err error
}

func (e *PartialFailureError) Error() string {
	return "galaxy deactivated, image cleanup failed: " + e.Err.Error()
}

func (e *PartialFailureError) Unwrap() error { return e.Err }

type GalaxyService struct {
	galaxyRepo         repository.GalaxyRepository
	images             storage.ImageStore
	viewed             ViewTracker
	logger             *slog.Logger
	maxUploadSizeBytes int64
}

type GalaxyInput struct {
	Name        string
	Description string
}

type UploadImageInput struct {
	GalaxyID uint
	Content  []byte
}

// NewGalaxyService builds the catalog service. images may be nil when storage is disabled.
func NewGalaxyService(galaxyRepo repository.GalaxyRepository, images storage.ImageStore, viewed ViewTracker, logger *slog.Logger) *GalaxyService {
	if logger == nil {
		logger = slog.Default()
	}
	return &GalaxyService{
		galaxyRepo:         galaxyRepo,
		images:             images,
		viewed:             viewed,
		logger:             logger,
		maxUploadSizeBytes: int64(DefaultImageMaxUploadSizeMB) * 1024 * 1024,
	}
}

func (s *GalaxyService) List(ctx context.Context, search string) ([]models.Galaxy, error) {
	return s.galaxyRepo.ListActive(ctx, search)
}

// Get returns an active galaxy and, for guests, records the view.
func (s *GalaxyService) Get(ctx context.Context, id uint, guestToken string) (*models.Galaxy, error) {
	galaxy, err := s.galaxyRepo.GetActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if guestToken != "" {
		if err := s.viewed.Record(ctx, guestToken, id); err != nil {
			s.logger.WarnContext(ctx, "failed to record galaxy view",
				slog.Uint64("galaxy_id", uint64(id)),
				slog.String("error", err.Error()),
			)
		}
	}
	return galaxy, nil
}

// RecordView records an explicit view of an active galaxy.
func (s *GalaxyService) RecordView(ctx context.Context, guestToken string, id uint) error {
	if guestToken == "" {
		return models.NewDependencyError("session store", errors.New("no guest session"))
	}
	if _, err := s.galaxyRepo.GetActive(ctx, id); err != nil {
		return err
	}
	return s.viewed.Record(ctx, guestToken, id)
}

// Recent returns the guest's recently viewed galaxies, newest first. Ids that
// no longer name an active galaxy are skipped.
func (s *GalaxyService) Recent(ctx context.Context, guestToken string, count int) ([]models.Galaxy, error) {
	ids, err := s.viewed.Recent(ctx, guestToken, count)
	if err != nil {
		return nil, err
	}
	found, err := s.galaxyRepo.ListActiveByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[uint]models.Galaxy, len(found))
	for _, g := range found {
		byID[g.ID] = g
	}
	galaxies := make([]models.Galaxy, 0, len(ids))
	for _, id := range ids {
		if g, ok := byID[id]; ok {
			galaxies = append(galaxies, g)
		}
	}
	return galaxies, nil
}

func (s *GalaxyService) Create(ctx context.Context, in GalaxyInput) (*models.Galaxy, error) {
	in, err := normalizeGalaxyInput(in)
	if err != nil {
		return nil, err
	}
	galaxy := &models.Galaxy{Name: in.Name, Description: in.Description, IsActive: true}
	if err := s.galaxyRepo.Create(ctx, galaxy); err != nil {
		return nil, err
	}
	return galaxy, nil
}

func (s *GalaxyService) Update(ctx context.Context, id uint, in GalaxyInput) (*models.Galaxy, error) {
	in, err := normalizeGalaxyInput(in)
	if err != nil {
		return nil, err
	}
	galaxy, err := s.galaxyRepo.GetActive(ctx, id)
	if err != nil {
		return nil, err
	}
	galaxy.Name = in.Name
	galaxy.Description = in.Description
	if err := s.galaxyRepo.Update(ctx, galaxy); err != nil {
		return nil, err
	}
	return galaxy, nil
}

func normalizeGalaxyInput(in GalaxyInput) (GalaxyInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := validation.ValidateGalaxyName(in.Name); err != nil {
		return in, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateDescription(in.Description); err != nil {
		return in, models.NewValidationError(err.Error())
	}
	return in, nil
}

// UploadImage stores the image as "<id><ext>" and replaces any previous object.
func (s *GalaxyService) UploadImage(ctx context.Context, in UploadImageInput) (*models.Galaxy, error) {
	if len(in.Content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}
	contentType := http.DetectContentType(in.Content)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return nil, models.NewValidationError("Invalid image type")
	}
	if s.images == nil {
		return nil, models.NewDependencyError("object store", ErrStorageDisabled)
	}

	galaxy, err := s.galaxyRepo.GetActive(ctx, in.GalaxyID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%d%s", galaxy.ID, ext)
	url, err := s.images.PutImage(ctx, key, bytes.NewReader(in.Content), int64(len(in.Content)), contentType)
	if err != nil {
		return nil, models.NewDependencyError("object store", err)
	}

	if previous := galaxy.ImageKey; previous != "" && previous != key {
		if err := s.images.DeleteImage(ctx, previous); err != nil {
			s.logger.WarnContext(ctx, "failed to delete replaced galaxy image",
				slog.Uint64("galaxy_id", uint64(galaxy.ID)),
				slog.String("key", previous),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.galaxyRepo.SetImage(ctx, galaxy.ID, key, url); err != nil {
		return nil, err
	}
	galaxy.ImageKey = key
	galaxy.ImageURL = url
	return galaxy, nil
}

// Deactivate hides the galaxy and deletes its image. A failed image deletion
// does not undo the deactivation and is returned as *PartialFailureError.
func (s *GalaxyService) Deactivate(ctx context.Context, id uint) error {
	galaxy, err := s.galaxyRepo.GetActive(ctx, id)
	if err != nil {
		return err
	}
	if err := s.galaxyRepo.Deactivate(ctx, id); err != nil {
		return err
	}
	if galaxy.ImageKey == "" {
		return nil
	}

	if s.images == nil {
		return &PartialFailureError{Err: ErrStorageDisabled}
	}
	if err := s.images.DeleteImage(ctx, galaxy.ImageKey); err != nil {
		s.logger.ErrorContext(ctx, "galaxy image deletion failed",
			slog.Uint64("galaxy_id", uint64(id)),
			slog.String("key", galaxy.ImageKey),
			slog.String("error", err.Error()),
		)
		return &PartialFailureError{Err: err}
	}
	return s.galaxyRepo.SetImage(ctx, id, "", "")
}
