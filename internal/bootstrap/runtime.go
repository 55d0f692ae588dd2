package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"galaxydistance/internal/cache"
	"galaxydistance/internal/config"
	"galaxydistance/internal/database"
	"galaxydistance/internal/middleware"
	"galaxydistance/internal/models"
	"galaxydistance/internal/seed"
	"galaxydistance/internal/storage"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	SeedCatalog bool
}

// Runtime holds the connections the server is built on.
type Runtime struct {
	DB    *gorm.DB
	Redis *redis.Client
	// Images is nil when object storage is not configured.
	Images storage.ImageStore
}

// InitRuntime connects to the database, Redis and object storage, applies the
// schema and optionally seeds the built-in catalog.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		return nil, fmt.Errorf("schema setup failed: %w", err)
	}

	rdb, err := cache.NewClient(cfg.RedisURL, cfg.RedisTimeout)
	if err != nil {
		return nil, fmt.Errorf("redis client setup failed: %w", err)
	}

	rt := &Runtime{DB: db, Redis: rdb}
	if cfg.StorageEnabled() {
		store, err := storage.NewS3StoreFromConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("object storage setup failed: %w", err)
		}
		rt.Images = store
	} else {
		middleware.Logger.Warn("object storage not configured, image uploads disabled")
	}

	if err := Prepare(cfg, db, opts); err != nil {
		return nil, err
	}
	return rt, nil
}

// Prepare runs the data bootstrap steps on an already migrated database.
func Prepare(cfg *config.Config, db *gorm.DB, opts Options) error {
	if err := ensureDevModerator(cfg, db, bcrypt.DefaultCost); err != nil {
		return fmt.Errorf("failed to bootstrap development moderator: %w", err)
	}
	if opts.SeedCatalog {
		if _, err := seed.NewSeeder(db, 0).Run(seed.Options{}); err != nil {
			return fmt.Errorf("failed to seed built-in catalog: %w", err)
		}
	}
	return nil
}

// ensureDevModerator creates or promotes the configured development moderator.
// It only runs in development with both credentials set.
func ensureDevModerator(cfg *config.Config, db *gorm.DB, cost int) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") {
		return nil
	}
	username := strings.TrimSpace(cfg.DevModeratorUsername)
	if username == "" || cfg.DevModeratorPassword == "" {
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(cfg.DevModeratorPassword), cost)
	if err != nil {
		return fmt.Errorf("hash moderator password: %w", err)
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		findErr := tx.Where("username = ?", username).First(&user).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			user = models.User{
				Username: username,
				Password: string(hashedPassword),
				Role:     models.RoleModerator,
			}
			return tx.Create(&user).Error
		case findErr != nil:
			return findErr
		default:
			return tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]any{
				"role":     models.RoleModerator,
				"password": string(hashedPassword),
			}).Error
		}
	}); err != nil {
		return err
	}

	middleware.Logger.Info("development moderator ensured", slog.String("username", username))
	return nil
}
