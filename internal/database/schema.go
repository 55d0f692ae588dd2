package database

import (
	"context"
	"fmt"
	"log/slog"

	"galaxydistance/internal/config"
	"galaxydistance/internal/middleware"
	"galaxydistance/internal/models"

	"gorm.io/gorm"
)

// Schema modes. SQL replays the embedded migrations; auto lets gorm derive
// the tables from the models.
const (
	SchemaModeSQL  = "sql"
	SchemaModeAuto = "auto"
)

// DraftIndexName is the partial unique index that allows one draft per creator.
const DraftIndexName = "ux_galaxy_requests_one_draft"

// SchemaStatus describes the schema of a database under a configuration.
type SchemaStatus struct {
	Mode              string
	Environment       string
	AppliedVersions   []int
	PendingMigrations []Migration
	DraftIndex        bool
}

// SchemaMode resolves DB_SCHEMA_MODE. When unset, production runs the SQL
// migrations and every other environment auto-migrates. Auto-migration is
// never allowed in production.
func SchemaMode(cfg *config.Config) (string, error) {
	switch cfg.DBSchemaMode {
	case "":
		if cfg.IsProduction() {
			return SchemaModeSQL, nil
		}
		return SchemaModeAuto, nil
	case SchemaModeSQL:
		return SchemaModeSQL, nil
	case SchemaModeAuto:
		if cfg.IsProduction() {
			return "", fmt.Errorf("DB_SCHEMA_MODE=auto is not allowed in %q", cfg.Env)
		}
		return SchemaModeAuto, nil
	default:
		return "", fmt.Errorf("unsupported DB_SCHEMA_MODE %q", cfg.DBSchemaMode)
	}
}

// AutoMigrate creates or updates every persistent table. The draft index is
// declared on GalaxyRequest.CreatorID.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(PersistentModels()...)
}

// ApplySchema brings the schema up to date and refuses to continue when the
// one-draft index is missing, since draft creation depends on it.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	mode, err := SchemaMode(cfg)
	if err != nil {
		return err
	}

	middleware.Logger.Info("applying schema", slog.String("mode", mode), slog.String("env", cfg.Env))
	switch mode {
	case SchemaModeSQL:
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	case SchemaModeAuto:
		if err := AutoMigrate(db.WithContext(ctx)); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}

	if !HasDraftIndex(db) {
		return fmt.Errorf("index %s is missing after %s schema setup", DraftIndexName, mode)
	}
	return nil
}

// HasDraftIndex reports whether the one-draft index exists.
func HasDraftIndex(db *gorm.DB) bool {
	return db.Migrator().HasIndex(&models.GalaxyRequest{}, DraftIndexName)
}

// GetSchemaStatus reports the resolved mode, the applied and pending SQL
// migrations and whether the draft index exists.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	mode, err := SchemaMode(cfg)
	if err != nil {
		return nil, err
	}

	applied, err := NewMigrationStore(db).GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Mode:            mode,
		Environment:     cfg.Env,
		AppliedVersions: applied,
		DraftIndex:      HasDraftIndex(db),
	}

	appliedSet := make(map[int]bool, len(applied))
	for _, version := range applied {
		appliedSet[version] = true
	}
	for _, m := range GetMigrations() {
		if !appliedSet[m.Version] {
			status.PendingMigrations = append(status.PendingMigrations, m)
		}
	}
	return status, nil
}
