package database

import (
	"context"
	"testing"
	"testing/fstest"

	"galaxydistance/internal/config"
	"galaxydistance/internal/middleware"
	"galaxydistance/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: NewGormLogger(middleware.Logger, logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestDSN(t *testing.T) {
	dsn := DSN(&config.Config{DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "galaxies"})
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=galaxies sslmode=disable", dsn)
}

func TestAutoMigrate_OneDraftPerCreator(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, AutoMigrate(db))

	user := models.User{Username: "alice", Password: "x", Role: models.RoleRegular}
	require.NoError(t, db.Create(&user).Error)

	require.NoError(t, db.Create(&models.GalaxyRequest{CreatorID: user.ID, Status: models.RequestStatusDraft}).Error)
	assert.Error(t, db.Create(&models.GalaxyRequest{CreatorID: user.ID, Status: models.RequestStatusDraft}).Error)

	// Non-draft requests are unconstrained.
	require.NoError(t, db.Create(&models.GalaxyRequest{CreatorID: user.ID, Status: models.RequestStatusSubmitted}).Error)
	require.NoError(t, db.Create(&models.GalaxyRequest{CreatorID: user.ID, Status: models.RequestStatusSubmitted}).Error)
}

func TestAutoMigrate_LineItemPairIsUnique(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, AutoMigrate(db))

	user := models.User{Username: "bob", Password: "x"}
	require.NoError(t, db.Create(&user).Error)
	galaxy := models.Galaxy{Name: "Andromeda"}
	require.NoError(t, db.Create(&galaxy).Error)
	req := models.GalaxyRequest{CreatorID: user.ID, Status: models.RequestStatusDraft}
	require.NoError(t, db.Create(&req).Error)

	require.NoError(t, db.Create(&models.GalaxyInRequest{GalaxyRequestID: req.ID, GalaxyID: galaxy.ID}).Error)
	assert.Error(t, db.Create(&models.GalaxyInRequest{GalaxyRequestID: req.ID, GalaxyID: galaxy.ID}).Error)
}

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/000002_add_index.up.sql":   {Data: []byte("CREATE INDEX a ON b (c);")},
		"migrations/000002_add_index.down.sql": {Data: []byte("DROP INDEX a;")},
		"migrations/000001_init.up.sql":        {Data: []byte("CREATE TABLE b (c INT);")},
		"migrations/000001_init.down.sql":      {Data: []byte("DROP TABLE b;")},
		"migrations/README.md":                 {Data: []byte("ignored")},
		"migrations/bogus.up.sql":              {Data: []byte("ignored")},
	}

	loaded, err := LoadMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, 1, loaded[0].Version)
	assert.Equal(t, "init", loaded[0].Name)
	assert.Equal(t, "000002_add_index", loaded[1].String())
	assert.Equal(t, "DROP INDEX a;", loaded[1].DownScript)

	_, err = LoadMigrations(fstest.MapFS{
		"migrations/000001_init.up.sql": {Data: []byte("CREATE TABLE b (c INT);")},
	})
	assert.Error(t, err)
}

func TestEmbeddedMigrations(t *testing.T) {
	all := GetMigrations()
	require.NotEmpty(t, all)
	assert.Equal(t, 1, all[0].Version)
	assert.Contains(t, all[0].UpScript, "ux_galaxy_requests_one_draft")
	assert.NotNil(t, GetMigrationByVersion(1))
	assert.Nil(t, GetMigrationByVersion(999))
}

func TestSchemaMode(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		want    string
		wantErr bool
	}{
		{"default dev", config.Config{Env: "development"}, SchemaModeAuto, false},
		{"default prod", config.Config{Env: "production"}, SchemaModeSQL, false},
		{"sql dev", config.Config{Env: "development", DBSchemaMode: "sql"}, SchemaModeSQL, false},
		{"auto test", config.Config{Env: "test", DBSchemaMode: "auto"}, SchemaModeAuto, false},
		{"auto prod refused", config.Config{Env: "prod", DBSchemaMode: "auto"}, "", true},
		{"unknown", config.Config{DBSchemaMode: "hybrid"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, err := SchemaMode(&tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, mode)
		})
	}
}

func TestApplySchema_AutoAndStatus(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()
	cfg := &config.Config{Env: "test"}

	before, err := GetSchemaStatus(ctx, db, cfg)
	require.NoError(t, err)
	assert.False(t, before.DraftIndex)
	assert.Empty(t, before.AppliedVersions)
	assert.Len(t, before.PendingMigrations, len(GetMigrations()))

	require.NoError(t, ApplySchema(ctx, db, cfg))
	assert.True(t, db.Migrator().HasTable(&models.GalaxyRequest{}))

	status, err := GetSchemaStatus(ctx, db, cfg)
	require.NoError(t, err)
	assert.Equal(t, SchemaModeAuto, status.Mode)
	assert.True(t, status.DraftIndex)
}

func TestApplySchema_RequiresDraftIndex(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()
	cfg := &config.Config{Env: "test"}
	require.NoError(t, AutoMigrate(db))
	require.NoError(t, db.Migrator().DropIndex(&models.GalaxyRequest{}, DraftIndexName))
	require.False(t, HasDraftIndex(db))

	// Auto-migration recreates the index.
	require.NoError(t, ApplySchema(ctx, db, cfg))
	assert.True(t, HasDraftIndex(db))
}

func TestApplySchema_FailsWithoutDraftIndex(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()

	// The log claims every migration ran, but the tables were never created.
	require.NoError(t, db.AutoMigrate(&MigrationLog{}))
	for _, m := range GetMigrations() {
		require.NoError(t, db.Create(&MigrationLog{Version: m.Version, Name: m.Name}).Error)
	}

	err := ApplySchema(ctx, db, &config.Config{Env: "development", DBSchemaMode: SchemaModeSQL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), DraftIndexName)

	status, err := GetSchemaStatus(ctx, db, &config.Config{Env: "development", DBSchemaMode: SchemaModeSQL})
	require.NoError(t, err)
	assert.Empty(t, status.PendingMigrations)
	assert.False(t, status.DraftIndex)
}

func TestMigrationStore_RecordsVersions(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, db.AutoMigrate(&MigrationLog{}))
	store := NewMigrationStore(db)
	ctx := context.Background()

	applied, err := store.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)

	require.NoError(t, store.ApplyMigration(ctx, Migration{Version: 1, Name: "init", UpScript: "CREATE TABLE sample_items (id INTEGER)"}))
	applied, err = store.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, applied)
	assert.True(t, db.Migrator().HasTable("sample_items"))

	require.NoError(t, store.RemoveMigration(ctx, 1))
	applied, err = store.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)

	assert.Error(t, validateAppliedVersions([]int{1, 42}, []Migration{{Version: 1}}))
	assert.NoError(t, validateAppliedVersions([]int{1}, []Migration{{Version: 1}}))
}
