// Package testutil provides shared test doubles and fixtures.
package testutil

import (
	"testing"
	"time"

	"galaxydistance/internal/database"
	"galaxydistance/internal/middleware"
	"galaxydistance/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a migrated in-memory SQLite database. A single connection
// keeps every query on the same memory database.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: database.NewGormLogger(middleware.Logger, logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}

// NewTestRedis starts a miniredis server and a client connected to it.
func NewTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

// CreateUser inserts a user with the given role.
func CreateUser(t *testing.T, db *gorm.DB, username string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", Password: "x", Role: role}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

// CreateGalaxy inserts an active galaxy.
func CreateGalaxy(t *testing.T, db *gorm.DB, name string) *models.Galaxy {
	t.Helper()
	g := &models.Galaxy{Name: name, Description: name + " galaxy", IsActive: true}
	if err := db.Create(g).Error; err != nil {
		t.Fatalf("create galaxy %s: %v", name, err)
	}
	return g
}

// CreateInactiveGalaxy inserts a galaxy and deactivates it.
func CreateInactiveGalaxy(t *testing.T, db *gorm.DB, name string) *models.Galaxy {
	t.Helper()
	g := CreateGalaxy(t, db, name)
	if err := db.Model(g).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate galaxy %s: %v", name, err)
	}
	g.IsActive = false
	return g
}

// CreateRequest inserts a request in status with the given line items.
func CreateRequest(t *testing.T, db *gorm.DB, creator *models.User, status models.RequestStatus, items ...models.GalaxyInRequest) *models.GalaxyRequest {
	t.Helper()
	r := &models.GalaxyRequest{CreatorID: creator.ID, Status: status, Telescope: "Hubble"}
	if status != models.RequestStatusDraft {
		now := time.Now().UTC()
		r.SubmittedAt = &now
	}
	if err := db.Create(r).Error; err != nil {
		t.Fatalf("create request: %v", err)
	}
	for i := range items {
		items[i].GalaxyRequestID = r.ID
		if err := db.Create(&items[i]).Error; err != nil {
			t.Fatalf("create line item: %v", err)
		}
	}
	r.Items = items
	return r
}
