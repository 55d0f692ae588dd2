// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"errors"
	"fmt"
	"strings"

	"galaxydistance/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultPassword is shared by every seeded account.
const DefaultPassword = "Password123"

// BuiltInGalaxy is a permanent catalog entry.
type BuiltInGalaxy struct {
	Name        string
	Description string
}

// BuiltInGalaxies defines the catalog every environment starts with.
var BuiltInGalaxies = []BuiltInGalaxy{
	{Name: "Andromeda", Description: "Nearest large spiral galaxy to the Milky Way."},
	{Name: "Triangulum", Description: "Third-largest member of the Local Group."},
	{Name: "Whirlpool", Description: "Grand-design spiral interacting with NGC 5195."},
	{Name: "Sombrero", Description: "Edge-on spiral with a bright bulge and dust lane."},
	{Name: "Pinwheel", Description: "Face-on spiral in Ursa Major."},
	{Name: "Cartwheel", Description: "Ring galaxy shaped by a head-on collision."},
	{Name: "Large Magellanic Cloud", Description: "Satellite of the Milky Way visible from the southern hemisphere."},
	{Name: "Centaurus A", Description: "Lenticular galaxy hosting a bright radio source."},
}

// Options configures a seeding run.
type Options struct {
	// RegularUsers is the number of regular accounts to create.
	RegularUsers int
	// ExtraGalaxies adds generated catalog entries on top of the built-ins.
	ExtraGalaxies int
	// HashCost overrides the bcrypt cost. Zero means bcrypt.DefaultCost.
	HashCost int
}

// Result reports what a run created.
type Result struct {
	UsersCreated    int
	GalaxiesCreated int
}

// Seeder writes demo data. Every step is idempotent by username or galaxy name.
type Seeder struct {
	db   *gorm.DB
	fake *gofakeit.Faker
}

// NewSeeder creates a Seeder. A zero seed picks a random one.
func NewSeeder(db *gorm.DB, seed int64) *Seeder {
	return &Seeder{db: db, fake: gofakeit.New(seed)}
}

// Run seeds a moderator, opts.RegularUsers regular users and the catalog.
func (s *Seeder) Run(opts Options) (*Result, error) {
	cost := opts.HashCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}

	res := &Result{}

	users := []models.User{{
		Username:  "moderator",
		Email:     "moderator@galaxydistance.local",
		FirstName: "Edwin",
		LastName:  "Hubble",
		Role:      models.RoleModerator,
	}}
	for i := 1; i <= opts.RegularUsers; i++ {
		users = append(users, models.User{
			Username:  fmt.Sprintf("observer%d", i),
			Email:     fmt.Sprintf("observer%d@galaxydistance.local", i),
			FirstName: s.fake.FirstName(),
			LastName:  s.fake.LastName(),
			Role:      models.RoleRegular,
		})
	}
	for i := range users {
		users[i].Password = string(hashed)
		created, err := s.ensureUser(&users[i])
		if err != nil {
			return nil, err
		}
		if created {
			res.UsersCreated++
		}
	}

	catalog := append([]BuiltInGalaxy(nil), BuiltInGalaxies...)
	for i := 1; i <= opts.ExtraGalaxies; i++ {
		catalog = append(catalog, BuiltInGalaxy{
			Name:        fmt.Sprintf("NGC %d", 1000+i),
			Description: s.fake.Sentence(12),
		})
	}
	for _, item := range catalog {
		created, err := s.ensureGalaxy(item)
		if err != nil {
			return nil, err
		}
		if created {
			res.GalaxiesCreated++
		}
	}
	return res, nil
}

func (s *Seeder) ensureUser(user *models.User) (bool, error) {
	tx := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoNothing: true,
	}).Create(user)
	if tx.Error != nil {
		return false, fmt.Errorf("seed user %s: %w", user.Username, tx.Error)
	}
	return tx.RowsAffected > 0, nil
}

func (s *Seeder) ensureGalaxy(item BuiltInGalaxy) (bool, error) {
	var existing models.Galaxy
	err := s.db.Where("LOWER(name) = ?", strings.ToLower(item.Name)).First(&existing).Error
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return false, fmt.Errorf("look up galaxy %s: %w", item.Name, err)
	}

	galaxy := models.Galaxy{Name: item.Name, Description: item.Description, IsActive: true}
	if err := s.db.Create(&galaxy).Error; err != nil {
		return false, fmt.Errorf("seed galaxy %s: %w", item.Name, err)
	}
	return true, nil
}

// ClearAll removes requests, galaxies and users, children first.
func (s *Seeder) ClearAll() error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{
			&models.GalaxyInRequest{},
			&models.GalaxyRequest{},
			&models.Galaxy{},
			&models.User{},
		} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
