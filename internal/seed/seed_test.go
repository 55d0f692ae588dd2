package seed

import (
	"testing"

	"galaxydistance/internal/models"
	"galaxydistance/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRun_Idempotent(t *testing.T) {
	db := testutil.NewTestDB(t)
	s := NewSeeder(db, 42)
	opts := Options{RegularUsers: 3, ExtraGalaxies: 2, HashCost: bcrypt.MinCost}

	first, err := s.Run(opts)
	require.NoError(t, err)
	assert.Equal(t, 4, first.UsersCreated)
	assert.Equal(t, len(BuiltInGalaxies)+2, first.GalaxiesCreated)

	second, err := s.Run(opts)
	require.NoError(t, err)
	assert.Zero(t, second.UsersCreated)
	assert.Zero(t, second.GalaxiesCreated)

	var moderators int64
	require.NoError(t, db.Model(&models.User{}).Where("role = ?", models.RoleModerator).Count(&moderators).Error)
	assert.EqualValues(t, 1, moderators)

	var galaxies int64
	require.NoError(t, db.Model(&models.Galaxy{}).Where("is_active = ?", true).Count(&galaxies).Error)
	assert.EqualValues(t, len(BuiltInGalaxies)+2, galaxies)
}

func TestRun_PasswordsVerify(t *testing.T) {
	db := testutil.NewTestDB(t)
	_, err := NewSeeder(db, 1).Run(Options{RegularUsers: 1, HashCost: bcrypt.MinCost})
	require.NoError(t, err)

	var user models.User
	require.NoError(t, db.Where("username = ?", "observer1").First(&user).Error)
	assert.Equal(t, models.RoleRegular, user.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(DefaultPassword)))
}

func TestClearAll(t *testing.T) {
	db := testutil.NewTestDB(t)
	s := NewSeeder(db, 7)
	_, err := s.Run(Options{RegularUsers: 2, HashCost: bcrypt.MinCost})
	require.NoError(t, err)

	require.NoError(t, s.ClearAll())

	var users, galaxies int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&models.Galaxy{}).Count(&galaxies).Error)
	assert.Zero(t, users)
	assert.Zero(t, galaxies)
}
