package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"galaxydistance/internal/models"
	"galaxydistance/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func floatPtr(v float64) *float64 { return &v }

func TestUserRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := &models.User{Username: "alice", Password: "hash", Role: models.RoleRegular}
	require.NoError(t, repo.Create(ctx, u))
	require.NotZero(t, u.ID)

	err := repo.Create(ctx, &models.User{Username: "alice", Password: "hash"})
	assert.True(t, models.IsCode(err, models.CodeConflict))

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	_, err = repo.GetByID(ctx, 999)
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	byName, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, byName)
	missing, err := repo.GetByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	got.FirstName = "Alice"
	require.NoError(t, repo.Update(ctx, got))
	again, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", again.FirstName)
}

func TestUserRepository_DatabaseError(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnError(errors.New("connection reset"))

	_, err := repo.GetByID(context.Background(), 1)
	assert.True(t, models.IsCode(err, models.CodeInternal))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGalaxyRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewGalaxyRepository(db)
	ctx := context.Background()

	andromeda := testutil.CreateGalaxy(t, db, "Andromeda")
	testutil.CreateGalaxy(t, db, "Sombrero")
	hidden := testutil.CreateInactiveGalaxy(t, db, "Andromeda Dwarf")

	all, err := repo.ListActive(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	found, err := repo.ListActive(ctx, "  ANDRO ")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, andromeda.ID, found[0].ID)

	_, err = repo.GetActive(ctx, hidden.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
	anyState, err := repo.GetByID(ctx, hidden.ID)
	require.NoError(t, err)
	assert.False(t, anyState.IsActive)

	byIDs, err := repo.ListActiveByIDs(ctx, []uint{hidden.ID, andromeda.ID, 12345})
	require.NoError(t, err)
	require.Len(t, byIDs, 1)
	assert.Equal(t, andromeda.ID, byIDs[0].ID)
	empty, err := repo.ListActiveByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, repo.SetImage(ctx, andromeda.ID, "1.png", "http://img/1.png"))
	got, err := repo.GetActive(ctx, andromeda.ID)
	require.NoError(t, err)
	assert.Equal(t, "1.png", got.ImageKey)

	got.Description = "nearest spiral"
	require.NoError(t, repo.Update(ctx, got))
	assert.True(t, models.IsCode(repo.Update(ctx, hidden), models.CodeNotFound))

	require.NoError(t, repo.Deactivate(ctx, andromeda.ID))
	assert.True(t, models.IsCode(repo.Deactivate(ctx, andromeda.ID), models.CodeNotFound))

	byName, err := repo.GetByName(ctx, "Sombrero")
	require.NoError(t, err)
	require.NotNil(t, byName)
	none, err := repo.GetByName(ctx, "Nope")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestGalaxyRequestRepository_GetOrCreateDraft(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewGalaxyRequestRepository(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice", models.RoleRegular)

	_, err := repo.FindDraft(ctx, alice.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	first, created, err := repo.GetOrCreateDraft(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.RequestStatusDraft, first.Status)

	second, created, err := repo.GetOrCreateDraft(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	var drafts int64
	require.NoError(t, db.Model(&models.GalaxyRequest{}).
		Where("creator_id = ? AND status = ?", alice.ID, models.RequestStatusDraft).
		Count(&drafts).Error)
	assert.Equal(t, int64(1), drafts)
}

func TestGalaxyRequestRepository_LineItems(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewGalaxyRequestRepository(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice", models.RoleRegular)
	m31 := testutil.CreateGalaxy(t, db, "M31")
	m87 := testutil.CreateGalaxy(t, db, "M87")

	draft, _, err := repo.GetOrCreateDraft(ctx, alice.ID)
	require.NoError(t, err)

	added, err := repo.AddItem(ctx, draft.ID, m31.ID)
	require.NoError(t, err)
	assert.True(t, added)
	added, err = repo.AddItem(ctx, draft.ID, m31.ID)
	require.NoError(t, err)
	assert.False(t, added)
	_, err = repo.AddItem(ctx, draft.ID, m87.ID)
	require.NoError(t, err)

	count, err := repo.CountItems(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, repo.SetMagnitude(ctx, draft.ID, m31.ID, 3.44))
	assert.True(t, models.IsCode(repo.SetMagnitude(ctx, draft.ID, 999, 1), models.CodeNotFound))

	require.NoError(t, repo.RemoveItem(ctx, draft.ID, m87.ID))
	assert.True(t, models.IsCode(repo.RemoveItem(ctx, draft.ID, m87.ID), models.CodeNotFound))

	loaded, err := repo.FindDraft(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	require.NotNil(t, loaded.Items[0].Galaxy)
	assert.Equal(t, "M31", loaded.Items[0].Galaxy.Name)
	require.NotNil(t, loaded.Items[0].Magnitude)
	assert.InDelta(t, 3.44, *loaded.Items[0].Magnitude, 1e-9)

	require.NoError(t, repo.SetTelescope(ctx, draft.ID, "Hubble"))
}

func TestGalaxyRequestRepository_SaveTransition(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewGalaxyRequestRepository(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice", models.RoleRegular)
	mod := testutil.CreateUser(t, db, "mod", models.RoleModerator)
	m31 := testutil.CreateGalaxy(t, db, "M31")

	req := testutil.CreateRequest(t, db, alice, models.RequestStatusSubmitted,
		models.GalaxyInRequest{GalaxyID: m31.ID, Magnitude: floatPtr(7.86)})

	loaded, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	require.NoError(t, loaded.Complete(mod.ID, time.Now().UTC()))
	require.NoError(t, repo.SaveTransition(ctx, loaded, models.RequestStatusSubmitted))

	stored, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCompleted, stored.Status)
	require.NotNil(t, stored.Moderator)
	assert.Equal(t, "mod", stored.Moderator.Username)
	require.NotNil(t, stored.CompletedAt)
	require.NotNil(t, stored.Items[0].Distance)
	assert.InDelta(t, 2.7040, *stored.Items[0].Distance, 1e-3)

	// Stale source status: nothing changes.
	err = repo.SaveTransition(ctx, loaded, models.RequestStatusSubmitted)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestGalaxyRequestRepository_LineItemsRequireDraft(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewGalaxyRequestRepository(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice", models.RoleRegular)
	m31 := testutil.CreateGalaxy(t, db, "M31")
	m87 := testutil.CreateGalaxy(t, db, "M87")

	for _, status := range []models.RequestStatus{
		models.RequestStatusSubmitted,
		models.RequestStatusCompleted,
		models.RequestStatusRejected,
		models.RequestStatusDeleted,
	} {
		t.Run(string(status), func(t *testing.T) {
			req := testutil.CreateRequest(t, db, alice, status,
				models.GalaxyInRequest{GalaxyID: m31.ID, Magnitude: floatPtr(7.86)})

			added, err := repo.AddItem(ctx, req.ID, m87.ID)
			assert.True(t, models.IsCode(err, models.CodeNotFound))
			assert.False(t, added)
			assert.True(t, models.IsCode(repo.SetMagnitude(ctx, req.ID, m31.ID, 1.5), models.CodeNotFound))
			assert.True(t, models.IsCode(repo.RemoveItem(ctx, req.ID, m31.ID), models.CodeNotFound))

			stored, err := repo.GetByID(ctx, req.ID)
			require.NoError(t, err)
			require.Len(t, stored.Items, 1)
			require.NotNil(t, stored.Items[0].Magnitude)
			assert.InDelta(t, 7.86, *stored.Items[0].Magnitude, 1e-9)
		})
	}
}

func TestGalaxyRequestRepository_SubmitRechecksStoredItems(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewGalaxyRequestRepository(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice", models.RoleRegular)
	m31 := testutil.CreateGalaxy(t, db, "M31")
	m87 := testutil.CreateGalaxy(t, db, "M87")

	draft, _, err := repo.GetOrCreateDraft(ctx, alice.ID)
	require.NoError(t, err)
	_, err = repo.AddItem(ctx, draft.ID, m31.ID)
	require.NoError(t, err)
	require.NoError(t, repo.SetMagnitude(ctx, draft.ID, m31.ID, 7.86))
	require.NoError(t, repo.SetTelescope(ctx, draft.ID, "Hubble"))

	snapshot, err := repo.FindDraft(ctx, alice.ID)
	require.NoError(t, err)
	require.NoError(t, snapshot.Submit(time.Now().UTC()))

	// An item without magnitude lands after the snapshot was validated.
	_, err = repo.AddItem(ctx, draft.ID, m87.ID)
	require.NoError(t, err)

	err = repo.SaveTransition(ctx, snapshot, models.RequestStatusDraft)
	require.True(t, models.IsCode(err, models.CodeValidation))
	assert.Contains(t, err.Error(), "M87(")

	stored, err := repo.GetByID(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusDraft, stored.Status)
	assert.Nil(t, stored.SubmittedAt)

	require.NoError(t, repo.SetMagnitude(ctx, draft.ID, m87.ID, 12.0))
	require.NoError(t, repo.SaveTransition(ctx, snapshot, models.RequestStatusDraft))
	stored, err = repo.GetByID(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusSubmitted, stored.Status)
}

func TestGalaxyRequestRepository_List(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewGalaxyRequestRepository(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice", models.RoleRegular)
	bob := testutil.CreateUser(t, db, "bob", models.RoleRegular)

	rejected := testutil.CreateRequest(t, db, alice, models.RequestStatusRejected)
	completed := testutil.CreateRequest(t, db, alice, models.RequestStatusCompleted)
	submitted := testutil.CreateRequest(t, db, alice, models.RequestStatusSubmitted)
	draft := testutil.CreateRequest(t, db, alice, models.RequestStatusDraft)
	testutil.CreateRequest(t, db, alice, models.RequestStatusDeleted)
	bobs := testutil.CreateRequest(t, db, bob, models.RequestStatusSubmitted)

	ids := func(rs []models.GalaxyRequest) []uint {
		out := make([]uint, 0, len(rs))
		for _, r := range rs {
			out = append(out, r.ID)
		}
		return out
	}

	own, err := repo.List(ctx, RequestFilter{CreatorID: alice.ID})
	require.NoError(t, err)
	assert.Equal(t, []uint{submitted.ID, completed.ID, rejected.ID, draft.ID}, ids(own))

	all, err := repo.List(ctx, RequestFilter{ExcludeDrafts: true})
	require.NoError(t, err)
	assert.Equal(t, []uint{submitted.ID, bobs.ID, completed.ID, rejected.ID}, ids(all))

	onlyCompleted, err := repo.List(ctx, RequestFilter{ExcludeDrafts: true, Status: models.RequestStatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, []uint{completed.ID}, ids(onlyCompleted))

	future := time.Now().UTC().Add(24 * time.Hour)
	none, err := repo.List(ctx, RequestFilter{ExcludeDrafts: true, SubmittedFrom: &future})
	require.NoError(t, err)
	assert.Empty(t, none)

	past := time.Now().UTC().Add(-24 * time.Hour)
	window, err := repo.List(ctx, RequestFilter{ExcludeDrafts: true, SubmittedFrom: &past, SubmittedBefore: &future})
	require.NoError(t, err)
	assert.Len(t, window, 4)
}
