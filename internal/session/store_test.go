package session

import (
	"context"
	"testing"
	"time"

	"galaxydistance/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb, 7*24*time.Hour, 20*time.Minute), mr
}

func TestStore_CreateAndResolve(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	token, err := store.Create(ctx, 42)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.True(t, mr.Exists("session:"+token))
	assert.Equal(t, 7*24*time.Hour, mr.TTL("session:"+token))

	userID, ok, err := store.Resolve(ctx, token)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint(42), userID)
}

func TestStore_ResolveSlidesExpiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	token, err := store.Create(ctx, 7)
	require.NoError(t, err)
	key := "session:" + token

	mr.FastForward(3 * 24 * time.Hour)
	before := mr.TTL(key)
	assert.Equal(t, 4*24*time.Hour, before)

	_, ok, err := store.Resolve(ctx, token)
	require.NoError(t, err)
	require.True(t, ok)
	first := mr.TTL(key)
	assert.Equal(t, 7*24*time.Hour, first)

	_, ok, err = store.Resolve(ctx, token)
	require.NoError(t, err)
	require.True(t, ok)
	assert.GreaterOrEqual(t, mr.TTL(key), first)
}

func TestStore_ResolveUnknownAndExpired(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	_, ok, err := store.Resolve(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = store.Resolve(ctx, "does-not-exist")
	require.NoError(t, err)
	assert.False(t, ok)

	token, err := store.Create(ctx, 1)
	require.NoError(t, err)
	mr.FastForward(7*24*time.Hour + time.Second)

	_, ok, err = store.Resolve(ctx, token)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mr.Set("session:garbage", "not-a-number"))
	_, ok, err = store.Resolve(ctx, "garbage")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Revoke(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	token, err := store.Create(ctx, 3)
	require.NoError(t, err)

	require.NoError(t, store.Revoke(ctx, token))
	assert.False(t, mr.Exists("session:"+token))

	// Idempotent.
	require.NoError(t, store.Revoke(ctx, token))
	require.NoError(t, store.Revoke(ctx, ""))
}

func TestStore_TouchGuest(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	token, minted, err := store.TouchGuest(ctx, "")
	require.NoError(t, err)
	assert.True(t, minted)
	assert.True(t, mr.Exists("guest_session:"+token))
	assert.Equal(t, 20*time.Minute, mr.TTL("guest_session:"+token))

	mr.FastForward(15 * time.Minute)
	same, minted, err := store.TouchGuest(ctx, token)
	require.NoError(t, err)
	assert.False(t, minted)
	assert.Equal(t, token, same)
	assert.Equal(t, 20*time.Minute, mr.TTL("guest_session:"+token))

	fresh, minted, err := store.TouchGuest(ctx, "unknown-token")
	require.NoError(t, err)
	assert.True(t, minted)
	assert.NotEqual(t, "unknown-token", fresh)
	assert.NotEqual(t, token, fresh)

	mr.FastForward(21 * time.Minute)
	renewed, minted, err := store.TouchGuest(ctx, token)
	require.NoError(t, err)
	assert.True(t, minted)
	assert.NotEqual(t, token, renewed)
}

func TestStore_GuestAndSessionNamespacesAreDisjoint(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	guest, _, err := store.TouchGuest(ctx, "")
	require.NoError(t, err)

	// A guest token never authenticates.
	_, ok, err := store.Resolve(ctx, guest)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_MintSkipsCollisions(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("guest_session:taken-guest", "1"))
	require.NoError(t, mr.Set("session:taken-user", "9"))

	tokens := []string{"taken-guest", "taken-user", "free"}
	store.newToken = func() string {
		next := tokens[0]
		tokens = tokens[1:]
		return next
	}

	token, err := store.Create(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "free", token)

	val, err := mr.Get("session:taken-user")
	require.NoError(t, err)
	assert.Equal(t, "9", val)
}

func TestStore_MintGivesUp(t *testing.T) {
	store, mr := newTestStore(t)
	require.NoError(t, mr.Set("session:same", "1"))
	store.newToken = func() string { return "same" }

	_, err := store.Create(context.Background(), 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTokenCollision)
	assert.True(t, models.IsCode(err, models.CodeDependencyFailure))
}

func TestStore_RedisFailure(t *testing.T) {
	store, mr := newTestStore(t)
	mr.Close()

	_, _, err := store.Resolve(context.Background(), "token")
	assert.True(t, models.IsCode(err, models.CodeDependencyFailure))

	_, _, err = store.TouchGuest(context.Background(), "token")
	assert.True(t, models.IsCode(err, models.CodeDependencyFailure))
}
