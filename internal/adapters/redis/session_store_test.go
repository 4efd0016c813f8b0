package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/target/compliance-gate/internal/errors"
	"github.com/target/compliance-gate/internal/ports"
	"github.com/target/compliance-gate/internal/testutil"
)

var (
	_ ports.SessionStore    = (*SessionStore)(nil)
	_ ports.PreferenceStore = (*PreferenceStore)(nil)
)

// setupTestRedis creates a Redis client for testing.
// Tests will be skipped if Redis is not available.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := testutil.SetupTestRedis(t)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestSessionStore_SaveAndGet(t *testing.T) {
	client := setupTestRedis(t)
	store := NewSessionStore(client)
	ctx := context.Background()

	session := testutil.NewSession().
		WithID("test-session-1").
		WithUser("user-123", "user@example.com").
		WithExpiry(time.Now().Add(30 * time.Minute)).
		Build()

	require.NoError(t, store.Save(ctx, session))

	retrieved, err := store.Get(ctx, "test-session-1")
	require.NoError(t, err)
	assert.Equal(t, session.ID, retrieved.ID)
	assert.Equal(t, session.UserID, retrieved.UserID)
	assert.Equal(t, session.Email, retrieved.Email)
	assert.Equal(t, session.Tokens.AccessToken, retrieved.Tokens.AccessToken)
	assert.Equal(t, session.Tokens.RefreshToken, retrieved.Tokens.RefreshToken)
	assert.True(t, retrieved.IsActive)
	assert.WithinDuration(t, session.ExpiresAt, retrieved.ExpiresAt, time.Second)

	ttl := client.TTL(ctx, defaultSessionPrefix+"test-session-1").Val()
	assert.Greater(t, ttl, 29*time.Minute)
}

func TestSessionStore_GetNonExistent(t *testing.T) {
	store := NewSessionStore(setupTestRedis(t))

	_, err := store.Get(context.Background(), "non-existent")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSessionStore_Delete(t *testing.T) {
	store := NewSessionStore(setupTestRedis(t))
	ctx := context.Background()

	session := testutil.NewSession().
		WithID("test-session-delete").
		WithExpiry(time.Now().Add(30 * time.Minute)).
		Build()
	require.NoError(t, store.Save(ctx, session))

	_, err := store.Get(ctx, "test-session-delete")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "test-session-delete"))
	require.NoError(t, store.Delete(ctx, "test-session-delete"), "second delete is a no-op")

	_, err = store.Get(ctx, "test-session-delete")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSessionStore_TTLExpiration(t *testing.T) {
	store := NewSessionStore(setupTestRedis(t))
	ctx := context.Background()

	session := testutil.NewSession().
		WithID("test-session-ttl").
		WithExpiry(time.Now().Add(100 * time.Millisecond)).
		Build()
	require.NoError(t, store.Save(ctx, session))

	time.Sleep(200 * time.Millisecond)

	_, err := store.Get(ctx, "test-session-ttl")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSessionStore_ExpiredByClockIsDropped(t *testing.T) {
	client := setupTestRedis(t)
	clock := time.Now()
	store := NewSessionStoreWithOptions(client, SessionStoreOptions{Now: func() time.Time { return clock }})
	ctx := context.Background()

	session := testutil.NewSession().WithID("clocked").WithExpiry(clock.Add(time.Hour)).Build()
	require.NoError(t, store.Save(ctx, session))

	clock = clock.Add(2 * time.Hour)
	_, err := store.Get(ctx, "clocked")
	assert.True(t, apperrors.IsNotFound(err))
	assert.Equal(t, int64(0), client.Exists(ctx, defaultSessionPrefix+"clocked").Val())
}

func TestSessionStore_CustomPrefix(t *testing.T) {
	client := setupTestRedis(t)
	store := NewSessionStoreWithOptions(client, SessionStoreOptions{Prefix: "test-prefix:"})
	ctx := context.Background()

	session := testutil.NewSession().
		WithID("prefix-test").
		WithExpiry(time.Now().Add(30 * time.Minute)).
		Build()
	require.NoError(t, store.Save(ctx, session))

	assert.Equal(t, int64(1), client.Exists(ctx, "test-prefix:prefix-test").Val())

	retrieved, err := store.Get(ctx, "prefix-test")
	require.NoError(t, err)
	assert.Equal(t, session.ID, retrieved.ID)
}

func TestSessionStore_SaveRejectsInvalid(t *testing.T) {
	store := NewSessionStore(setupTestRedis(t))
	ctx := context.Background()

	t.Run("empty id", func(t *testing.T) {
		session := testutil.NewSession().WithID("").WithExpiry(time.Now().Add(time.Hour)).Build()
		err := store.Save(ctx, session)
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
		assert.Contains(t, err.Error(), "session ID cannot be empty")
	})

	t.Run("already expired", func(t *testing.T) {
		session := testutil.NewSession().WithID("expired").WithExpiry(time.Now().Add(-time.Hour)).Build()
		err := store.Save(ctx, session)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "session is expired")
	})
}

func TestSessionStore_GetEmptyID(t *testing.T) {
	store := NewSessionStore(setupTestRedis(t))

	_, err := store.Get(context.Background(), "")
	assert.True(t, apperrors.IsNotFound(err))
}
