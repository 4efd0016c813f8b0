package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/target/compliance-gate/internal/errors"
	"github.com/target/compliance-gate/internal/ports"
)

func TestPreferenceStore_SetGetDelete(t *testing.T) {
	client := setupTestRedis(t)
	store := NewPreferenceStore(client, PreferenceStoreOptions{TTL: time.Hour})
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "device-1", ports.PrefRememberedEmail)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "device-1", ports.PrefRememberedEmail, "vendor@example.com"))

	v, ok, err := store.Get(ctx, "device-1", ports.PrefRememberedEmail)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "vendor@example.com", v)

	ttl := client.TTL(ctx, defaultPreferencePrefix+"device-1").Val()
	assert.Greater(t, ttl, 59*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour)

	_, ok, err = store.Get(ctx, "device-2", ports.PrefRememberedEmail)
	require.NoError(t, err)
	assert.False(t, ok, "preferences are per device")

	require.NoError(t, store.Delete(ctx, "device-1", ports.PrefRememberedEmail))
	_, ok, err = store.Get(ctx, "device-1", ports.PrefRememberedEmail)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPreferenceStore_EmptyDevice(t *testing.T) {
	store := NewPreferenceStore(setupTestRedis(t), PreferenceStoreOptions{})
	ctx := context.Background()

	err := store.Set(ctx, " ", ports.PrefRememberedEmail, "x@example.com")
	assert.True(t, apperrors.IsValidation(err))

	_, ok, err := store.Get(ctx, "", ports.PrefRememberedEmail)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, store.Delete(ctx, "", ports.PrefRememberedEmail))
}
