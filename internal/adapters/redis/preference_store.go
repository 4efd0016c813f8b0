package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/target/compliance-gate/internal/errors"
)

const (
	defaultPreferencePrefix = "cg:prefs:"
	defaultPreferenceTTL    = 90 * 24 * time.Hour
)

// PreferenceStore keeps per-device UI preferences in one Redis hash per device.
// Every write slides the hash's expiry forward.
type PreferenceStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// PreferenceStoreOptions configures a PreferenceStore.
type PreferenceStoreOptions struct {
	Prefix string        // Optional, defaults to "cg:prefs:"
	TTL    time.Duration // Optional, defaults to 90 days
}

// NewPreferenceStore creates a PreferenceStore.
func NewPreferenceStore(client redis.UniversalClient, opts PreferenceStoreOptions) *PreferenceStore {
	if client == nil {
		panic("redis client is required")
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = defaultPreferencePrefix
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultPreferenceTTL
	}
	return &PreferenceStore{client: client, prefix: prefix, ttl: ttl}
}

// Get returns the value for key on deviceID; ok is false when it is unset.
func (p *PreferenceStore) Get(ctx context.Context, deviceID, key string) (string, bool, error) {
	if strings.TrimSpace(deviceID) == "" {
		return "", false, nil
	}
	v, err := p.client.HGet(ctx, p.prefix+deviceID, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperrors.Wrap(err, apperrors.ErrCodeNetwork, "redis get preference")
	}
	return v, true, nil
}

// Set stores value for key on deviceID.
func (p *PreferenceStore) Set(ctx context.Context, deviceID, key, value string) error {
	if strings.TrimSpace(deviceID) == "" {
		return apperrors.ValidationField("device_id", "device id is required")
	}
	hk := p.prefix + deviceID
	_, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, hk, key, value)
		pipe.Expire(ctx, hk, p.ttl)
		return nil
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeNetwork, "redis set preference")
	}
	return nil
}

// Delete clears key on deviceID.
func (p *PreferenceStore) Delete(ctx context.Context, deviceID, key string) error {
	if strings.TrimSpace(deviceID) == "" {
		return nil
	}
	if err := p.client.HDel(ctx, p.prefix+deviceID, key).Err(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeNetwork, "redis delete preference")
	}
	return nil
}
