package trust

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the hash holding source_id -> trust overrides.
const DefaultRedisKey = "source_trust"

// HashReader is the subset of *redis.Client used by Redis.
type HashReader interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
}

// Redis reads trust overrides from a Redis hash. Values are clamped to
// [MinTrust, MaxTrust]; a missing field means the default.
type Redis struct {
	client HashReader
	key    string
	def    int
}

// NewRedis builds a Redis registry reading hash key.
func NewRedis(client HashReader, key string, def int) *Redis {
	if key == "" {
		key = DefaultRedisKey
	}
	return &Redis{client: client, key: key, def: def}
}

// Trust implements Registry.
func (r *Redis) Trust(ctx context.Context, sourceID string) (int, error) {
	v, ok, err := r.Lookup(ctx, sourceID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return r.def, nil
	}
	return v, nil
}

// Lookup implements Lookuper.
func (r *Redis) Lookup(ctx context.Context, sourceID string) (int, bool, error) {
	raw, err := r.client.HGet(ctx, r.key, normalizeID(sourceID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("trust: hget %s %s: %w", r.key, sourceID, err)
	}

	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false, fmt.Errorf("trust: source %q has non-integer value %q: %w", sourceID, raw, err)
	}
	return Clamp(v), true, nil
}
