package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"weighbridge/pkg/logger"
)

// ReadThrough serves key from store, or computes it with load and stores the
// result for ttl. Cache faults never fail the read: they are logged and the
// value is computed directly. A nil store disables caching.
func ReadThrough[T any](
	ctx context.Context,
	store Store,
	key string,
	ttl time.Duration,
	load func(ctx context.Context) (T, error),
) (T, error) {
	if store == nil {
		return load(ctx)
	}

	raw, err := store.Get(ctx, key)
	switch {
	case err == nil:
		var cached T
		uerr := json.Unmarshal(raw, &cached)
		if uerr == nil {
			return cached, nil
		}
		logger.Warn(ctx, "cache: discarding undecodable value", "key", key, "error", uerr)
	case !errors.Is(err, ErrMiss):
		logger.Warn(ctx, "cache: get failed, computing directly", "key", key, "error", err)
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}

	payload, err := json.Marshal(value)
	if err != nil {
		logger.Warn(ctx, "cache: encode failed", "key", key, "error", err)
		return value, nil
	}
	if err := store.Set(ctx, key, payload, ttl); err != nil {
		logger.Warn(ctx, "cache: set failed", "key", key, "error", err)
	}
	return value, nil
}

// Fingerprint hashes an arbitrary filter into a short stable key part.
func Fingerprint(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return "unhashable"
	}
	sum := sha1.Sum(raw)
	return hex.EncodeToString(sum[:8])
}
