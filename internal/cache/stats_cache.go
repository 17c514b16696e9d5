package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Stats keeps dashboard aggregates in Redis for a short TTL. A nil *Stats,
// or one without a client, always loads fresh.
type Stats struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStats(rdb *redis.Client, ttl time.Duration) *Stats {
	return &Stats{rdb: rdb, ttl: ttl}
}

// Remember returns the cached value under key or calls load and caches its
// result. Redis failures are logged and fall through to load.
func Remember[T any](ctx context.Context, s *Stats, key string, load func(context.Context) (T, error)) (T, error) {
	if s == nil || s.rdb == nil || s.ttl <= 0 {
		return load(ctx)
	}

	key = "stats:" + key
	data, err := s.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			return v, nil
		}
		slog.Warn("cached stats unreadable, reloading", slog.String("key", key))
	case errors.Is(err, redis.Nil):
	default:
		slog.Warn("redis get failed, continuing with store", slog.String("key", key), slog.Any("error", err))
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}

	if data, err := json.Marshal(v); err == nil {
		if err := s.rdb.Set(ctx, key, data, s.ttl).Err(); err != nil {
			slog.Warn("redis set failed", slog.String("key", key), slog.Any("error", err))
		}
	}
	return v, nil
}
