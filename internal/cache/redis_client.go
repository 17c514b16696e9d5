package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

func ConnectRedis(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     20,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// Sequence is a sequence.Generator backed by INCR. Keys live under "seq:".
type Sequence struct {
	rdb *redis.Client
}

func NewSequence(rdb *redis.Client) *Sequence {
	return &Sequence{rdb: rdb}
}

func (s *Sequence) Next(ctx context.Context, name string) (int64, error) {
	n, err := s.rdb.Incr(ctx, "seq:"+name).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr %s: %w", name, err)
	}
	return n, nil
}
