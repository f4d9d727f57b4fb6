package realtime

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Windi-Fikriyansyah/handygo/internal/config"
)

// NewRedis creates a Redis client and checks it answers. The client is
// returned even when the ping fails so the caller can decide to degrade.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return rdb, rdb.Ping(pingCtx).Err()
}
