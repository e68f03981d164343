// AngelaMos | 2026
// redis.go

package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/copystudio/internal/config"
)

const (
	redisPingTimeout   = 2 * time.Second
	redisConnectTries  = 3
	redisConnectPause  = 250 * time.Millisecond
	redisIdleConnLimit = 5 * time.Minute
)

// Redis backs the generation rate limiter, idempotency keys and the edge
// limiter. Client is handed to those directly; admin and health only see
// Ping and PoolStats.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects with the process name set on every connection so
// CLIENT LIST shows which service holds them.
func NewRedis(ctx context.Context, cfg config.RedisConfig, clientName string) (*Redis, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.ClientName = clientName
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.MinIdleConns = cfg.MinIdleConns
	opts.ConnMaxIdleTime = redisIdleConnLimit

	r := &Redis{Client: redis.NewClient(opts)}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(redisConnectPause), redisConnectTries-1),
		ctx,
	)
	err = backoff.RetryNotify(
		func() error { return r.Ping(ctx) },
		policy,
		func(err error, wait time.Duration) {
			slog.Warn("redis not ready, retrying", "error", err, "wait", wait)
		},
	)
	if err != nil {
		_ = r.Client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	return r, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()

	if err := r.Client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (r *Redis) PoolStats() *redis.PoolStats {
	return r.Client.PoolStats()
}

func (r *Redis) Close() error {
	return r.Client.Close()
}
