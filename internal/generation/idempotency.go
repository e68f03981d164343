// AngelaMos | 2026
// idempotency.go

package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/copystudio/internal/core"
)

const (
	idempotencyPrefix = "idempotency:generation:"
	pendingMarker     = "pending"
)

// IdempotencyStore remembers completed generate calls per user and key.
// Begin returns a stored result for a replay, core.ErrConflict while an
// identical request is still running, or (nil, nil) once the caller owns
// the key and must later call Complete or Release.
type IdempotencyStore interface {
	Begin(ctx context.Context, userID, key string) (*Result, error)
	Complete(ctx context.Context, userID, key string, res *Result) error
	Release(ctx context.Context, userID, key string)
}

type redisKV interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type RedisIdempotency struct {
	rdb     redisKV
	ttl     time.Duration
	lockTTL time.Duration
	logger  *slog.Logger
}

func NewRedisIdempotency(rdb redisKV, ttl, lockTTL time.Duration) *RedisIdempotency {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if lockTTL <= 0 {
		lockTTL = 5 * time.Minute
	}
	return &RedisIdempotency{
		rdb:     rdb,
		ttl:     ttl,
		lockTTL: lockTTL,
		logger:  slog.Default(),
	}
}

func storageKey(userID, key string) string {
	return idempotencyPrefix + userID + ":" + core.HashToken(key)
}

// Begin fails open: when redis is unreachable the request proceeds without
// replay protection rather than being rejected.
func (s *RedisIdempotency) Begin(ctx context.Context, userID, key string) (*Result, error) {
	k := storageKey(userID, key)

	acquired, err := s.rdb.SetNX(ctx, k, pendingMarker, s.lockTTL).Result()
	if err != nil {
		s.logger.Warn("idempotency store unavailable, continuing without it",
			"user_id", userID,
			"error", err,
		)
		return nil, nil
	}
	if acquired {
		return nil, nil
	}

	val, err := s.rdb.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("idempotency key expired mid-request: %w", core.ErrConflict)
	}
	if err != nil {
		s.logger.Warn("idempotency lookup failed, continuing without it",
			"user_id", userID,
			"error", err,
		)
		return nil, nil
	}

	if val == pendingMarker {
		return nil, fmt.Errorf("request with this idempotency key is in progress: %w", core.ErrConflict)
	}

	var res Result
	if err := json.Unmarshal([]byte(val), &res); err != nil {
		return nil, fmt.Errorf("decode idempotent result: %w", err)
	}
	return &res, nil
}

func (s *RedisIdempotency) Complete(ctx context.Context, userID, key string, res *Result) error {
	body, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode idempotent result: %w", err)
	}

	if err := s.rdb.Set(ctx, storageKey(userID, key), body, s.ttl).Err(); err != nil {
		return fmt.Errorf("store idempotent result: %w", err)
	}
	return nil
}

func (s *RedisIdempotency) Release(ctx context.Context, userID, key string) {
	if err := s.rdb.Del(ctx, storageKey(userID, key)).Err(); err != nil {
		s.logger.Warn("release idempotency key failed",
			"user_id", userID,
			"error", err,
		)
	}
}
