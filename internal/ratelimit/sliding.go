// AngelaMos | 2026
// sliding.go

package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:generation:"

// slidingLogScript trims attempts older than the window, then records the
// new attempt only if the remaining count is under the limit.
var slidingLogScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local window_ms = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now_ms - window_ms)
local count = redis.call('ZCARD', key)

if count < limit then
    redis.call('ZADD', key, now_ms, member)
    redis.call('PEXPIRE', key, window_ms)
    return { 1, limit - count - 1, 0 }
end

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local retry_ms = window_ms
if oldest[2] ~= nil then
    retry_ms = tonumber(oldest[2]) + window_ms - now_ms
end
if retry_ms < 0 then retry_ms = 0 end

return { 0, 0, retry_ms }
`)

type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

type Config struct {
	Limit  int
	Window time.Duration
}

// SlidingWindow caps attempts per user over a rolling window. Redis holds
// the shared log; an in-process log takes over while Redis is unreachable.
type SlidingWindow struct {
	rdb    redis.Scripter
	cfg    Config
	local  *localWindow
	now    func() time.Time
	logger *slog.Logger
}

func NewSlidingWindow(rdb redis.Scripter, cfg Config) *SlidingWindow {
	return &SlidingWindow{
		rdb:    rdb,
		cfg:    cfg,
		local:  newLocalWindow(),
		now:    time.Now,
		logger: slog.Default(),
	}
}

func (s *SlidingWindow) Allow(ctx context.Context, userID string) (Result, error) {
	if userID == "" {
		return Result{}, fmt.Errorf("rate limit: empty user id")
	}

	now := s.now()

	if s.rdb == nil {
		return s.local.allow(userID, now, s.cfg), nil
	}

	res, err := s.allowRedis(ctx, userID, now)
	if err != nil {
		s.logger.Warn("generation rate limiter using local fallback",
			"user_id", userID,
			"error", err,
		)
		return s.local.allow(userID, now, s.cfg), nil
	}

	return res, nil
}

func (s *SlidingWindow) allowRedis(
	ctx context.Context,
	userID string,
	now time.Time,
) (Result, error) {
	member := strconv.FormatInt(now.UnixMilli(), 10) + "-" + uuid.NewString()

	vals, err := slidingLogScript.Run(
		ctx,
		s.rdb,
		[]string{keyPrefix + userID},
		now.UnixMilli(),
		s.cfg.Window.Milliseconds(),
		s.cfg.Limit,
		member,
	).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("run sliding window script: %w", err)
	}

	if len(vals) != 3 {
		return Result{}, fmt.Errorf("sliding window script: unexpected result %v", vals)
	}

	return Result{
		Allowed:    vals[0] == 1,
		Remaining:  int(vals[1]),
		RetryAfter: time.Duration(vals[2]) * time.Millisecond,
	}, nil
}

type localWindow struct {
	mu        sync.Mutex
	attempts  map[string][]time.Time
	lastSweep time.Time
}

func newLocalWindow() *localWindow {
	return &localWindow{attempts: make(map[string][]time.Time)}
}

func (l *localWindow) allow(userID string, now time.Time, cfg Config) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-cfg.Window)
	if now.Sub(l.lastSweep) >= cfg.Window {
		l.sweep(cutoff)
		l.lastSweep = now
	}

	kept := prune(l.attempts[userID], cutoff)

	if len(kept) >= cfg.Limit {
		l.attempts[userID] = kept
		retry := kept[0].Add(cfg.Window).Sub(now)
		if retry < 0 {
			retry = 0
		}
		return Result{Allowed: false, RetryAfter: retry}
	}

	kept = append(kept, now)
	l.attempts[userID] = kept

	return Result{Allowed: true, Remaining: cfg.Limit - len(kept)}
}

// sweep drops users with no attempt inside the window.
func (l *localWindow) sweep(cutoff time.Time) {
	for userID, log := range l.attempts {
		if kept := prune(log, cutoff); len(kept) == 0 {
			delete(l.attempts, userID)
		} else {
			l.attempts[userID] = kept
		}
	}
}

func prune(log []time.Time, cutoff time.Time) []time.Time {
	kept := log[:0]
	for _, at := range log {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	return kept
}
