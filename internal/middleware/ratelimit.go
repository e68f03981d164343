// AngelaMos | 2026
// ratelimit.go

package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/carterperez-dev/copystudio/internal/core"
)

const (
	edgeKeyPrefix      = "ratelimit:edge:"
	localLimiterSize   = 50_000
	localLimiterMinTTL = 5 * time.Minute
)

// EdgeLimitConfig throttles every request per client address before it
// reaches authentication. Paths under an Exempt prefix are never counted.
type EdgeLimitConfig struct {
	Limit   redis_rate.Limit
	Exempt  []string
	KeyFunc func(*http.Request) string
}

type EdgeLimiter struct {
	redis    *redis_rate.Limiter
	fallback *localBuckets
	cfg      EdgeLimitConfig
}

func NewEdgeLimiter(rdb *redis.Client, cfg EdgeLimitConfig) *EdgeLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = ClientAddrKey
	}

	var limiter *redis_rate.Limiter
	if rdb != nil {
		limiter = redis_rate.NewLimiter(rdb)
	}

	return &EdgeLimiter{
		redis:    limiter,
		fallback: newLocalBuckets(cfg.Limit),
		cfg:      cfg,
	}
}

// Window builds a limit of requests per window with the given burst.
func Window(requests, burst int, window time.Duration) redis_rate.Limit {
	if burst < requests {
		burst = requests
	}
	return redis_rate.Limit{Rate: requests, Burst: burst, Period: window}
}

func (l *EdgeLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.exempt(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		res := l.allow(r.Context(), l.cfg.KeyFunc(r))
		writePolicyHeaders(w, l.cfg.Limit, res)

		if res.Allowed == 0 {
			retry := max(int(res.RetryAfter.Seconds()), 1)
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			core.JSONError(w, core.NewAppError(
				core.ErrRateLimited,
				"too many requests, slow down",
				http.StatusTooManyRequests,
				"RATE_LIMITED",
			))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (l *EdgeLimiter) exempt(path string) bool {
	for _, prefix := range l.cfg.Exempt {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// allow never blocks a request on redis: the local buckets answer
// whenever the shared limiter errors.
func (l *EdgeLimiter) allow(ctx context.Context, key string) *redis_rate.Result {
	if l.redis != nil {
		res, err := l.redis.Allow(ctx, key, l.cfg.Limit)
		if err == nil {
			return res
		}
		slog.Debug("edge rate limiter using local buckets", "error", err)
	}
	return l.fallback.allow(key)
}

// ClientAddrKey keys on the address nearest the edge proxy: the last
// X-Forwarded-For hop, then X-Real-IP, then the socket peer.
func ClientAddrKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		return edgeKeyPrefix + strings.TrimSpace(hops[len(hops)-1])
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return edgeKeyPrefix + xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return edgeKeyPrefix + host
}

func writePolicyHeaders(w http.ResponseWriter, limit redis_rate.Limit, res *redis_rate.Result) {
	h := w.Header()
	h.Set("RateLimit-Policy", fmt.Sprintf("%d;w=%d", limit.Rate, int(limit.Period.Seconds())))
	h.Set("RateLimit", fmt.Sprintf("%d;t=%d", res.Remaining, int(res.ResetAfter.Seconds())))
}

// localBuckets is the in-process token bucket set used while redis is
// unreachable. Idle clients age out of the LRU.
type localBuckets struct {
	mu      sync.Mutex
	buckets *expirable.LRU[string, *rate.Limiter]
	limit   redis_rate.Limit
	every   rate.Limit
}

func newLocalBuckets(limit redis_rate.Limit) *localBuckets {
	ttl := max(2*limit.Period, localLimiterMinTTL)
	every := rate.Inf
	if limit.Rate > 0 && limit.Period > 0 {
		every = rate.Limit(float64(limit.Rate) / limit.Period.Seconds())
	}
	return &localBuckets{
		buckets: expirable.NewLRU[string, *rate.Limiter](localLimiterSize, nil, ttl),
		limit:   limit,
		every:   every,
	}
}

func (b *localBuckets) allow(key string) *redis_rate.Result {
	b.mu.Lock()
	bucket, ok := b.buckets.Get(key)
	if !ok {
		bucket = rate.NewLimiter(b.every, b.limit.Burst)
		b.buckets.Add(key, bucket)
	}
	b.mu.Unlock()

	now := time.Now()
	interval := time.Duration(0)
	if b.every != rate.Inf && b.every > 0 {
		interval = time.Duration(float64(time.Second) / float64(b.every))
	}

	res := &redis_rate.Result{
		Limit:      b.limit,
		ResetAfter: interval,
		RetryAfter: -1,
	}
	if bucket.AllowN(now, 1) {
		res.Allowed = 1
	} else {
		res.RetryAfter = interval
	}
	res.Remaining = max(int(bucket.TokensAt(now)), 0)
	return res
}
