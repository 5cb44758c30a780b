package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"ticketsale/pkg/logger"
)

const rateLimitPrefix = "ticketsale:ratelimit"

// RateLimiter counts requests per client in fixed Redis windows. A request
// from an authenticated caller is counted against that caller at its address.
type RateLimiter struct {
	cache  *redis.Client
	limit  int
	window time.Duration
	logger logger.Logger
}

func NewRateLimiter(cache *redis.Client, limit int, window time.Duration, log logger.Logger) *RateLimiter {
	if log == nil {
		log = logger.NewNop()
	}
	return &RateLimiter{cache: cache, limit: limit, window: window, logger: log}
}

// hit bumps the window counter and returns the new count with the time left
// in the window. INCR and EXPIRE NX share one MULTI, so a counter never
// outlives its window.
func (rl *RateLimiter) hit(r *http.Request, key string) (int64, time.Duration, error) {
	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := rl.cache.TxPipelined(r.Context(), func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(r.Context(), key)
		pipe.ExpireNX(r.Context(), key, rl.window)
		ttl = pipe.TTL(r.Context(), key)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	left := ttl.Val()
	if left <= 0 {
		left = rl.window
	}
	return incr.Val(), left, nil
}

func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.key(r)
		count, left, err := rl.hit(r, key)
		if err != nil {
			rl.logger.Error("Rate limit check failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
			jsonError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		remaining := int64(rl.limit) - count
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(rl.limit) {
			w.Header().Set("Retry-After", strconv.Itoa(int(left.Round(time.Second)/time.Second)))
			rl.logger.Warn("Rate limit exceeded", map[string]interface{}{
				"key":   key,
				"count": count,
			})
			jsonError(w, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) key(r *http.Request) string {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	}
	parts := []string{rateLimitPrefix, ip}
	if caller, ok := CallerFromContext(r.Context()); ok && caller != uuid.Nil {
		parts = append(parts, caller.String())
	}
	return strings.Join(parts, ":")
}
