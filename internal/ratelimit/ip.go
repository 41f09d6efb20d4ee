package ratelimit

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vibelive/backend/internal/api/request"
	"github.com/vibelive/backend/internal/api/response"
	"github.com/vibelive/backend/internal/cache"
)

// IPLimits are the per-IP sliding-window request ceilings.
type IPLimits struct {
	PerMinute int
	PerDay    int
}

// IPLimiter rate-limits requests per client IP using Redis sorted sets with
// a sliding window. It is a transport-level shed in front of the trial
// endpoints, distinct from both quota limiters.
type IPLimiter struct {
	cache  *cache.Redis
	limits IPLimits
}

// NewIPLimiter creates a new per-IP limiter.
func NewIPLimiter(c *cache.Redis, limits IPLimits) *IPLimiter {
	return &IPLimiter{cache: c, limits: limits}
}

// Allow checks whether a request from ip is within both windows, consuming
// one slot when it is.
func (l *IPLimiter) Allow(ctx context.Context, ip string) (bool, error) {
	allowed, err := l.checkWindow(ctx, "ratelimit:minute:"+ip, l.limits.PerMinute, time.Minute)
	if err != nil || !allowed {
		return false, err
	}
	return l.checkWindow(ctx, "ratelimit:day:"+ip, l.limits.PerDay, 24*time.Hour)
}

// checkWindow implements the sliding-window algorithm over a sorted set:
// each request is a member scored with its timestamp; entries older than the
// window are dropped before counting.
func (l *IPLimiter) checkWindow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	nowMicro := now.UnixMicro()
	windowStart := now.Add(-window).UnixMicro()

	client := l.cache.Client()
	pipe := client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(windowStart, 10))
	countCmd := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return false, fmt.Errorf("failed to execute rate limit check: %w", err)
	}

	if int(countCmd.Val()) >= limit {
		return false, nil
	}

	// Microsecond members keep rapid requests distinct.
	err := client.ZAdd(ctx, key, redis.Z{
		Score:  float64(nowMicro),
		Member: strconv.FormatInt(nowMicro, 10),
	}).Err()
	if err != nil {
		return false, fmt.Errorf("failed to add rate limit entry: %w", err)
	}
	_ = client.Expire(ctx, key, window+time.Second).Err()

	return true, nil
}

// Middleware enforces the per-IP limits. Redis failures fail open so the
// limiter can never take the whole API down with it.
func (l *IPLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := request.ClientIP(r)

		allowed, err := l.Allow(r.Context(), ip)
		if err != nil {
			log.Printf("[ratelimit] ip check failed, allowing request: %v", err)
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			w.Header().Set("Retry-After", "60")
			response.TooManyRequests(w, "Too many requests. Please slow down.")
			return
		}

		next.ServeHTTP(w, r)
	})
}
