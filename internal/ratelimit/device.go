// Package ratelimit implements the two Redis-backed abuse-shedding layers:
// the coarse per-device daily quota and the per-IP sliding-window request
// limiter. Both sit in front of the authoritative per-token store.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vibelive/backend/internal/cache"
	"github.com/vibelive/backend/internal/models"
	"github.com/vibelive/backend/internal/trial"
)

// deviceKeyTTL keeps stale device records around long enough to span a day
// boundary in any timezone before Redis reclaims them.
const deviceKeyTTL = 48 * time.Hour

// DeviceLimits are the fixed per-kind daily ceilings for the coarse limiter.
type DeviceLimits struct {
	AIPerDay    int
	CallsPerDay int
}

// DeviceLimiter is the coarse pre-emptive quota check keyed by a
// client-supplied device id. It is advisory defense-in-depth: cheap to
// consult before expensive work, independent of the per-token quotas.
type DeviceLimiter struct {
	cache  *cache.Redis
	limits DeviceLimits
	loc    *time.Location
	now    func() time.Time
}

// NewDeviceLimiter creates a new device limiter.
func NewDeviceLimiter(c *cache.Redis, limits DeviceLimits, loc *time.Location) *DeviceLimiter {
	if loc == nil {
		loc = time.UTC
	}
	return &DeviceLimiter{cache: c, limits: limits, loc: loc, now: time.Now}
}

// deviceConsumeScript performs day rollover, ceiling check, and conditional
// increment in one atomic step. Redis runs scripts serially per node, so two
// concurrent requests for the same device can never both take the last slot.
//
// KEYS[1] device hash; ARGV: today, kind field, ceiling, unix now, ttl secs.
// Returns 1 when a unit was consumed, 0 when the ceiling was already reached
// (reject-without-consume).
var deviceConsumeScript = redis.NewScript(`
local day = redis.call('HGET', KEYS[1], 'day')
if day ~= ARGV[1] then
  redis.call('HSET', KEYS[1], 'day', ARGV[1], 'ai', 0, 'call', 0)
end
local used = tonumber(redis.call('HGET', KEYS[1], ARGV[2]) or '0')
if used >= tonumber(ARGV[3]) then
  return 0
end
redis.call('HINCRBY', KEYS[1], ARGV[2], 1)
redis.call('HSET', KEYS[1], 'updated_at', ARGV[4])
redis.call('EXPIRE', KEYS[1], ARGV[5])
return 1
`)

// Allow checks the device's daily ceiling for kind and consumes one unit when
// under it. At the ceiling it returns false without mutating the record.
func (l *DeviceLimiter) Allow(ctx context.Context, deviceID string, kind models.DeviceKind) (bool, error) {
	if deviceID == "" {
		return false, fmt.Errorf("device id is required")
	}
	ceiling, err := l.ceiling(kind)
	if err != nil {
		return false, err
	}

	key := "device_quota:" + deviceID
	day := trial.DayKey(l.now(), l.loc)

	res, err := deviceConsumeScript.Run(ctx, l.cache.Client(),
		[]string{key},
		day, string(kind), ceiling, l.now().Unix(), int(deviceKeyTTL.Seconds()),
	).Int()
	if err != nil {
		return false, fmt.Errorf("device quota check failed: %w", err)
	}
	return res == 1, nil
}

func (l *DeviceLimiter) ceiling(kind models.DeviceKind) (int, error) {
	switch kind {
	case models.DeviceKindAI:
		return l.limits.AIPerDay, nil
	case models.DeviceKindCall:
		return l.limits.CallsPerDay, nil
	default:
		return 0, fmt.Errorf("unknown device quota kind: %q", kind)
	}
}
