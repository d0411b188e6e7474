package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/lmsworks/member-service/internal/domain"
)

// hitScript counts one hit and returns {count, pttl}. The expiry is only set
// on the first hit of a window so later hits cannot extend it.
var hitScript = goredis.NewScript(`
local c = redis.call("INCR", KEYS[1])
if c == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {c, redis.call("PTTL", KEYS[1])}
`)

// FixedWindowLimiter counts hits per key in Redis. Callers put the window
// bucket in the key, e.g. "member:rl:login:ip:10.0.0.1:28531337".
type FixedWindowLimiter struct {
	rdb *goredis.Client
	now func() time.Time
}

func NewFixedWindowLimiter(c *Client) *FixedWindowLimiter {
	l := &FixedWindowLimiter{now: time.Now}
	if c != nil {
		l.rdb = c.rdb
	}
	return l
}

type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	Count      int
	RetryAfter time.Duration
	ResetAt    time.Time
}

// AllowFixedWindow records a hit on key. A limit <= 0 or an unconfigured
// client allows everything; Redis failures are returned as redis_unavailable
// so the caller decides whether to fail open.
func (l *FixedWindowLimiter) AllowFixedWindow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	if limit <= 0 || l.rdb == nil {
		return Decision{Allowed: true, Limit: limit, Remaining: max(0, limit)}, nil
	}
	if window < time.Second {
		window = time.Minute
	}

	count, ttl, err := l.hit(ctx, key, window)
	if err != nil {
		return Decision{}, domain.ErrRedisUnavailable(err)
	}
	if ttl <= 0 {
		ttl = window
	}

	d := Decision{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: max(0, limit-count),
		Count:     count,
		ResetAt:   l.now().Add(ttl),
	}
	if !d.Allowed {
		d.RetryAfter = ttl
	}
	return d, nil
}

func (l *FixedWindowLimiter) hit(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	vals, err := hitScript.Run(ctx, l.rdb, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, fmt.Errorf("rate limit hit %q: %w", key, err)
	}
	if len(vals) != 2 {
		return 0, 0, fmt.Errorf("rate limit hit %q: unexpected reply length %d", key, len(vals))
	}
	return int(vals[0]), time.Duration(vals[1]) * time.Millisecond, nil
}
