package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/lmsworks/member-service/internal/domain"
	"github.com/lmsworks/member-service/internal/infrastructure/redis"
	"github.com/lmsworks/member-service/internal/logger"
	appCtx "github.com/lmsworks/member-service/internal/pkg/context"
)

type RateLimiter interface {
	AllowFixedWindow(ctx context.Context, key string, limit int, window time.Duration) (redis.Decision, error)
}

// FixedWindowConfig is one named limit. A zero Limit disables it.
type FixedWindowConfig struct {
	RouteKey string
	Limit    int
	Window   time.Duration
}

func (c FixedWindowConfig) withDefaults() FixedWindowConfig {
	if c.Window <= 0 {
		c.Window = time.Minute
	}
	if c.RouteKey == "" {
		c.RouteKey = "unknown"
	}
	return c
}

// key is member:rl:<route>:<identity>:<window index>.
func (c FixedWindowConfig) key(identity string, now time.Time) string {
	idx := now.Unix() / max(int64(c.Window/time.Second), 1)
	return "member:rl:" + c.RouteKey + ":" + identity + ":" + strconv.FormatInt(idx, 10)
}

// RateLimitFixedWindow limits per client IP and advertises the remaining
// budget in X-RateLimit-* headers.
func RateLimitFixedWindow(limiter RateLimiter, cfg FixedWindowConfig, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	cfg = cfg.withDefaults()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := appCtx.GetClientIP(r.Context())
			if ip == "" {
				ip = remoteHost(r.RemoteAddr)
			}
			dec, err := check(r.Context(), limiter, cfg, "ip:"+ip)
			if dec != nil {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(dec.Limit))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(dec.Remaining))
			}
			if err != nil {
				writeErr(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CheckLimit applies cfg to one identity. Handlers use it for identities
// only known after decoding the body, such as the login id.
func CheckLimit(ctx context.Context, limiter RateLimiter, cfg FixedWindowConfig, identity string) error {
	_, err := check(ctx, limiter, cfg.withDefaults(), identity)
	return err
}

// check returns a nil decision when limiting is off or the limiter is
// down; both cases let the request through.
func check(ctx context.Context, limiter RateLimiter, cfg FixedWindowConfig, identity string) (*redis.Decision, error) {
	if limiter == nil || cfg.Limit <= 0 {
		return nil, nil
	}

	dec, err := limiter.AllowFixedWindow(ctx, cfg.key(identity, time.Now()), cfg.Limit, cfg.Window)
	if err != nil {
		logger.WithCtx(ctx).Warn().Err(err).Str("route", cfg.RouteKey).Msg("rate limiter unavailable; allowing")
		return nil, nil
	}
	if dec.Allowed {
		return &dec, nil
	}

	RateLimitedTotal.WithLabelValues(cfg.RouteKey).Inc()
	wait := max(int(dec.RetryAfter.Seconds()), 1)
	return &dec, domain.WithMeta(domain.ErrRateLimited(cfg.RouteKey), map[string]string{
		"retry_after_seconds": strconv.Itoa(wait),
	})
}
