package http_handlers

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/lmsworks/member-service/internal/logger"
	"github.com/lmsworks/member-service/internal/transport/http/response"
)

// Pinger is any dependency readiness checks (db, redis, rabbit).
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function such as (*sql.DB).PingContext.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type HealthHandler struct {
	deps    map[string]Pinger
	timeout time.Duration
}

func NewHealthHandler(deps map[string]Pinger) *HealthHandler {
	h := &HealthHandler{deps: make(map[string]Pinger, len(deps)), timeout: 2 * time.Second}
	for name, p := range deps {
		if p != nil {
			h.deps[name] = p
		}
	}
	return h
}

type readiness struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
	Down   []string          `json:"down,omitempty"`
}

// Healthz is liveness only; it never touches dependencies.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, readiness{Status: "ok"})
}

// Readyz pings every dependency in parallel under one deadline.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = readiness{Status: "ready", Checks: make(map[string]string, len(h.deps))}
	)
	for name, p := range h.deps {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := p.Ping(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.WithCtx(r.Context()).Warn().Err(err).Str("dependency", name).Msg("readiness check failed")
				out.Checks[name] = "unavailable"
				out.Down = append(out.Down, name)
				return
			}
			out.Checks[name] = "ok"
		}()
	}
	wg.Wait()

	if len(out.Down) > 0 {
		sort.Strings(out.Down)
		out.Status = "unavailable"
		response.JSON(w, http.StatusServiceUnavailable, out)
		return
	}
	response.JSON(w, http.StatusOK, out)
}
