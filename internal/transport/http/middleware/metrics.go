package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "member_service"

func counter(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
}

var (
	httpRequestsTotal = counter("http_requests_total", "HTTP requests by route and status", "method", "route", "status")

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route",
		// bcrypt dominates login/register latency
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method", "route"})

	httpRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "http_requests_in_flight",
		Help:      "HTTP requests being served",
	})

	// outcome: success|invalid_credentials|not_verified|error
	LoginAttemptsTotal = counter("login_attempts_total", "Login attempts by outcome", "outcome")
	// status: created|duplicate|invalid|error
	RegistrationsTotal = counter("registrations_total", "Registration attempts by result", "status")
	// kind: verify_email|password_reset; status: sent|failed
	MailDispatchTotal    = counter("mail_dispatch_total", "Transactional mail hand-offs", "kind", "status")
	AccessDecisionsTotal = counter("access_decisions_total", "Authorization policy decisions", "decision")
	RateLimitedTotal     = counter("rate_limited_total", "Requests rejected by a rate limit", "route")
)

// Metrics records request count, latency and in-flight gauge. Routes are
// labelled by chi pattern so ids in query strings never become labels.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := routePattern(r)
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(writtenStatus(ww))).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
