package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/lmsworks/member-service/internal/application/authn"
	"github.com/lmsworks/member-service/internal/transport/http/middleware"
	"github.com/lmsworks/member-service/internal/transport/http/response"
)

type HealthHandler interface {
	Healthz(w http.ResponseWriter, r *http.Request)
	Readyz(w http.ResponseWriter, r *http.Request)
}

type MemberHandler interface {
	Register(w http.ResponseWriter, r *http.Request)
	VerifyEmail(w http.ResponseWriter, r *http.Request)
	ResendVerification(w http.ResponseWriter, r *http.Request)
	FindPassword(w http.ResponseWriter, r *http.Request)
	CheckResetPassword(w http.ResponseWriter, r *http.Request)
	ResetPassword(w http.ResponseWriter, r *http.Request)
	Info(w http.ResponseWriter, r *http.Request)
}

type AuthHandler interface {
	Home(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)
}

type AdminHandler interface {
	ListMembers(w http.ResponseWriter, r *http.Request)
	MemberDetail(w http.ResponseWriter, r *http.Request)
	LoginHistory(w http.ResponseWriter, r *http.Request)
}

// Limits are the per-IP fixed windows. A zero Limit disables that window.
type Limits struct {
	Login    middleware.FixedWindowConfig
	Register middleware.FixedWindowConfig
	Reset    middleware.FixedWindowConfig
}

type Deps struct {
	Health HealthHandler
	Member MemberHandler
	Auth   AuthHandler
	Admin  AdminHandler

	Sessions       middleware.SessionReader
	Policy         *authn.Policy
	OnDeny         middleware.DenyObserver
	AllowedOrigins []string
	SecureCookies  bool
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	TrustProxy bool

	Limiter middleware.RateLimiter
	Limits  Limits

	// Metrics serves /metrics when set.
	Metrics http.Handler
}

func New(deps Deps) (http.Handler, error) {
	if deps.Health == nil {
		return nil, fmt.Errorf("nil Health handler")
	}
	if deps.Member == nil {
		return nil, fmt.Errorf("nil Member handler")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("nil Auth handler")
	}
	if deps.Admin == nil {
		return nil, fmt.Errorf("nil Admin handler")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("nil session reader")
	}
	if deps.Policy == nil {
		return nil, fmt.Errorf("nil access policy")
	}

	writeErr := middleware.WriteErrFunc(response.WriteError)
	limit := func(cfg middleware.FixedWindowConfig) func(http.Handler) http.Handler {
		return middleware.RateLimitFixedWindow(deps.Limiter, cfg, writeErr)
	}

	r := chi.NewRouter()
	if deps.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog)
	r.Use(middleware.Metrics)
	r.Use(middleware.LoadSession(deps.Sessions, deps.SecureCookies))
	r.Use(middleware.CSRFProtection(deps.AllowedOrigins, writeErr))
	r.Use(middleware.Authorize(deps.Policy, writeErr, deps.OnDeny))

	r.Get("/", deps.Auth.Home)
	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/member", func(r chi.Router) {
		r.With(limit(deps.Limits.Register)).Post("/register", deps.Member.Register)
		r.Get("/email-auth", deps.Member.VerifyEmail) // ?id=<token>
		r.With(limit(deps.Limits.Register)).Post("/email-auth/resend", deps.Member.ResendVerification)

		r.With(limit(deps.Limits.Login)).Post("/login", deps.Auth.Login)
		r.Post("/logout", deps.Auth.Logout)
		r.Get("/logout", deps.Auth.Logout)

		r.With(limit(deps.Limits.Reset)).Post("/find/password", deps.Member.FindPassword)
		r.Get("/reset/password", deps.Member.CheckResetPassword) // ?id=<token>
		r.With(limit(deps.Limits.Reset)).Post("/reset/password", deps.Member.ResetPassword)

		r.Get("/info", deps.Member.Info)
	})

	r.Route("/admin/member", func(r chi.Router) {
		r.Get("/list", deps.Admin.ListMembers)
		r.Get("/detail", deps.Admin.MemberDetail) // ?userId=
		r.Get("/login-history", deps.Admin.LoginHistory) // ?userId=&limit=
	})

	return r, nil
}
