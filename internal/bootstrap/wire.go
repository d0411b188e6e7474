package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lmsworks/member-service/internal/application/authn"
	"github.com/lmsworks/member-service/internal/application/member"
	"github.com/lmsworks/member-service/internal/audit"
	"github.com/lmsworks/member-service/internal/config"
	"github.com/lmsworks/member-service/internal/domain"
	"github.com/lmsworks/member-service/internal/infrastructure/db/postgres"
	"github.com/lmsworks/member-service/internal/infrastructure/email"
	"github.com/lmsworks/member-service/internal/infrastructure/memory"
	"github.com/lmsworks/member-service/internal/infrastructure/messaging/rabbitmq"
	"github.com/lmsworks/member-service/internal/infrastructure/redis"
	"github.com/lmsworks/member-service/internal/infrastructure/security"
	"github.com/lmsworks/member-service/internal/logger"
	http_handlers "github.com/lmsworks/member-service/internal/transport/http/handlers"
	"github.com/lmsworks/member-service/internal/transport/http/middleware"
	"github.com/lmsworks/member-service/internal/transport/http/router"
)

/*
========================
 Public entry (prod)
========================
*/

func NewServer() (*http.Server, func(), error) {
	return newServer(defaultDeps())
}

// NewServerWithDeps allows injecting dependencies for testing
func NewServerWithDeps(deps Deps) (*http.Server, func(), error) {
	return newServer(deps)
}

/*
========================
 Dependency injection
========================
*/

type Deps struct {
	LoadConfig func() (*config.Config, error)

	OpenDB func(ctx context.Context, opts config.DBOptions) (*sql.DB, error)

	NewRedis func(addr, password string, db int) *redis.Client

	NewPublisher func(url, exchange string) (MailPublisher, error)

	NewRouter func(router.Deps) (http.Handler, error)
}

// MailPublisher is the broker-backed mail transport.
type MailPublisher interface {
	member.Mailer
	Ping(ctx context.Context) error
	Close() error
}

/*
========================
 Core bootstrap logic
========================
*/

func newServer(deps Deps) (*http.Server, func(), error) {
	// 0) config
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	var cleanupFns []func()
	fail := func(err error) (*http.Server, func(), error) {
		runCleanup(cleanupFns)
		return nil, nil, err
	}
	pingers := map[string]http_handlers.Pinger{}

	// 1) credential store
	var (
		members memberStore
		history member.LoginHistoryRepo
	)
	if cfg.DatabaseURL != "" {
		db, err := deps.OpenDB(context.Background(), cfg.DB())
		if err != nil {
			return fail(fmt.Errorf("bootstrap: open db: %w", err))
		}
		cleanupFns = append(cleanupFns, func() { _ = db.Close() })

		if cfg.DBMigrate {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			err := postgres.Migrate(ctx, db)
			cancel()
			if err != nil {
				return fail(fmt.Errorf("bootstrap: migrate: %w", err))
			}
		}
		members = postgres.NewMemberRepo(db)
		history = postgres.NewLoginHistoryRepo(db)
		pingers["db"] = http_handlers.PingFunc(db.PingContext)
		logger.Logger.Info().Msg("credential store: postgres")
	} else {
		h := memory.NewLoginHistoryRepo()
		members = memory.NewMemberRepo().WithLoginHistory(h)
		history = h
		logger.Logger.Warn().Msg("credential store: in-memory (dev only)")
	}

	// 2) sessions + rate limiting
	var (
		sessions authn.SessionStore = memory.NewSessionStore()
		limiter  middleware.RateLimiter
	)
	if cfg.RedisAddr != "" {
		c := deps.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := c.Ping(ctx)
		cancel()

		switch {
		case err == nil:
			logger.Logger.Info().Msg("redis connected")
			cleanupFns = append(cleanupFns, func() { _ = c.Close() })
			sessions = redis.NewSessionStore(c)
			limiter = redis.NewFixedWindowLimiter(c)
			pingers["redis"] = c
		case cfg.IsDev():
			logger.Logger.Warn().Err(err).Msg("redis unavailable; in-memory sessions, no rate limiting")
			_ = c.Close()
		default:
			_ = c.Close()
			return fail(fmt.Errorf("bootstrap: redis: %w", err))
		}
	}

	// 3) mail transport
	mailer, err := newMailer(cfg, deps, &cleanupFns, pingers)
	if err != nil {
		return fail(err)
	}

	// 4) security
	hasher := security.NewBcryptHasher(cfg.BcryptCost)
	dummy, err := hasher.DummyHash()
	if err != nil {
		return fail(fmt.Errorf("bootstrap: dummy hash: %w", err))
	}

	// 5) services
	auditLog := audit.New(logger.Logger)

	memberSvc := member.NewService(members, history, hasher, mailer, member.Config{
		BaseURL:               cfg.BaseURL,
		VerifyEmailTokenTTL:   cfg.VerifyEmailTTL,
		PasswordResetTokenTTL: cfg.PasswordResetTTL,
	}).
		WithAudit(auditSink(auditLog)).
		WithSessionRevoker(sessions)

	authenticator := authn.NewAuthenticator(memberSvc, hasher, sessions, authn.Config{
		SessionTTL: cfg.SessionTTL,
		DummyHash:  dummy,
	}).
		WithRecorder(memberSvc).
		WithObserver(func(outcome string) {
			middleware.LoginAttemptsTotal.WithLabelValues(outcome).Inc()
		})

	// seed (dev only)
	if cfg.IsDev() {
		memory.SeedMembers(context.Background(), members, hasher, memory.DevAccounts)
	}

	policy, err := authn.NewPolicy(authn.DefaultRules())
	if err != nil {
		return fail(err)
	}

	// 6) handlers
	authH := http_handlers.NewAuthHandler(authenticator, cfg.SessionTTL, cfg.SessionCookieSecure).
		WithAudit(auditLog).
		WithIDLimit(limiter, middleware.FixedWindowConfig{RouteKey: "member.login.id", Limit: 5, Window: time.Minute})

	// 7) router
	mux, err := deps.NewRouter(router.Deps{
		Health: http_handlers.NewHealthHandler(pingers),
		Member: http_handlers.NewMemberHandler(memberSvc),
		Auth:   authH,
		Admin:  http_handlers.NewAdminHandler(memberSvc),

		Sessions: authenticator,
		Policy:   policy,
		OnDeny: func(r *http.Request, p *domain.Principal, d authn.Decision) {
			id := ""
			if p != nil {
				id = p.Identifier
			}
			auditLog.AccessDenied(r.Context(), id, r.URL.Path, d.String())
		},
		AllowedOrigins: allowedOrigins(cfg),
		SecureCookies:  cfg.SessionCookieSecure,
		TrustProxy:     cfg.TrustProxy,

		Limiter: limiter,
		Limits: router.Limits{
			Login:    middleware.FixedWindowConfig{RouteKey: "member.login", Limit: 20, Window: time.Minute},
			Register: middleware.FixedWindowConfig{RouteKey: "member.register", Limit: 5, Window: time.Minute},
			Reset:    middleware.FixedWindowConfig{RouteKey: "member.password_reset", Limit: 5, Window: 10 * time.Minute},
		},
		Metrics: promhttp.Handler(),
	})
	if err != nil {
		return fail(err)
	}

	// 8) server
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	cleanup := func() {
		runCleanup(cleanupFns)
	}

	return srv, cleanup, nil
}

// memberStore is what both repo implementations offer: the service port plus
// the seeding hook.
type memberStore interface {
	member.Repo
	memory.Creator
}

func newMailer(cfg *config.Config, deps Deps, cleanupFns *[]func(), pingers map[string]http_handlers.Pinger) (member.Mailer, error) {
	switch cfg.MailTransport {
	case config.MailTransportSMTP:
		logger.Logger.Info().Str("host", cfg.SMTPHost).Msg("mail transport: smtp")
		return email.NewSMTPSender(SMTPConfig(cfg), logger.Logger), nil

	case config.MailTransportRabbitMQ:
		pub, err := deps.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			if cfg.IsDev() {
				logger.Logger.Warn().Err(err).Msg("rabbitmq unavailable; mail goes to the log")
				return devOutbox(), nil
			}
			return nil, fmt.Errorf("bootstrap: rabbitmq: %w", err)
		}
		*cleanupFns = append(*cleanupFns, func() { _ = pub.Close() })
		pingers["rabbit"] = pub
		logger.Logger.Info().Str("exchange", cfg.RabbitExchange).Msg("mail transport: rabbitmq")
		return pub, nil

	default:
		logger.Logger.Warn().Msg("mail transport: log (dev only)")
		return devOutbox(), nil
	}
}

func devOutbox() *memory.Outbox {
	o := memory.NewOutbox()
	o.LogBodies = true
	return o
}

// SMTPConfig is shared with the mail worker.
func SMTPConfig(cfg *config.Config) email.SMTPConfig {
	return email.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.MailFrom,
		Timeout:  cfg.SMTPTimeout,
		Insecure: cfg.SMTPInsecure,
	}
}

// auditSink logs member events and feeds the mail dispatch counter.
func auditSink(a *audit.Logger) func(string, map[string]string) {
	return func(action string, fields map[string]string) {
		switch action {
		case "mail.dispatched":
			middleware.MailDispatchTotal.WithLabelValues(fields["kind"], "sent").Inc()
		case "mail.dispatch_failed":
			middleware.MailDispatchTotal.WithLabelValues(fields["kind"], "failed").Inc()
		}
		a.Event(action, fields)
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CSRFAllowedOrigins) > 0 {
		return cfg.CSRFAllowedOrigins
	}
	origins := []string{cfg.BaseURL}
	if cfg.IsDev() {
		origins = append(origins, middleware.DefaultAllowedOrigins()...)
	}
	return origins
}

/*
========================
 Default deps (prod)
========================
*/

func defaultDeps() Deps {
	return Deps{
		LoadConfig: config.Load,
		OpenDB:     config.OpenDB,
		NewRedis:   redis.New,
		NewPublisher: func(url, exchange string) (MailPublisher, error) {
			return rabbitmq.NewPublisher(url, exchange, logger.Logger)
		},
		NewRouter: router.New,
	}
}

/*
========================
 helpers
========================
*/

func runCleanup(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
