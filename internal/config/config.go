package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	MailTransportLog      = "log"
	MailTransportSMTP     = "smtp"
	MailTransportRabbitMQ = "rabbitmq"
)

type Config struct {
	//App
	Env     string // dev / staging / prod
	BaseURL string // public origin used in emailed links
	//HTTP
	HTTPAddr         string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	// Sessions / security
	SessionTTL          time.Duration
	SessionCookieSecure bool
	TrustProxy          bool
	BcryptCost          int
	CSRFAllowedOrigins  []string

	// One-time tokens (email verify / password reset)
	VerifyEmailTTL   time.Duration
	PasswordResetTTL time.Duration

	// Infrastructure. An empty DatabaseURL or RedisAddr selects the
	// in-memory implementation (dev only).
	DatabaseURL    string
	DBMigrate      bool
	DBMaxOpenConns int
	DBMaxIdleConns int
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Mail
	MailTransport string
	MailFrom      string
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPass      string
	SMTPInsecure  bool
	SMTPTimeout   time.Duration

	RabbitURL       string
	RabbitExchange  string
	RabbitQueue     string
	WorkerPrefetch  int
	MailMaxAttempts int
	MailRetryDelay  time.Duration
}

func (c *Config) IsDev() bool { return c.Env == "dev" }

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	// a missing .env is normal outside local dev
	_ = godotenv.Load()

	cfg := &Config{
		Env:      strings.ToLower(getEnv("APP_ENV", "dev")),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
	}
	cfg.BaseURL = strings.TrimRight(getEnv("BASE_URL", "http://localhost"+portSuffix(cfg.HTTPAddr)), "/")

	var err error
	if cfg.HTTPReadTimeout, err = getDuration("HTTP_READ_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPWriteTimeout, err = getDuration("HTTP_WRITE_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPIdleTimeout, err = getDuration("HTTP_IDLE_TIMEOUT", time.Minute); err != nil {
		return nil, err
	}

	if cfg.SessionTTL, err = getDuration("SESSION_TTL", 12*time.Hour); err != nil {
		return nil, err
	}
	if cfg.SessionCookieSecure, err = getBool("SESSION_COOKIE_SECURE", !cfg.IsDev()); err != nil {
		return nil, err
	}
	if cfg.TrustProxy, err = getBool("TRUST_PROXY", false); err != nil {
		return nil, err
	}
	if cfg.BcryptCost, err = getInt("BCRYPT_COST", 12); err != nil {
		return nil, err
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", cfg.BcryptCost)
	}
	cfg.CSRFAllowedOrigins = getList("CSRF_ALLOWED_ORIGINS")

	if cfg.VerifyEmailTTL, err = getDuration("VERIFY_EMAIL_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.PasswordResetTTL, err = getDuration("PASSWORD_RESET_TTL", time.Hour); err != nil {
		return nil, err
	}

	// Infrastructure dependencies.
	// Outside dev the service must not silently fall back to memory storage.
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" && !cfg.IsDev() {
		return nil, fmt.Errorf("missing required env var: DATABASE_URL")
	}
	if cfg.DBMigrate, err = getBool("DB_MIGRATE", true); err != nil {
		return nil, err
	}
	if cfg.DBMaxOpenConns, err = getInt("DB_MAX_OPEN_CONNS", 20); err != nil {
		return nil, err
	}
	if cfg.DBMaxIdleConns, err = getInt("DB_MAX_IDLE_CONNS", 10); err != nil {
		return nil, err
	}

	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	if cfg.RedisAddr == "" && !cfg.IsDev() {
		return nil, fmt.Errorf("missing required env var: REDIS_ADDR")
	}
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}

	if err := loadMail(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadMail(cfg *Config) error {
	var err error

	cfg.MailTransport = strings.ToLower(getEnv("MAIL_TRANSPORT", MailTransportLog))
	cfg.MailFrom = getEnv("MAIL_FROM", "no-reply@localhost")

	cfg.SMTPHost = os.Getenv("SMTP_HOST")
	if cfg.SMTPPort, err = getInt("SMTP_PORT", 587); err != nil {
		return err
	}
	cfg.SMTPUser = os.Getenv("SMTP_USER")
	cfg.SMTPPass = os.Getenv("SMTP_PASS")
	if cfg.SMTPInsecure, err = getBool("SMTP_INSECURE", false); err != nil {
		return err
	}
	if cfg.SMTPTimeout, err = getDuration("SMTP_TIMEOUT", 10*time.Second); err != nil {
		return err
	}

	cfg.RabbitURL = os.Getenv("RABBIT_URL")
	cfg.RabbitExchange = getEnv("RABBIT_EXCHANGE", "lms.member")
	cfg.RabbitQueue = getEnv("RABBIT_QUEUE", "member.mail")
	if cfg.WorkerPrefetch, err = getInt("WORKER_PREFETCH", 10); err != nil {
		return err
	}
	if cfg.MailMaxAttempts, err = getInt("MAIL_MAX_ATTEMPTS", 5); err != nil {
		return err
	}
	if cfg.MailRetryDelay, err = getDuration("MAIL_RETRY_DELAY", 30*time.Second); err != nil {
		return err
	}

	switch cfg.MailTransport {
	case MailTransportLog:
		if !cfg.IsDev() {
			return fmt.Errorf("MAIL_TRANSPORT=log is only allowed in dev")
		}
	case MailTransportSMTP:
		if cfg.SMTPHost == "" {
			return fmt.Errorf("missing required env var: SMTP_HOST")
		}
	case MailTransportRabbitMQ:
		if cfg.RabbitURL == "" {
			return fmt.Errorf("missing required env var: RABBIT_URL")
		}
	default:
		return fmt.Errorf("invalid MAIL_TRANSPORT %q (want log|smtp|rabbitmq)", cfg.MailTransport)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q: %w", key, v, err)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %q: %w", key, v, err)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid bool for %s: %q: %w", key, v, err)
	}
	return b, nil
}

func getList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func portSuffix(addr string) string {
	if i := strings.LastIndex(addr, ":"); i >= 0 && i < len(addr)-1 {
		return addr[i:]
	}
	return ":8080"
}
