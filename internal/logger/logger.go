package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	appCtx "github.com/lmsworks/member-service/internal/pkg/context"
)

// Logger is the process logger. It stays silent until Init or Configure runs.
var Logger = zerolog.Nop()

type Options struct {
	Level   zerolog.Level
	JSON    bool
	Service string
}

// OptionsFromEnv reads LOG_LEVEL (default info) and LOG_FORMAT (json|console,
// default console). An unknown level falls back to info.
func OptionsFromEnv(service string) Options {
	level, err := zerolog.ParseLevel(strings.ToLower(os.Getenv("LOG_LEVEL")))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return Options{
		Level:   level,
		JSON:    strings.EqualFold(os.Getenv("LOG_FORMAT"), "json"),
		Service: service,
	}
}

// Init configures Logger for a binary writing to stdout.
func Init(service string) {
	Configure(os.Stdout, OptionsFromEnv(service))
}

// Configure replaces Logger and the zerolog global.
func Configure(w io.Writer, opts Options) {
	out := w
	if !opts.JSON {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(out).With().Timestamp()
	if opts.Service != "" {
		ctx = ctx.Str("service", opts.Service)
	}
	Logger = ctx.Logger().Level(opts.Level)
	zlog.Logger = Logger
}

// Component returns a child logger tagged with component=name.
func Component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

// WithCtx returns Logger tagged with the request id carried by ctx, if any.
func WithCtx(ctx context.Context) *zerolog.Logger {
	l := Logger
	if rid := appCtx.GetRequestID(ctx); rid != "" {
		l = l.With().Str("request_id", rid).Logger()
	}
	return &l
}
