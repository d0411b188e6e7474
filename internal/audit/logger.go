package audit

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	appCtx "github.com/lmsworks/member-service/internal/pkg/context"
)

// Logger writes structured audit events for member business actions.
// Member ids are email addresses, so they are masked before logging.
type Logger struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Logger {
	return &Logger{
		log: log.With().Bool("audit", true).Logger(),
	}
}

// warnActions are logged at warn level.
var warnActions = map[string]bool{
	"mail.dispatch_failed":         true,
	"member.session_revoke_failed": true,
	"member.login_history_failed":  true,
}

// Event logs an application event. Its signature matches
// member.Service.WithAudit.
func (l *Logger) Event(action string, fields map[string]string) {
	ev := l.log.Info()
	if warnActions[action] {
		ev = l.log.Warn()
	}
	ev = ev.Str("action", action)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := fields[k]
		if k == "member_id" || k == "email" {
			v = maskEmail(v)
		}
		ev = ev.Str(k, v)
	}
	ev.Msg("member event")
}

func (l *Logger) LoginSucceeded(ctx context.Context, memberID string) {
	l.log.Info().
		Str("action", "login_success").
		Str("member_id", maskEmail(memberID)).
		Str("ip", appCtx.GetClientIP(ctx)).
		Str("request_id", appCtx.GetRequestID(ctx)).
		Msg("Member logged in")
}

func (l *Logger) LoginFailed(ctx context.Context, memberID, reason string) {
	l.log.Warn().
		Str("action", "login_failed").
		Str("member_id", maskEmail(memberID)).
		Str("ip", appCtx.GetClientIP(ctx)).
		Str("reason", reason).
		Str("request_id", appCtx.GetRequestID(ctx)).
		Msg("Login attempt failed")
}

func (l *Logger) Logout(ctx context.Context, memberID string) {
	l.log.Info().
		Str("action", "logout").
		Str("member_id", maskEmail(memberID)).
		Str("request_id", appCtx.GetRequestID(ctx)).
		Msg("Member logged out")
}

// AccessDenied logs a policy rejection.
func (l *Logger) AccessDenied(ctx context.Context, memberID, path, decision string) {
	l.log.Warn().
		Str("action", "access_denied").
		Str("member_id", maskEmail(memberID)).
		Str("path", path).
		Str("decision", decision).
		Str("request_id", appCtx.GetRequestID(ctx)).
		Msg("Access denied")
}

// maskEmail keeps the first two characters of the local part and the domain.
func maskEmail(email string) string {
	if email == "" {
		return ""
	}
	if len(email) < 5 {
		return "***"
	}
	at := strings.IndexByte(email, '@')
	switch {
	case at < 0:
		return email[:2] + "***"
	case at < 2:
		return email[:1] + "***" + email[at:]
	default:
		return email[:2] + "***" + email[at:]
	}
}
