package middleware

import (
	"context"

	"github.com/lmsworks/member-service/internal/application/authn"
	"github.com/lmsworks/member-service/internal/domain"
)

type ctxKey string

const (
	ctxSession      ctxKey = "session"
	ctxSessionToken ctxKey = "session_token"
)

// WithSession stores the authenticated session and its raw token.
func WithSession(ctx context.Context, s authn.Session, token string) context.Context {
	ctx = context.WithValue(ctx, ctxSession, s)
	return context.WithValue(ctx, ctxSessionToken, token)
}

func SessionFromContext(ctx context.Context) (authn.Session, bool) {
	s, ok := ctx.Value(ctxSession).(authn.Session)
	return s, ok && s.MemberID != ""
}

// PrincipalFromContext returns nil for anonymous requests.
func PrincipalFromContext(ctx context.Context) *domain.Principal {
	s, ok := SessionFromContext(ctx)
	if !ok {
		return nil
	}
	p := s.Principal()
	return &p
}

// SessionTokenFromContext returns the cookie token that loaded the session.
func SessionTokenFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxSessionToken).(string)
	return v
}
