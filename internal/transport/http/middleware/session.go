package middleware

import (
	"context"
	"net/http"

	"github.com/lmsworks/member-service/internal/application/authn"
	"github.com/lmsworks/member-service/internal/domain"
	"github.com/lmsworks/member-service/internal/infrastructure/security"
	"github.com/lmsworks/member-service/internal/logger"
)

type WriteErrFunc func(http.ResponseWriter, *http.Request, error)

type SessionReader interface {
	Session(ctx context.Context, token string) (authn.Session, error)
}

// LoadSession resolves the session cookie into a principal on the request
// context. It never rejects: a missing or stale session leaves the request
// anonymous and Authorize decides. A stale cookie is cleared.
func LoadSession(sessions SessionReader, secureCookie bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, _ := security.ReadSessionCookie(r, secureCookie)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := sessions.Session(r.Context(), token)
			if err != nil {
				if domain.Is(err, domain.CodeSessionMissing) {
					security.ClearSessionCookie(w, secureCookie)
				} else {
					logger.WithCtx(r.Context()).Warn().Err(err).Msg("session lookup failed; treating as anonymous")
				}
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess, token)))
		})
	}
}
