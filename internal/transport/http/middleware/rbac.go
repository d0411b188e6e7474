package middleware

import (
	"net/http"

	"github.com/lmsworks/member-service/internal/application/authn"
	"github.com/lmsworks/member-service/internal/domain"
)

// DenyObserver is told about every rejected request.
type DenyObserver func(r *http.Request, principal *domain.Principal, decision authn.Decision)

// Authorize enforces the path policy. It must run after LoadSession.
func Authorize(policy *authn.Policy, writeErr WriteErrFunc, onDeny DenyObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFromContext(r.Context())
			decision := policy.Decide(r.URL.Path, principal)
			AccessDecisionsTotal.WithLabelValues(decision.String()).Inc()

			if decision == authn.Allow {
				next.ServeHTTP(w, r)
				return
			}
			if onDeny != nil {
				onDeny(r, principal, decision)
			}

			switch decision {
			case authn.Unauthenticated:
				writeErr(w, r, domain.ErrSessionMissing())
			case authn.Forbidden:
				required := domain.RoleUser
				if rule, ok := policy.Match(r.URL.Path); ok {
					required = rule.Requirement.Role
				}
				writeErr(w, r, domain.ErrInsufficientRole(required))
			default:
				writeErr(w, r, domain.ErrForbidden())
			}
		})
	}
}
