package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/lmsworks/member-service/internal/domain"
)

// originSet holds normalized "scheme://host[:port]" values.
type originSet map[string]struct{}

func newOriginSet(origins []string) originSet {
	set := make(originSet, len(origins))
	for _, o := range origins {
		if norm, ok := normalizeOrigin(o); ok {
			set[norm] = struct{}{}
		}
	}
	return set
}

func normalizeOrigin(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	return strings.ToLower(u.Scheme + "://" + u.Host), true
}

func isSafeMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

func csrfRejected(reason string) error {
	return domain.WithMeta(domain.ErrCSRFRejected(), map[string]string{"reason": reason})
}

// CSRFProtection checks Origin (or Referer when a browser omits it) on
// unsafe methods. Same-host requests pass; any other origin must be listed.
// The session cookie is SameSite=Lax, so this guards what Lax lets through.
func CSRFProtection(allowedOrigins []string, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	allowed := newOriginSet(allowedOrigins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			source := r.Header.Get("Origin")
			if source == "" || source == "null" {
				source = r.Header.Get("Referer")
			}
			if source == "" {
				writeErr(w, r, csrfRejected("missing_origin"))
				return
			}
			origin, ok := normalizeOrigin(source)
			if !ok {
				writeErr(w, r, csrfRejected("invalid_origin"))
				return
			}

			if strings.EqualFold(origin[strings.Index(origin, "://")+3:], r.Host) {
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := allowed[origin]; !ok {
				writeErr(w, r, csrfRejected("origin_not_allowed"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// DefaultAllowedOrigins are the local frontends trusted in dev.
func DefaultAllowedOrigins() []string {
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
	}
}
