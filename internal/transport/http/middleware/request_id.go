package middleware

import (
	"net"
	"net/http"

	"github.com/google/uuid"

	appCtx "github.com/lmsworks/member-service/internal/pkg/context"
)

const HeaderXRequestID = "X-Request-Id"

// RequestID tags the request context with a request id (kept from the
// caller when it looks sane), the client address and the user agent.
// Mount chi's RealIP ahead of it when running behind a proxy.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderXRequestID)
		if !acceptableRequestID(id) {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderXRequestID, id)

		ctx := appCtx.WithRequestID(r.Context(), id)
		ctx = appCtx.WithClient(ctx, remoteHost(r.RemoteAddr), r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// acceptableRequestID allows up to 64 chars of [A-Za-z0-9._-], which keeps
// caller-supplied ids safe to echo into headers and logs.
func acceptableRequestID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '.', c == '_', c == '-':
		default:
			return false
		}
	}
	return true
}

// remoteHost strips the port; chi's RealIP leaves a bare address.
func remoteHost(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
