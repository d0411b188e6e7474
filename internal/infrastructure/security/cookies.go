package security

import (
	"net/http"
	"time"
)

const (
	SessionCookieName = "member_session"
	hostPrefix        = "__Host-"
)

// sessionCookie builds the cookie skeleton. Over TLS the name carries the
// __Host- prefix, which pins it to this host and path "/".
func sessionCookie(value string, secure bool) *http.Cookie {
	name := SessionCookieName
	if secure {
		name = hostPrefix + SessionCookieName
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func SetSessionCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	c := sessionCookie(token, secure)
	c.MaxAge = int(ttl.Seconds())
	http.SetCookie(w, c)
}

// ClearSessionCookie expires the session cookie in the browser.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	c := sessionCookie("", secure)
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	http.SetCookie(w, c)
}

// ReadSessionCookie returns the session token. Only the name SetSessionCookie
// would have written for secure is read, so a plain cookie planted over
// HTTP cannot stand in for the __Host- one.
func ReadSessionCookie(r *http.Request, secure bool) (string, bool) {
	c, err := r.Cookie(sessionCookie("", secure).Name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}
