package http_handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lmsworks/member-service/internal/application/authn"
	"github.com/lmsworks/member-service/internal/domain"
	"github.com/lmsworks/member-service/internal/infrastructure/redis"
	"github.com/lmsworks/member-service/internal/infrastructure/security"
	appCtx "github.com/lmsworks/member-service/internal/pkg/context"
	"github.com/lmsworks/member-service/internal/transport/http/dto"
	"github.com/lmsworks/member-service/internal/transport/http/middleware"
)

func loginRequest(t *testing.T, id, pw string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/member/login",
		mustJSONBody(t, map[string]string{"userId": id, "password": pw}))
	ctx := appCtx.WithClient(req.Context(), "10.0.0.1", "test-agent")
	return req.WithContext(ctx)
}

func TestLogin_SetsCookieAndReturnsSession(t *testing.T) {
	auth := &fakeAuthenticator{session: authn.Session{
		Token:     "fresh-token",
		MemberID:  "alice@x.com",
		Roles:     []domain.Role{domain.RoleUser},
		ExpiresAt: time.Now().Add(time.Hour),
	}}
	audit := &fakeAudit{}
	h := NewAuthHandler(auth, time.Hour, false).WithAudit(audit)

	req := loginRequest(t, " Alice@X.com ", "Password123!")
	req.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: "old-token"})
	rr := httptest.NewRecorder()
	h.Login(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if auth.loginIn.ID != "alice@x.com" || auth.loginIn.PreviousSession != "old-token" {
		t.Fatalf("unexpected login input %+v", auth.loginIn)
	}
	if auth.loginIn.ClientIP != "10.0.0.1" || auth.loginIn.UserAgent != "test-agent" {
		t.Fatalf("client info not passed: %+v", auth.loginIn)
	}

	c := readCookie(rr.Result(), security.SessionCookieName)
	if c == nil || c.Value != "fresh-token" || !c.HttpOnly {
		t.Fatalf("expected HttpOnly session cookie, got %+v", c)
	}

	var view dto.SessionView
	mustReadJSON(t, rr.Body, &view)
	if view.UserID != "alice@x.com" || len(view.Roles) != 1 || view.Roles[0] != "USER" {
		t.Fatalf("unexpected view %+v", view)
	}
	if len(audit.calls) != 1 || audit.calls[0].kind != "login_succeeded" {
		t.Fatalf("expected login_succeeded audit, got %+v", audit.calls)
	}
}

func TestLogin_FailuresAreMapped(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"bad credentials", domain.ErrInvalidCredentials(), http.StatusUnauthorized, domain.CodeInvalidCredentials},
		{"unknown id", domain.ErrMemberNotFound(), http.StatusUnauthorized, domain.CodeInvalidCredentials},
		{"not verified", domain.ErrEmailNotVerified(), http.StatusForbidden, domain.CodeEmailNotVerified},
		{"store down", domain.ErrRedisUnavailable(errors.New("down")), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			audit := &fakeAudit{}
			h := NewAuthHandler(&fakeAuthenticator{loginErr: tc.err}, time.Hour, false).WithAudit(audit)

			rr := httptest.NewRecorder()
			h.Login(rr, loginRequest(t, "a@x.com", "whatever"))

			if rr.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d", tc.wantCode, rr.Code)
			}
			if got := mustErrorCode(t, rr.Body); got != tc.wantErr {
				t.Fatalf("expected %s, got %s", tc.wantErr, got)
			}
			if readCookie(rr.Result(), security.SessionCookieName) != nil {
				t.Fatalf("no cookie on failure")
			}
			if len(audit.calls) != 1 || audit.calls[0].reason != tc.wantErr {
				t.Fatalf("expected login_failed audit, got %+v", audit.calls)
			}
		})
	}
}

func TestLogin_MissingPasswordIsInvalidCredentials(t *testing.T) {
	auth := &fakeAuthenticator{}
	h := NewAuthHandler(auth, time.Hour, false)

	rr := httptest.NewRecorder()
	h.Login(rr, loginRequest(t, "a@x.com", ""))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if auth.loginIn.ID != "" {
		t.Fatalf("authenticator must not be called")
	}
}

type denyLimiter struct{ keys []string }

func (d *denyLimiter) AllowFixedWindow(_ context.Context, key string, limit int, window time.Duration) (redis.Decision, error) {
	d.keys = append(d.keys, key)
	return redis.Decision{Allowed: false, Limit: limit, RetryAfter: 10 * time.Second}, nil
}

func TestLogin_PerIDRateLimit(t *testing.T) {
	lim := &denyLimiter{}
	auth := &fakeAuthenticator{}
	h := NewAuthHandler(auth, time.Hour, false).
		WithIDLimit(lim, middleware.FixedWindowConfig{RouteKey: "login_id", Limit: 5, Window: time.Minute})

	rr := httptest.NewRecorder()
	h.Login(rr, loginRequest(t, "A@x.com", "pw"))

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "10" {
		t.Fatalf("expected Retry-After header")
	}
	if len(lim.keys) != 1 || auth.loginIn.ID != "" {
		t.Fatalf("expected limiter hit before authenticator, keys=%v", lim.keys)
	}
}

func TestLogout_DeletesSessionAndRedirectsHome(t *testing.T) {
	auth := &fakeAuthenticator{}
	audit := &fakeAudit{}
	h := NewAuthHandler(auth, time.Hour, false).WithAudit(audit)

	req := withSession(httptest.NewRequest(http.MethodPost, "/member/logout", nil), "alice@x.com")
	rr := httptest.NewRecorder()
	h.Logout(rr, req)

	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/" {
		t.Fatalf("expected 303 to /, got %d %q", rr.Code, rr.Header().Get("Location"))
	}
	if len(auth.loggedOut) != 1 || auth.loggedOut[0] != "tok-alice@x.com" {
		t.Fatalf("expected session deleted, got %v", auth.loggedOut)
	}
	c := readCookie(rr.Result(), security.SessionCookieName)
	if c == nil || c.MaxAge >= 0 {
		t.Fatalf("expected cookie expired, got %+v", c)
	}
	if len(audit.calls) != 1 || audit.calls[0].kind != "logout" {
		t.Fatalf("expected logout audit, got %+v", audit.calls)
	}
}

func TestLogout_AnonymousStillRedirects(t *testing.T) {
	auth := &fakeAuthenticator{logoutErr: domain.ErrRedisUnavailable(errors.New("down"))}
	h := NewAuthHandler(auth, time.Hour, false)

	req := httptest.NewRequest(http.MethodPost, "/member/logout", nil)
	req.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: "stale"})
	rr := httptest.NewRecorder()
	h.Logout(rr, req)

	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rr.Code)
	}
	if len(auth.loggedOut) != 1 || auth.loggedOut[0] != "stale" {
		t.Fatalf("expected cookie token to be revoked, got %v", auth.loggedOut)
	}
}

func TestLogout_GetOnlyRedirects(t *testing.T) {
	auth := &fakeAuthenticator{}
	audit := &fakeAudit{}
	h := NewAuthHandler(auth, time.Hour, false).WithAudit(audit)

	req := withSession(httptest.NewRequest(http.MethodGet, "/member/logout", nil), "alice@x.com")
	req.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: "tok-alice@x.com"})
	rr := httptest.NewRecorder()
	h.Logout(rr, req)

	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/" {
		t.Fatalf("expected 303 to /, got %d %q", rr.Code, rr.Header().Get("Location"))
	}
	if len(auth.loggedOut) != 0 || len(audit.calls) != 0 {
		t.Fatalf("GET must not end the session, got %v %+v", auth.loggedOut, audit.calls)
	}
	if c := readCookie(rr.Result(), security.SessionCookieName); c != nil {
		t.Fatalf("GET must not touch the cookie, got %+v", c)
	}
}

func TestLogin_SecureIgnoresPlainCookie(t *testing.T) {
	auth := &fakeAuthenticator{session: authn.Session{MemberID: "alice@x.com", Token: "new"}}
	h := NewAuthHandler(auth, time.Hour, true)

	req := loginRequest(t, "alice@x.com", "Password123!")
	req.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: "planted"})
	rr := httptest.NewRecorder()
	h.Login(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if auth.loginIn.PreviousSession != "" {
		t.Fatalf("plain cookie must not be read when secure, got %q", auth.loginIn.PreviousSession)
	}
}

func TestHome_ShowsPrincipalWhenLoggedIn(t *testing.T) {
	h := NewAuthHandler(&fakeAuthenticator{}, time.Hour, false)

	rr := httptest.NewRecorder()
	h.Home(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	var anon dto.HomeData
	mustReadJSON(t, rr.Body, &anon)
	if anon.Member != nil || anon.Service != "member-service" {
		t.Fatalf("unexpected anonymous home %+v", anon)
	}

	rr = httptest.NewRecorder()
	h.Home(rr, withSession(httptest.NewRequest(http.MethodGet, "/", nil), "alice@x.com"))
	var home dto.HomeData
	mustReadJSON(t, rr.Body, &home)
	if home.Member == nil || home.Member.UserID != "alice@x.com" {
		t.Fatalf("expected member in home, got %+v", home)
	}
}
