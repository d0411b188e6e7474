package http_handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/lmsworks/member-service/internal/application/authn"
	"github.com/lmsworks/member-service/internal/infrastructure/security"
	"github.com/lmsworks/member-service/internal/logger"
	appCtx "github.com/lmsworks/member-service/internal/pkg/context"
	"github.com/lmsworks/member-service/internal/transport/http/dto"
	"github.com/lmsworks/member-service/internal/transport/http/middleware"
	"github.com/lmsworks/member-service/internal/transport/http/response"
)

const serviceName = "member-service"

type AuthHandler struct {
	auth          Authenticator
	audit         AuditLogger
	limiter       middleware.RateLimiter
	idLimit       middleware.FixedWindowConfig
	sessionTTL    time.Duration
	secureCookies bool
}

func NewAuthHandler(auth Authenticator, sessionTTL time.Duration, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		auth:          auth,
		audit:         noopAudit{},
		sessionTTL:    sessionTTL,
		secureCookies: secureCookies,
	}
}

func (h *AuthHandler) WithAudit(a AuditLogger) *AuthHandler {
	if a != nil {
		h.audit = a
	}
	return h
}

// WithIDLimit throttles logins per submitted id on top of the per-IP limit
// applied by the router.
func (h *AuthHandler) WithIDLimit(l middleware.RateLimiter, cfg middleware.FixedWindowConfig) *AuthHandler {
	h.limiter = l
	h.idLimit = cfg
	return h
}

// Login handles POST /member/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	req.UserID = strings.ToLower(strings.TrimSpace(req.UserID))
	if err := dto.Validate(req); err != nil {
		response.WriteError(w, r, authn.LoginFailure(err))
		return
	}

	ctx := r.Context()
	if err := middleware.CheckLimit(ctx, h.limiter, h.idLimit, "id:"+req.UserID); err != nil {
		h.audit.LoginFailed(ctx, req.UserID, "rate_limited")
		response.WriteError(w, r, err)
		return
	}

	previous, _ := security.ReadSessionCookie(r, h.secureCookies)
	sess, err := h.auth.Login(ctx, authn.LoginInput{
		ID:              req.UserID,
		Password:        req.Password,
		UserAgent:       appCtx.GetUserAgent(ctx),
		ClientIP:        appCtx.GetClientIP(ctx),
		PreviousSession: previous,
	})
	if err != nil {
		failure := authn.LoginFailure(err)
		h.audit.LoginFailed(ctx, req.UserID, failure.Code)
		if failure.Code == "internal_error" {
			logger.WithCtx(ctx).Error().Err(err).Msg("login failed")
		}
		response.WriteError(w, r, failure)
		return
	}

	security.SetSessionCookie(w, sess.Token, h.sessionTTL, h.secureCookies)
	h.audit.LoginSucceeded(ctx, sess.MemberID)

	response.OK(w, dto.NewSessionView(sess))
}

// Logout handles POST /member/logout and always ends on "/". GET only
// redirects: safe methods skip the origin check, so they must not end the
// session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		response.SeeOther(w, r, "/")
		return
	}
	ctx := r.Context()

	token := middleware.SessionTokenFromContext(ctx)
	if token == "" {
		token, _ = security.ReadSessionCookie(r, h.secureCookies)
	}
	if token != "" {
		if err := h.auth.Logout(ctx, token); err != nil {
			logger.WithCtx(ctx).Warn().Err(err).Msg("logout: session delete failed")
		}
	}
	if sess, ok := middleware.SessionFromContext(ctx); ok {
		h.audit.Logout(ctx, sess.MemberID)
	}

	security.ClearSessionCookie(w, h.secureCookies)
	response.SeeOther(w, r, "/")
}

// Home handles GET /
func (h *AuthHandler) Home(w http.ResponseWriter, r *http.Request) {
	data := dto.HomeData{Service: serviceName}
	if sess, ok := middleware.SessionFromContext(r.Context()); ok {
		v := dto.NewSessionView(sess)
		data.Member = &v
	}
	response.OK(w, data)
}
