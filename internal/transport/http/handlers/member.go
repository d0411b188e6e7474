package http_handlers

import (
	"net/http"
	"strings"

	"github.com/lmsworks/member-service/internal/application/member"
	"github.com/lmsworks/member-service/internal/domain"
	"github.com/lmsworks/member-service/internal/logger"
	"github.com/lmsworks/member-service/internal/transport/http/dto"
	"github.com/lmsworks/member-service/internal/transport/http/middleware"
	"github.com/lmsworks/member-service/internal/transport/http/response"
)

type MemberHandler struct {
	svc MemberService
}

func NewMemberHandler(svc MemberService) *MemberHandler {
	return &MemberHandler{svc: svc}
}

// Register handles POST /member/register
func (h *MemberHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	req.Normalize()
	if err := dto.Validate(req); err != nil {
		middleware.RegistrationsTotal.WithLabelValues("invalid").Inc()
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Register(r.Context(), member.RegisterInput{
		ID:       req.UserID,
		Name:     req.Name,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		middleware.RegistrationsTotal.WithLabelValues(registrationStatus(err)).Inc()
		response.WriteError(w, r, err)
		return
	}

	middleware.RegistrationsTotal.WithLabelValues("created").Inc()

	logger.WithCtx(r.Context()).Info().
		Bool("mail_sent", res.MailSent).
		Msg("member_registered")

	response.Created(w, dto.RegisterData{
		Member:   dto.NewMemberView(res.Member),
		MailSent: res.MailSent,
	})
}

// VerifyEmail handles GET /member/email-auth?id=<token>
func (h *MemberHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("id"))
	if token == "" {
		response.WriteError(w, r, domain.ErrMissingField("id"))
		return
	}

	if err := h.svc.VerifyEmail(r.Context(), token); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.StatusData{Status: "verified"})
}

// ResendVerification handles POST /member/email-auth/resend. The answer is
// the same whether or not the id exists.
func (h *MemberHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req dto.ResendVerificationRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if err := dto.Validate(req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.ResendVerification(r.Context(), req.UserID); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.Accepted(w, dto.StatusData{Status: "accepted"})
}

// FindPassword handles POST /member/find/password. Unknown id/name pairs get
// the same 202 as real ones.
func (h *MemberHandler) FindPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.FindPasswordRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	req.Name = strings.TrimSpace(req.Name)
	if err := dto.Validate(req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	err := h.svc.SendResetPassword(r.Context(), member.SendResetPasswordInput{ID: req.UserID, Name: req.Name})
	if err != nil && !domain.Is(err, domain.CodeMemberNotFound) {
		response.WriteError(w, r, err)
		return
	}
	if err != nil {
		logger.WithCtx(r.Context()).Info().Msg("reset_password_unknown_member")
	}
	response.Accepted(w, dto.StatusData{Status: "accepted"})
}

// CheckResetPassword handles GET /member/reset/password?id=<token>
func (h *MemberHandler) CheckResetPassword(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("id"))
	if token == "" {
		response.WriteError(w, r, domain.ErrMissingField("id"))
		return
	}
	if err := h.svc.CheckResetPassword(r.Context(), token); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.StatusData{Status: "valid"})
}

// ResetPassword handles POST /member/reset/password
func (h *MemberHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPasswordRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	req.Token = strings.TrimSpace(req.Token)
	if err := dto.Validate(req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.StatusData{Status: "password_reset"})
}

// Info handles GET /member/info for the logged-in member.
func (h *MemberHandler) Info(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrSessionMissing())
		return
	}

	d, err := h.svc.MemberDetail(r.Context(), sess.MemberID)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.NewMemberDetailData(d.Member, d.History))
}

func registrationStatus(err error) string {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return "invalid"
	case domain.KindConflict:
		return "duplicate"
	default:
		return "error"
	}
}
