package member

import (
	"context"
	"strings"

	"github.com/lmsworks/member-service/internal/domain"
)

type SendResetPasswordInput struct {
	ID string
	// Name, when given, must match the account's name.
	Name string
}

// SendResetPassword issues a reset token and mails the link. It reports
// member_not_found for unknown accounts; the HTTP layer hides that.
func (s *Service) SendResetPassword(ctx context.Context, in SendResetPasswordInput) error {
	id := normalizeID(in.ID)
	if id == "" {
		return domain.ErrMissingField("userId")
	}

	m, err := s.members.GetByID(ctx, id)
	if err != nil {
		return wrapRepoErr(err)
	}
	if name := strings.TrimSpace(in.Name); name != "" && name != m.Name {
		return domain.ErrMemberNotFound()
	}

	token, digest, err := issueToken()
	if err != nil {
		return domain.ErrRandomFailed(err)
	}
	if err := s.members.SetResetKey(ctx, m.ID, digest, s.now().UTC().Add(s.passwordResetTTL)); err != nil {
		return wrapRepoErr(err)
	}

	s.dispatch(ctx, "password_reset", m.ID, resetPasswordMail(m.ID, m.Name, s.link(pathResetPassword, token)))
	s.audit("member.password_reset_requested", map[string]string{"member_id": m.ID})
	return nil
}

// CheckResetPassword validates a reset token without consuming it.
func (s *Service) CheckResetPassword(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ErrInvalidOrExpiredToken()
	}
	_, err := s.members.PeekResetKey(ctx, HashToken(token), s.now().UTC())
	return wrapRepoErr(err)
}

// ResetPassword consumes the token and stores a fresh hash of newPassword.
// Every session of the member is revoked afterwards.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ErrInvalidOrExpiredToken()
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}

	id, err := s.members.ConsumeResetKey(ctx, HashToken(token), hash, s.now().UTC())
	if err != nil {
		return wrapRepoErr(err)
	}

	if err := s.sessions.DeleteAllForMember(ctx, id); err != nil {
		s.audit("member.session_revoke_failed", map[string]string{"member_id": id, "error": err.Error()})
	}
	s.audit("member.password_reset", map[string]string{"member_id": id})
	return nil
}
