package member

import (
	"context"
	"strings"

	"github.com/lmsworks/member-service/internal/domain"
)

// VerifyEmail consumes an activation token. Tokens are single-use: a second
// call with the same token fails with invalid_or_expired_token.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ErrInvalidOrExpiredToken()
	}

	id, err := s.members.ConsumeEmailAuthKey(ctx, HashToken(token), s.now().UTC())
	if err != nil {
		return wrapRepoErr(err)
	}

	s.audit("member.email_verified", map[string]string{"member_id": id})
	return nil
}

// ResendVerification issues a fresh activation link.
// IMPORTANT: non-enumerating - unknown or already verified ids return nil.
func (s *Service) ResendVerification(ctx context.Context, id string) error {
	id = normalizeID(id)
	if id == "" {
		return domain.ErrMissingField("userId")
	}

	m, err := s.members.GetByID(ctx, id)
	if err != nil {
		if domain.Is(err, domain.CodeMemberNotFound) {
			return nil
		}
		return wrapRepoErr(err)
	}
	if m.EmailVerified {
		return nil
	}

	token, digest, err := issueToken()
	if err != nil {
		return domain.ErrRandomFailed(err)
	}
	if err := s.members.SetEmailAuthKey(ctx, m.ID, digest, s.now().UTC().Add(s.verifyEmailTTL)); err != nil {
		return wrapRepoErr(err)
	}

	s.dispatch(ctx, "verify_email", m.ID, activationMail(m.ID, m.Name, s.link(pathEmailAuth, token)))
	s.audit("member.verification_resent", map[string]string{"member_id": m.ID})
	return nil
}
