package member

import (
	"context"
	"strings"

	"github.com/lmsworks/member-service/internal/domain"
)

type RegisterInput struct {
	ID       string
	Name     string
	Phone    string
	Password string
}

type RegisterResult struct {
	Member domain.MemberSummary
	// MailSent is false when the activation mail could not be handed off.
	MailSent bool
}

// Register creates an unverified member and mails the activation link.
// The plaintext password never leaves this function.
func (s *Service) Register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	id := normalizeID(in.ID)
	name := strings.TrimSpace(in.Name)

	if err := validateID(id); err != nil {
		return RegisterResult{}, err
	}
	if name == "" {
		return RegisterResult{}, domain.ErrMissingField("userName")
	}
	if err := validatePassword(in.Password); err != nil {
		return RegisterResult{}, err
	}

	// Fast path; the store's unique key still decides concurrent races.
	if _, err := s.members.GetByID(ctx, id); err == nil {
		return RegisterResult{}, domain.ErrMemberAlreadyExists()
	} else if !domain.Is(err, domain.CodeMemberNotFound) {
		return RegisterResult{}, wrapRepoErr(err)
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return RegisterResult{}, err
	}

	token, digest, err := issueToken()
	if err != nil {
		return RegisterResult{}, domain.ErrRandomFailed(err)
	}

	now := s.now().UTC()
	expires := now.Add(s.verifyEmailTTL)
	created, err := s.members.Create(ctx, domain.Member{
		ID:                    id,
		Name:                  name,
		Phone:                 strings.TrimSpace(in.Phone),
		PasswordHash:          hash,
		RegisteredAt:          now,
		UpdatedAt:             now,
		EmailVerified:         false,
		EmailAuthKeyHash:      digest,
		EmailAuthKeyExpiresAt: &expires,
	})
	if err != nil {
		return RegisterResult{}, wrapRepoErr(err)
	}

	sent := s.dispatch(ctx, "verify_email", created.ID,
		activationMail(created.ID, created.Name, s.link(pathEmailAuth, token)))

	s.audit("member.registered", map[string]string{"member_id": created.ID})
	return RegisterResult{Member: created.Summary(), MailSent: sent}, nil
}
