package member

import (
	"context"

	"github.com/lmsworks/member-service/internal/domain"
)

// ResolvePrincipal looks a member up for login. It fails with
// member_not_found or email_not_verified; callers decide how much of that
// to reveal.
func (s *Service) ResolvePrincipal(ctx context.Context, id string) (domain.Principal, error) {
	id = normalizeID(id)
	if id == "" {
		return domain.Principal{}, domain.ErrMemberNotFound()
	}

	m, err := s.members.GetByID(ctx, id)
	if err != nil {
		return domain.Principal{}, wrapRepoErr(err)
	}
	if !m.EmailVerified {
		return domain.Principal{}, domain.ErrEmailNotVerified()
	}

	return domain.Principal{
		Identifier:   m.ID,
		PasswordHash: m.PasswordHash,
		Roles:        domain.RolesFor(m),
	}, nil
}
