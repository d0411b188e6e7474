package member

import (
	"context"

	"github.com/google/uuid"

	"github.com/lmsworks/member-service/internal/domain"
)

type LoginAttempt struct {
	MemberID  string
	UserAgent string
	ClientIP  string
	Outcome   domain.LoginOutcome
}

// RecordLogin appends a login attempt. History is best effort: failures are
// audited and never reach the login path.
func (s *Service) RecordLogin(ctx context.Context, a LoginAttempt) {
	id := normalizeID(a.MemberID)
	if id == "" {
		return
	}
	h := domain.LoginHistory{
		ID:        uuid.NewString(),
		MemberID:  id,
		UserAgent: a.UserAgent,
		ClientIP:  a.ClientIP,
		At:        s.now().UTC(),
		Outcome:   a.Outcome,
	}
	if err := s.history.Append(ctx, h); err != nil {
		s.audit("member.login_history_failed", map[string]string{"member_id": id, "error": err.Error()})
	}
}

// LoginHistory returns up to limit attempts for a known member, newest first.
func (s *Service) LoginHistory(ctx context.Context, id string, limit int) ([]domain.LoginHistory, error) {
	id = normalizeID(id)
	if _, err := s.members.GetByID(ctx, id); err != nil {
		return nil, wrapRepoErr(err)
	}
	if limit <= 0 || limit > 200 {
		limit = s.historyLimit
	}
	hist, err := s.history.ListByMember(ctx, id, limit)
	if err != nil {
		return nil, wrapRepoErr(err)
	}
	return hist, nil
}
