package memory

import (
	"context"
	"sync"
	"time"

	"github.com/lmsworks/member-service/internal/domain"
)

type LoginHistoryRepo struct {
	mu       sync.RWMutex
	byMember map[string][]domain.LoginHistory // append order = time order
}

func NewLoginHistoryRepo() *LoginHistoryRepo {
	return &LoginHistoryRepo{byMember: make(map[string][]domain.LoginHistory)}
}

func (r *LoginHistoryRepo) Append(ctx context.Context, h domain.LoginHistory) error {
	if h.MemberID == "" {
		return domain.ErrMissingField("member_id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byMember[h.MemberID] = append(r.byMember[h.MemberID], h)
	return nil
}

// ListByMember returns newest first.
func (r *LoginHistoryRepo) ListByMember(ctx context.Context, memberID string, limit int) ([]domain.LoginHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.byMember[memberID]
	out := make([]domain.LoginHistory, 0, min(limit, len(all)))
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (r *LoginHistoryRepo) LastSuccess(memberID string) *time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.byMember[memberID]
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Outcome == domain.LoginSuccess {
			at := all[i].At
			return &at
		}
	}
	return nil
}
