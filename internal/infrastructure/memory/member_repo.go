package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lmsworks/member-service/internal/domain"
)

// MemberRepo is the in-memory credential store used in dev and tests.
// A single mutex makes every method atomic, matching the conditional
// updates of the Postgres repo.
type MemberRepo struct {
	mu   sync.RWMutex
	byID map[string]domain.Member

	// lastLogin feeds MemberSummary.LastLoginAt in List.
	lastLogin func(memberID string) *time.Time
}

func NewMemberRepo() *MemberRepo {
	return &MemberRepo{
		byID:      make(map[string]domain.Member),
		lastLogin: func(string) *time.Time { return nil },
	}
}

// WithLoginHistory lets List report last successful logins.
func (r *MemberRepo) WithLoginHistory(h *LoginHistoryRepo) *MemberRepo {
	if h != nil {
		r.lastLogin = h.LastSuccess
	}
	return r
}

func (r *MemberRepo) Create(ctx context.Context, m domain.Member) (domain.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m.ID == "" {
		return domain.Member{}, domain.ErrMissingField("userId")
	}
	if _, exists := r.byID[m.ID]; exists {
		return domain.Member{}, domain.ErrMemberAlreadyExists()
	}
	r.byID[m.ID] = m
	return m, nil
}

func (r *MemberRepo) GetByID(ctx context.Context, id string) (domain.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.byID[id]
	if !ok {
		return domain.Member{}, domain.ErrMemberNotFound()
	}
	return m, nil
}

func (r *MemberRepo) SetEmailAuthKey(ctx context.Context, id, keyHash string, expiresAt time.Time) error {
	return r.update(id, func(m *domain.Member) {
		m.EmailAuthKeyHash = keyHash
		m.EmailAuthKeyExpiresAt = &expiresAt
	})
}

func (r *MemberRepo) ConsumeEmailAuthKey(ctx context.Context, keyHash string, now time.Time) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, m := range r.byID {
		if keyHash == "" || m.EmailAuthKeyHash != keyHash || m.EmailVerified || !live(m.EmailAuthKeyExpiresAt, now) {
			continue
		}
		m.EmailVerified = true
		m.EmailVerifiedAt = &now
		m.EmailAuthKeyHash = ""
		m.EmailAuthKeyExpiresAt = nil
		m.UpdatedAt = now
		r.byID[id] = m
		return id, nil
	}
	return "", domain.ErrInvalidOrExpiredToken()
}

func (r *MemberRepo) SetResetKey(ctx context.Context, id, keyHash string, expiresAt time.Time) error {
	return r.update(id, func(m *domain.Member) {
		m.ResetKeyHash = keyHash
		m.ResetKeyExpiresAt = &expiresAt
	})
}

func (r *MemberRepo) PeekResetKey(ctx context.Context, keyHash string, now time.Time) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if m, ok := r.findReset(keyHash, now); ok {
		return m.ID, nil
	}
	return "", domain.ErrInvalidOrExpiredToken()
}

func (r *MemberRepo) ConsumeResetKey(ctx context.Context, keyHash, newPasswordHash string, now time.Time) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.findReset(keyHash, now)
	if !ok {
		return "", domain.ErrInvalidOrExpiredToken()
	}
	m.PasswordHash = newPasswordHash
	m.ResetKeyHash = ""
	m.ResetKeyExpiresAt = nil
	m.UpdatedAt = now
	r.byID[m.ID] = m
	return m.ID, nil
}

func (r *MemberRepo) List(ctx context.Context, f domain.MemberFilter) (domain.MemberPage, error) {
	f = f.Normalize()

	r.mu.RLock()
	matched := make([]domain.Member, 0, len(r.byID))
	for _, m := range r.byID {
		if matches(m, f) {
			matched = append(matched, m)
		}
	}
	r.mu.RUnlock()

	// newest registrations first, like the admin list
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].RegisteredAt.Equal(matched[j].RegisteredAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].RegisteredAt.After(matched[j].RegisteredAt)
	})

	page := domain.MemberPage{Total: len(matched), Page: f.Page, PageSize: f.PageSize, Items: []domain.MemberSummary{}}
	start := f.Offset()
	if start >= len(matched) {
		return page, nil
	}
	end := min(start+f.PageSize, len(matched))
	for _, m := range matched[start:end] {
		s := m.Summary()
		s.LastLoginAt = r.lastLogin(m.ID)
		page.Items = append(page.Items, s)
	}
	return page, nil
}

func matches(m domain.Member, f domain.MemberFilter) bool {
	v := strings.ToLower(f.SearchValue)
	switch f.SearchType {
	case domain.SearchUserID:
		return strings.Contains(strings.ToLower(m.ID), v)
	case domain.SearchUserName:
		return strings.Contains(strings.ToLower(m.Name), v)
	case domain.SearchPhone:
		return strings.Contains(m.Phone, f.SearchValue)
	default:
		return true
	}
}

func (r *MemberRepo) findReset(keyHash string, now time.Time) (domain.Member, bool) {
	if keyHash == "" {
		return domain.Member{}, false
	}
	for _, m := range r.byID {
		if m.ResetKeyHash == keyHash && live(m.ResetKeyExpiresAt, now) {
			return m, true
		}
	}
	return domain.Member{}, false
}

func (r *MemberRepo) update(id string, fn func(m *domain.Member)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.byID[id]
	if !ok {
		return domain.ErrMemberNotFound()
	}
	fn(&m)
	r.byID[id] = m
	return nil
}

func live(expiresAt *time.Time, now time.Time) bool {
	return expiresAt != nil && expiresAt.After(now)
}
