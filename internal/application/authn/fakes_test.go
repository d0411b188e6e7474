package authn

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lmsworks/member-service/internal/application/member"
	"github.com/lmsworks/member-service/internal/domain"
)

type fakeResolver struct {
	principals map[string]domain.Principal
	errs       map[string]error
}

func (r *fakeResolver) ResolvePrincipal(ctx context.Context, id string) (domain.Principal, error) {
	if err, ok := r.errs[id]; ok {
		return domain.Principal{}, err
	}
	p, ok := r.principals[id]
	if !ok {
		return domain.Principal{}, domain.ErrMemberNotFound()
	}
	return p, nil
}

type fakeChecker struct {
	mu       sync.Mutex
	compared []string
}

func (c *fakeChecker) Compare(hash, password string) error {
	c.mu.Lock()
	c.compared = append(c.compared, hash)
	c.mu.Unlock()
	if hash == "hash:"+password {
		return nil
	}
	if hash == "corrupt" {
		return domain.ErrHashFailed(errors.New("malformed hash"))
	}
	return errors.New("mismatch")
}

type memSessions struct {
	mu   sync.Mutex
	data map[string]Session

	saveErr error
}

func newMemSessions() *memSessions { return &memSessions{data: map[string]Session{}} }

func (m *memSessions) Save(ctx context.Context, key string, s Session, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data[key] = s
	return nil
}

func (m *memSessions) Get(ctx context.Context, key string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.data[key]
	if !ok {
		return Session{}, domain.ErrSessionMissing()
	}
	return s, nil
}

func (m *memSessions) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memSessions) DeleteAllForMember(ctx context.Context, memberID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, s := range m.data {
		if s.MemberID == memberID {
			delete(m.data, k)
		}
	}
	return nil
}

type fakeRecorder struct {
	attempts []member.LoginAttempt
}

func (r *fakeRecorder) RecordLogin(ctx context.Context, a member.LoginAttempt) {
	r.attempts = append(r.attempts, a)
}
