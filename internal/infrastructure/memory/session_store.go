package memory

import (
	"context"
	"sync"
	"time"

	"github.com/lmsworks/member-service/internal/application/authn"
	"github.com/lmsworks/member-service/internal/domain"
)

type sessionEntry struct {
	sess      authn.Session
	expiresAt time.Time
}

// SessionStore is the single-process fallback for authn.SessionStore.
type SessionStore struct {
	mu sync.RWMutex
	// key -> entry
	byKey map[string]sessionEntry
	// memberID -> set(key)
	byMember map[string]map[string]struct{}

	now func() time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		byKey:    make(map[string]sessionEntry),
		byMember: make(map[string]map[string]struct{}),
		now:      time.Now,
	}
}

func (s *SessionStore) Save(ctx context.Context, key string, sess authn.Session, ttl time.Duration) error {
	if key == "" {
		return domain.ErrMissingField("session_key")
	}
	if sess.MemberID == "" {
		return domain.ErrMissingField("member_id")
	}
	sess.Token = ""

	s.mu.Lock()
	defer s.mu.Unlock()

	s.byKey[key] = sessionEntry{sess: sess, expiresAt: s.now().Add(ttl)}
	if s.byMember[sess.MemberID] == nil {
		s.byMember[sess.MemberID] = make(map[string]struct{})
	}
	s.byMember[sess.MemberID][key] = struct{}{}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, key string) (authn.Session, error) {
	s.mu.RLock()
	e, ok := s.byKey[key]
	s.mu.RUnlock()

	if !ok {
		return authn.Session{}, domain.ErrSessionMissing()
	}
	if !s.now().Before(e.expiresAt) {
		_ = s.Delete(ctx, key)
		return authn.Session{}, domain.ErrSessionMissing()
	}
	return e.sess, nil
}

func (s *SessionStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byKey[key]
	if !ok {
		return nil // idempotent
	}
	delete(s.byKey, key)
	if set := s.byMember[e.sess.MemberID]; set != nil {
		delete(set, key)
		if len(set) == 0 {
			delete(s.byMember, e.sess.MemberID)
		}
	}
	return nil
}

func (s *SessionStore) DeleteAllForMember(ctx context.Context, memberID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.byMember[memberID] {
		delete(s.byKey, key)
	}
	delete(s.byMember, memberID)
	return nil
}
