package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/lmsworks/member-service/internal/application/authn"
	"github.com/lmsworks/member-service/internal/domain"
)

// SessionStore implements authn.SessionStore:
// - member:sess:<key>        -> session JSON, TTL = session TTL
// - member:sess:idx:<member> -> set of <key>, TTL refreshed on each save
// The index lets DeleteAllForMember find every live session of a member.
type SessionStore struct {
	rdb *goredis.Client

	sessPrefix string
	idxPrefix  string
}

func NewSessionStore(c *Client) *SessionStore {
	var rdb *goredis.Client
	if c != nil {
		rdb = c.rdb
	}
	return &SessionStore{
		rdb:        rdb,
		sessPrefix: "member:sess:",
		idxPrefix:  "member:sess:idx:",
	}
}

var errNotConfigured = errors.New("redis session store not configured")

func (s *SessionStore) Save(ctx context.Context, key string, sess authn.Session, ttl time.Duration) error {
	if strings.TrimSpace(key) == "" {
		return domain.ErrMissingField("session_key")
	}
	if strings.TrimSpace(sess.MemberID) == "" {
		return domain.ErrMissingField("member_id")
	}
	if s.rdb == nil {
		return domain.ErrRedisUnavailable(errNotConfigured)
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}

	raw, err := json.Marshal(sess)
	if err != nil {
		return domain.ErrInternal(err)
	}

	idx := s.idxPrefix + sess.MemberID
	_, err = s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Set(ctx, s.sessPrefix+key, raw, ttl)
		p.SAdd(ctx, idx, key)
		p.PExpire(ctx, idx, ttl)
		return nil
	})
	if err != nil {
		return domain.ErrRedisUnavailable(err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, key string) (authn.Session, error) {
	if strings.TrimSpace(key) == "" {
		return authn.Session{}, domain.ErrSessionMissing()
	}
	if s.rdb == nil {
		return authn.Session{}, domain.ErrRedisUnavailable(errNotConfigured)
	}

	raw, err := s.rdb.Get(ctx, s.sessPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return authn.Session{}, domain.ErrSessionMissing()
		}
		return authn.Session{}, domain.ErrRedisUnavailable(err)
	}

	var sess authn.Session
	if err := json.Unmarshal(raw, &sess); err != nil || sess.MemberID == "" {
		// corrupt entry: drop it and treat as logged out
		_ = s.rdb.Del(ctx, s.sessPrefix+key).Err()
		return authn.Session{}, domain.ErrSessionMissing()
	}
	return sess, nil
}

// Delete is idempotent.
func (s *SessionStore) Delete(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return nil
	}
	if s.rdb == nil {
		return domain.ErrRedisUnavailable(errNotConfigured)
	}

	sess, err := s.Get(ctx, key)
	if err != nil {
		if domain.Is(err, domain.CodeSessionMissing) {
			return nil
		}
		return err
	}

	_, err = s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Del(ctx, s.sessPrefix+key)
		p.SRem(ctx, s.idxPrefix+sess.MemberID, key)
		return nil
	})
	if err != nil {
		return domain.ErrRedisUnavailable(err)
	}
	return nil
}

func (s *SessionStore) DeleteAllForMember(ctx context.Context, memberID string) error {
	if strings.TrimSpace(memberID) == "" {
		return domain.ErrMissingField("member_id")
	}
	if s.rdb == nil {
		return domain.ErrRedisUnavailable(errNotConfigured)
	}

	idx := s.idxPrefix + memberID
	keys, err := s.rdb.SMembers(ctx, idx).Result()
	if err != nil {
		return domain.ErrRedisUnavailable(err)
	}

	del := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		del = append(del, s.sessPrefix+k)
	}
	del = append(del, idx)

	if err := s.rdb.Del(ctx, del...).Err(); err != nil {
		return domain.ErrRedisUnavailable(err)
	}
	return nil
}
