package authn

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"time"

	"github.com/lmsworks/member-service/internal/domain"
)

// Session is an authenticated session. Token is only populated when the
// session is created; stores never persist it.
type Session struct {
	Token     string        `json:"-"`
	MemberID  string        `json:"member_id"`
	Roles     []domain.Role `json:"roles"`
	CreatedAt time.Time     `json:"created_at"`
	ExpiresAt time.Time     `json:"expires_at"`
	UserAgent string        `json:"user_agent,omitempty"`
	ClientIP  string        `json:"client_ip,omitempty"`
}

func (s Session) Principal() domain.Principal {
	return domain.Principal{Identifier: s.MemberID, Roles: s.Roles}
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// SessionKey is the store key derived from a cookie token.
func SessionKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func newSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
