package authn

import (
	"context"
	"time"

	"github.com/lmsworks/member-service/internal/application/member"
	"github.com/lmsworks/member-service/internal/domain"
)

// PrincipalResolver is the credential lookup the authenticator depends on.
// member.Service satisfies it.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, id string) (domain.Principal, error)
}

// PasswordChecker verifies a plaintext against a stored salted hash.
type PasswordChecker interface {
	Compare(hash string, password string) error
}

// LoginRecorder stores login attempts; best effort.
type LoginRecorder interface {
	RecordLogin(ctx context.Context, a member.LoginAttempt)
}

/*
SessionStore
------------
Server-side session state keyed by the SHA-256 of the cookie token, so a
leaked store dump cannot be replayed as cookies.

Get returns session_missing for unknown or expired keys.
DeleteAllForMember backs "log out everywhere" after a password reset.
*/
type SessionStore interface {
	Save(ctx context.Context, key string, s Session, ttl time.Duration) error
	Get(ctx context.Context, key string) (Session, error)
	Delete(ctx context.Context, key string) error
	DeleteAllForMember(ctx context.Context, memberID string) error
}
