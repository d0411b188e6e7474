package member

import (
	"context"
	"time"

	"github.com/lmsworks/member-service/internal/domain"
)

/*
Repo
----
Credential store port. Token columns hold SHA-256 digests, never the
plaintext tokens that travel in emails.

The Consume* methods must be atomic: one conditional UPDATE that only
matches an unexpired, unused token, so two concurrent callers cannot both
succeed on the same token.
*/
type Repo interface {
	// Create fails with member_already_exists when the id is taken,
	// including when a concurrent insert wins the race.
	Create(ctx context.Context, m domain.Member) (domain.Member, error)
	GetByID(ctx context.Context, id string) (domain.Member, error)

	SetEmailAuthKey(ctx context.Context, id, keyHash string, expiresAt time.Time) error
	// ConsumeEmailAuthKey marks the owner verified and clears the key.
	ConsumeEmailAuthKey(ctx context.Context, keyHash string, now time.Time) (memberID string, err error)

	SetResetKey(ctx context.Context, id, keyHash string, expiresAt time.Time) error
	PeekResetKey(ctx context.Context, keyHash string, now time.Time) (memberID string, err error)
	// ConsumeResetKey overwrites the password hash and clears the key.
	ConsumeResetKey(ctx context.Context, keyHash, newPasswordHash string, now time.Time) (memberID string, err error)

	List(ctx context.Context, f domain.MemberFilter) (domain.MemberPage, error)
}

// LoginHistoryRepo stores login attempts. Newest first on read.
type LoginHistoryRepo interface {
	Append(ctx context.Context, h domain.LoginHistory) error
	ListByMember(ctx context.Context, memberID string, limit int) ([]domain.LoginHistory, error)
}

/*
PasswordHasher
--------------
Abstracts bcrypt. Compare must be used for verification: salted hashes are
not reproducible, so comparing freshly computed hashes never matches.
*/
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash string, password string) error // nil if match
}

// Mail is a rendered transactional message. TextBody is an optional
// plain-text alternative.
type Mail struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

/*
Mailer
------
Mail dispatcher port. Implementations may send inline (SMTP), hand off to
a broker (RabbitMQ) or just log. The service treats dispatch as
fire-and-forget.
*/
type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

// SessionRevoker drops every live session of a member.
type SessionRevoker interface {
	DeleteAllForMember(ctx context.Context, memberID string) error
}
