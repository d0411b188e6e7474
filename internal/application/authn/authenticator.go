package authn

import (
	"context"
	"strings"
	"time"

	"github.com/lmsworks/member-service/internal/application/member"
	"github.com/lmsworks/member-service/internal/domain"
)

// defaultDummyHash is a well-formed bcrypt hash that matches no password a
// caller can send. Comparing against it keeps unknown-id logins as slow as
// wrong-password logins.
const defaultDummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

type Config struct {
	SessionTTL time.Duration
	// DummyHash should be produced by the live hasher so its cost matches.
	DummyHash string
}

type Authenticator struct {
	principals PrincipalResolver
	passwords  PasswordChecker
	sessions   SessionStore
	recorder   LoginRecorder

	ttl       time.Duration
	dummyHash string
	now       func() time.Time
	observe   func(outcome string)
}

func NewAuthenticator(principals PrincipalResolver, passwords PasswordChecker, sessions SessionStore, cfg Config) *Authenticator {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	dummy := cfg.DummyHash
	if dummy == "" {
		dummy = defaultDummyHash
	}
	return &Authenticator{
		principals: principals,
		passwords:  passwords,
		sessions:   sessions,
		ttl:        ttl,
		dummyHash:  dummy,
		now:        time.Now,
		observe:    func(string) {},
	}
}

// WithRecorder wires login history.
func (a *Authenticator) WithRecorder(r LoginRecorder) *Authenticator {
	a.recorder = r
	return a
}

// WithObserver receives one outcome label per login attempt (metrics).
func (a *Authenticator) WithObserver(fn func(outcome string)) *Authenticator {
	if fn != nil {
		a.observe = fn
	}
	return a
}

func (a *Authenticator) WithClock(now func() time.Time) *Authenticator {
	if now != nil {
		a.now = now
	}
	return a
}

type LoginInput struct {
	ID        string
	Password  string
	UserAgent string
	ClientIP  string
	// PreviousSession is the token presented with the login request, if any.
	// It is revoked so a pre-login session id cannot be fixed on the victim.
	PreviousSession string
}

// Login runs the credential check and opens a session.
//
// Failures: invalid_credentials for unknown ids and wrong passwords alike;
// email_not_verified for members that have not activated yet.
func (a *Authenticator) Login(ctx context.Context, in LoginInput) (Session, error) {
	id := strings.ToLower(strings.TrimSpace(in.ID))
	if id == "" || in.Password == "" {
		a.observe("invalid_credentials")
		return Session{}, domain.ErrInvalidCredentials()
	}

	p, err := a.principals.ResolvePrincipal(ctx, id)
	switch {
	case err == nil:
	case domain.Is(err, domain.CodeMemberNotFound):
		_ = a.passwords.Compare(a.dummyHash, in.Password)
		a.observe("invalid_credentials")
		return Session{}, domain.ErrInvalidCredentials()
	case domain.Is(err, domain.CodeEmailNotVerified):
		a.record(ctx, id, in, domain.LoginNotVerified)
		a.observe("not_verified")
		return Session{}, err
	default:
		a.observe("error")
		return Session{}, err
	}

	if err := a.passwords.Compare(p.PasswordHash, in.Password); err != nil {
		if domain.Is(err, domain.CodeHashFailed) {
			a.observe("error")
			return Session{}, err
		}
		a.record(ctx, p.Identifier, in, domain.LoginInvalidCredentials)
		a.observe("invalid_credentials")
		return Session{}, domain.ErrInvalidCredentials()
	}

	if in.PreviousSession != "" {
		_ = a.sessions.Delete(ctx, SessionKey(in.PreviousSession))
	}

	token, err := newSessionToken()
	if err != nil {
		a.observe("error")
		return Session{}, domain.ErrRandomFailed(err)
	}

	now := a.now().UTC()
	s := Session{
		MemberID:  p.Identifier,
		Roles:     p.Roles,
		CreatedAt: now,
		ExpiresAt: now.Add(a.ttl),
		UserAgent: in.UserAgent,
		ClientIP:  in.ClientIP,
	}
	if err := a.sessions.Save(ctx, SessionKey(token), s, a.ttl); err != nil {
		a.observe("error")
		return Session{}, err
	}

	a.record(ctx, p.Identifier, in, domain.LoginSuccess)
	a.observe("success")

	s.Token = token
	return s, nil
}

// Logout destroys the whole server-side session. Unknown tokens are fine.
func (a *Authenticator) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return a.sessions.Delete(ctx, SessionKey(token))
}

// Session resolves a cookie token to a live session.
func (a *Authenticator) Session(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, domain.ErrSessionMissing()
	}
	s, err := a.sessions.Get(ctx, SessionKey(token))
	if err != nil {
		return Session{}, err
	}
	if s.Expired(a.now()) {
		_ = a.sessions.Delete(ctx, SessionKey(token))
		return Session{}, domain.ErrSessionMissing()
	}
	return s, nil
}

func (a *Authenticator) record(ctx context.Context, id string, in LoginInput, outcome domain.LoginOutcome) {
	if a.recorder == nil {
		return
	}
	a.recorder.RecordLogin(ctx, member.LoginAttempt{
		MemberID:  id,
		UserAgent: in.UserAgent,
		ClientIP:  in.ClientIP,
		Outcome:   outcome,
	})
}
