package member

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lmsworks/member-service/internal/domain"
)

type Service struct {
	members  Repo
	history  LoginHistoryRepo
	hasher   PasswordHasher
	mailer   Mailer
	sessions SessionRevoker

	now   func() time.Time
	audit func(action string, fields map[string]string)

	// baseURL is the public origin used in emailed links, e.g. http://localhost:8080
	baseURL          string
	verifyEmailTTL   time.Duration
	passwordResetTTL time.Duration
	historyLimit     int
}

type Config struct {
	BaseURL               string
	VerifyEmailTokenTTL   time.Duration
	PasswordResetTokenTTL time.Duration
	// DetailHistoryLimit caps the login history returned with MemberDetail.
	DetailHistoryLimit int
}

func NewService(
	members Repo,
	history LoginHistoryRepo,
	hasher PasswordHasher,
	mailer Mailer,
	cfg Config,
) *Service {
	verifyTTL := cfg.VerifyEmailTokenTTL
	if verifyTTL <= 0 {
		verifyTTL = 24 * time.Hour
	}
	resetTTL := cfg.PasswordResetTokenTTL
	if resetTTL <= 0 {
		resetTTL = time.Hour
	}
	limit := cfg.DetailHistoryLimit
	if limit <= 0 {
		limit = 20
	}
	return &Service{
		members:  members,
		history:  history,
		hasher:   hasher,
		mailer:   mailer,
		sessions: noopRevoker{},

		now:   time.Now,
		audit: func(string, map[string]string) {},

		baseURL:          strings.TrimRight(cfg.BaseURL, "/"),
		verifyEmailTTL:   verifyTTL,
		passwordResetTTL: resetTTL,
		historyLimit:     limit,
	}
}

func (s *Service) WithAudit(fn func(action string, fields map[string]string)) *Service {
	if fn != nil {
		s.audit = fn
	}
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// WithSessionRevoker wires the session store so a password reset logs the
// member out everywhere.
func (s *Service) WithSessionRevoker(r SessionRevoker) *Service {
	if r != nil {
		s.sessions = r
	}
	return s
}

type noopRevoker struct{}

func (noopRevoker) DeleteAllForMember(context.Context, string) error { return nil }

// dispatch sends mail without failing the caller; delivery problems are
// only audited.
func (s *Service) dispatch(ctx context.Context, action, memberID string, m Mail) bool {
	if err := s.mailer.Send(ctx, m); err != nil {
		s.audit("mail.dispatch_failed", map[string]string{
			"kind":      action,
			"member_id": memberID,
			"error":     err.Error(),
		})
		return false
	}
	s.audit("mail.dispatched", map[string]string{"kind": action, "member_id": memberID})
	return true
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

func (s *Service) link(path, token string) string {
	return s.baseURL + path + "?id=" + token
}

func wrapRepoErr(err error) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return domain.ErrInternal(err)
}

func (s *Service) hashPassword(password string) (string, error) {
	hash, err := s.hasher.Hash(password)
	if err == nil {
		return hash, nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return "", err
	}
	return "", domain.ErrHashFailed(err)
}
