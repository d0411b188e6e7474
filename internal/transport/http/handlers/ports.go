package http_handlers

import (
	"context"

	"github.com/lmsworks/member-service/internal/application/authn"
	"github.com/lmsworks/member-service/internal/application/member"
	"github.com/lmsworks/member-service/internal/domain"
)

// MemberService is the slice of member.Service the HTTP layer calls.
type MemberService interface {
	Register(ctx context.Context, in member.RegisterInput) (member.RegisterResult, error)
	VerifyEmail(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, id string) error

	SendResetPassword(ctx context.Context, in member.SendResetPasswordInput) error
	CheckResetPassword(ctx context.Context, token string) error
	ResetPassword(ctx context.Context, token, newPassword string) error

	ListMembers(ctx context.Context, f domain.MemberFilter) (domain.MemberPage, error)
	MemberDetail(ctx context.Context, id string) (member.MemberDetail, error)
	LoginHistory(ctx context.Context, id string, limit int) ([]domain.LoginHistory, error)
}

type Authenticator interface {
	Login(ctx context.Context, in authn.LoginInput) (authn.Session, error)
	Logout(ctx context.Context, token string) error
}

// AuditLogger receives security events. *audit.Logger satisfies it.
type AuditLogger interface {
	LoginSucceeded(ctx context.Context, memberID string)
	LoginFailed(ctx context.Context, memberID, reason string)
	Logout(ctx context.Context, memberID string)
}

type noopAudit struct{}

func (noopAudit) LoginSucceeded(context.Context, string)      {}
func (noopAudit) LoginFailed(context.Context, string, string) {}
func (noopAudit) Logout(context.Context, string)              {}
