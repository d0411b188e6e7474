package authn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lmsworks/member-service/internal/domain"
)

var (
	userPrincipal  = &domain.Principal{Identifier: "u@x.com", Roles: []domain.Role{domain.RoleUser}}
	adminPrincipal = &domain.Principal{Identifier: "a@x.com", Roles: []domain.Role{domain.RoleUser, domain.RoleAdmin}}
)

func TestDefaultPolicy_Decisions(t *testing.T) {
	p := MustPolicy(DefaultRules())

	cases := []struct {
		path string
		who  *domain.Principal
		want Decision
	}{
		{"/", nil, Allow},
		{"/member/register", nil, Allow},
		{"/member/email-auth", nil, Allow},
		{"/member/login", nil, Allow},
		{"/member/reset/password", nil, Allow},
		{"/healthz", nil, Allow},

		{"/member/info", nil, Unauthenticated},
		{"/member/info", userPrincipal, Allow},
		{"/member/logout", nil, Allow},
		{"/courses/42/lessons", userPrincipal, Allow},

		{"/admin/member/list", nil, Unauthenticated},
		{"/admin/member/list", userPrincipal, Forbidden},
		{"/admin/member/list", adminPrincipal, Allow},
		{"/admin", userPrincipal, Forbidden},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, p.Decide(c.path, c.who), "path=%s who=%v", c.path, c.who)
	}
}

func TestPolicy_FirstMatchWins(t *testing.T) {
	p := MustPolicy([]Rule{
		{Pattern: "/docs/private/*", Requirement: Authenticated},
		{Pattern: "/docs/**", Requirement: PermitAll},
	})

	assert.Equal(t, Unauthenticated, p.Decide("/docs/private/x", nil))
	assert.Equal(t, Allow, p.Decide("/docs/public/x", nil))
	// '*' does not cross a separator, so the second rule applies
	assert.Equal(t, Allow, p.Decide("/docs/private/x/y", nil))
}

func TestPolicy_FailsClosedOnNoMatch(t *testing.T) {
	p := MustPolicy([]Rule{{Pattern: "/", Requirement: PermitAll}})

	assert.Equal(t, Unauthenticated, p.Decide("/other", nil))
	assert.Equal(t, Deny, p.Decide("/other", adminPrincipal))
}

func TestNewPolicy_RejectsBadRules(t *testing.T) {
	_, err := NewPolicy([]Rule{{Pattern: "/[", Requirement: PermitAll}})
	require.Error(t, err)

	_, err = NewPolicy([]Rule{{Pattern: "/x", Requirement: RequireRole("ROOT")}})
	require.Error(t, err)

	assert.Panics(t, func() { MustPolicy([]Rule{{Pattern: "/[", Requirement: PermitAll}}) })
}

func TestPolicy_Match(t *testing.T) {
	p := MustPolicy(DefaultRules())

	r, ok := p.Match("/admin/member/detail")
	require.True(t, ok)
	assert.Equal(t, "/admin/**", r.Pattern)
	assert.Equal(t, "role:ADMIN", r.Requirement.String())
}
