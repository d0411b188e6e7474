package authn

import (
	"fmt"

	"github.com/gobwas/glob"

	"github.com/lmsworks/member-service/internal/domain"
)

// Requirement is what a request must carry to pass a rule.
type Requirement struct {
	// Anonymous lets everyone through.
	Anonymous bool
	// Role is the minimum role; ignored when Anonymous is set.
	Role domain.Role
}

var (
	PermitAll     = Requirement{Anonymous: true}
	Authenticated = Requirement{Role: domain.RoleUser}
)

func RequireRole(r domain.Role) Requirement { return Requirement{Role: r} }

func (r Requirement) String() string {
	if r.Anonymous {
		return "permitAll"
	}
	return "role:" + string(r.Role)
}

// Rule pairs a path pattern with a requirement. Patterns are globs with '/'
// as separator: '*' stays within a segment, '**' spans segments.
type Rule struct {
	Pattern     string
	Requirement Requirement
}

type Decision int

const (
	Deny Decision = iota
	Allow
	// Unauthenticated: the rule needs a session and there is none.
	Unauthenticated
	// Forbidden: there is a session but its roles are too weak.
	Forbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	default:
		return "deny"
	}
}

type compiledRule struct {
	rule Rule
	glob glob.Glob
}

// Policy evaluates rules in order; the first matching pattern decides.
// A path no rule matches is denied.
type Policy struct {
	rules []compiledRule
}

// NewPolicy compiles rules, failing on the first bad pattern.
func NewPolicy(rules []Rule) (*Policy, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		g, err := glob.Compile(r.Pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("authn: compile pattern %q: %w", r.Pattern, err)
		}
		if !r.Requirement.Anonymous && !r.Requirement.Role.Valid() {
			return nil, fmt.Errorf("authn: rule %q has unknown role %q", r.Pattern, r.Requirement.Role)
		}
		compiled = append(compiled, compiledRule{rule: r, glob: g})
	}
	return &Policy{rules: compiled}, nil
}

// MustPolicy panics on invalid rules. Use for hardcoded rule sets only.
func MustPolicy(rules []Rule) *Policy {
	p, err := NewPolicy(rules)
	if err != nil {
		panic(err)
	}
	return p
}

// Match returns the first rule whose pattern matches path.
func (p *Policy) Match(path string) (Rule, bool) {
	for _, cr := range p.rules {
		if cr.glob.Match(path) {
			return cr.rule, true
		}
	}
	return Rule{}, false
}

// Decide evaluates path for the given principal (nil when anonymous).
func (p *Policy) Decide(path string, principal *domain.Principal) Decision {
	rule, ok := p.Match(path)
	if !ok {
		if principal == nil {
			return Unauthenticated
		}
		return Deny
	}

	req := rule.Requirement
	if req.Anonymous {
		return Allow
	}
	if principal == nil {
		return Unauthenticated
	}
	for _, have := range principal.Roles {
		if have.AtLeast(req.Role) {
			return Allow
		}
	}
	return Forbidden
}

// DefaultRules: public pages first, then admin, then everything else needs USER.
func DefaultRules() []Rule {
	public := []string{
		"/",
		"/member/register",
		"/member/email-auth",
		"/member/email-auth/resend",
		"/member/login",
		"/member/logout",
		"/member/find/password",
		"/member/reset/password",
		"/healthz",
		"/readyz",
		"/metrics",
	}
	rules := make([]Rule, 0, len(public)+3)
	for _, p := range public {
		rules = append(rules, Rule{Pattern: p, Requirement: PermitAll})
	}
	rules = append(rules,
		Rule{Pattern: "/admin", Requirement: RequireRole(domain.RoleAdmin)},
		Rule{Pattern: "/admin/**", Requirement: RequireRole(domain.RoleAdmin)},
		Rule{Pattern: "/**", Requirement: Authenticated},
	)
	return rules
}
