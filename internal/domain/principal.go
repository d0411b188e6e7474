package domain

// Principal is the resolved identity handed to the authentication policy.
type Principal struct {
	Identifier   string
	PasswordHash string
	Roles        []Role
}

func (p Principal) HasRole(r Role) bool {
	for _, have := range p.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// HighestRole returns the most privileged role held.
func (p Principal) HighestRole() Role {
	var best Role
	for _, r := range p.Roles {
		if RoleRank(r) > RoleRank(best) {
			best = r
		}
	}
	return best
}
