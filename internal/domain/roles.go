package domain

type Role string

const (
	// RoleUser is granted to every verified member.
	RoleUser Role = "USER"
	// RoleAdmin can list and inspect members.
	RoleAdmin Role = "ADMIN"
)

var roleRanks = map[Role]int{
	RoleUser:  1,
	RoleAdmin: 2,
}

// RoleRank orders roles by privilege; unknown roles rank 0.
func RoleRank(r Role) int { return roleRanks[r] }

func (r Role) Valid() bool { return RoleRank(r) > 0 }

// AtLeast reports whether r grants everything floor does.
func (r Role) AtLeast(floor Role) bool {
	return r.Valid() && RoleRank(r) >= RoleRank(floor)
}

// RolesFor returns the grants for a member. Everyone gets USER; the admin
// flag adds ADMIN.
func RolesFor(m Member) []Role {
	if m.Admin {
		return []Role{RoleUser, RoleAdmin}
	}
	return []Role{RoleUser}
}
