package credentials

// Role is an account's role
type Role = string

const (
	// RoleGuest is a guest role (ie. view)
	RoleGuest Role = "guest"
	// RoleMember is a member (i.e. view, edit)
	RoleMember Role = "member"
	// RoleAdmin is an admin role (i.e. view, edit, create)
	RoleAdmin Role = "admin"
	// RoleOwner is an owner role (i.e. view, edit, create, delete)
	RoleOwner Role = "owner"
)

var roleHierarchy = map[Role]int{
	RoleGuest:  0,
	RoleMember: 1,
	RoleAdmin:  2,
	RoleOwner:  3,
}

// IsValidRole checks if the role is one of the predefined valid roles
func IsValidRole(r Role) bool {
	_, ok := roleHierarchy[r]
	return ok
}

// ParseRole converts a string to a Role, reporting whether it is valid
func ParseRole(s string) (Role, bool) {
	if IsValidRole(s) {
		return s, true
	}
	return "", false
}

// RoleIsAtLeast checks if role meets the minimum required level
func RoleIsAtLeast(role, minRole Role) bool {
	level, ok := roleHierarchy[role]
	if !ok {
		return false
	}
	minLevel, ok := roleHierarchy[minRole]
	if !ok {
		return false
	}
	return level >= minLevel
}

// RoleCanRead checks if the role can read resources
func RoleCanRead(r Role) bool {
	return IsValidRole(r)
}

// RoleCanEdit checks if the role can edit resources
func RoleCanEdit(r Role) bool {
	return RoleIsAtLeast(r, RoleMember)
}

// RoleCanCreate checks if the role can create resources
func RoleCanCreate(r Role) bool {
	return RoleIsAtLeast(r, RoleAdmin)
}

// RoleCanDelete checks if the role can delete resources
func RoleCanDelete(r Role) bool {
	return RoleIsAtLeast(r, RoleOwner)
}

// HighestRole returns the strongest role in the set, defaulting to guest.
func HighestRole(roles []Role) Role {
	highest := RoleGuest
	for _, r := range roles {
		if RoleIsAtLeast(r, highest) {
			highest = r
		}
	}
	return highest
}

// NormalizeRoles drops invalid entries and deduplicates, preserving order.
func NormalizeRoles(roles []Role) []Role {
	seen := make(map[Role]struct{}, len(roles))
	out := make([]Role, 0, len(roles))
	for _, r := range roles {
		if !IsValidRole(r) {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
