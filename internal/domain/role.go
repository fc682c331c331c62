package domain

// Role constants define the allowed user roles.
const (
	RoleSuperAdmin = "superadmin"
	RoleAdmin      = "admin"
	RoleAgent      = "agent"
	RoleClient     = "client"
)

// ValidRoles returns the set of valid user roles.
func ValidRoles() []string {
	return []string{RoleSuperAdmin, RoleAdmin, RoleAgent, RoleClient}
}

// IsValidRole checks whether the given role string is a valid user role.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles() {
		if r == role {
			return true
		}
	}
	return false
}

// NormalizeRole maps legacy role spellings onto the canonical set. Older
// clients sent a userType field with capitalized values; everything past the
// HTTP boundary works with the lowercase canonical role only.
func NormalizeRole(role string) string {
	switch role {
	case "SuperAdmin", "superadmin":
		return RoleSuperAdmin
	case "Admin", "admin":
		return RoleAdmin
	case "Agent", "agent":
		return RoleAgent
	case "Client", "client":
		return RoleClient
	default:
		return role
	}
}
