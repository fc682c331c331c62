// Package permissions holds the static role-to-permission and
// route-to-permission tables plus the checks the route guard runs. Unknown
// roles and unlisted routes resolve to no access.
package permissions

import (
	"path"
	"strings"
)

// Role name constants, normalized to lower case.
const (
	RoleSuperAdmin = "superadmin"
	RoleAdmin      = "admin"
	RoleAgent      = "agent"
	RoleClient     = "client"
)

// PermissionAll grants every permission; only admin-class roles carry it.
const PermissionAll = "all"

// Permission name constants.
const (
	PermViewDashboard     = "view_dashboard"
	PermViewProperties    = "view_properties"
	PermCreateProperty    = "create_property"
	PermEditProperty      = "edit_property"
	PermDeleteProperty    = "delete_property"
	PermManageUsers       = "manage_users"
	PermManageOwnProfile  = "manage_own_profile"
	PermViewOwnFavorites  = "view_own_favorites"
	PermSubmitInquiry     = "submit_inquiry"
	PermViewOwnInquiries  = "view_own_inquiries"
	PermViewAgentInbox    = "view_agent_inbox"
	PermManageAppSettings = "manage_app_settings"
)

// rolePermissions is the static role-to-permissions table.
var rolePermissions = map[string][]string{
	RoleSuperAdmin: {PermissionAll},
	RoleAdmin:      {PermissionAll},
	RoleAgent: {
		PermViewDashboard,
		PermViewProperties,
		PermCreateProperty,
		PermEditProperty,
		PermDeleteProperty,
		PermManageOwnProfile,
		PermViewAgentInbox,
	},
	RoleClient: {
		PermViewProperties,
		PermManageOwnProfile,
		PermViewOwnFavorites,
		PermSubmitInquiry,
		PermViewOwnInquiries,
	},
}

// routePermissions maps route patterns to the permissions required to enter
// them. A trailing "/*" matches any sub-path.
var routePermissions = map[string][]string{
	"/dashboard":      {PermViewDashboard},
	"/dashboard/*":    {PermViewDashboard},
	"/properties":     {PermViewProperties},
	"/properties/*":   {PermViewProperties},
	"/properties/new": {PermCreateProperty},
	"/admin":          {PermManageUsers},
	"/admin/*":        {PermManageUsers},
	"/settings":       {PermManageAppSettings},
	"/profile":        {PermManageOwnProfile},
	"/favorites":      {PermViewOwnFavorites},
	"/inquiries":      {PermViewOwnInquiries},
	"/inbox":          {PermViewAgentInbox},
}

// publicRoutes need no authentication at all.
var publicRoutes = map[string]bool{
	"/":                true,
	"/login":           true,
	"/register":        true,
	"/forgot-password": true,
	"/reset-password":  true,
	"/verify-email":    true,
	"/search":          true,
}

// ForRole returns the permission set for a role. Unknown roles get nothing.
func ForRole(role string) []string {
	perms, ok := rolePermissions[strings.ToLower(role)]
	if !ok {
		return nil
	}
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

// Has reports whether the permission set grants the given permission. The
// "all" sentinel grants everything.
func Has(perms []string, permission string) bool {
	for _, p := range perms {
		if p == PermissionAll || p == permission {
			return true
		}
	}
	return false
}

// HasAny reports whether any of the wanted permissions is granted.
func HasAny(perms []string, wanted ...string) bool {
	for _, w := range wanted {
		if Has(perms, w) {
			return true
		}
	}
	return false
}

// HasAll reports whether every wanted permission is granted.
func HasAll(perms []string, wanted ...string) bool {
	for _, w := range wanted {
		if !Has(perms, w) {
			return false
		}
	}
	return true
}

// IsPublicRoute reports whether the route needs no authentication.
func IsPublicRoute(route string) bool {
	return publicRoutes[normalizeRoute(route)]
}

// CanAccessRoute reports whether the permission set may enter the route.
// Routes absent from the table are denied: an unlisted route is a mistake,
// not an open door.
func CanAccessRoute(perms []string, route string) bool {
	route = normalizeRoute(route)

	if required, ok := routePermissions[route]; ok {
		return HasAll(perms, required...)
	}

	// Walk up the path looking for a wildcard entry.
	for dir := route; dir != "/" && dir != "."; dir = path.Dir(dir) {
		if required, ok := routePermissions[dir+"/*"]; ok {
			return HasAll(perms, required...)
		}
	}

	return false
}

func normalizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	if len(route) > 1 {
		route = strings.TrimRight(route, "/")
	}
	return path.Clean(route)
}
