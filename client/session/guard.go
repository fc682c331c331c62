package session

import (
	"strings"

	"github.com/homevista/brokerage/client/permissions"
)

// Decision tells the UI what to do with a route transition.
type Decision int

const (
	// DecisionLoading means the session is still restoring; show a spinner,
	// never a redirect, so a restorable session isn't bounced to login.
	DecisionLoading Decision = iota
	// DecisionRedirectLogin means the route needs a session and there is none.
	DecisionRedirectLogin
	// DecisionRedirectUnauthorized means the user lacks the route's permissions.
	DecisionRedirectUnauthorized
	// DecisionRender means the route may be shown.
	DecisionRender
)

func (d Decision) String() string {
	switch d {
	case DecisionLoading:
		return "loading"
	case DecisionRedirectLogin:
		return "redirect-login"
	case DecisionRedirectUnauthorized:
		return "redirect-unauthorized"
	case DecisionRender:
		return "render"
	default:
		return "unknown"
	}
}

// Requirements narrows a guarded route beyond the static route table. Zero
// fields impose no extra checks.
type Requirements struct {
	// Role, when set, must match the user's role (case-insensitive).
	Role string
	// Permission, when set, must be granted.
	Permission string
	// AnyOf, when non-empty, requires at least one of the listed permissions.
	AnyOf []string
	// AllOf, when non-empty, requires every listed permission.
	AllOf []string
}

// Guard decides whether a route may render for the given session state,
// applying only the route-table check.
func Guard(state State, route string) Decision {
	return GuardWith(state, route, Requirements{})
}

// GuardWith decides whether a route may render for the given session state.
// The checks are strictly ordered: public routes always render, loading
// defers everything else, a missing session redirects to login. After that
// the route table is consulted first, then the required role, the required
// permission, the any-of set, and the all-of set. The first failing check
// redirects to unauthorized.
func GuardWith(state State, route string, req Requirements) Decision {
	if permissions.IsPublicRoute(route) {
		return DecisionRender
	}
	if state.Loading {
		return DecisionLoading
	}
	if state.User == nil {
		return DecisionRedirectLogin
	}
	if !permissions.CanAccessRoute(state.Permissions, route) {
		return DecisionRedirectUnauthorized
	}
	if req.Role != "" && !strings.EqualFold(state.User.Role, req.Role) {
		return DecisionRedirectUnauthorized
	}
	if req.Permission != "" && !permissions.Has(state.Permissions, req.Permission) {
		return DecisionRedirectUnauthorized
	}
	if len(req.AnyOf) > 0 && !permissions.HasAny(state.Permissions, req.AnyOf...) {
		return DecisionRedirectUnauthorized
	}
	if len(req.AllOf) > 0 && !permissions.HasAll(state.Permissions, req.AllOf...) {
		return DecisionRedirectUnauthorized
	}
	return DecisionRender
}
