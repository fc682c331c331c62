package permissions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForRole(t *testing.T) {
	assert.Equal(t, []string{PermissionAll}, ForRole("admin"))
	assert.Contains(t, ForRole("agent"), PermCreateProperty)
	assert.NotContains(t, ForRole("client"), PermCreateProperty)

	// Lookup normalizes case; unknown roles get nothing.
	assert.Equal(t, []string{PermissionAll}, ForRole("SuperAdmin"))
	assert.Empty(t, ForRole("intern"))
}

func TestHas_AllSentinel(t *testing.T) {
	admin := ForRole("admin")

	assert.True(t, Has(admin, PermManageUsers))
	assert.True(t, Has(admin, "anything_at_all"))

	client := ForRole("client")
	assert.True(t, Has(client, PermViewProperties))
	assert.False(t, Has(client, PermManageUsers))
}

func TestHasAnyHasAll(t *testing.T) {
	agent := ForRole("agent")

	assert.True(t, HasAny(agent, PermManageUsers, PermCreateProperty))
	assert.False(t, HasAny(agent, PermManageUsers, PermManageAppSettings))

	assert.True(t, HasAll(agent, PermCreateProperty, PermEditProperty))
	assert.False(t, HasAll(agent, PermCreateProperty, PermManageUsers))
}

func TestCanAccessRoute(t *testing.T) {
	agent := ForRole("agent")
	client := ForRole("client")
	admin := ForRole("admin")

	assert.True(t, CanAccessRoute(agent, "/dashboard"))
	assert.True(t, CanAccessRoute(agent, "/dashboard/listings"))
	assert.False(t, CanAccessRoute(client, "/dashboard"))

	assert.True(t, CanAccessRoute(client, "/properties"))
	assert.True(t, CanAccessRoute(client, "/properties/123"))
	assert.False(t, CanAccessRoute(client, "/properties/new"))
	assert.True(t, CanAccessRoute(agent, "/properties/new"))

	assert.True(t, CanAccessRoute(admin, "/admin/users"))
	assert.False(t, CanAccessRoute(agent, "/admin/users"))
}

func TestCanAccessRoute_UnknownRouteDenied(t *testing.T) {
	// Routes missing from the table are denied even for admins.
	assert.False(t, CanAccessRoute(ForRole("admin"), "/not-in-the-table"))
	assert.False(t, CanAccessRoute(ForRole("agent"), "/billing"))
}

func TestCanAccessRoute_Normalization(t *testing.T) {
	agent := ForRole("agent")

	assert.True(t, CanAccessRoute(agent, "/dashboard/"))
	assert.True(t, CanAccessRoute(agent, "dashboard"))
	assert.False(t, CanAccessRoute(nil, "/dashboard"))
}

func TestIsPublicRoute(t *testing.T) {
	assert.True(t, IsPublicRoute("/login"))
	assert.True(t, IsPublicRoute("/"))
	assert.False(t, IsPublicRoute("/dashboard"))
}
