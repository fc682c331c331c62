// Package session tracks the logged-in user and their permissions for a UI
// embedding the brokerage client. It restores state from the token store
// exactly once at startup and keeps the permission set derived from the
// user's role.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/homevista/brokerage/client"
	"github.com/homevista/brokerage/client/permissions"
	"github.com/homevista/brokerage/client/tokenstore"
)

// State is a point-in-time snapshot of the session.
type State struct {
	// User is nil when nobody is logged in.
	User *client.User
	// Permissions is derived from the user's role; nil when logged out.
	Permissions []string
	// Loading is true until the stored session has been restored.
	Loading bool
}

// Manager owns the session state. All methods are safe for concurrent use.
type Manager struct {
	client *client.Client

	mu          sync.RWMutex
	user        *client.User
	permissions []string
	loading     bool

	restoreOnce sync.Once
}

// NewManager creates a manager in the loading state; call Restore before
// rendering guarded routes.
func NewManager(c *client.Client) *Manager {
	return &Manager{client: c, loading: true}
}

// Restore loads the persisted session, if any. It runs at most once; later
// calls are no-ops. Restoration is local only: the cached profile is trusted
// until the next authenticated request or the periodic session check says
// otherwise.
func (m *Manager) Restore() {
	m.restoreOnce.Do(func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		m.loading = false
		if !m.client.IsAuthenticated() {
			return
		}
		if user, ok := m.client.CurrentUser(); ok {
			m.user = user
			m.permissions = permissions.ForRole(user.Role)
		}
	})
}

// Login authenticates and populates the session.
func (m *Manager) Login(ctx context.Context, identifier, password string, rememberMe bool) (*client.User, error) {
	user, err := m.client.Login(ctx, identifier, password, rememberMe)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.user = user
	m.permissions = permissions.ForRole(user.Role)
	m.loading = false
	m.mu.Unlock()

	return user, nil
}

// Logout clears the session locally and revokes it server-side best-effort.
func (m *Manager) Logout(ctx context.Context) {
	m.client.Logout(ctx)

	m.mu.Lock()
	m.user = nil
	m.permissions = nil
	m.mu.Unlock()
}

// RefreshUser re-derives the session from the token store without a network
// call, for use after external state changes such as tab focus.
func (m *Manager) RefreshUser() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.client.IsAuthenticated() {
		m.user = nil
		m.permissions = nil
		return
	}
	if user, ok := m.client.CurrentUser(); ok {
		m.user = user
		m.permissions = permissions.ForRole(user.Role)
	}
}

// ValidateSession checks the session against the server and updates the
// cached profile. A session-expired error clears local state.
func (m *Manager) ValidateSession(ctx context.Context) error {
	user, err := m.client.ValidateSession(ctx)
	if err != nil {
		m.RefreshUser()
		return err
	}

	m.mu.Lock()
	m.user = user
	m.permissions = permissions.ForRole(user.Role)
	m.mu.Unlock()
	return nil
}

// UpdateProfile replaces the cached profile after an edit, re-deriving the
// permission set from the role and persisting the snapshot in the scope the
// session was created with. Permissions are never set independently of role.
func (m *Manager) UpdateProfile(user *client.User) {
	if user == nil {
		return
	}

	m.mu.Lock()
	m.user = user
	m.permissions = permissions.ForRole(user.Role)
	m.mu.Unlock()

	scope, _ := m.client.Tokens().ScopeOf(tokenstore.KeyUser)
	_ = m.client.Tokens().SetJSON(tokenstore.KeyUser, user, scope)
}

// StartValidityWatcher revalidates the session against the server on a timer
// until ctx is canceled. Failures only update local state; they are never
// surfaced.
func (m *Manager) StartValidityWatcher(ctx context.Context, period time.Duration) {
	if period <= 0 {
		period = 15 * time.Minute
	}

	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if m.IsAuthenticated() {
					_ = m.ValidateSession(ctx)
				}
			}
		}
	}()
}

// Snapshot returns the current session state.
func (m *Manager) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state := State{Loading: m.loading}
	if m.user != nil {
		userCopy := *m.user
		state.User = &userCopy
		state.Permissions = append([]string(nil), m.permissions...)
	}
	return state
}

// IsAuthenticated reports whether a user is logged in.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user != nil
}

// HasPermission reports whether the session grants a permission.
func (m *Manager) HasPermission(permission string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return permissions.Has(m.permissions, permission)
}
