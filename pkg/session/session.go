// Package session owns the cross-cutting session actions: forced logout on
// 401, voluntary sign-out, profile refresh and favourites sync.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/goliatone/go-formblocks/pkg/client"
	"github.com/goliatone/go-formblocks/pkg/store"
)

// LoginPath is where a forced logout sends the user.
const LoginPath = "/login"

// ErrNoClient is returned by operations that need the backend when the
// Manager was built without one.
var ErrNoClient = errors.New("session: client is required")

// Navigator moves the user to another route.
type Navigator interface {
	Redirect(ctx context.Context, path string) error
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, path string) error

// Redirect implements Navigator.
func (f NavigatorFunc) Redirect(ctx context.Context, path string) error {
	return f(ctx, path)
}

// SessionKeys are removed by a forced logout.
var SessionKeys = []string{
	store.KeyAuthToken,
	store.KeyProfile,
	store.KeySession,
	store.KeySidebar,
	store.KeyLock,
}

// PreferenceKeys survive a voluntary sign-out.
var PreferenceKeys = []string{
	store.KeyLanguage,
	store.KeyDisplayMode,
	store.KeyDisplayZoom,
}

// Option configures a Manager.
type Option func(*Manager)

// WithNavigator sets the navigator used after logout.
func WithNavigator(nav Navigator) Option {
	return func(m *Manager) {
		m.navigator = nav
	}
}

// WithLogger sets the logger.
func WithLogger(logger logr.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// Manager runs session actions against a store and backend client.
type Manager struct {
	store     *store.Store
	client    *client.Client
	navigator Navigator
	logger    logr.Logger
}

// New returns a Manager. client may be nil when only forced logout is
// needed.
func New(st *store.Store, c *client.Client, opts ...Option) *Manager {
	if st == nil && c != nil {
		st = c.Store()
	}
	if st == nil {
		st = store.NewMemory()
	}
	m := &Manager{store: st, client: c, logger: logr.Discard()}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Store returns the managed store.
func (m *Manager) Store() *store.Store {
	return m.store
}

// Logout is the forced logout: it drops the session keys and redirects to
// the login route.
func (m *Manager) Logout(ctx context.Context) error {
	m.logger.Info("forced logout")
	if err := m.store.Delete(ctx, SessionKeys...); err != nil {
		return fmt.Errorf("session: clear keys: %w", err)
	}
	if m.navigator == nil {
		return nil
	}
	if err := m.navigator.Redirect(ctx, LoginPath); err != nil {
		return fmt.Errorf("session: redirect: %w", err)
	}
	return nil
}

// HandleError classifies err and forces a logout on 401. The returned
// Category drives the user-facing message.
func (m *Manager) HandleError(ctx context.Context, err error) client.Category {
	category := client.Classify(err)
	if category == client.CategoryNone {
		return category
	}
	m.logger.Error(err, "backend call failed", "category", category.String())
	if category == client.CategoryUnauthorized {
		if logoutErr := m.Logout(ctx); logoutErr != nil {
			m.logger.Error(logoutErr, "forced logout failed")
		}
	}
	return category
}

// SignOut is the voluntary logout: it clears the store except display and
// language preferences, then tells the backend.
func (m *Manager) SignOut(ctx context.Context, fingerprint string) error {
	if m.client == nil {
		return ErrNoClient
	}
	env := client.Envelope{
		SessionID:   m.store.SessionID(ctx),
		AuthToken:   m.store.AuthToken(ctx),
		Fingerprint: fingerprint,
	}
	if err := m.store.Clear(ctx, PreferenceKeys...); err != nil {
		return fmt.Errorf("session: clear store: %w", err)
	}
	if err := m.client.Logout(ctx, env); err != nil {
		m.HandleError(ctx, err)
		return fmt.Errorf("session: logout: %w", err)
	}
	return nil
}

// RefreshProfile fetches the profile and caches it. Failures are logged and
// returned; the cached profile is left unchanged.
func (m *Manager) RefreshProfile(ctx context.Context, fingerprint string) error {
	if m.client == nil {
		return ErrNoClient
	}
	profile, err := m.client.Profile(ctx, fingerprint)
	if err != nil {
		m.logger.Error(err, "profile refresh failed")
		return fmt.Errorf("session: refresh profile: %w", err)
	}
	return m.store.SetProfile(ctx, profile)
}
