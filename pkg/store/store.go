// Package store is the shared session store every component reads and
// writes: the auth token, session id, cached profile, display preferences,
// favourites sync flags and per-field error flags. It replaces browser local
// storage with a pluggable Backend and a publish/subscribe Bus for change
// notifications.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
)

// Well-known keys.
const (
	KeyAuthToken   = "cxauthxc"
	KeySession     = "cx_session"
	KeyProfile     = "datauser"
	KeyDisplayMode = "displaymode"
	KeyDisplayZoom = "displayzoom"
	KeyLanguage    = "userLanguage"
	KeySidebar     = "sidebarleft"
	KeyLock        = "cxl0k2mw"

	KeyFavoritesSet    = "favoritessynch01"
	KeyFavoritesDelete = "favoritessynch02"
	KeyFavoritesList   = "favoritessynch03"
)

// Profile is the cached user record kept under KeyProfile.
type Profile struct {
	Name     string `json:"name"`
	LastName string `json:"lastname"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Language string `json:"language"`
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for backend failures that accessors
// swallow.
func WithLogger(logger logr.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithBus shares a bus between stores.
func WithBus(bus *Bus) Option {
	return func(s *Store) {
		if bus != nil {
			s.bus = bus
		}
	}
}

// Store wraps a Backend with typed accessors. Writes are last-writer-wins.
type Store struct {
	backend Backend
	bus     *Bus
	logger  logr.Logger
}

// New returns a Store over backend. A nil backend uses a fresh
// MemoryBackend.
func New(backend Backend, opts ...Option) *Store {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	s := &Store{backend: backend, logger: logr.Discard()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.bus == nil {
		s.bus = NewBus(0)
	}
	return s
}

// NewMemory is shorthand for New(NewMemoryBackend(), opts...).
func NewMemory(opts ...Option) *Store {
	return New(NewMemoryBackend(), opts...)
}

// Bus returns the store's event bus.
func (s *Store) Bus() *Bus {
	return s.bus
}

// Get returns the raw value for key.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	return s.backendFor(ctx).Get(ctx, key)
}

// String returns the value for key, or "" when absent or unreadable.
func (s *Store) String(ctx context.Context, key string) string {
	value, _, err := s.backendFor(ctx).Get(ctx, key)
	if err != nil {
		s.logger.Error(err, "store read failed", "key", key)
		return ""
	}
	return value
}

// Set writes key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.backendFor(ctx).Set(ctx, key, value)
}

// Delete removes keys.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	return s.backendFor(ctx).Delete(ctx, keys...)
}

// Keys lists stored keys.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	return s.backendFor(ctx).Keys(ctx)
}

// Clear removes every key except those in keep.
func (s *Store) Clear(ctx context.Context, keep ...string) error {
	keys, err := s.backendFor(ctx).Keys(ctx)
	if err != nil {
		return err
	}
	preserved := make(map[string]struct{}, len(keep))
	for _, key := range keep {
		preserved[key] = struct{}{}
	}
	var doomed []string
	for _, key := range keys {
		if _, ok := preserved[key]; !ok {
			doomed = append(doomed, key)
		}
	}
	return s.backendFor(ctx).Delete(ctx, doomed...)
}

// AuthToken returns the authentication token, "" when signed out.
func (s *Store) AuthToken(ctx context.Context) string {
	return s.String(ctx, KeyAuthToken)
}

// SessionID returns the session id, "" when signed out.
func (s *Store) SessionID(ctx context.Context) string {
	return s.String(ctx, KeySession)
}

// SetCredentials stores the token and session id issued at sign-in.
func (s *Store) SetCredentials(ctx context.Context, token, session string) error {
	if err := s.Set(ctx, KeyAuthToken, token); err != nil {
		return err
	}
	return s.Set(ctx, KeySession, session)
}

// Language returns the preferred UI language.
func (s *Store) Language(ctx context.Context) string {
	return s.String(ctx, KeyLanguage)
}

// Profile returns the cached profile. ok is false when nothing is cached.
func (s *Store) Profile(ctx context.Context) (Profile, bool, error) {
	raw, ok, err := s.backendFor(ctx).Get(ctx, KeyProfile)
	if err != nil || !ok || strings.TrimSpace(raw) == "" {
		return Profile{}, false, err
	}
	var profile Profile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return Profile{}, false, fmt.Errorf("store: decode profile: %w", err)
	}
	return profile, true, nil
}

// SetProfile caches profile as JSON.
func (s *Store) SetProfile(ctx context.Context, profile Profile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("store: encode profile: %w", err)
	}
	return s.Set(ctx, KeyProfile, string(raw))
}
