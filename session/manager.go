package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jmcleod/focusflow/jar"
)

// State reports which tokens are currently retrievable.
type State struct {
	HasAccess  bool
	HasRefresh bool
}

// Authenticated reports whether an access token is present.
func (s State) Authenticated() bool { return s.HasAccess }

// Manager is the session facade over the access and refresh stores.
// A Manager is constructed explicitly and passed to whatever issues
// authenticated requests; there is no package-level instance.
type Manager struct {
	mu      sync.RWMutex
	jar     *jar.Jar
	access  *AccessStore
	refresh *RefreshStore
	legacy  LegacyStore
	logger  *slog.Logger
	secure  bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithSecureCookies marks token cookies Secure. Enable it whenever the
// backend is reached over TLS.
func WithSecureCookies(secure bool) Option {
	return func(m *Manager) { m.secure = secure }
}

// WithLegacyStore sets the prior token location that Init migrates from.
func WithLegacyStore(ls LegacyStore) Option {
	return func(m *Manager) { m.legacy = ls }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// New creates a Manager that keeps its cookies in j.
func New(j *jar.Jar, opts ...Option) (*Manager, error) {
	if j == nil {
		return nil, fmt.Errorf("session manager requires a cookie jar")
	}
	m := &Manager{
		jar:    j,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.access = &AccessStore{
		cookieStore: cookieStore{jar: j, kind: KindAccess, name: AccessCookieName, ttl: AccessTokenTTL, secure: m.secure},
		logger:      m.logger,
	}
	m.refresh = &RefreshStore{
		cookieStore: cookieStore{jar: j, kind: KindRefresh, name: RefreshCookieName, ttl: RefreshTokenTTL, secure: m.secure},
		logger:      m.logger,
	}
	return m, nil
}

// Access returns the access token store.
func (m *Manager) Access() Store { return m.access }

// Refresh returns the refresh token store.
func (m *Manager) Refresh() Store { return m.refresh }

// Init runs startup work: any tokens left in the legacy location are
// adopted into the secure stores.
func (m *Manager) Init() error {
	if _, err := m.MigrateLegacyTokens(); err != nil {
		return fmt.Errorf("initializing session: %w", err)
	}
	return nil
}

// Teardown ends the session on sign-out. Both cookies are removed and the
// memory tier is wiped. The Manager remains usable for a later login.
func (m *Manager) Teardown() error {
	err := m.ClearAllTokens()
	m.logger.Info("session torn down")
	return err
}

// SetTokens stores both tokens in a single jar transaction. Readers never
// observe one token updated without the other.
func (m *Manager) SetTokens(access, refresh string) error {
	if access == "" || refresh == "" {
		return ErrEmptyToken
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.jar.Batch(func(tx *jar.Tx) error {
		if err := m.access.stage(tx, access); err != nil {
			return err
		}
		return m.refresh.stage(tx, refresh)
	})
	if err != nil {
		m.logger.Error("storing session tokens failed", slog.String("error", err.Error()))
		return fmt.Errorf("storing session tokens: %w", err)
	}
	m.access.remember(access)
	m.logger.Debug("session tokens stored")
	return nil
}

// GetAccessToken returns the access token, recovering it from its cookie
// when the memory copy is missing.
func (m *Manager) GetAccessToken() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.access.Get()
}

// GetRefreshToken returns the refresh token.
func (m *Manager) GetRefreshToken() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refresh.Get()
}

// ClearAllTokens removes both tokens.
func (m *Manager) ClearAllTokens() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.access.forget()
	err := m.jar.Batch(func(tx *jar.Tx) error {
		return errors.Join(m.access.unstage(tx), m.refresh.unstage(tx))
	})
	if err != nil {
		m.logger.Error("clearing session tokens failed", slog.String("error", err.Error()))
		return fmt.Errorf("clearing session tokens: %w", err)
	}
	return nil
}

// IsAuthenticated reports whether an access token is retrievable. It does
// not validate the token with the server.
func (m *Manager) IsAuthenticated() bool {
	_, ok := m.GetAccessToken()
	return ok
}

// State returns a point-in-time view of token presence.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, hasAccess := m.access.Get()
	_, hasRefresh := m.refresh.Get()
	return State{HasAccess: hasAccess, HasRefresh: hasRefresh}
}

// MigrateLegacyTokens adopts tokens from the legacy location when both are
// present, then clears the legacy copies. It reports whether tokens were
// adopted. Running it again after a migration is a no-op.
func (m *Manager) MigrateLegacyTokens() (bool, error) {
	if m.legacy == nil {
		return false, nil
	}
	tokens, err := m.legacy.Load()
	if err != nil {
		return false, fmt.Errorf("reading legacy tokens: %w", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		return false, nil
	}
	if err := m.SetTokens(tokens.AccessToken, tokens.RefreshToken); err != nil {
		return false, err
	}
	if err := m.legacy.Clear(); err != nil {
		return true, fmt.Errorf("clearing legacy tokens: %w", err)
	}
	m.logger.Info("migrated legacy session tokens")
	return true, nil
}
