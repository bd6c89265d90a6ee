// Package session keeps the signed-in user's credentials and the decision
// cache that belongs to them.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/meetsmatch/swipeclient/internal/api"
	"github.com/meetsmatch/swipeclient/internal/discovery"
	apperrors "github.com/meetsmatch/swipeclient/internal/errors"
	"github.com/meetsmatch/swipeclient/internal/interfaces"
	"github.com/meetsmatch/swipeclient/internal/telemetry"
)

// DefaultTTL is used when NewManager gets a non-positive ttl
const DefaultTTL = 24 * time.Hour

// Authenticator resolves a bearer token to the user it belongs to
type Authenticator interface {
	Me(ctx context.Context) (*api.Profile, error)
}

// Session is one signed-in user
type Session struct {
	Token       string      `json:"-"`
	User        api.Profile `json:"user"`
	StartedAt   time.Time   `json:"started_at"`
	LastUpdated time.Time   `json:"last_updated"`
	ExpiresAt   time.Time   `json:"expires_at"`
}

// Manager holds at most one session. Every use of the token slides the
// expiry forward by the ttl. It is an api.TokenSource.
type Manager struct {
	store interfaces.DecisionStore
	ttl   time.Duration
	now   func() time.Time

	mu sync.RWMutex
	// token being verified by Login, served before a session exists
	pending  string
	session  *Session
	cache    *discovery.DecisionCache
	onLogout []func()
}

func NewManager(store interfaces.DecisionStore, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
}

// Login verifies token with auth, starts a session for the user it belongs
// to and loads that user's decision cache.
func (m *Manager) Login(ctx context.Context, token string, auth Authenticator) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperrors.NewValidationError("token", "auth token is required")
	}

	m.mu.Lock()
	m.pending = token
	m.mu.Unlock()

	user, err := auth.Me(ctx)
	if err != nil {
		m.mu.Lock()
		m.pending = ""
		m.mu.Unlock()
		return nil, err
	}
	if user == nil || user.UID == "" {
		m.mu.Lock()
		m.pending = ""
		m.mu.Unlock()
		return nil, apperrors.NewAuthenticationError("token did not resolve to a user")
	}

	ctx = telemetry.WithUserID(ctx, user.UID)
	cache := discovery.NewDecisionCache(m.store, user.UID)
	cache.Load(ctx)

	now := m.now()
	session := &Session{
		Token:       token,
		User:        *user,
		StartedAt:   now,
		LastUpdated: now,
		ExpiresAt:   now.Add(m.ttl),
	}

	m.mu.Lock()
	m.pending = ""
	m.session = session
	m.cache = cache
	m.mu.Unlock()

	telemetry.GetContextualLogger(ctx).WithField("operation", "login").Info("Session started")
	copied := *session
	return &copied, nil
}

// Token implements api.TokenSource. It returns "" when there is no live session.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pending != "" {
		return m.pending
	}
	if m.session == nil {
		return ""
	}
	now := m.now()
	if now.After(m.session.ExpiresAt) {
		return ""
	}
	m.session.LastUpdated = now
	m.session.ExpiresAt = now.Add(m.ttl)
	return m.session.Token
}

// Current returns the live session, if any
func (m *Manager) Current() (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil || m.now().After(m.session.ExpiresAt) {
		return nil, false
	}
	copied := *m.session
	return &copied, true
}

// Cache returns the signed-in user's decision cache, or nil
func (m *Manager) Cache() *discovery.DecisionCache {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil || m.now().After(m.session.ExpiresAt) {
		return nil
	}
	return m.cache
}

// OnLogout registers fn to run whenever the session ends
func (m *Manager) OnLogout(fn func()) {
	m.mu.Lock()
	m.onLogout = append(m.onLogout, fn)
	m.mu.Unlock()
}

// Logout ends the session. Stored decisions stay in the store for the next login.
func (m *Manager) Logout(ctx context.Context) {
	if m.clear() {
		telemetry.GetContextualLogger(ctx).WithField("operation", "logout").Info("Session ended")
	}
}

// HandleUnauthorized ends the session after the backend rejected the token.
// It matches the signature api.WithUnauthorizedHandler expects.
func (m *Manager) HandleUnauthorized(err error) {
	if m.clear() {
		telemetry.GetGlobalLogger().WithContext(context.Background()).WithError(err).
			WithField("operation", "unauthorized").
			Warn("Backend rejected the session token, signing out")
	}
}

func (m *Manager) clear() bool {
	m.mu.Lock()
	if m.session == nil && m.pending == "" {
		m.mu.Unlock()
		return false
	}
	hadSession := m.session != nil
	m.session = nil
	m.cache = nil
	m.pending = ""
	hooks := make([]func(), len(m.onLogout))
	copy(hooks, m.onLogout)
	m.mu.Unlock()

	if hadSession {
		for _, fn := range hooks {
			fn()
		}
	}
	return true
}

// CleanupExpired ends the session if it has expired
func (m *Manager) CleanupExpired(ctx context.Context) {
	m.mu.RLock()
	expired := m.session != nil && m.now().After(m.session.ExpiresAt)
	m.mu.RUnlock()
	if expired {
		m.Logout(ctx)
	}
}
