package auth

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/dmitrijs2005/gatekeeper/internal/server/sessions"
)

// sessionCore resolves a session cookie through the registry and loads the
// user it points to.
type sessionCore struct {
	registry *sessions.Registry
	users    UserStore
}

func (c sessionCore) currentUser(sessionID string, p sessions.Policy) (models.User, bool) {
	userID, ok := c.registry.Resolve(sessionID, p)
	if !ok {
		return models.User{}, false
	}
	u, err := c.users.Get(userID)
	if err != nil {
		return models.User{}, false
	}
	return u, true
}

func (c sessionCore) destroy(ctx context.Context, sessionID string, p sessions.Policy) bool {
	if sessionID == "" {
		return false
	}
	return c.registry.Destroy(ctx, sessionID, p) == nil
}

// Session identifies the caller by an opaque session cookie. Sessions
// never expire.
type Session struct {
	base
	sessionCore
}

func NewSession(cookieName string, registry *sessions.Registry, users UserStore) *Session {
	return &Session{
		base:        newBase(cookieName),
		sessionCore: sessionCore{registry: registry, users: users},
	}
}

func (*Session) Name() string { return TypeSession }

func (s *Session) CurrentUser(_ context.Context, r Request) (models.User, bool) {
	return s.currentUser(s.SessionCookie(r), sessions.Policy{})
}

func (s *Session) CreateSession(ctx context.Context, userID string) (string, error) {
	return s.registry.Create(ctx, userID)
}

func (s *Session) DestroySession(ctx context.Context, r Request) bool {
	return s.destroy(ctx, s.SessionCookie(r), sessions.Policy{})
}

// SessionWithExpiry is Session with a maximum session age. MaxAge <= 0
// disables expiry.
type SessionWithExpiry struct {
	base
	sessionCore
	MaxAge time.Duration
}

func NewSessionWithExpiry(cookieName string, registry *sessions.Registry, users UserStore, maxAge time.Duration) *SessionWithExpiry {
	return &SessionWithExpiry{
		base:        newBase(cookieName),
		sessionCore: sessionCore{registry: registry, users: users},
		MaxAge:      maxAge,
	}
}

func (*SessionWithExpiry) Name() string { return TypeSessionWithExpiry }

func (s *SessionWithExpiry) policy() sessions.Policy { return sessions.Policy{MaxAge: s.MaxAge} }

func (s *SessionWithExpiry) CurrentUser(_ context.Context, r Request) (models.User, bool) {
	return s.currentUser(s.SessionCookie(r), s.policy())
}

func (s *SessionWithExpiry) CreateSession(ctx context.Context, userID string) (string, error) {
	return s.registry.Create(ctx, userID)
}

func (s *SessionWithExpiry) DestroySession(ctx context.Context, r Request) bool {
	return s.destroy(ctx, s.SessionCookie(r), s.policy())
}

// SessionDB is SessionWithExpiry over a registry whose sessions live in the
// UserSession table, so they survive restarts. Purge drops expired rows.
type SessionDB struct {
	SessionWithExpiry
}

func NewSessionDB(cookieName string, registry *sessions.Registry, users UserStore, maxAge time.Duration) *SessionDB {
	return &SessionDB{SessionWithExpiry: *NewSessionWithExpiry(cookieName, registry, users, maxAge)}
}

func (*SessionDB) Name() string { return TypeSessionDB }

// Purge removes expired sessions from the table.
func (s *SessionDB) Purge(ctx context.Context) (int, error) {
	return s.registry.Purge(ctx, s.policy())
}
