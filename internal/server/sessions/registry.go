// Package sessions maps opaque session ids to user ids. Sessions start
// Active, become Expired once older than the policy allows (detected
// lazily), and end Destroyed.
package sessions

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/google/uuid"
	"github.com/thejerf/abtime"
)

const maxIDAttempts = 8

// Record is what the registry knows about a session. Precision is the
// resolution CreatedAt was stored at; zero means exact.
type Record struct {
	UserID    string
	CreatedAt time.Time
	Precision time.Duration
}

// validAt checks p with now reduced to the precision of CreatedAt, so a
// truncated start never shortens the window.
func (rec Record) validAt(p Policy, now time.Time) bool {
	if rec.Precision > 0 {
		now = now.Truncate(rec.Precision)
	}
	return p.Valid(rec.CreatedAt, now)
}

// Policy decides whether a session is still valid. MaxAge <= 0 never
// expires.
type Policy struct {
	MaxAge time.Duration
}

// Valid reports whether a session created at created is usable at now.
func (p Policy) Valid(created, now time.Time) bool {
	if p.MaxAge <= 0 {
		return true
	}
	return now.Sub(created) <= p.MaxAge
}

// Backend holds the records. The registry serializes access, so
// implementations need no locking of their own.
type Backend interface {
	Put(ctx context.Context, id string, rec Record) error
	Get(id string) (Record, bool)
	Delete(ctx context.Context, id string) error
	DeleteWhere(ctx context.Context, match func(Record) bool) (int, error)
	Count() int
}

// Registry creates, resolves and destroys sessions.
type Registry struct {
	mu      sync.RWMutex
	backend Backend
	clock   abtime.AbstractTime
	newID   func() string
	log     logging.Logger
}

type Option func(*Registry)

func WithBackend(b Backend) Option { return func(r *Registry) { r.backend = b } }

func WithClock(c abtime.AbstractTime) Option { return func(r *Registry) { r.clock = c } }

func WithIDGenerator(fn func() string) Option { return func(r *Registry) { r.newID = fn } }

func WithLogger(l logging.Logger) Option { return func(r *Registry) { r.log = l } }

// NewRegistry returns an in-memory registry unless WithBackend is given.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		clock: abtime.NewRealTime(),
		newID: uuid.NewString,
		log:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.backend == nil {
		r.backend = NewMemory()
	}
	return r
}

// Create starts a session for userID and returns its id.
func (r *Registry) Create(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("session without user: %w", common.ErrorValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var id string
	for range maxIDAttempts {
		candidate := r.newID()
		if _, taken := r.backend.Get(candidate); candidate != "" && !taken {
			id = candidate
			break
		}
	}
	if id == "" {
		return "", fmt.Errorf("generate session id: %w", common.ErrorDuplicateKey)
	}

	if err := r.backend.Put(ctx, id, Record{UserID: userID, CreatedAt: r.clock.Now()}); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	r.log.Debug(ctx, "session created", "user_id", userID)
	return id, nil
}

// Resolve returns the user id behind sessionID if the session exists and
// is valid under p. Expired sessions are left in place.
func (r *Registry) Resolve(sessionID string, p Policy) (string, bool) {
	if sessionID == "" {
		return "", false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.backend.Get(sessionID)
	if !ok || rec.UserID == "" {
		return "", false
	}
	if !rec.validAt(p, r.clock.Now()) {
		return "", false
	}
	return rec.UserID, true
}

// Destroy ends a session that currently resolves under p. Unknown and
// expired ids fail with common.ErrorNotFound; an expired entry is removed
// on the way out.
func (r *Registry) Destroy(ctx context.Context, sessionID string, p Policy) error {
	if sessionID == "" {
		return fmt.Errorf("session: %w", common.ErrorNotFound)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.backend.Get(sessionID)
	if !ok {
		return fmt.Errorf("session: %w", common.ErrorNotFound)
	}
	valid := rec.UserID != "" && rec.validAt(p, r.clock.Now())
	if err := r.backend.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	if !valid {
		return fmt.Errorf("session expired: %w", common.ErrorNotFound)
	}
	r.log.Debug(ctx, "session destroyed", "user_id", rec.UserID)
	return nil
}

// Purge removes every session that is no longer valid under p.
func (r *Registry) Purge(ctx context.Context, p Policy) (int, error) {
	if p.MaxAge <= 0 {
		return 0, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	n, err := r.backend.DeleteWhere(ctx, func(rec Record) bool {
		return !rec.validAt(p, now)
	})
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	if n > 0 {
		r.log.Info(ctx, "expired sessions purged", "count", n)
	}
	return n, nil
}

// Count is the number of stored sessions, expired ones included.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.backend.Count()
}
