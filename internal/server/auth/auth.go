// Package auth decides, per request, whether authentication is required
// and who the caller is. Strategies are selected once at startup by name
// (see New) and never fail loudly: an unresolved caller is reported as
// (zero, false) whatever the reason.
package auth

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/dmitrijs2005/gatekeeper/internal/server/store"
)

// Authenticator is implemented by every strategy.
type Authenticator interface {
	RequiresAuth(path string, excluded []string) bool
	CurrentUser(ctx context.Context, r Request) (models.User, bool)
	AuthorizationHeader(r Request) string
	SessionCookie(r Request) string
	Name() string
}

// SessionAuthenticator is implemented by the cookie based strategies.
type SessionAuthenticator interface {
	Authenticator
	CreateSession(ctx context.Context, userID string) (string, error)
	DestroySession(ctx context.Context, r Request) bool
	CookieName() string
}

// UserStore is the read side of the users table.
type UserStore interface {
	Get(id string) (models.User, error)
	Search(match store.Predicate[models.User]) []models.User
}

// RequiresAuth reports whether path needs an authenticated caller. An entry
// in excluded matches when it equals path, when either one is a prefix of
// the other, or, for entries ending in "*", when path starts with the part
// before the star. An empty path always requires auth.
func RequiresAuth(path string, excluded []string) bool {
	if path == "" {
		return true
	}
	for _, ex := range excluded {
		if ex == "" {
			continue
		}
		if prefix, ok := strings.CutSuffix(ex, "*"); ok {
			if strings.HasPrefix(path, prefix) {
				return false
			}
			continue
		}
		if strings.HasPrefix(path, ex) || strings.HasPrefix(ex, path) {
			return false
		}
	}
	return true
}

// base carries the accessors every strategy shares.
type base struct {
	cookieName string
}

func newBase(cookieName string) base {
	if cookieName == "" {
		cookieName = common.DefaultSessionName
	}
	return base{cookieName: cookieName}
}

func (base) RequiresAuth(path string, excluded []string) bool {
	return RequiresAuth(path, excluded)
}

func (base) AuthorizationHeader(r Request) string {
	if r == nil {
		return ""
	}
	return r.Header(common.AuthorizationHeaderName)
}

func (b base) SessionCookie(r Request) string {
	if r == nil {
		return ""
	}
	return r.Cookie(b.cookieName)
}

func (b base) CookieName() string { return b.cookieName }
