package auth

import (
	"context"
	"strings"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
)

const bearerPrefix = "Bearer "

// Token identifies the caller by a signed bearer token.
type Token struct {
	base
	users    UserStore
	secret   []byte
	validity time.Duration
}

func NewToken(cookieName string, users UserStore, secret []byte, validity time.Duration) *Token {
	return &Token{base: newBase(cookieName), users: users, secret: secret, validity: validity}
}

func (*Token) Name() string { return TypeToken }

// Issue signs a token for userID.
func (t *Token) Issue(userID string) (string, error) {
	return GenerateToken(userID, t.secret, t.validity)
}

// Validity is how long issued tokens stay valid.
func (t *Token) Validity() time.Duration { return t.validity }

func (t *Token) CurrentUser(_ context.Context, r Request) (models.User, bool) {
	raw, ok := strings.CutPrefix(t.AuthorizationHeader(r), bearerPrefix)
	if !ok || raw == "" {
		return models.User{}, false
	}
	userID, err := GetUserIDFromToken(raw, t.secret)
	if err != nil {
		return models.User{}, false
	}
	u, err := t.users.Get(userID)
	if err != nil {
		return models.User{}, false
	}
	return u, true
}
