package auth

import (
	"context"
	"encoding/base64"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
)

const basicPrefix = "Basic "

// ExtractToken returns the credentials part of a Basic Authorization
// header. The scheme is matched case-sensitively with exactly one space.
func ExtractToken(header string) (string, bool) {
	return strings.CutPrefix(header, basicPrefix)
}

// DecodeToken decodes standard, padded base64 into UTF-8 text.
func DecodeToken(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	b, err := base64.StdEncoding.Strict().DecodeString(token)
	if err != nil || !utf8.Valid(b) {
		return "", false
	}
	return string(b), true
}

// SplitCredentials splits "email:password" at the first colon, so the
// password may itself contain colons.
func SplitCredentials(plain string) (email, password string, ok bool) {
	return strings.Cut(plain, ":")
}

// Basic authenticates every request with HTTP Basic credentials checked
// against the users table.
type Basic struct {
	base
	users UserStore
}

func NewBasic(cookieName string, users UserStore) *Basic {
	return &Basic{base: newBase(cookieName), users: users}
}

func (*Basic) Name() string { return TypeBasic }

// ResolveUser returns the first user with this email whose password
// verifies.
func (b *Basic) ResolveUser(email, password string) (models.User, bool) {
	if email == "" || password == "" || b.users == nil {
		return models.User{}, false
	}
	for _, u := range b.users.Search(models.UserByEmail(email)) {
		if u.IsValidPassword(password) {
			return u, true
		}
	}
	return models.User{}, false
}

func (b *Basic) CurrentUser(_ context.Context, r Request) (models.User, bool) {
	token, ok := ExtractToken(b.AuthorizationHeader(r))
	if !ok {
		return models.User{}, false
	}
	plain, ok := DecodeToken(token)
	if !ok {
		return models.User{}, false
	}
	email, password, ok := SplitCredentials(plain)
	if !ok {
		return models.User{}, false
	}
	return b.ResolveUser(email, password)
}
