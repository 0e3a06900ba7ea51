package auth

import (
	"context"

	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
)

// NoAuth never identifies anyone. Paths still honour the exclusion list,
// so a protected path under NoAuth is always refused.
type NoAuth struct {
	base
}

func NewNoAuth(cookieName string) *NoAuth {
	return &NoAuth{base: newBase(cookieName)}
}

func (*NoAuth) Name() string { return TypeNoAuth }

func (*NoAuth) CurrentUser(context.Context, Request) (models.User, bool) {
	return models.User{}, false
}
