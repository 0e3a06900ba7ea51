package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/dmitrijs2005/gatekeeper/internal/server/persist"
	"github.com/dmitrijs2005/gatekeeper/internal/server/services"
	"github.com/dmitrijs2005/gatekeeper/internal/server/sessions"
	"github.com/dmitrijs2005/gatekeeper/internal/server/store"
)

// Stores are the entity tables shared by the server and the admin CLI, all
// persisted through one backend.
type Stores struct {
	backend  persist.Backend
	Users    *services.UserTable
	Sessions *sessions.SessionTable
}

// OpenStores opens the configured backend and loads every table from it.
func OpenStores(ctx context.Context, s persist.Settings, log logging.Logger) (*Stores, error) {
	backend, err := persist.Open(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	st := &Stores{
		backend:  backend,
		Users:    store.New[models.User](models.KindUser, backend, store.WithLogger(log)),
		Sessions: store.New[models.UserSession](models.KindUserSession, backend, store.WithLogger(log)),
	}

	if err := st.Users.LoadAll(ctx); err != nil {
		_ = backend.Close()
		return nil, err
	}
	if err := st.Sessions.LoadAll(ctx); err != nil {
		_ = backend.Close()
		return nil, err
	}
	return st, nil
}

// SaveAll writes every table.
func (s *Stores) SaveAll(ctx context.Context) error {
	return errors.Join(s.Users.SaveAll(ctx), s.Sessions.SaveAll(ctx))
}

func (s *Stores) Close() error {
	return s.backend.Close()
}
