package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/sessions"
)

// Strategy names as given in AUTH_TYPE.
const (
	TypeNoAuth            = "auth"
	TypeBasic             = "basic_auth"
	TypeSession           = "session_auth"
	TypeSessionWithExpiry = "session_exp_auth"
	TypeSessionDB         = "session_db_auth"
	TypeToken             = "jwt_auth"
)

// Settings select and configure a strategy.
type Settings struct {
	Type            string
	SessionName     string
	SessionDuration time.Duration
	TokenSecret     string
	TokenValidity   time.Duration
}

// Deps are the shared tables a strategy reads.
type Deps struct {
	Users    UserStore
	Sessions *sessions.Registry
}

// New builds the strategy named by s.Type. An empty type means NoAuth.
func New(s Settings, d Deps) (Authenticator, error) {
	switch s.Type {
	case "", TypeNoAuth:
		return NewNoAuth(s.SessionName), nil
	case TypeBasic, TypeToken, TypeSession, TypeSessionWithExpiry, TypeSessionDB:
	default:
		return nil, fmt.Errorf("unknown auth type %q: %w", s.Type, common.ErrorValidation)
	}

	if d.Users == nil {
		return nil, errors.New("auth: users table is required")
	}

	switch s.Type {
	case TypeBasic:
		return NewBasic(s.SessionName, d.Users), nil
	case TypeToken:
		if s.TokenSecret == "" {
			return nil, fmt.Errorf("auth %s: token secret is required: %w", s.Type, common.ErrorValidation)
		}
		return NewToken(s.SessionName, d.Users, []byte(s.TokenSecret), s.TokenValidity), nil
	}

	if d.Sessions == nil {
		return nil, fmt.Errorf("auth %s: session registry is required", s.Type)
	}

	switch s.Type {
	case TypeSession:
		return NewSession(s.SessionName, d.Sessions, d.Users), nil
	case TypeSessionWithExpiry:
		return NewSessionWithExpiry(s.SessionName, d.Sessions, d.Users, s.SessionDuration), nil
	default:
		return NewSessionDB(s.SessionName, d.Sessions, d.Users, s.SessionDuration), nil
	}
}

// IsSessionType reports whether name selects a cookie based strategy.
func IsSessionType(name string) bool {
	switch name {
	case TypeSession, TypeSessionWithExpiry, TypeSessionDB:
		return true
	}
	return false
}
