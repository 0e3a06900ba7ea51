// Package services contains server-side business logic. UserService covers
// account registration, password login and the password reset flow on top
// of the users table.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/dmitrijs2005/gatekeeper/internal/server/store"
	"github.com/google/uuid"
)

// UserTable is the users entity table.
type UserTable = store.Store[models.User, *models.User]

// Registration is the input of Register.
type Registration struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// ProfileUpdate changes the fields that are non-nil.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
}

type UserService struct {
	users    *UserTable
	log      logging.Logger
	newToken func() string

	// serializes the email uniqueness check with the insert
	registerMu sync.Mutex
}

func NewUserService(users *UserTable, log logging.Logger) *UserService {
	if log == nil {
		log = logging.Nop()
	}
	return &UserService{users: users, log: log, newToken: uuid.NewString}
}

// Register creates a user. Email and password are required and the email
// must not be taken.
func (s *UserService) Register(ctx context.Context, in Registration) (models.User, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return models.User{}, fmt.Errorf("email missing: %w", common.ErrorValidation)
	}
	if in.Password == "" {
		return models.User{}, fmt.Errorf("password missing: %w", common.ErrorValidation)
	}

	s.registerMu.Lock()
	defer s.registerMu.Unlock()

	if len(s.users.Search(models.UserByEmail(email))) > 0 {
		return models.User{}, fmt.Errorf("user %s: %w", email, common.ErrorAlreadyExists)
	}

	u := &models.User{Email: email, FirstName: in.FirstName, LastName: in.LastName}
	u.SetPassword(in.Password)
	if _, err := s.users.Add(ctx, u); err != nil {
		return models.User{}, fmt.Errorf("error creating user: %w", err)
	}
	s.log.Info(ctx, "user registered", "user_id", u.ID, "email", u.Email)
	return *u, nil
}

// Login returns the user owning email if password verifies. An unknown
// email yields common.ErrorNotFound, a wrong password
// common.ErrorUnauthorized.
func (s *UserService) Login(ctx context.Context, email, password string) (models.User, error) {
	if email == "" || password == "" {
		return models.User{}, common.ErrorValidation
	}
	found := s.users.Search(models.UserByEmail(email))
	if len(found) == 0 {
		return models.User{}, common.ErrorNotFound
	}
	for _, u := range found {
		if u.IsValidPassword(password) {
			return u, nil
		}
	}
	s.log.Warn(ctx, "wrong password", "email", email)
	return models.User{}, common.ErrorUnauthorized
}

// ValidLogin reports whether email and password identify a user.
func (s *UserService) ValidLogin(ctx context.Context, email, password string) bool {
	_, err := s.Login(ctx, email, password)
	return err == nil
}

// GetResetPasswordToken stores a fresh reset token on the user and
// returns it.
func (s *UserService) GetResetPasswordToken(ctx context.Context, email string) (string, error) {
	found := s.users.Search(models.UserByEmail(email))
	if email == "" || len(found) == 0 {
		return "", fmt.Errorf("user %s: %w", email, common.ErrorNotFound)
	}

	token := s.newToken()
	_, err := s.users.Update(ctx, found[0].ID, func(u *models.User) error {
		u.ResetToken = token
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("error storing reset token: %w", err)
	}
	return token, nil
}

// UpdatePassword sets a new password for the holder of token and consumes
// the token.
func (s *UserService) UpdatePassword(ctx context.Context, token, password string) error {
	if password == "" {
		return fmt.Errorf("password missing: %w", common.ErrorValidation)
	}
	found := s.users.Search(models.UserByResetToken(token))
	if len(found) == 0 {
		return fmt.Errorf("reset token: %w", common.ErrorNotFound)
	}

	_, err := s.users.Update(ctx, found[0].ID, func(u *models.User) error {
		if u.ResetToken != token {
			return fmt.Errorf("reset token: %w", common.ErrorNotFound)
		}
		u.SetPassword(password)
		u.ResetToken = ""
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info(ctx, "password updated", "user_id", found[0].ID)
	return nil
}

func (s *UserService) Get(id string) (models.User, error) {
	return s.users.Get(id)
}

func (s *UserService) List() []models.User {
	return s.users.All()
}

func (s *UserService) Count() int {
	return s.users.Count()
}

// UpdateProfile changes the names of user id.
func (s *UserService) UpdateProfile(ctx context.Context, id string, p ProfileUpdate) (models.User, error) {
	return s.users.Update(ctx, id, func(u *models.User) error {
		if p.FirstName != nil {
			u.FirstName = *p.FirstName
		}
		if p.LastName != nil {
			u.LastName = *p.LastName
		}
		return nil
	})
}

// Delete removes user id.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.users.Remove(ctx, id); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return fmt.Errorf("error deleting user: %w", err)
	}
	s.log.Info(ctx, "user deleted", "user_id", id)
	return nil
}
