package models

import (
	"strings"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/cryptox"
)

// User is an account that can authenticate. The plaintext password is never
// stored; PasswordHash is an argon2id digest under PasswordSalt.
type User struct {
	Entity
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash,omitempty"`
	PasswordSalt string `json:"password_salt,omitempty"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	ResetToken   string `json:"reset_token,omitempty"`
}

// SetPassword replaces the digest with one for password under a fresh salt.
// An empty password clears it, after which no password verifies.
func (u *User) SetPassword(password string) {
	if password == "" {
		u.PasswordHash, u.PasswordSalt = "", ""
		return
	}
	u.PasswordSalt = cryptox.NewSalt()
	u.PasswordHash = cryptox.HashPassword(password, u.PasswordSalt)
}

// IsValidPassword recomputes the digest of password and compares it with
// the stored one.
func (u *User) IsValidPassword(password string) bool {
	if password == "" || u.PasswordHash == "" {
		return false
	}
	return cryptox.VerifyPassword(password, u.PasswordSalt, u.PasswordHash)
}

// DisplayName is "First Last" when names are known, otherwise whichever
// part exists, otherwise the email.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName == "" && u.LastName == "":
		return u.Email
	case u.LastName == "":
		return u.FirstName
	case u.FirstName == "":
		return u.LastName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// Validate checks the invariants the store cannot: a user needs an email.
func (u *User) Validate() error {
	if strings.TrimSpace(u.Email) == "" {
		return common.ErrorValidation
	}
	return nil
}

// UserByEmail matches users with exactly this email.
func UserByEmail(email string) func(*User) bool {
	return func(u *User) bool { return u.Email == email }
}

// UserByResetToken matches the user holding a password reset token.
func UserByResetToken(token string) func(*User) bool {
	return func(u *User) bool { return token != "" && u.ResetToken == token }
}
