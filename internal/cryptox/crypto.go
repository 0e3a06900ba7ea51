// Package cryptox derives and verifies password digests.
//
// A digest is argon2id(password, salt) rendered as lowercase hex. For a given
// salt the digest is deterministic, so verification recomputes it and
// compares in constant time.
package cryptox

import (
	"crypto/subtle"
	"encoding/hex"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	saltSize = 16
	keySize  = 32

	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// NewSalt returns a fresh random salt, hex encoded.
func NewSalt() string {
	return hex.EncodeToString(common.GenerateRandByteArray(saltSize))
}

// HashPassword returns the hex digest of password under salt.
func HashPassword(password, salt string) string {
	key := argon2.IDKey([]byte(password), []byte(salt), argonTime, argonMemory, argonThreads, keySize)
	return hex.EncodeToString(key)
}

// VerifyPassword reports whether password hashes to digest under salt.
// An empty digest never verifies.
func VerifyPassword(password, salt, digest string) bool {
	if digest == "" {
		return false
	}
	candidate := HashPassword(password, salt)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(digest)) == 1
}
