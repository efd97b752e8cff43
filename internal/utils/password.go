package utils

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt cost used by HashPassword.
var PasswordCost = 12

// HashPassword hashes a given password using bcrypt.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	return string(bytes), err
}

// IsPasswordHash reports whether stored looks like a bcrypt hash rather
// than a credential saved in clear by older clients.
func IsPasswordHash(stored string) bool {
	return strings.HasPrefix(stored, "$2")
}

// CheckPasswordHash compares a plain password with its hashed version.
// An empty hash never matches.
func CheckPasswordHash(password, hash string) bool {
	if hash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CheckPassword verifies password against a stored credential that is
// either a bcrypt hash or, for accounts created before hashing, the clear
// value. needsRehash is true when a clear value matched.
func CheckPassword(password, stored string) (ok, needsRehash bool) {
	if stored == "" {
		return false, false
	}
	if IsPasswordHash(stored) {
		return CheckPasswordHash(password, stored), false
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(stored)) == 1 {
		return true, true
	}
	return false, false
}
