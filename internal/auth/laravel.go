// Package auth bridges the legacy Laravel password store. Laravel writes
// bcrypt hashes with the $2y$ prefix while Go's bcrypt emits $2a$/$2b$; the
// algorithms are identical, only the version tag differs.
package auth

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// laravelCost matches Laravel's default bcrypt work factor
const laravelCost = 10

// VerifyLaravelHash checks a plaintext password against a Laravel bcrypt hash.
func VerifyLaravelHash(plain, hashed string) bool {
	compatible := hashed
	if strings.HasPrefix(hashed, "$2y$") {
		compatible = "$2a$" + hashed[len("$2y$"):]
	}
	return bcrypt.CompareHashAndPassword([]byte(compatible), []byte(plain)) == nil
}

// GenerateLaravelHash hashes a password in the format Laravel expects, so
// the admin panel can keep validating accounts this service updates.
func GenerateLaravelHash(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), laravelCost)
	if err != nil {
		return "", err
	}
	s := string(hash)
	if strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") {
		s = "$2y$" + s[4:]
	}
	return s, nil
}
