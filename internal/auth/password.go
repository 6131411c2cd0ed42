package auth

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// CurrentHashVersion identifies the active hashing scheme. Bump it when
// the cost or algorithm changes so verify can spot stale hashes.
const CurrentHashVersion = 1

const bcryptCost = bcrypt.DefaultCost

// ErrAuthFailed is the single failure returned for any bad credential.
// It deliberately does not distinguish an unknown email from a wrong
// password, so callers cannot enumerate accounts.
var ErrAuthFailed = errors.New("invalid credentials")

// WeakSecretError lists every policy rule the candidate secret failed.
type WeakSecretError struct {
	Reasons []string
}

func (e *WeakSecretError) Error() string {
	return "password policy violation: " + strings.Join(e.Reasons, "; ")
}

// commonPasswords is the denylist of secrets rejected outright.
var commonPasswords = map[string]struct{}{
	"password":    {},
	"123456":      {},
	"password123": {},
	"admin":       {},
	"qwerty":      {},
	"letmein":     {},
	"welcome":     {},
	"monkey":      {},
	"1234567890":  {},
}

// dummyHash is compared against when the email does not resolve to an
// account, so the verify path costs the same either way.
var dummyHash = func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("dummy-timing-equalizer"), bcryptCost)
	if err != nil {
		panic(fmt.Sprintf("bcrypt dummy hash: %v", err))
	}
	return h
}()

// ValidatePassword checks the candidate secret against the password policy:
// minimum 8 characters, at least one upper, lower, digit and symbol, and
// not on the common-password denylist.
func ValidatePassword(password string) error {
	var reasons []string

	if len(password) < 8 {
		reasons = append(reasons, "must be at least 8 characters long")
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	if !hasUpper {
		reasons = append(reasons, "must contain at least one uppercase letter")
	}
	if !hasLower {
		reasons = append(reasons, "must contain at least one lowercase letter")
	}
	if !hasDigit {
		reasons = append(reasons, "must contain at least one number")
	}
	if !hasSymbol {
		reasons = append(reasons, "must contain at least one special character")
	}

	if _, weak := commonPasswords[strings.ToLower(password)]; weak {
		reasons = append(reasons, "is too common and weak")
	}

	if len(reasons) > 0 {
		return &WeakSecretError{Reasons: reasons}
	}
	return nil
}

// HashPassword produces the stored form of a secret. The plaintext is
// never persisted or logged.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares a candidate secret against a stored hash in
// constant time. When no stored hash exists (unknown email), pass an
// empty string: a dummy comparison still runs so response timing does
// not reveal whether the account exists.
func CheckPassword(storedHash, password string) error {
	hash := []byte(storedHash)
	if storedHash == "" {
		hash = dummyHash
		// Result is discarded; the failure below is unconditional.
		_ = bcrypt.CompareHashAndPassword(hash, []byte(password))
		return ErrAuthFailed
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return ErrAuthFailed
	}
	return nil
}
