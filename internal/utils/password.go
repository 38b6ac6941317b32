package utils

import (
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLen and MaxPasswordBytes bound signup passwords.  bcrypt ignores
// everything past 72 bytes.
const (
	MinPasswordLen   = 8
	MaxPasswordBytes = 72
)

// PasswordAcceptable reports whether plain may be used for a new account: at
// least MinPasswordLen runes, at most MaxPasswordBytes bytes, and not
// entirely whitespace.
func PasswordAcceptable(plain string) bool {
	if len([]rune(plain)) < MinPasswordLen || len(plain) > MaxPasswordBytes {
		return false
	}
	for _, r := range plain {
		if !unicode.IsSpace(r) {
			return true
		}
	}
	return false
}

func HashPassword(plain string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	return string(hash), err
}

// VerifyPassword is false for a mismatch and for a malformed hash alike.
func VerifyPassword(hash, plain string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	return err == nil
}
