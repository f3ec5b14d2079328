package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// NewConfirmationCode returns a fresh confirmation code and the bcrypt hash
// that gets persisted. Only the hash is stored; the plain code travels to the
// user by email and is never logged.
func NewConfirmationCode() (code string, hash string, err error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate confirmation code: %w", err)
	}
	code = hex.EncodeToString(buf)

	h, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", "", fmt.Errorf("hash confirmation code: %w", err)
	}
	return code, string(h), nil
}

// CheckConfirmationCode reports whether code matches the stored hash.
func CheckConfirmationCode(hash, code string) bool {
	if hash == "" || code == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}
