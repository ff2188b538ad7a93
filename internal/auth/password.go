package auth

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const (
	minPassword = 6
	maxPassword = 100

	// bcrypt only reads the first 72 bytes of its input.
	bcryptInputLimit = 72
)

func validPassword(v string) error {
	if n := utf8.RuneCountInString(v); n < minPassword || n > maxPassword {
		return fmt.Errorf("%w: password must be between %d and %d characters", ErrInvalidInput, minPassword, maxPassword)
	}
	return nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("%w: password is empty", ErrInvalidInput)
	}
	hash, err := bcrypt.GenerateFromPassword(bcryptInput(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports ErrInvalidCredentials unless password matches hash.
func VerifyPassword(hash, password string) error {
	if hash == "" {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), bcryptInput(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

func bcryptInput(password string) []byte {
	b := []byte(password)
	if len(b) > bcryptInputLimit {
		b = b[:bcryptInputLimit]
	}
	return b
}
