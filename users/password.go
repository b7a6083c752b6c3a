package users

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordTooLong is returned for passwords bcrypt would otherwise truncate.
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

const maxPasswordBytes = 72

// HashPassword returns a bcrypt digest with a random salt embedded, so the
// same password hashed twice gives different digests.
func HashPassword(password string) (string, error) {
	if len(password) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash reports whether password produced hash. A malformed hash is false.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
