package utils

import (
    "errors"

    "golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

// ErrPasswordTooShort is returned by HashPassword for passwords shorter
// than MinPasswordLength.
var ErrPasswordTooShort = errors.New("password too short")

// HashPassword returns the bcrypt hash of plain using cost. bcrypt only
// reads the first 72 bytes, longer input is rejected by bcrypt itself.
func HashPassword(plain string, cost int) (string, error) {
    if len(plain) < MinPasswordLength {
        return "", ErrPasswordTooShort
    }
    b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
    if err != nil {
        return "", err
    }
    return string(b), nil
}

// VerifyPassword reports whether plain matches hash.
func VerifyPassword(hash, plain string) bool {
    return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
