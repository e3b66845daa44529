package common

import (
	"crypto/rand"
	"encoding/hex"
	"net/mail"
	"strings"
)

// randRead is crypto/rand.Read; tests replace it to simulate failures.
var randRead = rand.Read

// MakeRandHexString generates a random hexadecimal string of the given size.
// The final string length is twice the size since each byte expands to two
// hex characters. It returns an error if the random number generator fails.
func MakeRandHexString(size int) (string, error) {
	b, err := GenerateRandByteArray(size)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateRandByteArray returns n bytes from crypto/rand, or the error of
// the random number generator.
func GenerateRandByteArray(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := randRead(b); err != nil {
		return nil, err
	}
	return b, nil
}

// WipeByteArray overwrites the contents of the provided byte slice with zeros.
// If the slice is nil, the function does nothing.
func WipeByteArray(b []byte) {
	if b == nil {
		return
	}
	for i := range b {
		b[i] = 0
	}
}

// NormalizeEmail trims and lowercases an address. Emails are identities in
// this system, so every entry point normalizes before touching storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail normalizes email and checks it is a bare address.
func ValidateEmail(email string) (string, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
