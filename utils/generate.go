package utils

import (
	"crypto/rand"
	"encoding/base32"
)

// GenerateRandomBytes returns the requested number of bytes using crypto/rand
func GenerateRandomBytes(length int) ([]byte, error) {
	var randomBytes = make([]byte, length)
	if _, err := rand.Read(randomBytes); err != nil {
		return nil, err
	}
	return randomBytes, nil
}

// GenerateTwoFactorSecret returns a fresh base32 encoded shared secret
// suitable for authenticator apps.
func GenerateTwoFactorSecret(length int) (string, error) {
	raw, err := GenerateRandomBytes(length)
	if err != nil {
		return "", err
	}

	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	return enc.EncodeToString(raw), nil
}
