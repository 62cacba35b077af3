package utils

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

const defaultBCryptWorkFactor = 12

// BCrypt implements a BCrypt hasher.
type BCrypt struct {
	bCryptWorkFactor int
}

// NewBCrypt returns a new BCrypt instance.
func NewBCrypt() *BCrypt {
	return &BCrypt{
		defaultBCryptWorkFactor,
	}
}

func (b *BCrypt) Hash(_ context.Context, data []byte) ([]byte, error) {
	s, err := bcrypt.GenerateFromPassword(data, b.bCryptWorkFactor)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (b *BCrypt) Compare(_ context.Context, hash, data []byte) error {
	return bcrypt.CompareHashAndPassword(hash, data)
}

// HashStringSecret hashes the secret for consumption by the AEAD encryption algorithm which expects exactly 32 bytes.
//
// The system secret is being hashed to always match exactly the 32 bytes required by AEAD, even if the secret is long or
// shorter.
func HashStringSecret(secret string) string {
	hashedSecret := HashByteSecret([]byte(secret))
	return hex.EncodeToString(hashedSecret)
}

// HashByteSecret hashes the secret for consumption by the AEAD encryption algorithm which expects exactly 32 bytes.
//
// The system secret is being hashed to always match exactly the 32 bytes required by AEAD, even if the secret is long or
// shorter.
func HashByteSecret(secret []byte) []byte {

	algorithm := sha256.New()
	algorithm.Write(secret)
	return algorithm.Sum(nil)
}

// Checksum produces the hex encoded sha256 digest of the supplied payload.
// Session rows and challenges use it as their content derived integrity
// digest.
func Checksum(payload []byte) string {
	return hex.EncodeToString(HashByteSecret(payload))
}
