package utils

import (
	"context"
	"encoding/base32"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := []byte("any length key works, it is hashed down to 32 bytes")
	plaintext := []byte("JBSWY3DPEHPK3PXP")

	ciphertext, err := EncryptSecret(key, plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)

	recovered, err := DecryptSecret(key, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, recovered)
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	ciphertext, err := EncryptSecret([]byte("right key"), []byte("payload"))
	require.NoError(t, err)

	_, err = DecryptSecret([]byte("wrong key"), ciphertext)
	assert.Error(t, err)
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	key := []byte("right key")

	ciphertext, err := EncryptSecret(key, []byte("payload"))
	require.NoError(t, err)

	ciphertext[len(ciphertext)-1] ^= 0x01
	_, err = DecryptSecret(key, ciphertext)
	assert.Error(t, err)
}

func TestDecryptRejectsShortCiphertext(t *testing.T) {
	_, err := DecryptSecret([]byte("key"), []byte("too short"))
	assert.Error(t, err)
}

func TestChecksum(t *testing.T) {
	a := Checksum([]byte(`{"target":"a@example.com"}`))
	b := Checksum([]byte(`{"target":"a@example.com"}`))
	c := Checksum([]byte(`{"target":"b@example.com"}`))

	assert.Len(t, a, 64)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestGenerateTwoFactorSecret(t *testing.T) {
	first, err := GenerateTwoFactorSecret(32)
	require.NoError(t, err)
	second, err := GenerateTwoFactorSecret(32)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)

	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	raw, err := enc.DecodeString(first)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
}

func TestBCryptHashCompare(t *testing.T) {
	ctx := context.Background()
	hasher := NewBCrypt()

	hash, err := hasher.Hash(ctx, []byte("correct horse battery staple"))
	require.NoError(t, err)

	assert.NoError(t, hasher.Compare(ctx, hash, []byte("correct horse battery staple")))
	assert.Error(t, hasher.Compare(ctx, hash, []byte("incorrect horse")))
}
