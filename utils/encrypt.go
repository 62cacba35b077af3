package utils

import (
	"crypto/rand"

	"github.com/pkg/errors"
	"golang.org/x/crypto/chacha20poly1305"
)

// EncryptSecret seals plaintext with the server held symmetric key. The key
// is first hashed to the exact 32 bytes the AEAD requires; the nonce is
// prepended to the returned ciphertext.
func EncryptSecret(key []byte, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(HashByteSecret(key))
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err = rand.Read(nonce); err != nil {
		return nil, err
	}

	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// DecryptSecret opens ciphertext produced by EncryptSecret.
func DecryptSecret(key []byte, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(HashByteSecret(key))
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < aead.NonceSize() {
		return nil, errors.New("ciphertext shorter than nonce")
	}

	nonce, sealed := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
	return aead.Open(nil, nonce, sealed, nil)
}
