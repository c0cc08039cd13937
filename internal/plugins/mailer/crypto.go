package mailer

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
)

// The stored SMTP password is sealed with AES-256-GCM. The key is the
// SHA-256 digest of SECRET_KEY, so rotating the application secret
// invalidates the stored password and the admin must re-enter it.
const keySize = sha256.Size

// newAEAD builds the GCM cipher for the given application secret.
func newAEAD(secret string) (cipher.AEAD, error) {
	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:keySize])
	if err != nil {
		return nil, fmt.Errorf("building cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// encrypt seals a password for storage. The random nonce leads the output.
// An empty password stores as NULL, so nil in and nil out.
func encrypt(plaintext []byte, secret string) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, nil
	}

	aead, err := newAEAD(secret)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, sealed); err != nil {
		return nil, fmt.Errorf("reading nonce: %w", err)
	}
	return aead.Seal(sealed, sealed[:aead.NonceSize()], plaintext, nil), nil
}

// decrypt opens a stored password. Nil in and nil out, mirroring encrypt.
func decrypt(sealed []byte, secret string) ([]byte, error) {
	if len(sealed) == 0 {
		return nil, nil
	}

	aead, err := newAEAD(secret)
	if err != nil {
		return nil, err
	}

	if len(sealed) < aead.NonceSize() {
		return nil, fmt.Errorf("stored password is malformed")
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("opening stored password: %w", err)
	}
	return plaintext, nil
}
