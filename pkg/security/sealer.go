package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
)

// TokenSealer handles encryption and decryption of node credentials
// before they reach the durable store
type TokenSealer struct {
	encryptionKey []byte // 32 bytes for AES-256
}

// NewTokenSealer creates a new token sealer with the given encryption key
// The key must be 32 bytes for AES-256-GCM
func NewTokenSealer(key []byte) (*TokenSealer, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes for AES-256, got %d", len(key))
	}

	return &TokenSealer{
		encryptionKey: key,
	}, nil
}

// NewTokenSealerFromSecret creates a token sealer from a cluster secret
// The secret is hashed with SHA-256 to derive the encryption key
func NewTokenSealerFromSecret(secret string) (*TokenSealer, error) {
	if secret == "" {
		return nil, fmt.Errorf("cluster secret cannot be empty")
	}

	hash := sha256.Sum256([]byte(secret))
	return NewTokenSealer(hash[:])
}

// Seal encrypts a credential using AES-256-GCM
// Returns ciphertext with nonce prepended
func (ts *TokenSealer) Seal(plaintext []byte) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("cannot seal empty data")
	}

	block, err := aes.NewCipher(ts.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts data encrypted with Seal
// Expects the nonce to be prepended to the ciphertext
func (ts *TokenSealer) Open(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 {
		return nil, fmt.Errorf("cannot open empty data")
	}

	block, err := aes.NewCipher(ts.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce, data := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}

	return plaintext, nil
}
