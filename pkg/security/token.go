package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// tokenBytes is the entropy of a generated credential (32 bytes,
// hex-encoded to 64 characters)
const tokenBytes = 32

// GenerateToken generates a new random bearer credential
func GenerateToken() (string, error) {
	bytes := make([]byte, tokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// TokensEqual compares two bearer credentials in constant time
func TokensEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// TokenPrefix returns a short, loggable prefix of a credential.
// Full token values must never reach the logs.
func TokenPrefix(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8]
}
