package security

import (
	"bytes"
	"crypto/sha256"
	"testing"
)

func TestTokenSealer_SealOpen(t *testing.T) {
	key := sha256.Sum256([]byte("test-cluster-secret"))
	sealer, err := NewTokenSealer(key[:])
	if err != nil {
		t.Fatalf("failed to create sealer: %v", err)
	}

	plaintext := []byte("a3f9c2e8d1b07465a3f9c2e8d1b07465")

	sealed, err := sealer.Seal(plaintext)
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}

	if bytes.Contains(sealed, plaintext) {
		t.Error("sealed output contains plaintext")
	}

	opened, err := sealer.Open(sealed)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	if !bytes.Equal(opened, plaintext) {
		t.Errorf("round trip mismatch: got %q, want %q", opened, plaintext)
	}
}

func TestTokenSealer_InvalidKeyLength(t *testing.T) {
	_, err := NewTokenSealer([]byte("short"))
	if err == nil {
		t.Error("expected error for short key")
	}
}

func TestTokenSealer_WrongKey(t *testing.T) {
	sealer1, _ := NewTokenSealerFromSecret("secret-one")
	sealer2, _ := NewTokenSealerFromSecret("secret-two")

	sealed, err := sealer1.Seal([]byte("credential"))
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}

	if _, err := sealer2.Open(sealed); err == nil {
		t.Error("expected decryption failure with wrong key")
	}
}

func TestTokenSealer_TamperedCiphertext(t *testing.T) {
	sealer, _ := NewTokenSealerFromSecret("secret")

	sealed, err := sealer.Seal([]byte("credential"))
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}

	sealed[len(sealed)-1] ^= 0xff

	if _, err := sealer.Open(sealed); err == nil {
		t.Error("expected authentication failure for tampered ciphertext")
	}
}

func TestTokenSealer_EmptyInputs(t *testing.T) {
	sealer, _ := NewTokenSealerFromSecret("secret")

	if _, err := sealer.Seal(nil); err == nil {
		t.Error("expected error sealing empty data")
	}
	if _, err := sealer.Open(nil); err == nil {
		t.Error("expected error opening empty data")
	}
	if _, err := NewTokenSealerFromSecret(""); err == nil {
		t.Error("expected error for empty cluster secret")
	}
}
