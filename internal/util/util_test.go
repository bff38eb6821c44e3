package util

import (
	"bytes"
	"testing"
)

func TestSealOpen(t *testing.T) {
	key, err := RandomBytes(AESKeySize)
	if err != nil {
		t.Fatalf("RandomBytes failed: %v", err)
	}
	plainText := []byte("refresh-token-value")
	aad := []byte("cookie:refreshToken")

	t.Run("RoundTrip", func(t *testing.T) {
		sealed, err := Seal(plainText, key, aad)
		if err != nil {
			t.Fatalf("Seal failed: %v", err)
		}
		if len(sealed) <= GCMNonceSize {
			t.Fatalf("sealed payload too short: %d", len(sealed))
		}
		opened, err := Open(sealed, key, aad)
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		if !bytes.Equal(plainText, opened) {
			t.Errorf("expected %s, got %s", plainText, opened)
		}
	})

	t.Run("WrongAAD", func(t *testing.T) {
		sealed, _ := Seal(plainText, key, aad)
		if _, err := Open(sealed, key, []byte("cookie:accessToken")); err == nil {
			t.Error("expected error with wrong AAD, got nil")
		}
	})

	t.Run("TamperedCipherText", func(t *testing.T) {
		sealed, _ := Seal(plainText, key, aad)
		sealed[len(sealed)-1] ^= 0xFF
		if _, err := Open(sealed, key, aad); err == nil {
			t.Error("expected error with tampered ciphertext, got nil")
		}
	})

	t.Run("BadKeySize", func(t *testing.T) {
		if _, err := Seal(plainText, []byte("short"), aad); err == nil {
			t.Error("expected error with wrong key size, got nil")
		}
	})

	t.Run("TruncatedInput", func(t *testing.T) {
		if _, err := Open([]byte{1, 2, 3}, key, aad); err == nil {
			t.Error("expected error for truncated input, got nil")
		}
	})
}

func TestHKDF(t *testing.T) {
	seed := []byte("master-secret-material-32-bytes!")
	k1, err := HKDF(seed, nil, []byte("focusflow:cookiejar:v1"))
	if err != nil {
		t.Fatalf("HKDF failed: %v", err)
	}
	k2, _ := HKDF(seed, nil, []byte("focusflow:cookiejar:v1"))
	k3, _ := HKDF(seed, nil, []byte("other"))

	if len(k1) != HKDFKeyLength {
		t.Fatalf("expected %d bytes, got %d", HKDFKeyLength, len(k1))
	}
	if !bytes.Equal(k1, k2) {
		t.Error("HKDF should be deterministic for the same inputs")
	}
	if bytes.Equal(k1, k3) {
		t.Error("different info should derive different keys")
	}
}

func TestWipeBytes(t *testing.T) {
	b := []byte{1, 2, 3}
	c := CopyBytes(b)
	WipeBytes(b)
	for i, v := range b {
		if v != 0 {
			t.Fatalf("byte %d not wiped", i)
		}
	}
	if c[0] != 1 {
		t.Error("CopyBytes should not alias the source")
	}
}
