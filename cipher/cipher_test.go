package cipher

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c, err := New(bytes.Repeat([]byte{0x42}, 32))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	plain := "+15551234567"
	sealed, err := c.Encrypt(plain)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if sealed == plain {
		t.Fatal("ciphertext must not equal plaintext")
	}

	got, err := c.Decrypt(sealed)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if got != plain {
		t.Fatalf("round trip mismatch: %q", got)
	}
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	c, err := New(bytes.Repeat([]byte{0x42}, 16))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	first, err := c.Encrypt("same value")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	second, err := c.Encrypt("same value")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if first == second {
		t.Fatal("two encryptions of the same value must differ")
	}
}

func TestDecryptWrongKey(t *testing.T) {
	a, err := New(bytes.Repeat([]byte{0x01}, 32))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	b, err := New(bytes.Repeat([]byte{0x02}, 32))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	sealed, err := a.Encrypt("secret")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if _, err := b.Decrypt(sealed); !errors.Is(err, ErrInvalidCiphertext) {
		t.Fatalf("expected ErrInvalidCiphertext, got %v", err)
	}
}

func TestDecryptGarbage(t *testing.T) {
	c, err := New(bytes.Repeat([]byte{0x42}, 32))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for _, raw := range []string{"", "!!!", "dG9vLXNob3J0"} {
		if _, err := c.Decrypt(raw); !errors.Is(err, ErrInvalidCiphertext) {
			t.Fatalf("expected ErrInvalidCiphertext for %q, got %v", raw, err)
		}
	}
}

func TestNewRejectsBadKeyLength(t *testing.T) {
	for _, n := range []int{0, 1, 15, 31, 33} {
		if _, err := New(bytes.Repeat([]byte{0x42}, n)); err == nil {
			t.Fatalf("expected an error for a %d-byte key", n)
		}
	}
}
