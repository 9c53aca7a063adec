package crypto

import (
	"bytes"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c, err := New("test-secret")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cases := [][]byte{
		[]byte("hello world"),
		[]byte(""),
		bytes.Repeat([]byte{0xAB}, 16),   // exactly one block
		bytes.Repeat([]byte("x"), 10000), // multi-block
	}

	for _, data := range cases {
		blob, err := c.Encrypt(data)
		if err != nil {
			t.Fatalf("Encrypt: %v", err)
		}
		got, err := c.Decrypt(blob)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if !bytes.Equal(got, data) {
			t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(data))
		}
	}
}

func TestEncryptSaltAndIVAreRandom(t *testing.T) {
	c, err := New("test-secret")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	a, err := c.Encrypt([]byte("same payload"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	b, err := c.Encrypt([]byte("same payload"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	if bytes.Equal(a[:saltSize+ivSize], b[:saltSize+ivSize]) {
		t.Fatal("salt+iv prefix repeated across calls")
	}
	if bytes.Equal(a, b) {
		t.Fatal("identical ciphertext for identical payload")
	}
}

func TestDecryptWrongSecret(t *testing.T) {
	c1, _ := New("secret-one")
	c2, _ := New("secret-two")

	blob, err := c1.Encrypt([]byte("confidential"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	got, err := c2.Decrypt(blob)
	// CBC has no authentication: a wrong key yields either a padding error
	// or garbage, never the plaintext.
	if err == nil && bytes.Equal(got, []byte("confidential")) {
		t.Fatal("decrypted with wrong secret")
	}
}

func TestDecryptTruncatedBlob(t *testing.T) {
	c, _ := New("test-secret")
	if _, err := c.Decrypt([]byte("short")); err == nil {
		t.Fatal("expected error for truncated blob")
	}
}

func TestNewEmptySecret(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty secret")
	}
}
