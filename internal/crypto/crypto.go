// Package crypto encrypts raw document payloads before they reach the blob
// store. Each blob is self-describing: the random salt and IV are prepended
// to the ciphertext, so any blob can be decrypted independently with only
// the process secret.
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 16
	ivSize     = 16
	keySize    = 32
	iterations = 1000
)

// Cipher derives per-blob AES-256-CBC keys from a process-wide secret.
type Cipher struct {
	secret []byte
}

// New creates a Cipher from the process secret.
func New(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, fmt.Errorf("encryption secret is required")
	}
	return &Cipher{secret: []byte(secret)}, nil
}

// Encrypt returns salt ‖ iv ‖ AES-256-CBC(PKCS#7(data)) with a fresh random
// salt and IV per call. The key is derived via PBKDF2-HMAC-SHA256.
func (c *Cipher) Encrypt(data []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}

	block, err := aes.NewCipher(c.deriveKey(salt))
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	plaintext := pad(data, aes.BlockSize)
	ciphertext := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, plaintext)

	out := make([]byte, 0, saltSize+ivSize+len(ciphertext))
	out = append(out, salt...)
	out = append(out, iv...)
	out = append(out, ciphertext...)
	return out, nil
}

// Decrypt reverses Encrypt for a salt ‖ iv ‖ ciphertext blob.
func (c *Cipher) Decrypt(blob []byte) ([]byte, error) {
	if len(blob) < saltSize+ivSize+aes.BlockSize {
		return nil, fmt.Errorf("encrypted blob too short: %d bytes", len(blob))
	}
	salt := blob[:saltSize]
	iv := blob[saltSize : saltSize+ivSize]
	ciphertext := blob[saltSize+ivSize:]
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("ciphertext is not block-aligned")
	}

	block, err := aes.NewCipher(c.deriveKey(salt))
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	return unpad(plaintext, aes.BlockSize)
}

func (c *Cipher) deriveKey(salt []byte) []byte {
	return pbkdf2.Key(c.secret, salt, iterations, keySize, sha256.New)
}

// pad applies PKCS#7 padding.
func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(append([]byte{}, data...), bytes.Repeat([]byte{byte(n)}, n)...)
}

// unpad strips PKCS#7 padding.
func unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(data))
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, fmt.Errorf("invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
