package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
)

// AESCipher is a reversible symmetric string cipher backed by
// AES-256-GCM. The key is injected at construction so different token
// families (or tests) can run with independent keys; there is no
// process-wide key singleton.
//
// Ciphertext layout before encoding: [12-byte nonce][sealed data+tag],
// the whole thing base64url-encoded so it is safe in URLs and emails.
type AESCipher struct {
	key []byte
}

// NewAESCipher derives a 32-byte AES-256 key from arbitrary key
// material using SHA-256.
func NewAESCipher(keyMaterial []byte) (*AESCipher, error) {
	if len(keyMaterial) == 0 {
		return nil, fmt.Errorf("cryptox: empty key material")
	}
	sum := sha256.Sum256(keyMaterial)
	return &AESCipher{key: sum[:]}, nil
}

// Encrypt seals plaintext with a fresh random nonce. Encrypting the
// same plaintext twice yields different ciphertexts.
func (c *AESCipher) Encrypt(plaintext string) (string, error) {
	gcm, err := c.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. It fails on malformed encoding, truncated
// input, or any bit flip in the ciphertext (GCM authentication).
func (c *AESCipher) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("malformed ciphertext encoding: %w", err)
	}

	gcm, err := c.gcm()
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(raw) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, sealed := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("decryption failed: %w", err)
	}
	return string(plaintext), nil
}

func (c *AESCipher) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
