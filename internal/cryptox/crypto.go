// Package cryptox implements field-level encryption for sensitive record
// attributes. Submitted text is encrypted with AES-GCM before it reaches the
// database; only the ciphertext and nonce are ever stored.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// KeySize is the required encryption key length (AES-256).
const KeySize = 32

// FieldCipher encrypts and decrypts individual record fields with AES-GCM.
// A fresh random 12-byte nonce is generated per encryption and returned
// alongside the ciphertext.
type FieldCipher struct {
	aead cipher.AEAD
}

// NewFieldCipher constructs a FieldCipher from a raw 32-byte key.
func NewFieldCipher(key []byte) (*FieldCipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &FieldCipher{aead: aead}, nil
}

// NewFieldCipherFromBase64 constructs a FieldCipher from a base64-encoded
// key, the form the key takes in configuration.
func NewFieldCipherFromBase64(encoded string) (*FieldCipher, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 encryption key: %w", err)
	}
	return NewFieldCipher(key)
}

// EncryptText encrypts plaintext and returns the ciphertext plus the nonce
// used. The pair round-trips through DecryptText.
func (c *FieldCipher) EncryptText(plaintext string) (ciphertext, nonce []byte, err error) {
	nonce = make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}
	ciphertext = c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	return ciphertext, nonce, nil
}

// DecryptText reverses EncryptText. It fails if the ciphertext or nonce was
// tampered with or the key differs.
func (c *FieldCipher) DecryptText(ciphertext, nonce []byte) (string, error) {
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
