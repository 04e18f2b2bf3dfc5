// Package crypto implements the password-based stream decryption used
// by encrypted Word 97-2003 documents: MD5-derived keys feeding an RC4
// keystream, per the legacy Office binary encryption scheme.
package crypto

import (
	"crypto/md5"
	"crypto/rc4"
	"errors"
	"fmt"
)

// RC4 wraps a stateful RC4 keystream. Successive Decrypt calls continue
// the same keystream, matching how the document's streams are
// enciphered back to back.
type RC4 struct {
	cipher *rc4.Cipher
}

// NewRC4 creates an RC4 cipher with the given key.
func NewRC4(key []byte) (*RC4, error) {
	if len(key) == 0 {
		return nil, errors.New("rc4: key cannot be empty")
	}
	c, err := rc4.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("rc4: %w", err)
	}
	return &RC4{cipher: c}, nil
}

// Decrypt XORs data against the keystream into a fresh slice. RC4 is
// symmetric, so the same call encrypts.
func (r *RC4) Decrypt(data []byte) []byte {
	out := make([]byte, len(data))
	r.cipher.XORKeyStream(out, data)
	return out
}

// GeneratePasswordHash hashes a password the way Word 97-2003 does:
// MD5 over the password's UTF-16LE bytes.
func GeneratePasswordHash(password string) []byte {
	if len(password) == 0 {
		return nil
	}
	utf16Password := make([]byte, 0, len(password)*2)
	for _, r := range password {
		utf16Password = append(utf16Password, byte(r), byte(r>>8))
	}
	hash := md5.Sum(utf16Password)
	return hash[:]
}

// GenerateDecryptionKey derives the RC4 key from the password hash and
// the document salt.
func GenerateDecryptionKey(password string, salt []byte) ([]byte, error) {
	if len(password) == 0 {
		return nil, errors.New("password cannot be empty")
	}
	if len(salt) < 16 {
		return nil, fmt.Errorf("salt must be at least 16 bytes, got %d", len(salt))
	}

	passwordHash := GeneratePasswordHash(password)
	combined := make([]byte, 0, len(passwordHash)+16)
	combined = append(combined, passwordHash...)
	combined = append(combined, salt[:16]...)

	finalHash := md5.Sum(combined)
	return finalHash[:], nil
}

// VerifyPassword checks a candidate password against the stored key
// hash.
func VerifyPassword(password string, expectedHash []byte, salt []byte) (bool, error) {
	if len(expectedHash) != 16 {
		return false, errors.New("expected hash must be 16 bytes")
	}
	key, err := GenerateDecryptionKey(password, salt)
	if err != nil {
		return false, err
	}
	for i := 0; i < 16; i++ {
		if key[i] != expectedHash[i] {
			return false, nil
		}
	}
	return true, nil
}
