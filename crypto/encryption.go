package crypto

import (
	"errors"
	"fmt"

	"github.com/TalentFormula/msdoc/binutil"
)

// EncryptionHeader is the encryption descriptor stored at the front of
// the table stream of an encrypted document.
type EncryptionHeader struct {
	Version           uint16
	EncryptionFlags   uint32
	HeaderSize        uint32
	ProviderType      uint32
	AlgID             uint32
	AlgHashID         uint32
	KeySize           uint32 // bits
	ProviderName      string
	Salt              []byte
	EncryptedVerifier []byte
	VerifierHash      []byte
}

const providerNameBytes = 64

// ParseEncryptionHeader decodes the encryption header from the start of
// the table stream.
func ParseEncryptionHeader(data []byte) (*EncryptionHeader, error) {
	c := binutil.NewCursor(data)
	h := &EncryptionHeader{}
	var err error

	if h.Version, err = c.U16(); err != nil {
		return nil, fmt.Errorf("crypto: failed to read version: %w", err)
	}
	if h.EncryptionFlags, err = c.U32(); err != nil {
		return nil, fmt.Errorf("crypto: failed to read flags: %w", err)
	}
	if h.HeaderSize, err = c.U32(); err != nil {
		return nil, fmt.Errorf("crypto: failed to read header size: %w", err)
	}
	if h.ProviderType, err = c.U32(); err != nil {
		return nil, fmt.Errorf("crypto: failed to read provider type: %w", err)
	}
	if h.AlgID, err = c.U32(); err != nil {
		return nil, fmt.Errorf("crypto: failed to read algorithm id: %w", err)
	}
	if h.AlgHashID, err = c.U32(); err != nil {
		return nil, fmt.Errorf("crypto: failed to read hash algorithm id: %w", err)
	}
	if h.KeySize, err = c.U32(); err != nil {
		return nil, fmt.Errorf("crypto: failed to read key size: %w", err)
	}

	// Reserved dword pair before the provider name.
	if _, err = c.Bytes(8); err != nil {
		return nil, fmt.Errorf("crypto: truncated header: %w", err)
	}

	name, err := c.Bytes(providerNameBytes)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to read provider name: %w", err)
	}
	h.ProviderName = decodeUTF16Z(name)

	if h.Salt, err = c.Bytes(16); err != nil {
		return nil, fmt.Errorf("crypto: failed to read salt: %w", err)
	}
	if h.EncryptedVerifier, err = c.Bytes(16); err != nil {
		return nil, fmt.Errorf("crypto: failed to read encrypted verifier: %w", err)
	}
	if h.VerifierHash, err = c.Bytes(16); err != nil {
		return nil, fmt.Errorf("crypto: failed to read verifier hash: %w", err)
	}

	return h, nil
}

// IsRC4Encryption reports whether the header names the RC4 algorithm
// (CALG_RC4).
func (h *EncryptionHeader) IsRC4Encryption() bool {
	return h.AlgID == 0x6801
}

// IsPasswordProtected reports whether the header carries verifier
// material for password validation.
func (h *EncryptionHeader) IsPasswordProtected() bool {
	return len(h.EncryptedVerifier) > 0 && len(h.VerifierHash) > 0
}

// ValidatePassword checks the provided password against the header's
// verifier.
func (h *EncryptionHeader) ValidatePassword(password string) (bool, error) {
	if !h.IsPasswordProtected() {
		return false, errors.New("document is not password protected")
	}

	key, err := GenerateDecryptionKey(password, h.Salt)
	if err != nil {
		return false, fmt.Errorf("failed to generate key: %w", err)
	}
	cipher, err := NewRC4(key)
	if err != nil {
		return false, fmt.Errorf("failed to create rc4 cipher: %w", err)
	}

	decryptedVerifier := cipher.Decrypt(h.EncryptedVerifier)
	verifierHash := GeneratePasswordHash(string(decryptedVerifier))

	for i := 0; i < len(verifierHash) && i < len(h.VerifierHash); i++ {
		if verifierHash[i] != h.VerifierHash[i] {
			return false, nil
		}
	}
	return true, nil
}

// CreateDecryptionCipher validates the password and returns a fresh RC4
// cipher positioned at the start of the keystream.
func (h *EncryptionHeader) CreateDecryptionCipher(password string) (*RC4, error) {
	valid, err := h.ValidatePassword(password)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, errors.New("incorrect password")
	}

	key, err := GenerateDecryptionKey(password, h.Salt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return NewRC4(key)
}

// decodeUTF16Z extracts a null-terminated UTF-16LE string.
func decodeUTF16Z(data []byte) string {
	var out []rune
	for i := 0; i+1 < len(data); i += 2 {
		ch := uint16(data[i]) | uint16(data[i+1])<<8
		if ch == 0 {
			break
		}
		out = append(out, rune(ch))
	}
	return string(out)
}
