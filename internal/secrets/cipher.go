package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/scrypt"

	"github.com/avolhov/recovery-server/internal/model"
)

// DevelopmentSecret is the fallback cipher secret used when no secret is
// configured. It is public knowledge and provides no protection; deployments
// must set ENCRYPTION_SECRET.
const DevelopmentSecret = "dev-only-insecure-secret-change-me"

const (
	// kdfSalt is fixed so the same operator secret always derives the same
	// key. Uniqueness per installation comes from the secret itself.
	kdfSalt = "recovery-server-settings-v1"

	nonceSize = 16
	tagSize   = 16
	keySize   = 32

	// aadContext binds ciphertexts to the settings domain.
	aadContext = "settings-store"

	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// Cipher provides authenticated encryption of opaque strings with a key
// derived from an operator secret. A Cipher is safe for concurrent use;
// rotating the secret means constructing a new instance.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher derives a 256-bit key from the secret via scrypt and prepares
// an AES-256-GCM AEAD with a 128-bit nonce.
func NewCipher(secret string) (*Cipher, error) {
	key, err := scrypt.Key([]byte(secret), []byte(kdfSalt), scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, fmt.Errorf("failed to derive cipher key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}

	aead, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gcm: %w", err)
	}

	return &Cipher{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random nonce and returns the
// hex(nonce):hex(tag):hex(ciphertext) wire form.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), []byte(aadContext))
	ciphertext := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	return hex.EncodeToString(nonce) + ":" + hex.EncodeToString(tag) + ":" + hex.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt. A malformed wire form, bad hex and a failed
// authentication tag all return model.ErrDecryptFailed; callers cannot tell
// tampering apart from a wrong key.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	parts := strings.Split(ciphertext, ":")
	if len(parts) != 3 {
		return "", model.ErrDecryptFailed
	}

	nonce, err := hex.DecodeString(parts[0])
	if err != nil || len(nonce) != nonceSize {
		return "", model.ErrDecryptFailed
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != tagSize {
		return "", model.ErrDecryptFailed
	}
	sealed, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", model.ErrDecryptFailed
	}

	plaintext, err := c.aead.Open(nil, nonce, append(sealed, tag...), []byte(aadContext))
	if err != nil {
		return "", model.ErrDecryptFailed
	}

	return string(plaintext), nil
}

// IsWellFormed reports whether s has the syntactic shape of a ciphertext.
// It does not attempt decryption; a well-formed string may still fail to
// decrypt.
func (c *Cipher) IsWellFormed(s string) bool {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return false
	}
	if len(parts[0]) != nonceSize*2 || len(parts[1]) != tagSize*2 {
		return false
	}
	for _, part := range parts {
		if _, err := hex.DecodeString(part); err != nil {
			return false
		}
	}
	return true
}

// SelfTest round-trips a fixed probe and reports whether it survived.
// It never returns an error and is intended for health checks.
func (c *Cipher) SelfTest() bool {
	const probe = "cipher-self-test-probe"

	encrypted, err := c.Encrypt(probe)
	if err != nil {
		return false
	}
	decrypted, err := c.Decrypt(encrypted)
	if err != nil {
		return false
	}
	return decrypted == probe
}
