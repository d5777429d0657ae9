package secrets

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters. Hashing and verification must always use the same
// values, so they are fixed here rather than configured.
const (
	argonMemory      uint32 = 64 * 1024
	argonTime        uint32 = 3
	argonParallelism uint8  = 4
	argonSaltLength         = 16
	argonKeyLength   uint32 = 32
)

// SecretLength is the length of plaintext recovery secrets.
const SecretLength = 32

const secretAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Hasher hashes recovery secrets with argon2id. The hash is salted per call,
// so equal secrets never produce equal hashes and stored hashes cannot be
// matched by direct lookup.
type Hasher struct{}

func NewHasher() *Hasher {
	return &Hasher{}
}

// NewSecret returns a cryptographically random alphanumeric secret.
func NewSecret() (string, error) {
	var b strings.Builder
	b.Grow(SecretLength)
	max := big.NewInt(int64(len(secretAlphabet)))
	for i := 0; i < SecretLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate secret: %w", err)
		}
		b.WriteByte(secretAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// Hash returns the PHC-encoded argon2id hash of secret under a fresh salt.
func (h *Hasher) Hash(secret string) (string, error) {
	salt := make([]byte, argonSaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(secret), salt, argonTime, argonMemory, argonParallelism, argonKeyLength)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemory,
		argonTime,
		argonParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// Verify reports whether secret matches the PHC-encoded hash. The comparison
// is constant time.
func (h *Hasher) Verify(secret, encodedHash string) (bool, error) {
	salt, hash, params, err := parseEncodedHash(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(secret), salt, params.time, params.memory, params.parallelism, uint32(len(hash)))

	return subtle.ConstantTimeCompare(computed, hash) == 1, nil
}

type hashParams struct {
	memory      uint32
	time        uint32
	parallelism uint8
}

func parseEncodedHash(encoded string) ([]byte, []byte, hashParams, error) {
	var params hashParams

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return nil, nil, params, errors.New("invalid argon2id hash format")
	}

	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || version != argon2.Version {
		return nil, nil, params, errors.New("unsupported argon2 version")
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.memory, &params.time, &params.parallelism); err != nil {
		return nil, nil, params, errors.New("invalid argon2 parameters")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, params, errors.New("invalid salt encoding")
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(hash) == 0 {
		return nil, nil, params, errors.New("invalid hash encoding")
	}

	return salt, hash, params, nil
}
