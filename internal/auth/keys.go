// FilePath: internal/auth/keys.go

// Package auth implements API key generation and verification. Keys are
// 32-character URL-safe strings; only a salted PBKDF2 hash is stored.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"

	"github.com/gridsense/telemetry-hub/internal/errors"
)

const (
	KeyLength  = 32
	saltLength = 16
	// PBKDF2 iteration count, matching the stored hashes.
	hashIterations = 100000
	hashKeyLength  = 32
)

// GenerateKey returns a new random API key.
func GenerateKey() (string, error) {
	return randomToken(KeyLength)
}

// GenerateSalt returns a new random salt for key hashing.
func GenerateSalt() (string, error) {
	return randomToken(saltLength)
}

// HashKey derives the stored hex digest for a key and salt.
func HashKey(key, salt string) string {
	digest := pbkdf2.Key([]byte(key), []byte(salt), hashIterations, hashKeyLength, sha256.New)
	return hex.EncodeToString(digest)
}

// VerifyKey reports whether key matches the stored hash. Comparison is
// constant time.
func VerifyKey(key, storedHash, salt string) bool {
	computed := HashKey(key, salt)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}

// ValidKeyFormat checks length and charset before any database work.
func ValidKeyFormat(key string) bool {
	if len(key) != KeyLength {
		return false
	}
	for _, c := range key {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}

// GenerateKeyWithHash returns a new key plus its hash and salt, ready for
// storage at registration time.
func GenerateKeyWithHash() (key, hash, salt string, err error) {
	key, err = GenerateKey()
	if err != nil {
		return "", "", "", err
	}
	salt, err = GenerateSalt()
	if err != nil {
		return "", "", "", err
	}
	return key, HashKey(key, salt), salt, nil
}

func randomToken(length int) (string, error) {
	raw := make([]byte, length)
	if _, err := rand.Read(raw); err != nil {
		return "", errors.NewInternalError("failed to generate random token", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw)[:length], nil
}
