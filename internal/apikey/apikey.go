// Package apikey issues and hashes agent API keys. The plaintext key is
// shown exactly once at registration; the server stores only its digest.
package apikey

import (
	crand "crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/clawcombat/arena/internal/constants"
)

const keyBytes = 24

// New generates a fresh prefixed API key and returns it with its digest.
func New() (key, digest string, err error) {
	raw := make([]byte, keyBytes)
	if _, err := crand.Read(raw); err != nil {
		return "", "", fmt.Errorf("generate api key: %w", err)
	}
	key = constants.APIKeyPrefix + b64url(raw)
	return key, Digest(key), nil
}

// Digest returns the hex-encoded SHA-256 of a plaintext key. Lookups go
// through this digest so a database dump never exposes usable keys.
func Digest(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// ValidFormat cheaply rejects strings that cannot be issued keys before any
// hashing or lookup happens.
func ValidFormat(key string) bool {
	if !strings.HasPrefix(key, constants.APIKeyPrefix) {
		return false
	}
	return len(key) > len(constants.APIKeyPrefix)+16
}

func b64url(data []byte) string {
	return strings.TrimRight(base64.URLEncoding.EncodeToString(data), "=")
}
