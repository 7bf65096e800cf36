package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// TokenBytes is the entropy of an access token. 32 bytes gives 256 bits.
const TokenBytes = 32

// GenerateToken returns a hex-encoded random token of TokenBytes bytes.
func GenerateToken() (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// WellFormedToken reports whether s has the shape produced by GenerateToken.
func WellFormedToken(s string) bool {
	if len(s) != TokenBytes*2 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}

// HashToken returns the hex blake2b-256 digest stored in place of the token.
func HashToken(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Digest is HashToken for arbitrary payloads, used as a cache key.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
