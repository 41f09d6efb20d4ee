package trial

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// tokenBytes is the entropy of an issued trial token. 32 random bytes makes
// tokens unguessable bearer credentials.
const tokenBytes = 32

// generateToken returns a new opaque trial token sourced from the
// cryptographically secure random generator.
func generateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate trial token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashOrigin returns a salted one-way hash of the caller's network origin.
// The raw origin is never stored; the hash is enough to correlate abuse
// across tokens.
func HashOrigin(salt, origin string) string {
	sum := sha256.Sum256([]byte(salt + origin))
	return hex.EncodeToString(sum[:])
}
