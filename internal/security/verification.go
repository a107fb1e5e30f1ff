package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

const verificationTokenBytes = 32

// NewVerificationToken returns a random 32-byte hex token and its SHA-256 hash.
// Only the hash is persisted; the raw token goes into the emailed link.
func NewVerificationToken() (raw, hash string, err error) {
	b := make([]byte, verificationTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(b)
	return raw, HashToken(raw), nil
}

// HashToken returns a SHA-256 hash of token, hex-encoded.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// TokenHashEqual performs constant-time comparison of the provided token's hash
// with the stored hash. Returns false when storedHash is empty.
func TokenHashEqual(providedToken, storedHash string) bool {
	if storedHash == "" {
		return false
	}
	providedHash := HashToken(providedToken)
	return subtle.ConstantTimeCompare([]byte(providedHash), []byte(storedHash)) == 1
}
