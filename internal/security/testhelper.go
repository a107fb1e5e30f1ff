package security

import "time"

// testSecret is the HMAC secret used by NewTestTokenCodec. For unit tests only.
const testSecret = "test-secret-do-not-use-in-production"

// NewTestTokenCodec returns a TokenCodec with a fixed test secret, a 24h TTL and the given clock.
// For unit tests only. Callers must not use in production.
func NewTestTokenCodec(now func() time.Time) *TokenCodec {
	return NewTokenCodec([]byte(testSecret), "test-issuer", 24*time.Hour, now)
}
