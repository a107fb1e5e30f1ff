// Package otp generates and checks numeric one-time codes.
package otp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
)

const (
	// Digits is the length of every generated code.
	Digits = 6

	minCode = 100000
	maxCode = 999999
)

// Generator produces one-time codes. Tests swap in Static.
type Generator interface {
	Generate() (string, error)
}

// RandomGenerator draws codes uniformly from 100000..999999 using crypto/rand.
type RandomGenerator struct{}

// Generate returns a 6-digit numeric code (e.g. "123456").
func (RandomGenerator) Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(maxCode-minCode+1))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+minCode), nil
}

// Static always returns the same code.
type Static string

// Generate returns s.
func (s Static) Generate() (string, error) { return string(s), nil }

// Hash returns a SHA-256 hash of the code string, hex-encoded.
func Hash(code string) string {
	h := sha256.Sum256([]byte(code))
	return hex.EncodeToString(h[:])
}

// Equal performs constant-time comparison of the provided code's hash with the stored hash.
// An empty stored hash or a code of the wrong shape never matches.
func Equal(providedCode, storedHash string) bool {
	if storedHash == "" || !WellFormed(providedCode) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(Hash(providedCode)), []byte(storedHash)) == 1
}

// WellFormed reports whether code is exactly Digits ASCII digits.
func WellFormed(code string) bool {
	if len(code) != Digits {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
