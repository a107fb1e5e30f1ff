package domain

import (
	"time"

	"prepmaster/backend/internal/otp"
	"prepmaster/backend/internal/security"
)

// Default challenge lifetimes.
const (
	DefaultOTPTTL               = 10 * time.Minute
	DefaultEmailVerificationTTL = 24 * time.Hour
)

// IssueOTP attaches a new OTP challenge, replacing any previous one. codeHash is
// the hash of the code sent to the user; the code itself is never stored.
func IssueOTP(i Identity, codeHash string, ttl time.Duration, now time.Time) (Identity, []Mutation) {
	exp := now.Add(ttl)
	muts := []Mutation{SetOTPHash(codeHash), SetOTPExpires(&exp)}
	return Apply(i, muts...), muts
}

// VerifyOTP checks code against the stored challenge. The challenge must exist,
// match and expire strictly after now. On success the identity is marked
// verified and the OTP fields are cleared, so a second call with the same code
// fails. ok is false with no mutations otherwise.
func VerifyOTP(i Identity, code string, now time.Time) (next Identity, muts []Mutation, ok bool) {
	if i.OTPHash == "" || i.OTPExpires == nil || !i.OTPExpires.After(now) {
		return i, nil, false
	}
	if !otp.Equal(code, i.OTPHash) {
		return i, nil, false
	}
	muts = []Mutation{SetEmailVerified(true), SetOTPHash(""), SetOTPExpires(nil)}
	return Apply(i, muts...), muts, true
}

// IssueEmailVerification attaches a verification-link challenge identified by tokenHash.
func IssueEmailVerification(i Identity, tokenHash string, ttl time.Duration, now time.Time) (Identity, []Mutation) {
	exp := now.Add(ttl)
	muts := []Mutation{SetVerificationHash(tokenHash), SetVerificationExpires(&exp)}
	return Apply(i, muts...), muts
}

// VerifyEmailLink consumes the verification-link challenge when the hash of
// rawToken matches and the link has not expired.
func VerifyEmailLink(i Identity, rawToken string, now time.Time) (next Identity, muts []Mutation, ok bool) {
	if rawToken == "" || i.EmailVerificationExpires == nil || !i.EmailVerificationExpires.After(now) {
		return i, nil, false
	}
	if !security.TokenHashEqual(rawToken, i.EmailVerificationHash) {
		return i, nil, false
	}
	muts = []Mutation{SetEmailVerified(true), SetVerificationHash(""), SetVerificationExpires(nil)}
	return Apply(i, muts...), muts, true
}

// ChangePassword replaces the password hash and stamps the change time, which
// invalidates every session token issued before now.
func ChangePassword(i Identity, passwordHash string, now time.Time) (Identity, []Mutation) {
	muts := []Mutation{SetPasswordHash(passwordHash), SetPasswordChangedAt(now)}
	return Apply(i, muts...), muts
}
