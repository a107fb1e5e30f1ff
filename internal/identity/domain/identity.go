package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"prepmaster/backend/internal/platform/rbac"
)

// Identity is a user account with its role and credential state.
// Secret fields (PasswordHash, OTPHash, EmailVerificationHash) are never serialized.
type Identity struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Role         rbac.Role

	StudentID  string
	StaffID    string
	Department string
	YearLevel  int

	EmailVerified bool
	Active        bool

	OTPHash    string
	OTPExpires *time.Time

	EmailVerificationHash    string
	EmailVerificationExpires *time.Time

	LoginAttempts int
	LockUntil     *time.Time
	LastLogin     *time.Time

	PasswordChangedAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// NormalizeEmail trims and lowercases email. Emails are compared in this form everywhere.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate validates the identity for persistence. Returns an error describing the first validation failure.
func (i *Identity) Validate() error {
	if i.Email == "" {
		return errors.New("email is required")
	}
	if !emailPattern.MatchString(i.Email) {
		return errors.New("invalid email format")
	}
	if len(strings.TrimSpace(i.Name)) < 2 {
		return errors.New("name must be at least 2 characters")
	}
	if !i.Role.Valid() {
		return errors.New("invalid role")
	}
	if i.YearLevel != 0 && (i.YearLevel < 1 || i.YearLevel > 5) {
		return errors.New("year level must be between 1 and 5")
	}
	return nil
}

// IsLocked reports whether the lock window is still open at now.
func (i *Identity) IsLocked(now time.Time) bool {
	return i.LockUntil != nil && i.LockUntil.After(now)
}

// PasswordChangedAfter reports whether the password was changed after a token
// issued at issuedAt. Both sides are compared at microsecond precision, the
// precision of token issue times and of the stored change time.
func (i *Identity) PasswordChangedAfter(issuedAt time.Time) bool {
	if i.PasswordChangedAt == nil {
		return false
	}
	return i.PasswordChangedAt.Truncate(time.Microsecond).After(issuedAt.Truncate(time.Microsecond))
}

// Public returns a copy with every secret and challenge field cleared.
func (i Identity) Public() Identity {
	i.PasswordHash = ""
	i.OTPHash = ""
	i.OTPExpires = nil
	i.EmailVerificationHash = ""
	i.EmailVerificationExpires = nil
	return i
}
