package domain

import "time"

// Default lockout settings.
const (
	DefaultLockoutThreshold = 5
	DefaultLockoutDuration  = 30 * time.Minute
)

// LockoutPolicy tracks failed logins and temporary lock windows. Its methods are
// pure: they return the next Identity and the mutations a store must persist.
type LockoutPolicy struct {
	Threshold int
	Duration  time.Duration
}

// DefaultLockoutPolicy returns a policy locking for 30 minutes after 5 failures.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{Threshold: DefaultLockoutThreshold, Duration: DefaultLockoutDuration}
}

func (p LockoutPolicy) threshold() int {
	if p.Threshold <= 0 {
		return DefaultLockoutThreshold
	}
	return p.Threshold
}

func (p LockoutPolicy) duration() time.Duration {
	if p.Duration <= 0 {
		return DefaultLockoutDuration
	}
	return p.Duration
}

// IsLocked reports whether i is inside an unexpired lock window at now.
func (p LockoutPolicy) IsLocked(i Identity, now time.Time) bool {
	return i.IsLocked(now)
}

// RegisterFailure records a failed login. An expired lock resets the counter to 1
// and clears the lock; otherwise the counter is incremented and the identity is
// locked once it reaches the threshold. locked reports whether this failure
// started a new lock window.
func (p LockoutPolicy) RegisterFailure(i Identity, now time.Time) (next Identity, muts []Mutation, locked bool) {
	if i.LockUntil != nil && !i.LockUntil.After(now) {
		muts = []Mutation{SetLoginAttempts(1), SetLockUntil(nil)}
		return Apply(i, muts...), muts, false
	}
	attempts := i.LoginAttempts + 1
	muts = []Mutation{SetLoginAttempts(attempts)}
	if attempts >= p.threshold() && !i.IsLocked(now) {
		until := now.Add(p.duration())
		muts = append(muts, SetLockUntil(&until))
		locked = true
	}
	return Apply(i, muts...), muts, locked
}

// RegisterSuccess resets the counter, clears any lock and stamps the login time.
func (p LockoutPolicy) RegisterSuccess(i Identity, now time.Time) (Identity, []Mutation) {
	muts := []Mutation{SetLoginAttempts(0), SetLockUntil(nil), SetLastLogin(now)}
	return Apply(i, muts...), muts
}
