// Package access implements the per-request access chain: authenticate a
// bearer token, authorize by role, check a permission, and check resource
// ownership. Every stage returns a Decision; transports map a denial to a status.
package access

import (
	"prepmaster/backend/internal/platform/apperr"
)

// Stage names the chain stage that produced a Decision. Used as a metric label.
type Stage string

const (
	StageAuthenticate Stage = "authenticate"
	StageAuthorize    Stage = "authorize"
	StagePermission   Stage = "permission"
	StageOwnership    Stage = "ownership"
)

// Decision is the outcome of one stage. The zero value denies with an
// Unauthenticated reason so a forgotten assignment fails closed.
type Decision struct {
	allowed bool
	stage   Stage
	reason  error
	message string
}

// Allow returns an allowing decision.
func Allow() Decision { return Decision{allowed: true} }

// Deny returns a denial from stage. reason is one of the apperr kinds.
func Deny(stage Stage, reason error, message string) Decision {
	return Decision{stage: stage, reason: reason, message: message}
}

// Allowed reports whether the request may continue.
func (d Decision) Allowed() bool { return d.allowed }

// Stage returns the denying stage, or "" for an allow.
func (d Decision) Stage() Stage { return d.stage }

// Reason returns the apperr kind of a denial, or nil for an allow.
func (d Decision) Reason() error {
	if d.allowed {
		return nil
	}
	if d.reason == nil {
		return apperr.ErrUnauthenticated
	}
	return d.reason
}

// Err converts a denial into an *apperr.Error; nil when allowed.
func (d Decision) Err() error {
	if d.allowed {
		return nil
	}
	msg := d.message
	if msg == "" {
		msg = msgNotLoggedIn
	}
	return apperr.New(d.Reason(), msg)
}

const (
	msgNotLoggedIn      = "Please log in to access this resource"
	msgInvalidToken     = "Invalid token"
	msgExpiredToken     = "Your token has expired. Please log in again"
	msgUserGone         = "The user belonging to this token no longer exists"
	msgPasswordChanged  = "User recently changed password. Please log in again"
	msgLocked           = "Account is temporarily locked. Please try again later"
	msgDeactivated      = "Your account has been deactivated"
	msgNoPermission     = "You do not have permission to perform this action"
	msgResourceNotFound = "Resource not found"
	msgNotResourceOwner = "You do not have permission to access this resource"
)
