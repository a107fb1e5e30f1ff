package domain

import "time"

// AuditLog represents an audit event. IdentityID is empty for events without an
// authenticated actor (e.g. a failed login for an unknown email).
type AuditLog struct {
	ID         string
	IdentityID string
	Action     string
	Resource   string
	IP         string
	Metadata   string
	CreatedAt  time.Time
}
