package repository

import (
	"context"

	"prepmaster/backend/internal/audit/domain"
)

// Filter narrows audit log listings. Empty fields do not filter.
type Filter struct {
	IdentityID string
	Action     string
	Limit      int
	Offset     int
}

// Repository defines persistence for audit logs.
type Repository interface {
	Create(ctx context.Context, a *domain.AuditLog) error
	List(ctx context.Context, f Filter) ([]*domain.AuditLog, error)
}
