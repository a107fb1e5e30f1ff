package repository

import (
	"context"
	"errors"

	"prepmaster/backend/internal/identity/domain"
	"prepmaster/backend/internal/platform/rbac"
)

var (
	// ErrEmailTaken is returned by Create when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrSuperAdminExists is returned by Create when a second super_admin is inserted.
	ErrSuperAdminExists = errors.New("super admin already exists")
	// ErrIdentifierTaken is returned by Create when the student or staff id is already in use.
	ErrIdentifierTaken = errors.New("student or staff id already registered")
)

// ListFilter selects identities for admin listings. Empty fields do not filter.
type ListFilter struct {
	Role       rbac.Role
	Department string
	Offset     int
	Limit      int
}

// RoleStats is the per-role account count used by the statistics endpoint.
type RoleStats struct {
	Role     rbac.Role
	Total    int
	Verified int
}

// Repository defines persistence for identities. Lookups return nil, nil when
// no row matches; errors are reserved for storage failures.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Identity, error)
	GetByEmail(ctx context.Context, email string) (*domain.Identity, error)
	GetByVerificationHash(ctx context.Context, tokenHash string) (*domain.Identity, error)
	ExistsWithRole(ctx context.Context, role rbac.Role) (bool, error)
	Create(ctx context.Context, i *domain.Identity) error
	// Update applies muts to the identity with id as a single atomic write.
	Update(ctx context.Context, id string, muts ...domain.Mutation) error
	// Delete removes the identity and reports whether a row existed.
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, f ListFilter) ([]domain.Identity, int, error)
	CountByRole(ctx context.Context) ([]RoleStats, error)
}
