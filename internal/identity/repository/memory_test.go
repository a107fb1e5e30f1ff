package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"prepmaster/backend/internal/identity/domain"
	"prepmaster/backend/internal/platform/rbac"
)

func newIdentity(id, email string, role rbac.Role, created time.Time) *domain.Identity {
	return &domain.Identity{ID: id, Email: email, Name: "Name " + id, Role: role, Active: true, CreatedAt: created, UpdatedAt: created}
}

func TestMemoryRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository(nil)
	if err := r.Create(ctx, newIdentity("1", "Alice@Example.com", rbac.RoleStudent, time.Now())); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := r.GetByEmail(ctx, "ALICE@example.com ")
	if err != nil || got == nil {
		t.Fatalf("GetByEmail = %v, %v", got, err)
	}
	if got.Email != "alice@example.com" {
		t.Errorf("Email = %q", got.Email)
	}
	missing, err := r.GetByID(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("GetByID missing = %v, %v", missing, err)
	}
}

func TestMemoryRepository_Uniqueness(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository(nil)
	_ = r.Create(ctx, newIdentity("1", "a@example.com", rbac.RoleSuperAdmin, time.Now()))
	if err := r.Create(ctx, newIdentity("2", "A@example.com", rbac.RoleStudent, time.Now())); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate email: want ErrEmailTaken, got %v", err)
	}
	if err := r.Create(ctx, newIdentity("3", "b@example.com", rbac.RoleSuperAdmin, time.Now())); !errors.Is(err, ErrSuperAdminExists) {
		t.Errorf("second super admin: want ErrSuperAdminExists, got %v", err)
	}
	dup := newIdentity("4", "c@example.com", rbac.RoleStudent, time.Now())
	dup.StudentID = "S-1"
	_ = r.Create(ctx, dup)
	again := newIdentity("5", "d@example.com", rbac.RoleStudent, time.Now())
	again.StudentID = "S-1"
	if err := r.Create(ctx, again); !errors.Is(err, ErrIdentifierTaken) {
		t.Errorf("duplicate student id: want ErrIdentifierTaken, got %v", err)
	}
	ok, _ := r.ExistsWithRole(ctx, rbac.RoleSuperAdmin)
	if !ok {
		t.Error("ExistsWithRole(super_admin) = false")
	}
}

func TestMemoryRepository_UpdateAppliesMutations(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := NewMemoryRepository(func() time.Time { return now })
	_ = r.Create(ctx, newIdentity("1", "a@example.com", rbac.RoleStudent, now.Add(-time.Hour)))
	lock := now.Add(30 * time.Minute)
	if err := r.Update(ctx, "1", domain.SetLoginAttempts(5), domain.SetLockUntil(&lock)); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ := r.GetByID(ctx, "1")
	if got.LoginAttempts != 5 || got.LockUntil == nil || !got.LockUntil.Equal(lock) {
		t.Errorf("Update not applied: %+v", got)
	}
	if !got.UpdatedAt.Equal(now) {
		t.Errorf("UpdatedAt = %v", got.UpdatedAt)
	}
	if err := r.Update(ctx, "missing", domain.SetActive(false)); err != nil {
		t.Errorf("Update missing id: %v", err)
	}
}

func TestMemoryRepository_GetByVerificationHash(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository(nil)
	i := newIdentity("1", "a@example.com", rbac.RoleStaff, time.Now())
	i.EmailVerificationHash = "abc"
	_ = r.Create(ctx, i)
	if got, _ := r.GetByVerificationHash(ctx, "abc"); got == nil || got.ID != "1" {
		t.Errorf("GetByVerificationHash = %v", got)
	}
	if got, _ := r.GetByVerificationHash(ctx, ""); got != nil {
		t.Error("empty hash must not match")
	}
}

func TestMemoryRepository_ListAndCount(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository(nil)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for k := 0; k < 12; k++ {
		role := rbac.RoleStudent
		if k%4 == 0 {
			role = rbac.RoleStaff
		}
		i := newIdentity(fmt.Sprintf("%02d", k), fmt.Sprintf("u%d@example.com", k), role, base.Add(time.Duration(k)*time.Hour))
		i.EmailVerified = k%2 == 0
		_ = r.Create(ctx, i)
	}

	page, total, err := r.List(ctx, ListFilter{Limit: 5})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 12 || len(page) != 5 || page[0].ID != "11" {
		t.Errorf("List page 1: total=%d len=%d first=%v", total, len(page), page[0].ID)
	}
	page, _, _ = r.List(ctx, ListFilter{Offset: 10, Limit: 5})
	if len(page) != 2 {
		t.Errorf("last page len = %d, want 2", len(page))
	}
	staff, total, _ := r.List(ctx, ListFilter{Role: rbac.RoleStaff})
	if total != 3 || len(staff) != 3 {
		t.Errorf("staff filter: total=%d len=%d", total, len(staff))
	}

	stats, _ := r.CountByRole(ctx)
	if len(stats) != 2 {
		t.Fatalf("CountByRole = %+v", stats)
	}
	if stats[0].Role != rbac.RoleStudent || stats[0].Total != 9 || stats[0].Verified != 3 {
		t.Errorf("student stats = %+v", stats[0])
	}
	if stats[1].Role != rbac.RoleStaff || stats[1].Total != 3 || stats[1].Verified != 3 {
		t.Errorf("staff stats = %+v", stats[1])
	}
}

func TestMemoryRepository_Delete(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository(nil)
	_ = r.Create(ctx, newIdentity("1", "a@example.com", rbac.RoleStudent, time.Now()))

	if ok, err := r.Delete(ctx, "1"); err != nil || !ok {
		t.Fatalf("Delete = %v, %v", ok, err)
	}
	if ok, _ := r.Delete(ctx, "1"); ok {
		t.Error("second delete must report no row")
	}
	if got, _ := r.GetByEmail(ctx, "a@example.com"); got != nil {
		t.Errorf("deleted identity still found: %+v", got)
	}
	if err := r.Create(ctx, newIdentity("2", "a@example.com", rbac.RoleStudent, time.Now())); err != nil {
		t.Errorf("email must be reusable after delete: %v", err)
	}
}
