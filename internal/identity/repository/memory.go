package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"prepmaster/backend/internal/identity/domain"
	"prepmaster/backend/internal/platform/rbac"
)

// MemoryRepository is an in-process Repository used when no database is
// configured and in tests. Values are copied in and out.
type MemoryRepository struct {
	mu   sync.RWMutex
	byID map[string]domain.Identity
	nowF func() time.Time
}

// NewMemoryRepository returns an empty MemoryRepository. now may be nil (time.Now is used).
func NewMemoryRepository(now func() time.Time) *MemoryRepository {
	if now == nil {
		now = time.Now
	}
	return &MemoryRepository{byID: make(map[string]domain.Identity), nowF: now}
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*domain.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	return &i, nil
}

func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (*domain.Identity, error) {
	email = domain.NormalizeEmail(email)
	return r.find(func(i domain.Identity) bool { return i.Email == email }), nil
}

func (r *MemoryRepository) GetByVerificationHash(_ context.Context, tokenHash string) (*domain.Identity, error) {
	if tokenHash == "" {
		return nil, nil
	}
	return r.find(func(i domain.Identity) bool { return i.EmailVerificationHash == tokenHash }), nil
}

func (r *MemoryRepository) ExistsWithRole(_ context.Context, role rbac.Role) (bool, error) {
	return r.find(func(i domain.Identity) bool { return i.Role == role }) != nil, nil
}

// Create enforces the same uniqueness rules as the database schema.
func (r *MemoryRepository) Create(_ context.Context, i *domain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	email := domain.NormalizeEmail(i.Email)
	for _, existing := range r.byID {
		if existing.Email == email {
			return ErrEmailTaken
		}
		if i.Role == rbac.RoleSuperAdmin && existing.Role == rbac.RoleSuperAdmin {
			return ErrSuperAdminExists
		}
		if (i.StudentID != "" && existing.StudentID == i.StudentID) || (i.StaffID != "" && existing.StaffID == i.StaffID) {
			return ErrIdentifierTaken
		}
	}
	c := *i
	c.Email = email
	r.byID[c.ID] = c
	return nil
}

// Update applies muts under the write lock. A missing id is a no-op, like an UPDATE matching no rows.
func (r *MemoryRepository) Update(_ context.Context, id string, muts ...domain.Mutation) error {
	if len(muts) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byID[id]
	if !ok {
		return nil
	}
	i = domain.Apply(i, muts...)
	i.UpdatedAt = r.nowF().UTC()
	r.byID[id] = i
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return false, nil
	}
	delete(r.byID, id)
	return true, nil
}

func (r *MemoryRepository) List(_ context.Context, f ListFilter) ([]domain.Identity, int, error) {
	r.mu.RLock()
	var matched []domain.Identity
	for _, i := range r.byID {
		if f.Role != "" && i.Role != f.Role {
			continue
		}
		if f.Department != "" && i.Department != f.Department {
			continue
		}
		matched = append(matched, i)
	}
	r.mu.RUnlock()
	sort.Slice(matched, func(a, b int) bool {
		if matched[a].CreatedAt.Equal(matched[b].CreatedAt) {
			return matched[a].ID > matched[b].ID
		}
		return matched[a].CreatedAt.After(matched[b].CreatedAt)
	})
	total := len(matched)
	limit := f.Limit
	if limit <= 0 {
		limit = 10
	}
	if f.Offset >= total {
		return nil, total, nil
	}
	end := f.Offset + limit
	if end > total {
		end = total
	}
	return matched[f.Offset:end], total, nil
}

func (r *MemoryRepository) CountByRole(_ context.Context) ([]RoleStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := map[rbac.Role]*RoleStats{}
	for _, i := range r.byID {
		s, ok := counts[i.Role]
		if !ok {
			s = &RoleStats{Role: i.Role}
			counts[i.Role] = s
		}
		s.Total++
		if i.EmailVerified {
			s.Verified++
		}
	}
	var out []RoleStats
	for _, role := range rbac.Roles {
		if s, ok := counts[role]; ok {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *MemoryRepository) find(match func(domain.Identity) bool) *domain.Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, i := range r.byID {
		if match(i) {
			c := i
			return &c
		}
	}
	return nil
}
