package repository

import (
	"context"
	"sort"
	"sync"

	"prepmaster/backend/internal/audit/domain"
)

// MemoryRepository keeps audit logs in process memory. Used when no database is configured.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries []domain.AuditLog
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Create(_ context.Context, a *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *a)
	return nil
}

// List returns matching entries newest first.
func (r *MemoryRepository) List(_ context.Context, f Filter) ([]*domain.AuditLog, error) {
	r.mu.RLock()
	var matched []domain.AuditLog
	for _, a := range r.entries {
		if f.IdentityID != "" && a.IdentityID != f.IdentityID {
			continue
		}
		if f.Action != "" && a.Action != f.Action {
			continue
		}
		matched = append(matched, a)
	}
	r.mu.RUnlock()
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	out := make([]*domain.AuditLog, 0)
	for k := f.Offset; k < len(matched) && len(out) < limit; k++ {
		a := matched[k]
		out = append(out, &a)
	}
	return out, nil
}
