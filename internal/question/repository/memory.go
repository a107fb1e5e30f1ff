package repository

import (
	"context"
	"sort"
	"sync"

	"prepmaster/backend/internal/question/domain"
)

// MemoryRepository is an in-process Repository for tests and database-less runs.
type MemoryRepository struct {
	mu   sync.RWMutex
	byID map[string]domain.Question
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[string]domain.Question)}
}

func clone(q domain.Question) domain.Question {
	q.Options = append([]domain.Option(nil), q.Options...)
	return q
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*domain.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	c := clone(q)
	return &c, nil
}

func (r *MemoryRepository) Create(_ context.Context, q *domain.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[q.ID] = clone(*q)
	return nil
}

func (r *MemoryRepository) Update(_ context.Context, q *domain.Question) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[q.ID]
	if !ok {
		return false, nil
	}
	next := clone(*q)
	next.CreatedBy = cur.CreatedBy
	next.CreatedAt = cur.CreatedAt
	r.byID[q.ID] = next
	return true, nil
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

func (r *MemoryRepository) DeleteByCreator(_ context.Context, creatorID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, q := range r.byID {
		if q.CreatedBy == creatorID {
			delete(r.byID, id)
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) List(_ context.Context, f Filter) ([]domain.Question, int, error) {
	r.mu.RLock()
	var matched []domain.Question
	for _, q := range r.byID {
		if f.Category != "" && q.Category != f.Category {
			continue
		}
		if f.Difficulty != "" && q.Difficulty != f.Difficulty {
			continue
		}
		if f.CreatedBy != "" && q.CreatedBy != f.CreatedBy {
			continue
		}
		matched = append(matched, clone(q))
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

func (r *MemoryRepository) Stats(_ context.Context) (Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st := Stats{Total: len(r.byID), ByCategory: map[string]int{}, ByDifficulty: map[domain.Difficulty]int{}}
	for _, q := range r.byID {
		st.ByCategory[q.Category]++
		st.ByDifficulty[q.Difficulty]++
	}
	return st, nil
}
