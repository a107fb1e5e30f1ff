package repository

import (
	"context"

	"prepmaster/backend/internal/question/domain"
)

// Filter narrows a question listing. Zero fields do not filter.
type Filter struct {
	Category   string
	Difficulty domain.Difficulty
	CreatedBy  string
	Offset     int
	Limit      int
}

// Stats are question counts for the admin dashboard.
type Stats struct {
	Total        int                       `json:"totalQuestions"`
	ByCategory   map[string]int            `json:"byCategory"`
	ByDifficulty map[domain.Difficulty]int `json:"byDifficulty"`
}

// Repository persists questions. Get returns nil, nil when the question does not exist.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Question, error)
	Create(ctx context.Context, q *domain.Question) error
	// Update replaces the editable fields of q and its updated_at. It reports false when no row matched.
	Update(ctx context.Context, q *domain.Question) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	// DeleteByCreator removes every question created by creatorID and returns how many.
	DeleteByCreator(ctx context.Context, creatorID string) (int, error)
	List(ctx context.Context, f Filter) ([]domain.Question, int, error)
	Stats(ctx context.Context) (Stats, error)
}
