package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"prepmaster/backend/internal/access"
	"prepmaster/backend/internal/platform/apperr"
	"prepmaster/backend/internal/question/domain"
	"prepmaster/backend/internal/question/repository"
)

const msgNotFound = "Question not found"

// Input is the caller-supplied content of a new question.
type Input struct {
	Title       string
	Description string
	Category    string
	Difficulty  domain.Difficulty
	Options     []domain.Option
}

// Patch holds the fields to change. Nil fields are left unchanged.
type Patch struct {
	Title       *string
	Description *string
	Category    *string
	Difficulty  *domain.Difficulty
	Options     []domain.Option
}

// Attempt is the graded result of a student's answer.
type Attempt struct {
	QuestionID string `json:"questionId"`
	Correct    bool   `json:"correct"`
}

// QuestionService manages the question bank and grades attempts.
type QuestionService struct {
	repo repository.Repository
	now  func() time.Time
}

// NewQuestionService returns a QuestionService. now may be nil.
func NewQuestionService(repo repository.Repository, now func() time.Time) *QuestionService {
	if now == nil {
		now = time.Now
	}
	return &QuestionService{repo: repo, now: now}
}

// Load returns the question as an access.Owned for the ownership check.
func (s *QuestionService) Load(ctx context.Context, id string) (access.Owned, error) {
	q, err := s.repo.GetByID(ctx, id)
	if err != nil || q == nil {
		return nil, err
	}
	return q, nil
}

func (s *QuestionService) Get(ctx context.Context, id string) (*domain.Question, error) {
	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, apperr.NotFound(msgNotFound)
	}
	return q, nil
}

func (s *QuestionService) List(ctx context.Context, f repository.Filter) ([]domain.Question, int, error) {
	if f.Difficulty != "" && !f.Difficulty.Valid() {
		return nil, 0, apperr.Validation("difficulty must be easy, medium or hard")
	}
	return s.repo.List(ctx, f)
}

// Create stores a new question owned by createdBy.
func (s *QuestionService) Create(ctx context.Context, createdBy string, in Input) (*domain.Question, error) {
	now := s.now().UTC()
	q := &domain.Question{
		ID:          uuid.New().String(),
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Difficulty:  in.Difficulty,
		Options:     in.Options,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	q.Normalize()
	if err := q.Validate(); err != nil {
		return nil, apperr.Validation(err.Error())
	}
	if err := s.repo.Create(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// Update applies p and validates the result as a whole.
func (s *QuestionService) Update(ctx context.Context, id string, p Patch) (*domain.Question, error) {
	q, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Title != nil {
		q.Title = *p.Title
	}
	if p.Description != nil {
		q.Description = *p.Description
	}
	if p.Category != nil {
		q.Category = *p.Category
	}
	if p.Difficulty != nil {
		q.Difficulty = *p.Difficulty
	}
	if p.Options != nil {
		q.Options = p.Options
	}
	q.Normalize()
	if err := q.Validate(); err != nil {
		return nil, apperr.Validation(err.Error())
	}
	q.UpdatedAt = s.now().UTC()
	ok, err := s.repo.Update(ctx, q)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound(msgNotFound)
	}
	return q, nil
}

func (s *QuestionService) Delete(ctx context.Context, id string) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound(msgNotFound)
	}
	return nil
}

// Attempt grades the selected option indexes. An answer is correct when it
// selects exactly the correct options.
func (s *QuestionService) Attempt(ctx context.Context, id string, selected []int) (*Attempt, error) {
	if len(selected) == 0 {
		return nil, apperr.Validation("at least one option must be selected")
	}
	q, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Attempt{QuestionID: q.ID, Correct: q.Check(selected)}, nil
}

func (s *QuestionService) Stats(ctx context.Context) (repository.Stats, error) {
	return s.repo.Stats(ctx)
}
