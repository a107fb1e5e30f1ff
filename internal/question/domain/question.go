package domain

import (
	"errors"
	"strings"
	"time"
)

// Difficulty is the question difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is one of the known levels.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	default:
		return false
	}
}

// Option is one answer choice.
type Option struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// Question is a multiple-choice question owned by the identity that created it.
type Question struct {
	ID          string
	Title       string
	Description string
	Category    string
	Difficulty  Difficulty
	Options     []Option
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OwnerID returns the creating identity.
func (q *Question) OwnerID() string { return q.CreatedBy }

// Normalize trims text fields and defaults the difficulty to medium.
func (q *Question) Normalize() {
	q.Title = strings.TrimSpace(q.Title)
	q.Description = strings.TrimSpace(q.Description)
	q.Category = strings.TrimSpace(q.Category)
	if q.Difficulty == "" {
		q.Difficulty = DifficultyMedium
	}
	for k := range q.Options {
		q.Options[k].Text = strings.TrimSpace(q.Options[k].Text)
	}
}

// Validate returns an error describing the first validation failure.
func (q *Question) Validate() error {
	if q.Title == "" {
		return errors.New("question title is required")
	}
	if q.Category == "" {
		return errors.New("question category is required")
	}
	if !q.Difficulty.Valid() {
		return errors.New("difficulty must be easy, medium or hard")
	}
	if len(q.Options) < 2 {
		return errors.New("at least two options are required")
	}
	correct := false
	for _, o := range q.Options {
		if o.Text == "" {
			return errors.New("option text is required")
		}
		correct = correct || o.IsCorrect
	}
	if !correct {
		return errors.New("at least one correct answer must be provided")
	}
	return nil
}

// CorrectIndexes returns the indexes of the correct options in order.
func (q *Question) CorrectIndexes() []int {
	var out []int
	for k, o := range q.Options {
		if o.IsCorrect {
			out = append(out, k)
		}
	}
	return out
}

// Check reports whether selected names exactly the set of correct options.
// Duplicates are ignored; an out-of-range index makes the answer wrong.
func (q *Question) Check(selected []int) bool {
	chosen := make(map[int]bool, len(selected))
	for _, k := range selected {
		if k < 0 || k >= len(q.Options) {
			return false
		}
		chosen[k] = true
	}
	correct := q.CorrectIndexes()
	if len(chosen) != len(correct) {
		return false
	}
	for _, k := range correct {
		if !chosen[k] {
			return false
		}
	}
	return true
}
