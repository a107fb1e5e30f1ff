package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"prepmaster/backend/internal/question/domain"
)

const questionColumns = `id, title, description, category, difficulty, options, created_by, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a question repository backed by db. Options are stored as JSONB.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the question for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Question, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, id)
	q, err := scanQuestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return q, err
}

func (r *PostgresRepository) Create(ctx context.Context, q *domain.Question) error {
	opts, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO questions (`+questionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		q.ID, q.Title, q.Description, q.Category, string(q.Difficulty), opts, q.CreatedBy, q.CreatedAt, q.UpdatedAt,
	)
	return err
}

func (r *PostgresRepository) Update(ctx context.Context, q *domain.Question) (bool, error) {
	opts, err := json.Marshal(q.Options)
	if err != nil {
		return false, fmt.Errorf("encode options: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `UPDATE questions
		SET title = $2, description = $3, category = $4, difficulty = $5, options = $6, updated_at = $7
		WHERE id = $1`,
		q.ID, q.Title, q.Description, q.Category, string(q.Difficulty), opts, q.UpdatedAt,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *PostgresRepository) DeleteByCreator(ctx context.Context, creatorID string) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM questions WHERE created_by = $1`, creatorID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// List returns one page of questions newest first and the total matching count.
func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]domain.Question, int, error) {
	var (
		conds []string
		args  []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if f.Category != "" {
		add("category", f.Category)
	}
	if f.Difficulty != "" {
		add("difficulty", string(f.Difficulty))
	}
	if f.CreatedBy != "" {
		add("created_by", f.CreatedBy)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM questions`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 10
	}
	page := append(args, limit, f.Offset)
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM questions%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		questionColumns, where, len(args)+1, len(args)+2), page...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []domain.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *q)
	}
	return out, total, rows.Err()
}

// Stats counts questions by category and by difficulty.
func (r *PostgresRepository) Stats(ctx context.Context) (Stats, error) {
	st := Stats{ByCategory: map[string]int{}, ByDifficulty: map[domain.Difficulty]int{}}
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM questions`).Scan(&st.Total); err != nil {
		return Stats{}, err
	}
	if err := r.groupCount(ctx, "category", func(k string, n int) { st.ByCategory[k] = n }); err != nil {
		return Stats{}, err
	}
	if err := r.groupCount(ctx, "difficulty", func(k string, n int) { st.ByDifficulty[domain.Difficulty(k)] = n }); err != nil {
		return Stats{}, err
	}
	return st, nil
}

func (r *PostgresRepository) groupCount(ctx context.Context, col string, set func(string, int)) error {
	rows, err := r.db.QueryContext(ctx, `SELECT `+col+`, count(*) FROM questions GROUP BY `+col+` ORDER BY `+col)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			k string
			n int
		)
		if err := rows.Scan(&k, &n); err != nil {
			return err
		}
		set(k, n)
	}
	return rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanQuestion(s scanner) (*domain.Question, error) {
	var (
		q          domain.Question
		difficulty string
		opts       []byte
	)
	if err := s.Scan(&q.ID, &q.Title, &q.Description, &q.Category, &difficulty, &opts, &q.CreatedBy, &q.CreatedAt, &q.UpdatedAt); err != nil {
		return nil, err
	}
	q.Difficulty = domain.Difficulty(difficulty)
	if err := json.Unmarshal(opts, &q.Options); err != nil {
		return nil, fmt.Errorf("decode options of question %s: %w", q.ID, err)
	}
	return &q, nil
}
