package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"prepmaster/backend/internal/identity/domain"
	"prepmaster/backend/internal/platform/rbac"
)

const (
	pgUniqueViolation    = "23505"
	superAdminConstraint = "identities_single_super_admin"
	emailConstraint      = "identities_email_key"
	identityColumns      = `id, email, password_hash, name, role, student_id, staff_id, department, year_level,
	is_email_verified, is_active, otp_code, otp_expires, email_verification_token, email_verification_expires,
	login_attempts, lock_until, last_login, password_changed_at, created_at, updated_at`
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an identity repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the identity for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	return r.getOne(ctx, `SELECT `+identityColumns+` FROM identities WHERE id = $1`, id)
}

// GetByEmail returns the identity with the given email (compared lowercased), or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	return r.getOne(ctx, `SELECT `+identityColumns+` FROM identities WHERE email = $1`, domain.NormalizeEmail(email))
}

// GetByVerificationHash returns the identity holding the verification-link hash, or nil if not found.
func (r *PostgresRepository) GetByVerificationHash(ctx context.Context, tokenHash string) (*domain.Identity, error) {
	if tokenHash == "" {
		return nil, nil
	}
	return r.getOne(ctx, `SELECT `+identityColumns+` FROM identities WHERE email_verification_token = $1`, tokenHash)
}

// ExistsWithRole reports whether any identity holds role.
func (r *PostgresRepository) ExistsWithRole(ctx context.Context, role rbac.Role) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM identities WHERE role = $1)`, string(role)).Scan(&exists)
	return exists, err
}

// Create persists the identity. The identity must have ID set; it is not assigned by this method.
func (r *PostgresRepository) Create(ctx context.Context, i *domain.Identity) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO identities (`+identityColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		i.ID, domain.NormalizeEmail(i.Email), i.PasswordHash, i.Name, string(i.Role),
		nullString(i.StudentID), nullString(i.StaffID), nullString(i.Department), nullInt(i.YearLevel),
		i.EmailVerified, i.Active, nullString(i.OTPHash), nullTime(i.OTPExpires),
		nullString(i.EmailVerificationHash), nullTime(i.EmailVerificationExpires),
		i.LoginAttempts, nullTime(i.LockUntil), nullTime(i.LastLogin), nullTime(i.PasswordChangedAt),
		i.CreatedAt, i.UpdatedAt,
	)
	return mapUniqueViolation(err)
}

// Update writes muts in one UPDATE statement and bumps updated_at. An empty mutation list is a no-op.
func (r *PostgresRepository) Update(ctx context.Context, id string, muts ...domain.Mutation) error {
	if len(muts) == 0 {
		return nil
	}
	query, args, err := buildUpdate(id, time.Now().UTC(), muts)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

// Delete removes the identity. Its questions go with it (ON DELETE CASCADE).
func (r *PostgresRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM identities WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// List returns one page of identities newest first, plus the total matching count.
func (r *PostgresRepository) List(ctx context.Context, f ListFilter) ([]domain.Identity, int, error) {
	where, args := listWhere(f)
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM identities`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 10
	}
	page := append(args, limit, f.Offset)
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM identities%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		identityColumns, where, len(args)+1, len(args)+2), page...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []domain.Identity
	for rows.Next() {
		i, err := scanIdentity(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *i)
	}
	return out, total, rows.Err()
}

// CountByRole returns total and verified counts per role.
func (r *PostgresRepository) CountByRole(ctx context.Context) ([]RoleStats, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT role, count(*), count(*) FILTER (WHERE is_email_verified)
		FROM identities GROUP BY role ORDER BY role`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RoleStats
	for rows.Next() {
		var (
			s    RoleStats
			role string
		)
		if err := rows.Scan(&role, &s.Total, &s.Verified); err != nil {
			return nil, err
		}
		s.Role = rbac.Role(role)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*domain.Identity, error) {
	i, err := scanIdentity(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return i, nil
}

func listWhere(f ListFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Role != "" {
		args = append(args, string(f.Role))
		conds = append(conds, fmt.Sprintf("role = $%d", len(args)))
	}
	if f.Department != "" {
		args = append(args, f.Department)
		conds = append(conds, fmt.Sprintf("department = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// buildUpdate turns mutations into "UPDATE identities SET ... WHERE id = $1".
// Later mutations of the same field win.
func buildUpdate(id string, now time.Time, muts []domain.Mutation) (string, []any, error) {
	args := []any{id}
	index := map[domain.Field]int{}
	var sets []string
	for _, m := range muts {
		v, err := columnValue(m)
		if err != nil {
			return "", nil, err
		}
		if pos, ok := index[m.Field]; ok {
			args[pos] = v
			continue
		}
		args = append(args, v)
		index[m.Field] = len(args) - 1
		sets = append(sets, fmt.Sprintf("%s = $%d", m.Field, len(args)))
	}
	args = append(args, now)
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))
	return "UPDATE identities SET " + strings.Join(sets, ", ") + " WHERE id = $1", args, nil
}

func columnValue(m domain.Mutation) (any, error) {
	switch v := m.Value.(type) {
	case *time.Time:
		return nullTime(v), nil
	case string:
		switch m.Field {
		case domain.FieldOTPHash, domain.FieldEmailVerificationHash, domain.FieldDepartment:
			return nullString(v), nil
		}
		return v, nil
	case int:
		if m.Field == domain.FieldYearLevel {
			return nullInt(v), nil
		}
		return v, nil
	case bool:
		return v, nil
	}
	return nil, fmt.Errorf("identity: unsupported mutation value %T for %s", m.Value, m.Field)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanIdentity(s scanner) (*domain.Identity, error) {
	var (
		i                                       domain.Identity
		role                                    string
		studentID, staffID, department          sql.NullString
		otpHash, verificationHash               sql.NullString
		yearLevel                               sql.NullInt32
		otpExpires, verificationExpires         sql.NullTime
		lockUntil, lastLogin, passwordChangedAt sql.NullTime
	)
	err := s.Scan(&i.ID, &i.Email, &i.PasswordHash, &i.Name, &role, &studentID, &staffID, &department, &yearLevel,
		&i.EmailVerified, &i.Active, &otpHash, &otpExpires, &verificationHash, &verificationExpires,
		&i.LoginAttempts, &lockUntil, &lastLogin, &passwordChangedAt, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return nil, err
	}
	i.Role = rbac.Role(role)
	i.StudentID = studentID.String
	i.StaffID = staffID.String
	i.Department = department.String
	i.YearLevel = int(yearLevel.Int32)
	i.OTPHash = otpHash.String
	i.OTPExpires = timePtr(otpExpires)
	i.EmailVerificationHash = verificationHash.String
	i.EmailVerificationExpires = timePtr(verificationExpires)
	i.LockUntil = timePtr(lockUntil)
	i.LastLogin = timePtr(lastLogin)
	i.PasswordChangedAt = timePtr(passwordChangedAt)
	return &i, nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		switch pgErr.ConstraintName {
		case superAdminConstraint:
			return ErrSuperAdminExists
		case emailConstraint:
			return ErrEmailTaken
		}
		return ErrIdentifierTaken
	}
	return err
}

func nullString(s string) sql.NullString { return sql.NullString{String: s, Valid: s != ""} }

func nullInt(n int) sql.NullInt32 { return sql.NullInt32{Int32: int32(n), Valid: n != 0} }

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
