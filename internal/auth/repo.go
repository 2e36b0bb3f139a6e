package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"qrattend/internal/apperr"
)

// Repository persists teacher records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const teacherColumns = `id, email, full_name, password_hash, bound_identity, verified, last_login_at, created_at`

func scanTeacher(row *sql.Row) (*Teacher, error) {
	var t Teacher
	err := row.Scan(&t.ID, &t.Email, &t.FullName, &t.PasswordHash, &t.BoundIdentity, &t.Verified, &t.LastLoginAt, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FindByEmail returns the teacher owning email, or nil.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*Teacher, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+teacherColumns+` FROM teachers WHERE email = $1`, email)
	return scanTeacher(row)
}

// FindByID returns the teacher with id, or nil.
func (r *Repository) FindByID(ctx context.Context, id string) (*Teacher, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+teacherColumns+` FROM teachers WHERE id = $1`, id)
	return scanTeacher(row)
}

// CreateProvisional inserts an unverified record. A stale unverified record
// for the same email is replaced; a verified owner makes this a conflict.
func (r *Repository) CreateProvisional(ctx context.Context, t Teacher) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var taken bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM teachers WHERE email = $1 AND verified)`, t.Email).Scan(&taken)
	if err != nil {
		return err
	}
	if taken {
		return apperr.Conflict("email", "email already registered")
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM teachers WHERE email = $1 AND NOT verified`, t.Email); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO teachers (id, email, full_name, password_hash, bound_identity, verified, created_at)
		VALUES ($1, $2, $3, $4, '', FALSE, $5)
	`, t.ID, t.Email, t.FullName, t.PasswordHash, t.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("email", "email already registered")
		}
		return err
	}
	return tx.Commit()
}

// Finalize promotes a provisional record, swapping its id for the one
// carried by the scanned QR payload.
func (r *Repository) Finalize(ctx context.Context, provisionalID, realID, boundIdentity string) (*Teacher, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE teachers
		SET id = $2, bound_identity = $3, verified = TRUE
		WHERE id = $1 AND NOT verified
	`, provisionalID, realID, boundIdentity)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Conflict("id", "id %s already belongs to another teacher", realID)
		}
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, apperr.NotFound("provisional registration not found")
	}

	row := tx.QueryRowContext(ctx, `SELECT `+teacherColumns+` FROM teachers WHERE id = $1`, realID)
	teacher, err := scanTeacher(row)
	if err != nil {
		return nil, err
	}
	if teacher == nil {
		return nil, fmt.Errorf("finalize: teacher %s missing after update", realID)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return teacher, nil
}

// UpdatePassword replaces the stored hash.
func (r *Repository) UpdatePassword(ctx context.Context, id, newHash string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE teachers SET password_hash = $2 WHERE id = $1`, id, newHash)
	return err
}

// TouchLastLogin records a successful login.
func (r *Repository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE teachers SET last_login_at = $2 WHERE id = $1`, id, at)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
