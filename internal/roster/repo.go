package roster

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"qrattend/internal/apperr"
)

// Repository persists subjects and sections in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateSubject inserts a subject; a duplicate name per teacher conflicts.
func (r *Repository) CreateSubject(ctx context.Context, s Subject) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subjects (id, teacher_id, name, description, created_at)
		VALUES ($1,$2,$3,NULLIF($4,''),$5)
	`, s.ID, s.TeacherID, s.Name, s.Description, s.CreatedAt)
	if isUniqueViolation(err) {
		return apperr.Conflict("name", "subject name already exists")
	}
	return err
}

// ListSubjects returns the teacher's subjects, newest first.
func (r *Repository) ListSubjects(ctx context.Context, teacherID string) ([]Subject, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, teacher_id, name, COALESCE(description, ''), created_at
		FROM subjects WHERE teacher_id = $1 ORDER BY created_at DESC
	`, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Subject
	for rows.Next() {
		var s Subject
		if err := rows.Scan(&s.ID, &s.TeacherID, &s.Name, &s.Description, &s.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// DeleteSubject removes a subject; sections cascade via the schema.
func (r *Repository) DeleteSubject(ctx context.Context, teacherID, subjectID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM subjects WHERE id = $1 AND teacher_id = $2`, subjectID, teacherID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// CreateSection inserts a section; a duplicate name per teacher conflicts.
func (r *Repository) CreateSection(ctx context.Context, s Section) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sections (id, teacher_id, subject_id, name, description, created_at)
		VALUES ($1,$2,NULLIF($3,''),$4,NULLIF($5,''),$6)
	`, s.ID, s.TeacherID, s.SubjectID, s.Name, s.Description, s.CreatedAt)
	if isUniqueViolation(err) {
		return apperr.Conflict("name", "section name already exists")
	}
	return err
}

// ListSections returns sections, optionally filtered by subject.
func (r *Repository) ListSections(ctx context.Context, teacherID, subjectID string) ([]Section, error) {
	query := `SELECT id, teacher_id, COALESCE(subject_id, ''), name, COALESCE(description, ''), created_at
		FROM sections WHERE teacher_id = $1`
	args := []any{teacherID}
	if subjectID != "" {
		query += ` AND subject_id = $2`
		args = append(args, subjectID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Section
	for rows.Next() {
		var s Section
		if err := rows.Scan(&s.ID, &s.TeacherID, &s.SubjectID, &s.Name, &s.Description, &s.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// UpdateSection renames a section owned by the teacher.
func (r *Repository) UpdateSection(ctx context.Context, s Section) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sections SET name = $3, description = NULLIF($4,'')
		WHERE id = $1 AND teacher_id = $2
	`, s.ID, s.TeacherID, s.Name, s.Description)
	if isUniqueViolation(err) {
		return false, apperr.Conflict("name", "section name already exists")
	}
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteSection removes a section; attendance cascades via the schema.
func (r *Repository) DeleteSection(ctx context.Context, teacherID, sectionID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sections WHERE id = $1 AND teacher_id = $2`, sectionID, teacherID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// SectionOwned reports whether the section belongs to the teacher.
func (r *Repository) SectionOwned(ctx context.Context, teacherID, sectionID string) (bool, error) {
	var owned bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM sections WHERE id = $1 AND teacher_id = $2)`,
		sectionID, teacherID).Scan(&owned)
	return owned, err
}

// SubjectOwned reports whether the subject belongs to the teacher.
func (r *Repository) SubjectOwned(ctx context.Context, teacherID, subjectID string) (bool, error) {
	var owned bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM subjects WHERE id = $1 AND teacher_id = $2)`,
		subjectID, teacherID).Scan(&owned)
	return owned, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
