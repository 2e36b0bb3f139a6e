package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"qrattend/internal/apperr"
)

// Repository persists attendance records in Postgres. The unique index on
// (teacher_id, section_id, student_id, day) makes create-if-absent a single
// atomic statement.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const recordColumns = `id, teacher_id, section_id, student_id, student_name, course, day, time_in, time_out, created_at`

func scanRecord(scan func(dest ...any) error) (Record, error) {
	var rec Record
	var day time.Time
	err := scan(&rec.ID, &rec.TeacherID, &rec.SectionID, &rec.StudentID, &rec.StudentName,
		&rec.Course, &day, &rec.TimeIn, &rec.TimeOut, &rec.CreatedAt)
	if err != nil {
		return Record{}, err
	}
	rec.Day = day.Format("2006-01-02")
	return rec, nil
}

// CreateIfAbsent inserts rec unless the day tuple already has a record.
func (r *Repository) CreateIfAbsent(ctx context.Context, rec Record) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance (id, teacher_id, section_id, student_id, student_name, course, day, time_in, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (teacher_id, section_id, student_id, day) DO NOTHING
	`, rec.ID, rec.TeacherID, rec.SectionID, rec.StudentID, rec.StudentName, rec.Course, rec.Day, rec.TimeIn, rec.CreatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// SetTimeOut closes the open record for the tuple.
func (r *Repository) SetTimeOut(ctx context.Context, teacherID, sectionID, studentID, day string, at time.Time) (Record, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE attendance SET time_out = $5
		WHERE teacher_id = $1 AND section_id = $2 AND student_id = $3 AND day = $4 AND time_out IS NULL
		RETURNING `+recordColumns+`
	`, teacherID, sectionID, studentID, day, at)
	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

// Get returns the record for the tuple, or nil.
func (r *Repository) Get(ctx context.Context, teacherID, sectionID, studentID, day string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+` FROM attendance
		WHERE teacher_id = $1 AND section_id = $2 AND student_id = $3 AND day = $4
	`, teacherID, sectionID, studentID, day)
	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Insert writes a manual record; a duplicate day tuple is a conflict.
func (r *Repository) Insert(ctx context.Context, rec Record) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance (id, teacher_id, section_id, student_id, student_name, course, day, time_in, time_out, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, rec.ID, rec.TeacherID, rec.SectionID, rec.StudentID, rec.StudentName, rec.Course, rec.Day, rec.TimeIn, rec.TimeOut, rec.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperr.Conflict("student_id", "attendance already recorded for that day")
		}
		return err
	}
	return nil
}

// List returns records with the given filters, newest first.
func (r *Repository) List(ctx context.Context, teacherID string, f Filters) ([]Record, error) {
	query := `SELECT a.id, a.teacher_id, a.section_id, a.student_id, a.student_name, a.course, a.day, a.time_in, a.time_out, a.created_at
		FROM attendance a`
	args := []any{teacherID}
	clauses := []string{"a.teacher_id = $1"}

	if f.SubjectID != "" {
		query += " JOIN sections s ON a.section_id = s.id"
		clauses = append(clauses, "s.subject_id = $"+itoa(len(args)+1))
		args = append(args, f.SubjectID)
	}
	if f.SectionID != "" {
		clauses = append(clauses, "a.section_id = $"+itoa(len(args)+1))
		args = append(args, f.SectionID)
	}
	if f.Date != "" {
		clauses = append(clauses, "a.day = $"+itoa(len(args)+1))
		args = append(args, f.Date)
	}
	if f.Search != "" {
		n := itoa(len(args) + 1)
		clauses = append(clauses, "(a.student_name ILIKE '%' || $"+n+" || '%' OR a.student_id ILIKE '%' || $"+n+" || '%')")
		args = append(args, f.Search)
	}

	query += " WHERE " + joinClauses(clauses, " AND ")
	query += " ORDER BY a.time_in DESC LIMIT $" + itoa(len(args)+1)
	args = append(args, f.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// StatsToday aggregates today's records for the teacher.
func (r *Repository) StatsToday(ctx context.Context, teacherID, day string) (Stats, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(DISTINCT student_id),
			COUNT(DISTINCT CASE WHEN time_out IS NULL THEN student_id END),
			COUNT(DISTINCT CASE WHEN time_out IS NOT NULL THEN student_id END),
			COUNT(DISTINCT section_id)
		FROM attendance
		WHERE teacher_id = $1 AND day = $2
	`, teacherID, day)
	var st Stats
	if err := row.Scan(&st.TotalPresent, &st.CurrentlyIn, &st.CheckedOut, &st.ActiveSections); err != nil {
		return Stats{}, err
	}
	return st, nil
}

func itoa(i int) string { return fmt.Sprintf("%d", i) }

func joinClauses(parts []string, sep string) string {
	if len(parts) == 0 {
		return ""
	}
	out := parts[0]
	for i := 1; i < len(parts); i++ {
		out += sep + parts[i]
	}
	return out
}
