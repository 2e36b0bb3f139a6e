package store

import (
	"context"
	"database/sql"
)

// Migrate creates the schema if it does not exist. Statements are
// idempotent so this runs on every startup.
func Migrate(ctx context.Context, db *sql.DB) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS teachers (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		full_name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		bound_identity TEXT NOT NULL DEFAULT '',
		verified BOOLEAN NOT NULL DEFAULT FALSE,
		last_login_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS subjects (
		id TEXT PRIMARY KEY,
		teacher_id TEXT NOT NULL REFERENCES teachers(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		description TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (teacher_id, name)
	);

	CREATE TABLE IF NOT EXISTS sections (
		id TEXT PRIMARY KEY,
		teacher_id TEXT NOT NULL REFERENCES teachers(id) ON DELETE CASCADE,
		subject_id TEXT REFERENCES subjects(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		description TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (teacher_id, name)
	);

	CREATE TABLE IF NOT EXISTS attendance (
		id TEXT PRIMARY KEY,
		teacher_id TEXT NOT NULL,
		section_id TEXT NOT NULL REFERENCES sections(id) ON DELETE CASCADE,
		student_id TEXT NOT NULL,
		student_name TEXT NOT NULL,
		course TEXT NOT NULL DEFAULT '',
		day DATE NOT NULL,
		time_in TIMESTAMPTZ NOT NULL,
		time_out TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (teacher_id, section_id, student_id, day)
	);

	CREATE INDEX IF NOT EXISTS idx_attendance_teacher_day ON attendance(teacher_id, day);
	CREATE INDEX IF NOT EXISTS idx_attendance_section ON attendance(section_id);
	CREATE INDEX IF NOT EXISTS idx_sections_teacher ON sections(teacher_id);
	CREATE INDEX IF NOT EXISTS idx_subjects_teacher ON subjects(teacher_id);
	`
	_, err := db.ExecContext(ctx, schema)
	return err
}
