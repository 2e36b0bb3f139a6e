// Package attendance implements the scan-driven attendance ledger: one
// record per student, section and calendar day, moving through time-in,
// time-out and completed, with a cooldown gate suppressing accidental
// double scans.
package attendance

import (
	"context"
	"time"
)

// Status is the outcome of a scan.
type Status string

const (
	StatusIn        Status = "IN"
	StatusOut       Status = "OUT"
	StatusCompleted Status = "COMPLETED"
	StatusDenied    Status = "DENIED"
	StatusCooldown  Status = "COOLDOWN"
)

// Record is one student's attendance for one section on one day.
type Record struct {
	ID          string     `json:"id"`
	TeacherID   string     `json:"teacher_id"`
	SectionID   string     `json:"section_id"`
	StudentID   string     `json:"student_id"`
	StudentName string     `json:"student_name"`
	Course      string     `json:"course"`
	Day         string     `json:"day"`
	TimeIn      time.Time  `json:"time_in"`
	TimeOut     *time.Time `json:"time_out,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ScanResult is returned to the scanning client.
type ScanResult struct {
	Status      Status        `json:"status"`
	StudentID   string        `json:"student_id,omitempty"`
	StudentName string        `json:"student_name,omitempty"`
	TimeIn      *time.Time    `json:"time_in,omitempty"`
	TimeOut     *time.Time    `json:"time_out,omitempty"`
	RetryAfter  time.Duration `json:"-"`
}

// Filters narrows attendance history queries. Zero values are ignored.
type Filters struct {
	Date      string
	SectionID string
	SubjectID string
	Search    string
	Limit     int
}

// Stats summarizes one teacher's day.
type Stats struct {
	TotalPresent   int `json:"total_present"`
	CurrentlyIn    int `json:"currently_in"`
	CheckedOut     int `json:"checked_out"`
	ActiveSections int `json:"active_sections"`
}

// Store owns attendance records. CreateIfAbsent and SetTimeOut must each be
// atomic per (teacher, section, student, day) so concurrent scans of the
// same badge cannot produce two time-in rows.
type Store interface {
	// CreateIfAbsent inserts rec unless a record already exists for its day
	// tuple. It reports whether the insert happened.
	CreateIfAbsent(ctx context.Context, rec Record) (bool, error)
	// SetTimeOut closes the open record for the tuple, reporting whether an
	// open record existed.
	SetTimeOut(ctx context.Context, teacherID, sectionID, studentID, day string, at time.Time) (Record, bool, error)
	Get(ctx context.Context, teacherID, sectionID, studentID, day string) (*Record, error)
	// Insert writes a record with caller-supplied times; a day-tuple
	// duplicate is a conflict error.
	Insert(ctx context.Context, rec Record) error
	List(ctx context.Context, teacherID string, f Filters) ([]Record, error)
	StatsToday(ctx context.Context, teacherID, day string) (Stats, error)
}

// SectionResolver reports whether a section belongs to a teacher.
type SectionResolver interface {
	SectionOwned(ctx context.Context, teacherID, sectionID string) (bool, error)
}

// PasswordVerifier re-checks a teacher's password for high-friction
// operations.
type PasswordVerifier interface {
	VerifyPassword(ctx context.Context, teacherID, password string) error
}
