// Package roster manages a teacher's organizational tree: subjects and the
// sections optionally nested under them.
package roster

import (
	"context"
	"time"
)

// Subject groups sections under a teacher.
type Subject struct {
	ID          string    `json:"id"`
	TeacherID   string    `json:"teacher_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Section is the unit attendance is recorded against. SubjectID is empty
// for sections not filed under a subject.
type Section struct {
	ID          string    `json:"id"`
	TeacherID   string    `json:"teacher_id"`
	SubjectID   string    `json:"subject_id,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store owns subjects and sections. Names are unique per teacher; deleting
// a subject removes its sections, deleting a section removes its attendance
// records.
type Store interface {
	CreateSubject(ctx context.Context, s Subject) error
	ListSubjects(ctx context.Context, teacherID string) ([]Subject, error)
	DeleteSubject(ctx context.Context, teacherID, subjectID string) (bool, error)

	CreateSection(ctx context.Context, s Section) error
	ListSections(ctx context.Context, teacherID, subjectID string) ([]Section, error)
	UpdateSection(ctx context.Context, s Section) (bool, error)
	DeleteSection(ctx context.Context, teacherID, sectionID string) (bool, error)
	SectionOwned(ctx context.Context, teacherID, sectionID string) (bool, error)
	SubjectOwned(ctx context.Context, teacherID, subjectID string) (bool, error)
}
