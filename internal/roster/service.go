package roster

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"qrattend/internal/apperr"
)

// Service applies ownership and naming rules over the roster store.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates the roster service.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// CreateSubject adds a subject for the teacher.
func (s *Service) CreateSubject(ctx context.Context, teacherID, name, description string) (Subject, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Subject{}, apperr.Validation("subject name required")
	}
	sub := Subject{
		ID:          uuid.NewString(),
		TeacherID:   teacherID,
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.CreateSubject(ctx, sub); err != nil {
		return Subject{}, err
	}
	return sub, nil
}

// Subjects lists the teacher's subjects, newest first.
func (s *Service) Subjects(ctx context.Context, teacherID string) ([]Subject, error) {
	return s.store.ListSubjects(ctx, teacherID)
}

// DeleteSubject removes a subject and its sections.
func (s *Service) DeleteSubject(ctx context.Context, teacherID, subjectID string) error {
	deleted, err := s.store.DeleteSubject(ctx, teacherID, subjectID)
	if err != nil {
		return err
	}
	if !deleted {
		return apperr.NotFound("subject not found")
	}
	return nil
}

// CreateSection adds a section, optionally filed under one of the
// teacher's subjects.
func (s *Service) CreateSection(ctx context.Context, teacherID, subjectID, name, description string) (Section, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Section{}, apperr.Validation("section name required")
	}
	if subjectID != "" {
		owned, err := s.store.SubjectOwned(ctx, teacherID, subjectID)
		if err != nil {
			return Section{}, err
		}
		if !owned {
			return Section{}, apperr.NotFound("subject not found")
		}
	}
	sec := Section{
		ID:          uuid.NewString(),
		TeacherID:   teacherID,
		SubjectID:   subjectID,
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.CreateSection(ctx, sec); err != nil {
		return Section{}, err
	}
	return sec, nil
}

// Sections lists the teacher's sections, optionally filtered by subject.
func (s *Service) Sections(ctx context.Context, teacherID, subjectID string) ([]Section, error) {
	return s.store.ListSections(ctx, teacherID, subjectID)
}

// UpdateSection renames a section the teacher owns.
func (s *Service) UpdateSection(ctx context.Context, teacherID, sectionID, name, description string) (Section, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Section{}, apperr.Validation("section name required")
	}
	sec := Section{
		ID:          sectionID,
		TeacherID:   teacherID,
		Name:        name,
		Description: strings.TrimSpace(description),
	}
	updated, err := s.store.UpdateSection(ctx, sec)
	if err != nil {
		return Section{}, err
	}
	if !updated {
		return Section{}, apperr.NotFound("section not found")
	}
	return sec, nil
}

// DeleteSection removes a section and its attendance records.
func (s *Service) DeleteSection(ctx context.Context, teacherID, sectionID string) error {
	deleted, err := s.store.DeleteSection(ctx, teacherID, sectionID)
	if err != nil {
		return err
	}
	if !deleted {
		return apperr.NotFound("section not found")
	}
	return nil
}

// SectionOwned implements attendance.SectionResolver.
func (s *Service) SectionOwned(ctx context.Context, teacherID, sectionID string) (bool, error) {
	return s.store.SectionOwned(ctx, teacherID, sectionID)
}
