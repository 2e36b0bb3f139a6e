package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"qrattend/internal/apperr"
	"qrattend/internal/attendance"
	"qrattend/internal/auth"
	"qrattend/internal/roster"
)

// Memory implements every store interface in process memory. It backs the
// memory storage mode and the package tests; one mutex gives it the same
// atomicity the Postgres constraints provide.
type Memory struct {
	mu       sync.Mutex
	teachers map[string]auth.Teacher
	subjects map[string]roster.Subject
	sections map[string]roster.Section
	records  map[string]attendance.Record
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		teachers: make(map[string]auth.Teacher),
		subjects: make(map[string]roster.Subject),
		sections: make(map[string]roster.Section),
		records:  make(map[string]attendance.Record),
	}
}

// --- auth.TeacherStore ---

func (m *Memory) FindByEmail(_ context.Context, email string) (*auth.Teacher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.teachers {
		if t.Email == email {
			cp := t
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *Memory) FindByID(_ context.Context, id string) (*auth.Teacher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.teachers[id]; ok {
		cp := t
		return &cp, nil
	}
	return nil, nil
}

func (m *Memory) CreateProvisional(_ context.Context, t auth.Teacher) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.teachers {
		if existing.Email != t.Email {
			continue
		}
		if existing.Verified {
			return apperr.Conflict("email", "email already registered")
		}
		delete(m.teachers, id)
	}
	m.teachers[t.ID] = t
	return nil
}

func (m *Memory) Finalize(_ context.Context, provisionalID, realID, boundIdentity string) (*auth.Teacher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.teachers[provisionalID]
	if !ok || t.Verified {
		return nil, apperr.NotFound("provisional registration not found")
	}
	if other, taken := m.teachers[realID]; taken && other.ID != provisionalID {
		return nil, apperr.Conflict("id", "id %s already belongs to another teacher", realID)
	}
	delete(m.teachers, provisionalID)
	t.ID = realID
	t.BoundIdentity = boundIdentity
	t.Verified = true
	m.teachers[realID] = t
	cp := t
	return &cp, nil
}

func (m *Memory) UpdatePassword(_ context.Context, id, newHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.teachers[id]; ok {
		t.PasswordHash = newHash
		m.teachers[id] = t
	}
	return nil
}

func (m *Memory) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.teachers[id]; ok {
		t.LastLoginAt = &at
		m.teachers[id] = t
	}
	return nil
}

// --- roster.Store ---

func (m *Memory) CreateSubject(_ context.Context, s roster.Subject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.subjects {
		if existing.TeacherID == s.TeacherID && existing.Name == s.Name {
			return apperr.Conflict("name", "subject name already exists")
		}
	}
	m.subjects[s.ID] = s
	return nil
}

func (m *Memory) ListSubjects(_ context.Context, teacherID string) ([]roster.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []roster.Subject
	for _, s := range m.subjects {
		if s.TeacherID == teacherID {
			res = append(res, s)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, nil
}

func (m *Memory) DeleteSubject(_ context.Context, teacherID, subjectID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subjects[subjectID]
	if !ok || s.TeacherID != teacherID {
		return false, nil
	}
	delete(m.subjects, subjectID)
	for id, sec := range m.sections {
		if sec.SubjectID == subjectID {
			m.deleteSectionLocked(id)
		}
	}
	return true, nil
}

func (m *Memory) CreateSection(_ context.Context, s roster.Section) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.sections {
		if existing.TeacherID == s.TeacherID && existing.Name == s.Name {
			return apperr.Conflict("name", "section name already exists")
		}
	}
	m.sections[s.ID] = s
	return nil
}

func (m *Memory) ListSections(_ context.Context, teacherID, subjectID string) ([]roster.Section, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []roster.Section
	for _, s := range m.sections {
		if s.TeacherID != teacherID {
			continue
		}
		if subjectID != "" && s.SubjectID != subjectID {
			continue
		}
		res = append(res, s)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, nil
}

func (m *Memory) UpdateSection(_ context.Context, s roster.Section) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.sections[s.ID]
	if !ok || existing.TeacherID != s.TeacherID {
		return false, nil
	}
	for id, other := range m.sections {
		if id != s.ID && other.TeacherID == s.TeacherID && other.Name == s.Name {
			return false, apperr.Conflict("name", "section name already exists")
		}
	}
	existing.Name = s.Name
	existing.Description = s.Description
	m.sections[s.ID] = existing
	return true, nil
}

func (m *Memory) DeleteSection(_ context.Context, teacherID, sectionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sections[sectionID]
	if !ok || s.TeacherID != teacherID {
		return false, nil
	}
	m.deleteSectionLocked(sectionID)
	return true, nil
}

func (m *Memory) deleteSectionLocked(sectionID string) {
	delete(m.sections, sectionID)
	for id, rec := range m.records {
		if rec.SectionID == sectionID {
			delete(m.records, id)
		}
	}
}

func (m *Memory) SectionOwned(_ context.Context, teacherID, sectionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sections[sectionID]
	return ok && s.TeacherID == teacherID, nil
}

func (m *Memory) SubjectOwned(_ context.Context, teacherID, subjectID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subjects[subjectID]
	return ok && s.TeacherID == teacherID, nil
}

// --- attendance.Store ---

func (m *Memory) findRecordLocked(teacherID, sectionID, studentID, day string) (string, bool) {
	for id, rec := range m.records {
		if rec.TeacherID == teacherID && rec.SectionID == sectionID &&
			rec.StudentID == studentID && rec.Day == day {
			return id, true
		}
	}
	return "", false
}

func (m *Memory) CreateIfAbsent(_ context.Context, rec attendance.Record) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.findRecordLocked(rec.TeacherID, rec.SectionID, rec.StudentID, rec.Day); exists {
		return false, nil
	}
	m.records[rec.ID] = rec
	return true, nil
}

func (m *Memory) SetTimeOut(_ context.Context, teacherID, sectionID, studentID, day string, at time.Time) (attendance.Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.findRecordLocked(teacherID, sectionID, studentID, day)
	if !ok {
		return attendance.Record{}, false, nil
	}
	rec := m.records[id]
	if rec.TimeOut != nil {
		return attendance.Record{}, false, nil
	}
	rec.TimeOut = &at
	m.records[id] = rec
	return rec, true, nil
}

func (m *Memory) Get(_ context.Context, teacherID, sectionID, studentID, day string) (*attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.findRecordLocked(teacherID, sectionID, studentID, day); ok {
		rec := m.records[id]
		return &rec, nil
	}
	return nil, nil
}

func (m *Memory) Insert(_ context.Context, rec attendance.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.findRecordLocked(rec.TeacherID, rec.SectionID, rec.StudentID, rec.Day); exists {
		return apperr.Conflict("student_id", "attendance already recorded for that day")
	}
	m.records[rec.ID] = rec
	return nil
}

func (m *Memory) List(_ context.Context, teacherID string, f attendance.Filters) ([]attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	search := strings.ToLower(f.Search)
	var res []attendance.Record
	for _, rec := range m.records {
		if rec.TeacherID != teacherID {
			continue
		}
		if f.SectionID != "" && rec.SectionID != f.SectionID {
			continue
		}
		if f.SubjectID != "" {
			sec, ok := m.sections[rec.SectionID]
			if !ok || sec.SubjectID != f.SubjectID {
				continue
			}
		}
		if f.Date != "" && rec.Day != f.Date {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(rec.StudentName), search) &&
			!strings.Contains(strings.ToLower(rec.StudentID), search) {
			continue
		}
		res = append(res, rec)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].TimeIn.After(res[j].TimeIn) })
	if f.Limit > 0 && len(res) > f.Limit {
		res = res[:f.Limit]
	}
	return res, nil
}

func (m *Memory) StatsToday(_ context.Context, teacherID, day string) (attendance.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	students := make(map[string]bool)
	in := make(map[string]bool)
	out := make(map[string]bool)
	sections := make(map[string]bool)
	for _, rec := range m.records {
		if rec.TeacherID != teacherID || rec.Day != day {
			continue
		}
		students[rec.StudentID] = true
		sections[rec.SectionID] = true
		if rec.TimeOut == nil {
			in[rec.StudentID] = true
		} else {
			out[rec.StudentID] = true
		}
	}
	return attendance.Stats{
		TotalPresent:   len(students),
		CurrentlyIn:    len(in),
		CheckedOut:     len(out),
		ActiveSections: len(sections),
	}, nil
}
