package attendance

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"qrattend/internal/apperr"
	"qrattend/internal/metrics"
	"qrattend/internal/qr"
)

// Service coordinates the scan state machine, the cooldown gate and the
// section ownership check.
type Service struct {
	store     Store
	sections  SectionResolver
	passwords PasswordVerifier
	gate      Gate
	now       func() time.Time
}

// NewService creates the attendance service.
func NewService(store Store, sections SectionResolver, passwords PasswordVerifier, gate Gate) *Service {
	return &Service{
		store:     store,
		sections:  sections,
		passwords: passwords,
		gate:      gate,
		now:       time.Now,
	}
}

func dayOf(t time.Time) string { return t.UTC().Format("2006-01-02") }

// Scan drives one step of the per-day state machine for the scanned
// student: no record → time-in, open record → time-out, closed record →
// completed with no mutation. The cooldown gate runs before the ledger so a
// rapid double read of one badge is reported as a wait, not a time-out.
func (s *Service) Scan(ctx context.Context, teacherID, sectionID, payload string) (ScanResult, error) {
	owned, err := s.sections.SectionOwned(ctx, teacherID, sectionID)
	if err != nil {
		return ScanResult{}, err
	}
	if !owned {
		metrics.Scans.WithLabelValues(string(StatusDenied)).Inc()
		return ScanResult{Status: StatusDenied}, apperr.NotFound("section not found")
	}

	ident, err := qr.ParseStudent(payload)
	if err != nil {
		return ScanResult{}, err
	}

	now := s.now().UTC()
	remaining, err := s.gate.CheckAndStamp(ctx, ident.ExternalID, now)
	if err != nil {
		return ScanResult{}, err
	}
	if remaining > 0 {
		metrics.Scans.WithLabelValues(string(StatusCooldown)).Inc()
		return ScanResult{
			Status:      StatusCooldown,
			StudentID:   ident.ExternalID,
			StudentName: ident.Name,
			RetryAfter:  remaining,
		}, apperr.Cooldown(remaining)
	}

	day := dayOf(now)
	rec := Record{
		ID:          uuid.NewString(),
		TeacherID:   teacherID,
		SectionID:   sectionID,
		StudentID:   ident.ExternalID,
		StudentName: ident.Name,
		Course:      ident.Program,
		Day:         day,
		TimeIn:      now,
		CreatedAt:   now,
	}
	inserted, err := s.store.CreateIfAbsent(ctx, rec)
	if err != nil {
		return ScanResult{}, err
	}
	if inserted {
		metrics.Scans.WithLabelValues(string(StatusIn)).Inc()
		return ScanResult{
			Status:      StatusIn,
			StudentID:   ident.ExternalID,
			StudentName: ident.Name,
			TimeIn:      &rec.TimeIn,
		}, nil
	}

	closed, updated, err := s.store.SetTimeOut(ctx, teacherID, sectionID, ident.ExternalID, day, now)
	if err != nil {
		return ScanResult{}, err
	}
	if updated {
		metrics.Scans.WithLabelValues(string(StatusOut)).Inc()
		return ScanResult{
			Status:      StatusOut,
			StudentID:   ident.ExternalID,
			StudentName: ident.Name,
			TimeIn:      &closed.TimeIn,
			TimeOut:     closed.TimeOut,
		}, nil
	}

	existing, err := s.store.Get(ctx, teacherID, sectionID, ident.ExternalID, day)
	if err != nil {
		return ScanResult{}, err
	}
	metrics.Scans.WithLabelValues(string(StatusCompleted)).Inc()
	res := ScanResult{
		Status:      StatusCompleted,
		StudentID:   ident.ExternalID,
		StudentName: ident.Name,
	}
	if existing != nil {
		res.TimeIn = &existing.TimeIn
		res.TimeOut = existing.TimeOut
	}
	return res, nil
}

// ManualEntry carries a hand-entered attendance record.
type ManualEntry struct {
	StudentID   string     `json:"student_id"`
	StudentName string     `json:"student_name"`
	Course      string     `json:"course"`
	TimeIn      time.Time  `json:"time_in"`
	TimeOut     *time.Time `json:"time_out,omitempty"`
}

// Manual inserts a record without a physical scan. It bypasses the scan
// evidence trail, so the teacher's password must be re-supplied.
func (s *Service) Manual(ctx context.Context, teacherID, sectionID string, entry ManualEntry, password string) error {
	if strings.TrimSpace(entry.StudentID) == "" || strings.TrimSpace(entry.StudentName) == "" {
		return apperr.Validation("student id and name are required")
	}
	if password == "" {
		return apperr.Validation("password is required")
	}
	if err := s.passwords.VerifyPassword(ctx, teacherID, password); err != nil {
		return err
	}

	owned, err := s.sections.SectionOwned(ctx, teacherID, sectionID)
	if err != nil {
		return err
	}
	if !owned {
		return apperr.NotFound("section not found")
	}

	now := s.now().UTC()
	if entry.TimeIn.IsZero() {
		entry.TimeIn = now
	}
	if entry.TimeOut != nil && entry.TimeOut.Before(entry.TimeIn) {
		return apperr.Validation("time out must not be before time in")
	}
	return s.store.Insert(ctx, Record{
		ID:          uuid.NewString(),
		TeacherID:   teacherID,
		SectionID:   sectionID,
		StudentID:   strings.TrimSpace(entry.StudentID),
		StudentName: strings.TrimSpace(entry.StudentName),
		Course:      strings.TrimSpace(entry.Course),
		Day:         dayOf(entry.TimeIn),
		TimeIn:      entry.TimeIn.UTC(),
		TimeOut:     entry.TimeOut,
		CreatedAt:   now,
	})
}

// History lists the teacher's records, newest first.
func (s *Service) History(ctx context.Context, teacherID string, f Filters) ([]Record, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 200
	}
	return s.store.List(ctx, teacherID, f)
}

// StatsToday summarizes today's attendance across the teacher's sections.
func (s *Service) StatsToday(ctx context.Context, teacherID string) (Stats, error) {
	return s.store.StatsToday(ctx, teacherID, dayOf(s.now()))
}
