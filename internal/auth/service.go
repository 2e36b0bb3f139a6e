package auth

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"qrattend/internal/apperr"
	"qrattend/internal/qr"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Session is the credential issued after both factors succeed.
type Session struct {
	Token     string    `json:"token"`
	TeacherID string    `json:"teacher_id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Options configures the auth service.
type Options struct {
	SigningKey string
	Issuer     string
	// StepTTL bounds the intermediate tokens between the two factors.
	StepTTL time.Duration
	// SessionTTL bounds the session credential.
	SessionTTL time.Duration
	BcryptCost int
}

// Service implements the two-step QR-verified authentication protocol.
// Neither factor alone is sufficient: the password step yields a short-lived
// signed token, and only a matching QR scan upgrades it to a session.
type Service struct {
	store TeacherStore
	opts  Options
	now   func() time.Time
}

// NewService creates the auth service over a teacher store.
func NewService(store TeacherStore, opts Options) *Service {
	if opts.StepTTL <= 0 {
		opts.StepTTL = 5 * time.Minute
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 12 * time.Hour
	}
	return &Service{store: store, opts: opts, now: time.Now}
}

// RequestRegistration validates the requested credentials, creates a
// provisional teacher record and returns a provisional token to be redeemed
// by ConfirmRegistration. The token carries no password material; the hash
// lives only in the provisional record.
func (s *Service) RequestRegistration(ctx context.Context, email, fullName, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	fullName = strings.TrimSpace(fullName)
	if email == "" || fullName == "" || password == "" {
		return "", apperr.Validation("email, full name and password are required")
	}
	if !emailPattern.MatchString(email) {
		return "", apperr.Validation("invalid email format")
	}
	if err := ValidatePassword(password); err != nil {
		return "", err
	}

	hash, err := hashPassword(password, s.opts.BcryptCost)
	if err != nil {
		return "", err
	}
	provisionalID := uuid.NewString()
	err = s.store.CreateProvisional(ctx, Teacher{
		ID:           provisionalID,
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		return "", err
	}

	token, _, err := issueToken(StageRegister, provisionalID, email, fullName,
		s.opts.Issuer, s.opts.SigningKey, s.opts.StepTTL, s.now())
	return token, err
}

// ConfirmRegistration redeems a provisional token against a scanned QR
// payload. The parsed name must match the registered name; on success the
// teacher's permanent id is taken from the QR payload, not from anything
// supplied at request time.
func (s *Service) ConfirmRegistration(ctx context.Context, provisionalToken, qrPayload string) (Session, error) {
	claims, err := ParseToken(provisionalToken, s.opts.SigningKey, s.opts.Issuer, StageRegister)
	if err != nil {
		return Session{}, err
	}
	ident, err := qr.Parse(qrPayload)
	if err != nil {
		return Session{}, err
	}
	if !strings.EqualFold(ident.Name, claims.FullName) {
		return Session{}, apperr.Auth("QR code name does not match your registered name")
	}

	teacher, err := s.store.Finalize(ctx, claims.Subject, ident.ExternalID, strings.TrimSpace(qrPayload))
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return Session{}, apperr.Auth("registration session not found, please register again")
		}
		return Session{}, err
	}
	return s.issueSession(teacher)
}

// RequestLogin verifies the password factor and returns a temporary token
// for the QR step. Unknown emails, unverified accounts and wrong passwords
// all produce the same generic rejection.
func (s *Service) RequestLogin(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", apperr.Validation("email and password are required")
	}

	teacher, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if teacher == nil || !teacher.Verified || !verifyPassword(password, teacher.PasswordHash) {
		return "", apperr.Auth("email or password incorrect")
	}

	token, _, err := issueToken(StageLogin, teacher.ID, teacher.Email, "",
		s.opts.Issuer, s.opts.SigningKey, s.opts.StepTTL, s.now())
	return token, err
}

// ConfirmLogin verifies the QR factor against the teacher's bound identity
// and issues the session credential.
func (s *Service) ConfirmLogin(ctx context.Context, tempToken, qrPayload string) (Session, error) {
	claims, err := ParseToken(tempToken, s.opts.SigningKey, s.opts.Issuer, StageLogin)
	if err != nil {
		return Session{}, err
	}
	teacher, err := s.store.FindByID(ctx, claims.Subject)
	if err != nil {
		return Session{}, err
	}
	if teacher == nil || !teacher.Verified {
		return Session{}, apperr.Auth("account not found or not verified")
	}

	scanned, err := qr.Parse(qrPayload)
	if err != nil {
		return Session{}, err
	}
	stored, err := qr.Parse(teacher.BoundIdentity)
	if err != nil {
		return Session{}, apperr.Auth("stored QR identity is invalid, contact your administrator")
	}
	if scanned.ExternalID != stored.ExternalID {
		return Session{}, apperr.Auth("QR code does not match your account")
	}
	if !strings.EqualFold(scanned.Name, stored.Name) {
		return Session{}, apperr.Auth("QR code name does not match your account")
	}

	if err := s.store.TouchLastLogin(ctx, teacher.ID, s.now().UTC()); err != nil {
		return Session{}, err
	}
	return s.issueSession(teacher)
}

// ChangePassword re-verifies the current password before installing a new
// one. The new password must satisfy the policy and differ from the current.
func (s *Service) ChangePassword(ctx context.Context, teacherID, current, newPassword string) error {
	current = strings.TrimSpace(current)
	newPassword = strings.TrimSpace(newPassword)
	if current == "" || newPassword == "" {
		return apperr.Validation("current and new password are required")
	}

	teacher, err := s.store.FindByID(ctx, teacherID)
	if err != nil {
		return err
	}
	if teacher == nil {
		return apperr.NotFound("account not found")
	}
	if !verifyPassword(current, teacher.PasswordHash) {
		return apperr.Auth("current password is incorrect")
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	if verifyPassword(newPassword, teacher.PasswordHash) {
		return apperr.Validation("new password must be different from current password")
	}

	hash, err := hashPassword(newPassword, s.opts.BcryptCost)
	if err != nil {
		return err
	}
	return s.store.UpdatePassword(ctx, teacher.ID, hash)
}

// VerifyPassword checks a password for an already-authenticated teacher.
// Used by operations that demand password re-entry, such as manual
// attendance records.
func (s *Service) VerifyPassword(ctx context.Context, teacherID, password string) error {
	teacher, err := s.store.FindByID(ctx, teacherID)
	if err != nil {
		return err
	}
	if teacher == nil || !verifyPassword(password, teacher.PasswordHash) {
		return apperr.Auth("invalid password")
	}
	return nil
}

// Profile returns the teacher record behind a session.
func (s *Service) Profile(ctx context.Context, teacherID string) (*Teacher, error) {
	teacher, err := s.store.FindByID(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	if teacher == nil {
		return nil, apperr.NotFound("account not found")
	}
	return teacher, nil
}

func (s *Service) issueSession(t *Teacher) (Session, error) {
	token, exp, err := issueToken(StageSession, t.ID, t.Email, t.FullName,
		s.opts.Issuer, s.opts.SigningKey, s.opts.SessionTTL, s.now())
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		TeacherID: t.ID,
		FullName:  t.FullName,
		Email:     t.Email,
		ExpiresAt: exp,
	}, nil
}
