package auth

import (
	"context"
	"time"
)

// Teacher is a credential record. A teacher starts provisional (Verified
// false, random id) and receives its permanent id, taken from the scanned QR
// payload, only when the registration scan succeeds.
type Teacher struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	FullName      string     `json:"full_name"`
	PasswordHash  string     `json:"-"`
	BoundIdentity string     `json:"-"`
	Verified      bool       `json:"verified"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// TeacherStore owns teacher records, keyed by id with email as a secondary
// unique index. All mutations must be atomic with respect to both
// uniqueness constraints.
type TeacherStore interface {
	FindByEmail(ctx context.Context, email string) (*Teacher, error)
	FindByID(ctx context.Context, id string) (*Teacher, error)
	// CreateProvisional inserts an unverified record, silently replacing any
	// earlier unverified record for the same email. It fails with a conflict
	// error when a verified teacher already owns the email.
	CreateProvisional(ctx context.Context, t Teacher) error
	// Finalize promotes a provisional record to verified, swapping its id for
	// realID and binding the raw QR payload. It fails with a conflict error
	// when realID belongs to another verified teacher, and with a not-found
	// error when the provisional record is gone or already verified.
	Finalize(ctx context.Context, provisionalID, realID, boundIdentity string) (*Teacher, error)
	UpdatePassword(ctx context.Context, id, newHash string) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}
