package auth_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"qrattend/internal/apperr"
	"qrattend/internal/auth"
	"qrattend/internal/store"
)

func newTestService(t *testing.T) (*auth.Service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	svc := auth.NewService(mem, auth.Options{
		SigningKey: "test-signing-key",
		Issuer:     "qrattend-test",
		StepTTL:    5 * time.Minute,
		SessionTTL: 12 * time.Hour,
		BcryptCost: bcrypt.MinCost,
	})
	return svc, mem
}

func registerTeacher(t *testing.T, svc *auth.Service, email, fullName, password, qrPayload string) auth.Session {
	t.Helper()
	ctx := context.Background()
	token, err := svc.RequestRegistration(ctx, email, fullName, password)
	if err != nil {
		t.Fatalf("RequestRegistration: %v", err)
	}
	session, err := svc.ConfirmRegistration(ctx, token, qrPayload)
	if err != nil {
		t.Fatalf("ConfirmRegistration: %v", err)
	}
	return session
}

func TestRegistrationBindsIDFromQR(t *testing.T) {
	svc, _ := newTestService(t)

	session := registerTeacher(t, svc, "t@x.com", "Jane Doe", "Abcd123!", "Jane Doe 9001 BSIT")
	if session.TeacherID != "9001" {
		t.Errorf("teacher id = %q, want 9001 (from QR, not request)", session.TeacherID)
	}
	if session.FullName != "Jane Doe" {
		t.Errorf("full name = %q", session.FullName)
	}
	if session.Token == "" {
		t.Error("expected session token")
	}
}

func TestRegistrationNameMismatch(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	token, err := svc.RequestRegistration(ctx, "t@x.com", "Jane Doe", "Abcd123!")
	if err != nil {
		t.Fatalf("RequestRegistration: %v", err)
	}
	if _, err := svc.ConfirmRegistration(ctx, token, "John Smith 9001 BSIT"); apperr.KindOf(err) != apperr.KindAuth {
		t.Errorf("ConfirmRegistration with wrong name = %v, want auth error", err)
	}

	// Case differences are not a mismatch.
	if _, err := svc.ConfirmRegistration(ctx, token, "JANE DOE 9001 BSIT"); err != nil {
		t.Errorf("ConfirmRegistration with case-folded name: %v", err)
	}
}

func TestRegistrationPasswordPolicy(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, pw := range []string{"short1!", "alllower1!", "ALLUPPER1!", "NoDigits!", "NoSpecial1"} {
		if _, err := svc.RequestRegistration(ctx, "t@x.com", "Jane Doe", pw); apperr.KindOf(err) != apperr.KindValidation {
			t.Errorf("RequestRegistration(%q) = %v, want validation error", pw, err)
		}
	}
}

func TestRegistrationDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	registerTeacher(t, svc, "t@x.com", "Jane Doe", "Abcd123!", "Jane Doe 9001 BSIT")

	_, err := svc.RequestRegistration(ctx, "t@x.com", "Someone Else", "Abcd123!")
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Errorf("re-registering a verified email = %v, want conflict", err)
	}
}

func TestRegistrationSupersedesProvisional(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.RequestRegistration(ctx, "t@x.com", "Jane Doe", "Abcd123!")
	if err != nil {
		t.Fatalf("first RequestRegistration: %v", err)
	}
	second, err := svc.RequestRegistration(ctx, "t@x.com", "Jane Doe", "Efgh456!")
	if err != nil {
		t.Fatalf("second RequestRegistration: %v", err)
	}

	// The first provisional record is gone; only the second token works.
	if _, err := svc.ConfirmRegistration(ctx, first, "Jane Doe 9001 BSIT"); apperr.KindOf(err) != apperr.KindAuth {
		t.Errorf("superseded token = %v, want auth error", err)
	}
	if _, err := svc.ConfirmRegistration(ctx, second, "Jane Doe 9001 BSIT"); err != nil {
		t.Errorf("current token: %v", err)
	}
}

func TestRegistrationIDConflict(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	registerTeacher(t, svc, "jane@x.com", "Jane Doe", "Abcd123!", "Jane Doe 9001 BSIT")

	token, err := svc.RequestRegistration(ctx, "john@x.com", "John Roe", "Abcd123!")
	if err != nil {
		t.Fatalf("RequestRegistration: %v", err)
	}
	if _, err := svc.ConfirmRegistration(ctx, token, "John Roe 9001 BSIT"); apperr.KindOf(err) != apperr.KindConflict {
		t.Errorf("finalize onto a taken id = %v, want conflict", err)
	}
}

func TestLoginTwoFactor(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	registerTeacher(t, svc, "t@x.com", "Jane Doe", "Abcd123!", "Jane Doe 9001 BSIT")

	temp, err := svc.RequestLogin(ctx, "t@x.com", "Abcd123!")
	if err != nil {
		t.Fatalf("RequestLogin: %v", err)
	}
	session, err := svc.ConfirmLogin(ctx, temp, "Jane Doe 9001 BSIT")
	if err != nil {
		t.Fatalf("ConfirmLogin: %v", err)
	}
	if session.TeacherID != "9001" {
		t.Errorf("teacher id = %q", session.TeacherID)
	}

	profile, err := svc.Profile(ctx, "9001")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if profile.LastLoginAt == nil {
		t.Error("last login not recorded")
	}
}

func TestLoginGenericRejection(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	registerTeacher(t, svc, "t@x.com", "Jane Doe", "Abcd123!", "Jane Doe 9001 BSIT")

	_, unknownErr := svc.RequestLogin(ctx, "nobody@x.com", "Abcd123!")
	_, wrongErr := svc.RequestLogin(ctx, "t@x.com", "Wrong999!")
	if apperr.KindOf(unknownErr) != apperr.KindAuth || apperr.KindOf(wrongErr) != apperr.KindAuth {
		t.Fatalf("want auth errors, got %v / %v", unknownErr, wrongErr)
	}
	// The message must not distinguish unknown email from wrong password.
	if unknownErr.Error() != wrongErr.Error() {
		t.Errorf("rejections differ: %q vs %q", unknownErr, wrongErr)
	}
}

func TestConfirmLoginIDMismatch(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	registerTeacher(t, svc, "t@x.com", "Jane Doe", "Abcd123!", "Jane Doe 9001 BSIT")

	temp, err := svc.RequestLogin(ctx, "t@x.com", "Abcd123!")
	if err != nil {
		t.Fatalf("RequestLogin: %v", err)
	}
	// Password already verified; a foreign QR must still be rejected.
	if _, err := svc.ConfirmLogin(ctx, temp, "Jane Doe 9002 BSIT"); apperr.KindOf(err) != apperr.KindAuth {
		t.Errorf("ConfirmLogin with foreign id = %v, want auth error", err)
	}
	if _, err := svc.ConfirmLogin(ctx, temp, "Someone Else 9001 BSIT"); apperr.KindOf(err) != apperr.KindAuth {
		t.Errorf("ConfirmLogin with foreign name = %v, want auth error", err)
	}
}

func TestStepTokenExpiry(t *testing.T) {
	mem := store.NewMemory()
	svc := auth.NewService(mem, auth.Options{
		SigningKey: "test-signing-key",
		Issuer:     "qrattend-test",
		StepTTL:    time.Nanosecond,
		SessionTTL: 12 * time.Hour,
		BcryptCost: bcrypt.MinCost,
	})
	ctx := context.Background()

	token, err := svc.RequestRegistration(ctx, "t@x.com", "Jane Doe", "Abcd123!")
	if err != nil {
		t.Fatalf("RequestRegistration: %v", err)
	}
	_, err = svc.ConfirmRegistration(ctx, token, "Jane Doe 9001 BSIT")
	if apperr.KindOf(err) != apperr.KindAuth || !strings.Contains(err.Error(), "expired") {
		t.Errorf("expired token = %v, want expiry auth error", err)
	}
}

func TestTokenStageIsolation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	session := registerTeacher(t, svc, "t@x.com", "Jane Doe", "Abcd123!", "Jane Doe 9001 BSIT")

	// A session token is not a login step token.
	if _, err := svc.ConfirmLogin(ctx, session.Token, "Jane Doe 9001 BSIT"); apperr.KindOf(err) != apperr.KindAuth {
		t.Errorf("session token at login step = %v, want auth error", err)
	}
	// A login step token is not a session token.
	temp, err := svc.RequestLogin(ctx, "t@x.com", "Abcd123!")
	if err != nil {
		t.Fatalf("RequestLogin: %v", err)
	}
	if _, err := auth.ParseToken(temp, "test-signing-key", "qrattend-test", auth.StageSession); err == nil {
		t.Error("step token accepted as session token")
	}
}

func TestChangePassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	registerTeacher(t, svc, "t@x.com", "Jane Doe", "Abcd123!", "Jane Doe 9001 BSIT")

	if err := svc.ChangePassword(ctx, "9001", "Wrong999!", "Efgh456!"); apperr.KindOf(err) != apperr.KindAuth {
		t.Errorf("wrong current password = %v, want auth error", err)
	}
	if err := svc.ChangePassword(ctx, "9001", "Abcd123!", "Abcd123!"); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("unchanged password = %v, want validation error", err)
	}
	if err := svc.ChangePassword(ctx, "9001", "Abcd123!", "weak"); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("weak password = %v, want validation error", err)
	}
	if err := svc.ChangePassword(ctx, "9001", "Abcd123!", "Efgh456!"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	if _, err := svc.RequestLogin(ctx, "t@x.com", "Abcd123!"); apperr.KindOf(err) != apperr.KindAuth {
		t.Errorf("old password still accepted: %v", err)
	}
	if _, err := svc.RequestLogin(ctx, "t@x.com", "Efgh456!"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
}

func TestVerifyPassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	registerTeacher(t, svc, "t@x.com", "Jane Doe", "Abcd123!", "Jane Doe 9001 BSIT")

	if err := svc.VerifyPassword(ctx, "9001", "Abcd123!"); err != nil {
		t.Errorf("VerifyPassword: %v", err)
	}
	if err := svc.VerifyPassword(ctx, "9001", "nope"); apperr.KindOf(err) != apperr.KindAuth {
		t.Errorf("VerifyPassword with wrong password = %v, want auth error", err)
	}
}

func TestUnverifiedCannotLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.RequestRegistration(ctx, "t@x.com", "Jane Doe", "Abcd123!"); err != nil {
		t.Fatalf("RequestRegistration: %v", err)
	}
	// Provisional account, QR never confirmed.
	if _, err := svc.RequestLogin(ctx, "t@x.com", "Abcd123!"); apperr.KindOf(err) != apperr.KindAuth {
		t.Errorf("unverified login = %v, want auth error", err)
	}
}
