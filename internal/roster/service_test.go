package roster_test

import (
	"context"
	"testing"

	"qrattend/internal/apperr"
	"qrattend/internal/roster"
	"qrattend/internal/store"
)

func TestSubjectAndSectionLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := roster.NewService(store.NewMemory())

	sub, err := svc.CreateSubject(ctx, "9001", "  Databases ", "intro course")
	if err != nil {
		t.Fatalf("CreateSubject: %v", err)
	}
	if sub.Name != "Databases" {
		t.Errorf("name = %q, want trimmed", sub.Name)
	}

	sec, err := svc.CreateSection(ctx, "9001", sub.ID, "DB-1A", "")
	if err != nil {
		t.Fatalf("CreateSection: %v", err)
	}

	owned, err := svc.SectionOwned(ctx, "9001", sec.ID)
	if err != nil || !owned {
		t.Errorf("SectionOwned = (%v, %v), want owned", owned, err)
	}
	owned, _ = svc.SectionOwned(ctx, "9002", sec.ID)
	if owned {
		t.Error("foreign teacher owns the section")
	}

	sections, err := svc.Sections(ctx, "9001", sub.ID)
	if err != nil || len(sections) != 1 {
		t.Fatalf("Sections = (%v, %v), want one", sections, err)
	}

	if _, err := svc.UpdateSection(ctx, "9001", sec.ID, "DB-1B", "moved rooms"); err != nil {
		t.Fatalf("UpdateSection: %v", err)
	}
	sections, _ = svc.Sections(ctx, "9001", "")
	if len(sections) != 1 || sections[0].Name != "DB-1B" {
		t.Errorf("after rename = %+v", sections)
	}

	if err := svc.DeleteSection(ctx, "9001", sec.ID); err != nil {
		t.Fatalf("DeleteSection: %v", err)
	}
	sections, _ = svc.Sections(ctx, "9001", "")
	if len(sections) != 0 {
		t.Errorf("sections after delete = %+v", sections)
	}
}

func TestCreateSectionUnderForeignSubject(t *testing.T) {
	ctx := context.Background()
	svc := roster.NewService(store.NewMemory())

	sub, err := svc.CreateSubject(ctx, "9001", "Databases", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateSection(ctx, "9002", sub.ID, "DB-1A", ""); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("foreign subject = %v, want not-found", err)
	}
}

func TestDuplicateNamesConflict(t *testing.T) {
	ctx := context.Background()
	svc := roster.NewService(store.NewMemory())

	if _, err := svc.CreateSubject(ctx, "9001", "Databases", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateSubject(ctx, "9001", "Databases", ""); apperr.KindOf(err) != apperr.KindConflict {
		t.Errorf("duplicate subject = %v, want conflict", err)
	}
	// The same name under a different teacher is fine.
	if _, err := svc.CreateSubject(ctx, "9002", "Databases", ""); err != nil {
		t.Errorf("other teacher's subject: %v", err)
	}

	if _, err := svc.CreateSection(ctx, "9001", "", "DB-1A", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateSection(ctx, "9001", "", "DB-1A", ""); apperr.KindOf(err) != apperr.KindConflict {
		t.Errorf("duplicate section = %v, want conflict", err)
	}
}

func TestDeleteSubjectCascadesSections(t *testing.T) {
	ctx := context.Background()
	svc := roster.NewService(store.NewMemory())

	sub, err := svc.CreateSubject(ctx, "9001", "Databases", "")
	if err != nil {
		t.Fatal(err)
	}
	sec, err := svc.CreateSection(ctx, "9001", sub.ID, "DB-1A", "")
	if err != nil {
		t.Fatal(err)
	}
	loose, err := svc.CreateSection(ctx, "9001", "", "Homeroom", "")
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.DeleteSubject(ctx, "9001", sub.ID); err != nil {
		t.Fatalf("DeleteSubject: %v", err)
	}
	if owned, _ := svc.SectionOwned(ctx, "9001", sec.ID); owned {
		t.Error("section survived subject delete")
	}
	if owned, _ := svc.SectionOwned(ctx, "9001", loose.ID); !owned {
		t.Error("unrelated section was deleted")
	}
}

func TestDeleteForeignSubject(t *testing.T) {
	ctx := context.Background()
	svc := roster.NewService(store.NewMemory())

	sub, err := svc.CreateSubject(ctx, "9001", "Databases", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteSubject(ctx, "9002", sub.ID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("foreign delete = %v, want not-found", err)
	}
}

func TestEmptyNamesRejected(t *testing.T) {
	ctx := context.Background()
	svc := roster.NewService(store.NewMemory())

	if _, err := svc.CreateSubject(ctx, "9001", "   ", ""); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("blank subject = %v, want validation error", err)
	}
	if _, err := svc.CreateSection(ctx, "9001", "", "", ""); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("blank section = %v, want validation error", err)
	}
}
