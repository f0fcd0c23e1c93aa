package resume

import (
	"context"
	"errors"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"resumeingest/internal/database"
	"resumeingest/internal/errcode"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&database.User{}, &database.Resume{}, &database.Section{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB) database.User {
	t.Helper()
	user := database.User{Username: "ada", PasswordHash: "x"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func TestCreateWithSections(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	user := seedUser(t, db)
	repo := NewRepository(db)

	parsed := sampleParsed()
	created, err := repo.CreateWithSections(ctx, user.ID, "Ada Lovelace", "resumes/1/a.pdf", "raw text", parsed)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected created resume to have an id")
	}

	got, err := repo.GetWithSections(ctx, created.ID, user.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Ada Lovelace" || got.RawContent != "raw text" {
		t.Fatalf("resume fields mismatch: %+v", got)
	}
	if len(got.Sections) != 4 {
		t.Fatalf("expected 4 sections, got %d", len(got.Sections))
	}
	for i, s := range got.Sections {
		if s.Order != i {
			t.Errorf("section %d returned out of order (order=%d)", i, s.Order)
		}
	}
}

func TestCreateWithSections_UnknownUser(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewRepository(db)

	_, err := repo.CreateWithSections(ctx, 42, "t", "", "raw", sampleParsed())
	if err == nil {
		t.Fatal("expected error for unknown user")
	}
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if errcode.KindOf(err) != errcode.KindPersistence {
		t.Fatalf("expected persistence kind, got %v", errcode.KindOf(err))
	}
}

func TestUpdateWithSections_ReplacesNotAppends(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	user := seedUser(t, db)
	repo := NewRepository(db)

	created, err := repo.CreateWithSections(ctx, user.ID, "v1", "", "old text", sampleParsed())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updatedParsed := sampleParsed()
	updatedParsed.Projects = []Project{{Name: "Bernoulli program", Description: "d", Technologies: []string{"engine"}}}

	updated, err := repo.UpdateWithSections(ctx, created.ID, "new text", updatedParsed)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.RawContent != "new text" {
		t.Fatalf("raw content = %q, want %q", updated.RawContent, "new text")
	}

	var count int64
	if err := db.Model(&database.Section{}).Where("resume_id = ?", created.ID).Count(&count).Error; err != nil {
		t.Fatalf("count sections: %v", err)
	}
	if count != 5 {
		t.Fatalf("expected 5 sections after update, got %d (old sections not replaced)", count)
	}

	got, err := repo.GetWithSections(ctx, created.ID, user.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Sections[4].Type != SectionProjects {
		t.Fatalf("last section = %q, want %q", got.Sections[4].Type, SectionProjects)
	}
}

func TestUpdateWithSections_MissingResume(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewRepository(db)

	_, err := repo.UpdateWithSections(ctx, 999, "raw", sampleParsed())
	if !errors.Is(err, ErrResumeNotFound) {
		t.Fatalf("expected ErrResumeNotFound, got %v", err)
	}
}

func TestGetWithSections_ScopedToUser(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	owner := seedUser(t, db)
	other := database.User{Username: "bob", PasswordHash: "x"}
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("seed other user: %v", err)
	}
	repo := NewRepository(db)

	created, err := repo.CreateWithSections(ctx, owner.ID, "t", "", "raw", sampleParsed())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := repo.GetWithSections(ctx, created.ID, other.ID); !errors.Is(err, ErrResumeNotFound) {
		t.Fatalf("expected not-found for other user, got %v", err)
	}
}

func TestDelete_RemovesSections(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	user := seedUser(t, db)
	repo := NewRepository(db)

	created, err := repo.CreateWithSections(ctx, user.ID, "t", "", "raw", sampleParsed())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := repo.Delete(ctx, created.ID, user.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var count int64
	if err := db.Model(&database.Section{}).Where("resume_id = ?", created.ID).Count(&count).Error; err != nil {
		t.Fatalf("count sections: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected sections cascade-deleted, got %d", count)
	}

	if _, err := repo.GetWithSections(ctx, created.ID, user.ID); !errors.Is(err, ErrResumeNotFound) {
		t.Fatalf("expected not-found after delete, got %v", err)
	}
}
