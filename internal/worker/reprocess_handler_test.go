package worker

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"resumeingest/internal/database"
	"resumeingest/internal/extract"
	"resumeingest/internal/resume"
	"resumeingest/internal/tasks"
)

type fakeFetcher struct {
	data  []byte
	err   error
	calls int
}

func (f *fakeFetcher) FetchObject(_ context.Context, _ string) ([]byte, error) {
	f.calls++
	return f.data, f.err
}

type fakeExtractor struct {
	result *extract.Result
	err    error
}

func (f *fakeExtractor) Extract(_ context.Context, _ extract.Input) (*extract.Result, error) {
	return f.result, f.err
}

type fakeStructurer struct {
	parsed *resume.ParsedResume
	err    error
}

func (f *fakeStructurer) Structure(_ context.Context, _ string) (*resume.ParsedResume, error) {
	return f.parsed, f.err
}

type fakeUpdater struct {
	err   error
	calls int

	lastResumeID uint
	lastRawText  string
}

func (f *fakeUpdater) UpdateWithSections(_ context.Context, resumeID uint, rawText string, _ *resume.ParsedResume) (*database.Resume, error) {
	f.calls++
	f.lastResumeID = resumeID
	f.lastRawText = rawText
	if f.err != nil {
		return nil, f.err
	}
	rec := &database.Resume{}
	rec.ID = resumeID
	return rec, nil
}

func newWorkerTestDB(t *testing.T) *gorm.DB {
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

func seedResume(t *testing.T, db *gorm.DB, resumeURL string) database.Resume {
	t.Helper()
	user := database.User{Username: "ada", PasswordHash: "x"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	rec := database.Resume{Title: "t", ResumeURL: resumeURL, UserID: user.ID}
	if err := db.Create(&rec).Error; err != nil {
		t.Fatalf("seed resume: %v", err)
	}
	return rec
}

type reprocessFixture struct {
	handler    *ReprocessTaskHandler
	fetcher    *fakeFetcher
	extractor  *fakeExtractor
	structurer *fakeStructurer
	updater    *fakeUpdater
}

// redis 客户端指向不可达地址：锁释放与通知失败只记日志，不影响结果。
func newReprocessFixture(t *testing.T, db *gorm.DB) *reprocessFixture {
	t.Helper()
	fetcher := &fakeFetcher{data: []byte("%PDF-1.4 fake")}
	extractor := &fakeExtractor{result: &extract.Result{Text: "raw resume text", NumPages: 2}}
	structurer := &fakeStructurer{parsed: &resume.ParsedResume{
		PersonalInfo: resume.PersonalInfo{Name: "Ada", Email: "ada@example.com"},
	}}
	updater := &fakeUpdater{}
	redisClient := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	return &reprocessFixture{
		handler:    NewReprocessTaskHandler(db, fetcher, extractor, structurer, updater, redisClient, slog.Default()),
		fetcher:    fetcher,
		extractor:  extractor,
		structurer: structurer,
		updater:    updater,
	}
}

func TestProcessTask_Success(t *testing.T) {
	db := newWorkerTestDB(t)
	rec := seedResume(t, db, "resumes/1/a.pdf")
	fx := newReprocessFixture(t, db)

	task, err := tasks.NewResumeReprocessTask(rec.ID, rec.UserID, "corr-1")
	if err != nil {
		t.Fatalf("build task: %v", err)
	}

	if err := fx.handler.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("process task: %v", err)
	}
	if fx.updater.calls != 1 {
		t.Fatalf("expected one update, got %d", fx.updater.calls)
	}
	if fx.updater.lastResumeID != rec.ID || fx.updater.lastRawText != "raw resume text" {
		t.Fatalf("update args = (%d, %q), want (%d, %q)",
			fx.updater.lastResumeID, fx.updater.lastRawText, rec.ID, "raw resume text")
	}
}

func TestProcessTask_ResumeGoneSkips(t *testing.T) {
	db := newWorkerTestDB(t)
	fx := newReprocessFixture(t, db)

	task, err := tasks.NewResumeReprocessTask(999, 1, "corr-2")
	if err != nil {
		t.Fatalf("build task: %v", err)
	}

	if err := fx.handler.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("missing resume should not be retried, got %v", err)
	}
	if fx.fetcher.calls != 0 {
		t.Error("storage should not be hit for a deleted resume")
	}
}

func TestProcessTask_NoSourceObjectSkips(t *testing.T) {
	db := newWorkerTestDB(t)
	rec := seedResume(t, db, "")
	fx := newReprocessFixture(t, db)

	task, err := tasks.NewResumeReprocessTask(rec.ID, rec.UserID, "corr-3")
	if err != nil {
		t.Fatalf("build task: %v", err)
	}

	if err := fx.handler.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("resume without source should not be retried, got %v", err)
	}
	if fx.fetcher.calls != 0 {
		t.Error("storage should not be hit when no source object exists")
	}
}

func TestProcessTask_ExtractFailurePropagates(t *testing.T) {
	db := newWorkerTestDB(t)
	rec := seedResume(t, db, "resumes/1/a.pdf")
	fx := newReprocessFixture(t, db)
	fx.extractor.result = nil
	fx.extractor.err = errors.New("failed to parse PDF")

	task, err := tasks.NewResumeReprocessTask(rec.ID, rec.UserID, "corr-4")
	if err != nil {
		t.Fatalf("build task: %v", err)
	}

	if err := fx.handler.ProcessTask(context.Background(), task); err == nil {
		t.Fatal("expected error so asynq retries the task")
	}
	if fx.updater.calls != 0 {
		t.Error("update should not run after extraction failure")
	}
}
