package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"resumeingest/internal/database"
	"resumeingest/internal/errcode"
	"resumeingest/internal/extract"
	"resumeingest/internal/resume"
	"resumeingest/internal/tasks"
)

type textExtractor interface {
	Extract(ctx context.Context, in extract.Input) (*extract.Result, error)
}

type resumeStructurer interface {
	Structure(ctx context.Context, text string) (*resume.ParsedResume, error)
}

type sectionUpdater interface {
	UpdateWithSections(ctx context.Context, resumeID uint, rawText string, parsed *resume.ParsedResume) (*database.Resume, error)
}

type objectFetcher interface {
	FetchObject(ctx context.Context, objectKey string) ([]byte, error)
}

// ReprocessTaskHandler 消费简历重解析任务：
// 从对象存储取回源 PDF，重新走提取→结构化→落库流水线。
type ReprocessTaskHandler struct {
	db          *gorm.DB
	storage     objectFetcher
	extractor   textExtractor
	structurer  resumeStructurer
	repo        sectionUpdater
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewReprocessTaskHandler 创建任务处理器。
func NewReprocessTaskHandler(
	db *gorm.DB,
	storage objectFetcher,
	extractor textExtractor,
	structurerSvc resumeStructurer,
	repo sectionUpdater,
	redisClient *redis.Client,
	logger *slog.Logger,
) *ReprocessTaskHandler {
	return &ReprocessTaskHandler{
		db:          db,
		storage:     storage,
		extractor:   extractor,
		structurer:  structurerSvc,
		repo:        repo,
		redisClient: redisClient,
		logger:      logger,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *ReprocessTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.ResumeReprocessPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return err
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Uint64("resume_id", uint64(payload.ResumeID)),
		slog.Uint64("user_id", uint64(payload.UserID)),
	)
	log.Info("starting resume reprocess task")

	var rec database.Resume
	if err := h.db.WithContext(ctx).First(&rec, payload.ResumeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("resume not found, skipping task")
			h.releaseLock(ctx, payload.ResumeID, log)
			return nil
		}
		log.Error("query resume failed", slog.Any("error", err))
		return err
	}

	defer func() {
		if retErr == nil {
			return
		}
		if !isFinalAsynqAttempt(ctx) {
			return
		}
		h.releaseLock(ctx, payload.ResumeID, log)
		notify := IngestNotifyMessage{
			Status:        "error",
			ResumeID:      rec.ID,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     errcode.SystemError,
			ErrorMessage:  errcode.UserMessage(retErr),
		}
		if err := PublishIngestNotify(ctx, h.redisClient, payload.UserID, notify); err != nil {
			log.Error("publish failure notify failed", slog.Any("error", err))
		}
	}()

	if strings.TrimSpace(rec.ResumeURL) == "" {
		log.Warn("resume has no stored source file, skipping task")
		h.releaseLock(ctx, payload.ResumeID, log)
		return nil
	}

	data, err := h.storage.FetchObject(ctx, rec.ResumeURL)
	if err != nil {
		log.Error("fetch source object failed", slog.Any("error", err))
		return err
	}

	extracted, err := h.extractor.Extract(ctx, extract.Input{Buffer: data})
	if err != nil {
		log.Error("extract text failed", slog.Any("error", err))
		return err
	}

	parsed, err := h.structurer.Structure(ctx, extracted.Text)
	if err != nil {
		log.Error("structure resume failed", slog.Any("error", err))
		return err
	}

	if _, err := h.repo.UpdateWithSections(ctx, rec.ID, extracted.Text, parsed); err != nil {
		log.Error("update resume failed", slog.Any("error", err))
		return err
	}

	h.releaseLock(ctx, payload.ResumeID, log)

	notify := IngestNotifyMessage{
		Status:        "ok",
		ResumeID:      rec.ID,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     errcode.OK,
	}
	if err := PublishIngestNotify(ctx, h.redisClient, payload.UserID, notify); err != nil {
		log.Error("publish success notify failed", slog.Any("error", err))
	}

	log.Info("resume reprocess task done", slog.Int("pages", extracted.NumPages))
	return nil
}

func (h *ReprocessTaskHandler) releaseLock(ctx context.Context, resumeID uint, log *slog.Logger) {
	if err := h.redisClient.Del(ctx, tasks.ReprocessLockKey(resumeID)).Err(); err != nil {
		log.Error("release reprocess lock failed", slog.Any("error", err))
	}
}

// isFinalAsynqAttempt 判断当前是否最后一次重试，用于只在终态时对外通知。
func isFinalAsynqAttempt(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return true
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		return true
	}
	return retried >= maxRetry
}
