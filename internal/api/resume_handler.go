package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"

	"resumeingest/internal/api/middleware"
	"resumeingest/internal/database"
	"resumeingest/internal/resume"
	"resumeingest/internal/tasks"
)

// reprocessLockTTL 限制同一份简历的重解析间隔，防止并发重复处理。
const reprocessLockTTL = 10 * time.Minute

var errInvalidResumeID = errors.New("invalid resume id")

// ResumeHandler 负责简历的查询、删除与异步重解析。
type ResumeHandler struct {
	repo        *resume.Repository
	storage     objectRemover
	asynqClient taskEnqueuer
	redisClient *redis.Client
	logger      *slog.Logger
}

type objectRemover interface {
	DeleteObject(ctx context.Context, objectKey string) error
}

// NewResumeHandler 构造 ResumeHandler。
func NewResumeHandler(
	repo *resume.Repository,
	storageClient objectRemover,
	asynqClient taskEnqueuer,
	redisClient *redis.Client,
	logger *slog.Logger,
) *ResumeHandler {
	return &ResumeHandler{
		repo:        repo,
		storage:     storageClient,
		asynqClient: asynqClient,
		redisClient: redisClient,
		logger:      logger,
	}
}

type resumeListItem struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	ResumeURL string    `json:"resume_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type sectionResponse struct {
	Type    string         `json:"type"`
	Title   string         `json:"title"`
	Content datatypes.JSON `json:"content"`
	Order   int            `json:"order"`
}

type resumeDetailResponse struct {
	ID        uint              `json:"id"`
	Title     string            `json:"title"`
	ResumeURL string            `json:"resume_url,omitempty"`
	RawText   string            `json:"raw_text"`
	Sections  []sectionResponse `json:"sections"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// ListResumes 列出用户全部简历。
func (h *ResumeHandler) ListResumes(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	resumes, err := h.repo.ListByUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("list resumes failed", slog.Any("error", err))
		Internal(c, "failed to list resumes")
		return
	}

	items := make([]resumeListItem, 0, len(resumes))
	for _, r := range resumes {
		items = append(items, resumeListItem{
			ID:        r.ID,
			Title:     r.Title,
			ResumeURL: r.ResumeURL,
			CreatedAt: r.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, items)
}

// GetResume 返回指定简历及其全部 Section（按固定顺序）。
func (h *ResumeHandler) GetResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	rec, err := h.getResumeForUser(c, userID)
	if err != nil {
		return
	}

	sections := make([]sectionResponse, 0, len(rec.Sections))
	for _, s := range rec.Sections {
		sections = append(sections, sectionResponse{
			Type:    s.Type,
			Title:   s.Title,
			Content: s.Content,
			Order:   s.Order,
		})
	}

	c.JSON(http.StatusOK, resumeDetailResponse{
		ID:        rec.ID,
		Title:     rec.Title,
		ResumeURL: rec.ResumeURL,
		RawText:   rec.RawContent,
		Sections:  sections,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	})
}

// DeleteResume 删除指定简历，并尽力回收托管的源文件。
func (h *ResumeHandler) DeleteResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	rec, err := h.getResumeForUser(c, userID)
	if err != nil {
		return
	}

	ctx := c.Request.Context()
	if err := h.repo.Delete(ctx, rec.ID, userID); err != nil {
		h.logger.Error("delete resume failed", slog.Any("error", err))
		Internal(c, "failed to delete resume")
		return
	}

	if isValidUserResumeObjectKey(userID, rec.ResumeURL) {
		if err := h.storage.DeleteObject(ctx, rec.ResumeURL); err != nil {
			h.logger.Error("delete source object failed",
				slog.String("object_key", rec.ResumeURL),
				slog.Any("error", err),
			)
		}
	}

	c.Status(http.StatusNoContent)
}

// Reprocess 将简历重解析任务入队并立即返回 202。
// 同一份简历同时只允许一个在途任务，冲突时返回 409。
func (h *ResumeHandler) Reprocess(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	rec, err := h.getResumeForUser(c, userID)
	if err != nil {
		return
	}

	if rec.ResumeURL == "" {
		Conflict(c, "resume has no stored source file")
		return
	}

	ctx := c.Request.Context()
	acquired, err := h.redisClient.SetNX(ctx, tasks.ReprocessLockKey(rec.ID), "1", reprocessLockTTL).Result()
	if err != nil {
		h.logger.Error("acquire reprocess lock failed", slog.Any("error", err))
		Internal(c, "failed to schedule reprocess")
		return
	}
	if !acquired {
		Conflict(c, "reprocess already in progress")
		return
	}

	correlationID := middleware.GetCorrelationID(c)
	task, err := tasks.NewResumeReprocessTask(rec.ID, userID, correlationID)
	if err != nil {
		h.releaseLock(ctx, rec.ID)
		Internal(c, "failed to create task")
		return
	}

	info, err := h.asynqClient.Enqueue(task, asynq.MaxRetry(3))
	if err != nil {
		h.releaseLock(ctx, rec.ID)
		h.logger.Error("enqueue reprocess task failed", slog.Any("error", err))
		Internal(c, "failed to enqueue reprocess")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "resume reprocess request accepted",
		"task_id": info.ID,
	})
}

func (h *ResumeHandler) releaseLock(ctx context.Context, resumeID uint) {
	if err := h.redisClient.Del(ctx, tasks.ReprocessLockKey(resumeID)).Err(); err != nil {
		h.logger.Error("release reprocess lock failed", slog.Any("error", err))
	}
}

// getResumeForUser 解析路径参数并做归属校验，失败时已写好响应。
func (h *ResumeHandler) getResumeForUser(c *gin.Context, userID uint) (*database.Resume, error) {
	resumeID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid resume id")
		return nil, errInvalidResumeID
	}

	rec, err := h.repo.GetWithSections(c.Request.Context(), uint(resumeID), userID)
	if err != nil {
		if errors.Is(err, resume.ErrResumeNotFound) {
			NotFound(c, "resume not found")
		} else {
			h.logger.Error("query resume failed", slog.Any("error", err))
			Internal(c, "failed to query resume")
		}
		return nil, err
	}
	return rec, nil
}

func userIDFromContext(c *gin.Context) (uint, bool) {
	value, exists := c.Get("userID")
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	case uint64:
		return uint(v), true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	default:
		return 0, false
	}
}
