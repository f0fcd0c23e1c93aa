package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"
)

type objectDeleter interface {
	DeleteObject(ctx context.Context, objectKey string) error
}

// CleanupTaskHandler 回收持久化失败后遗留的孤儿对象。
// 删除是幂等的，重复投递无副作用。
type CleanupTaskHandler struct {
	storage objectDeleter
	logger  *slog.Logger
}

// NewCleanupTaskHandler 创建任务处理器。
func NewCleanupTaskHandler(storage objectDeleter, logger *slog.Logger) *CleanupTaskHandler {
	return &CleanupTaskHandler{storage: storage, logger: logger}
}

// ProcessTask 实现 asynq.Handler。
func (h *CleanupTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload struct {
		ObjectKey string `json:"object_key"`
	}
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.logger.Error("unmarshal cleanup payload failed", slog.Any("error", err))
		return err
	}

	key := strings.TrimSpace(payload.ObjectKey)
	if key == "" {
		return nil
	}

	if err := h.storage.DeleteObject(ctx, key); err != nil {
		h.logger.Error("delete orphaned object failed",
			slog.String("object_key", key),
			slog.Any("error", err),
		)
		return err
	}

	h.logger.Info("orphaned object removed", slog.String("object_key", key))
	return nil
}
