package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// 统一的 WebSocket 消息协议（通过 Redis Pub/Sub 转发给前端）。
// 字段名与前端解析保持一致。
type IngestNotifyMessage struct {
	Status        string `json:"status"`
	ResumeID      uint   `json:"resume_id"`
	CorrelationID string `json:"correlation_id"`
	ErrorCode     int    `json:"error_code"`
	ErrorMessage  string `json:"error_message,omitempty"`
}

// UserNotifyChannel 返回某个用户的 Pub/Sub 频道名。
func UserNotifyChannel(userID uint) string {
	return fmt.Sprintf("notify:user:%d", userID)
}

// PublishIngestNotify 把处理结果推送到用户的通知频道。
func PublishIngestNotify(ctx context.Context, redisClient *redis.Client, userID uint, msg IngestNotifyMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notify message: %w", err)
	}
	if err := redisClient.Publish(ctx, UserNotifyChannel(userID), payload).Err(); err != nil {
		return fmt.Errorf("publish notify message: %w", err)
	}
	return nil
}
