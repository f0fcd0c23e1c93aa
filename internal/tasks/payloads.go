package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeResumeReprocess = "resume:reprocess"
	TypeUploadCleanup   = "upload:cleanup"
)

// ResumeReprocessPayload 描述重新解析一份简历所需的最小信息。
type ResumeReprocessPayload struct {
	ResumeID      uint   `json:"resume_id"`
	UserID        uint   `json:"user_id"`
	CorrelationID string `json:"correlation_id"`
}

// UploadCleanupPayload 指向一个需要回收的孤儿对象。
// 只有在持久化失败、对象已无主时才会入队。
type UploadCleanupPayload struct {
	ObjectKey string `json:"object_key"`
}

// NewResumeReprocessTask 构造简历重解析任务。
func NewResumeReprocessTask(resumeID, userID uint, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ResumeReprocessPayload{
		ResumeID:      resumeID,
		UserID:        userID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeResumeReprocess, payload), nil
}

// NewUploadCleanupTask 构造孤儿对象清理任务。
func NewUploadCleanupTask(objectKey string) (*asynq.Task, error) {
	payload, err := json.Marshal(UploadCleanupPayload{ObjectKey: objectKey})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeUploadCleanup, payload), nil
}
