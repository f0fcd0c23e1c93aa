package tasks

import "fmt"

// ReprocessLockKey 是某份简历重解析的 Redis 互斥键。
// API 入队前 SETNX 占位，worker 处理结束后释放。
func ReprocessLockKey(resumeID uint) string {
	return fmt.Sprintf("lock:reprocess:%d", resumeID)
}
