package api

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// isValidUserResumeObjectKey 校验对象 key 属于指定用户且形如
// resumes/{userID}/{uuid}.pdf，拒绝路径穿越与异常字符。
func isValidUserResumeObjectKey(userID uint, key string) bool {
	if key == "" || !utf8.ValidString(key) {
		return false
	}
	expected := fmt.Sprintf("resumes/%d/", userID)
	if !strings.HasPrefix(key, expected) {
		return false
	}
	if strings.Contains(key, "..") || strings.Contains(key, "\\") || strings.Contains(key, "//") {
		return false
	}
	if len(key) > 200 {
		return false
	}
	lower := strings.ToLower(strings.TrimSpace(key))
	return strings.HasSuffix(lower, ".pdf")
}
