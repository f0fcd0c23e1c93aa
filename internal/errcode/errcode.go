package errcode

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 标识错误发生在流水线的哪个阶段，决定对外的 HTTP 状态码。
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthorized
	KindBadRequest
	KindExtraction
	KindStructuring
	KindPersistence
)

// 错误码约定：
// - 0：无错误
// - 4xxx：业务可恢复/告警类错误
// - 5xxx：系统错误（需要中断流程）
const (
	OK              = 0
	ResourceMissing = 4004
	SystemError     = 5000
)

// Error 携带错误类别与面向用户的短消息；底层原因仅用于日志，绝不下发。
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New 构造不包裹底层错误的 Error。
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap 包裹底层错误并附带短消息。
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// Wrapf 同 Wrap，消息支持格式化。
func Wrapf(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf 提取错误类别，非 *Error 一律视为 Internal。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// UserMessage 返回可直接展示的短消息；未知错误给出统一兜底文案。
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

// HTTPStatus 映射类别到状态码：Unauthorized→401，BadRequest→400，其余→500。
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Is 判断错误是否属于给定类别。
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
