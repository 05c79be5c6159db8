package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// 预定义错误
var (
	// ErrEmptyText 空文本错误
	ErrEmptyText = errors.New("empty text provided")

	// ErrNoAPIKey 缺少 API 密钥
	ErrNoAPIKey = errors.New("API key not configured")

	// ErrEmptyResult 提供商返回了空结果
	ErrEmptyResult = errors.New("provider returned empty result")
)

// Error 提供商错误
type Error struct {
	Code    string // 错误代码
	Message string // 错误消息
	Cause   error  // 原因
	Retry   bool   // 是否可重试
}

// Error 实现error接口
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回原因错误
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable 是否可重试
func (e *Error) IsRetryable() bool {
	return e.Retry
}

// 错误代码常量
const (
	ErrCodeNetwork   = "NETWORK_ERROR"
	ErrCodeRateLimit = "RATE_LIMIT_ERROR"
	ErrCodeAuth      = "AUTH_ERROR"
	ErrCodePayload   = "PAYLOAD_ERROR"
	ErrCodeUnknown   = "UNKNOWN_ERROR"
)

// NewError 创建提供商错误
func NewError(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
		Retry:   isRetryableError(cause),
	}
}

// isRetryableError 判断错误是否可重试
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"timeout",
		"deadline exceeded",
		"connection refused",
		"connection reset",
		"temporary failure",
		"rate limit",
		"429",
		"503",
		"504",
		"broken pipe",
		"no such host",
		"network is unreachable",
		"i/o timeout",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
