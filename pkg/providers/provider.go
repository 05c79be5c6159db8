package providers

import (
	"context"
	"time"
)

// Provider 翻译提供商接口。实现必须是纯请求/响应的：
// 除 HTTP 客户端和配置外不持有任何状态。
type Provider interface {
	// Translate 执行翻译
	Translate(ctx context.Context, req *Request) (*Response, error)

	// DetectLanguage 检测文本的语言，返回语言代码
	DetectLanguage(ctx context.Context, text string) (string, error)

	// Name 返回提供商名称
	Name() string
}

// Request 翻译请求
type Request struct {
	// Text 待翻译文本
	Text string `json:"text"`

	// SourceLanguage 源语言代码，为空时由提供商自行检测
	SourceLanguage string `json:"source_language,omitempty"`

	// TargetLanguage 目标语言代码
	TargetLanguage string `json:"target_language"`
}

// Response 翻译响应
type Response struct {
	// Text 翻译结果
	Text string `json:"text"`

	// DetectedSource 提供商检测到的源语言（如果有）
	DetectedSource string `json:"detected_source,omitempty"`
}

// BaseConfig 提供商基础配置
type BaseConfig struct {
	// API配置
	APIKey      string `json:"api_key,omitempty"`
	APIEndpoint string `json:"api_endpoint,omitempty"`

	// 超时
	Timeout time.Duration `json:"timeout"`

	// 自定义头部
	Headers map[string]string `json:"headers,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() BaseConfig {
	return BaseConfig{
		Timeout: 30 * time.Second,
		Headers: make(map[string]string),
	}
}
