package raw

import (
	"context"

	"github.com/nerdneilsfield/go-live-translator/pkg/providers"
)

// Provider Raw 提供商实现（跳过翻译，直接返回原文，用于测试和预演）
type Provider struct{}

// New 创建新的 Raw 提供商
func New() *Provider {
	return &Provider{}
}

// Name 获取提供商名称
func (p *Provider) Name() string {
	return "raw"
}

// Translate 执行翻译（直接返回原文）
func (p *Provider) Translate(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	return &providers.Response{
		Text:           req.Text,
		DetectedSource: req.SourceLanguage,
	}, nil
}

// DetectLanguage 检测文本语言（固定返回 en）
func (p *Provider) DetectLanguage(ctx context.Context, text string) (string, error) {
	return "en", nil
}
