package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/nerdneilsfield/go-live-translator/pkg/providers"
	openai "github.com/sashabaranov/go-openai"
)

// Config OpenAI配置
type Config struct {
	providers.BaseConfig
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		BaseConfig:  providers.DefaultConfig(),
		Model:       "gpt-4o-mini",
		Temperature: 0.3,
		MaxTokens:   2048,
	}
}

// Provider 基于聊天补全的 OpenAI 翻译提供商
type Provider struct {
	config Config
	client *openai.Client
}

// New 创建新的OpenAI提供商
func New(config Config) *Provider {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.APIEndpoint != "" {
		// go-openai 的 API 后缀以斜杠开头，去掉尾部斜杠避免双斜杠
		clientConfig.BaseURL = strings.TrimSuffix(config.APIEndpoint, "/")
	}

	return &Provider{
		config: config,
		client: openai.NewClientWithConfig(clientConfig),
	}
}

// Name 获取提供商名称
func (p *Provider) Name() string {
	return "openai"
}

// Translate 执行翻译
func (p *Provider) Translate(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, providers.ErrEmptyText
	}

	source := req.SourceLanguage
	if source == "" || source == "auto" {
		source = "the detected source language"
	}

	chatReq := openai.ChatCompletionRequest{
		Model: p.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "You are a professional translator. Translate accurately while preserving " +
					"the original meaning and tone. Output only the translation, nothing else.",
			},
			{
				Role: openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Translate the following text from %s to %s:\n\n%s",
					source, req.TargetLanguage, req.Text),
			},
		},
		Temperature: p.config.Temperature,
		MaxTokens:   p.config.MaxTokens,
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, providers.NewError(providers.ErrCodeNetwork, "chat completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return nil, providers.ErrEmptyResult
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return nil, providers.ErrEmptyResult
	}

	return &providers.Response{Text: text}, nil
}

// DetectLanguage 检测文本语言
func (p *Provider) DetectLanguage(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", providers.ErrEmptyText
	}

	chatReq := openai.ChatCompletionRequest{
		Model: p.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "Identify the language of the user's text. " +
					"Reply with only the BCP 47 language code (e.g. en, fr, zh).",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
		Temperature: 0,
		MaxTokens:   8,
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", providers.NewError(providers.ErrCodeNetwork, "language detection failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", providers.ErrEmptyResult
	}

	code := strings.ToLower(strings.TrimSpace(resp.Choices[0].Message.Content))
	if code == "" {
		return "", providers.ErrEmptyResult
	}
	return code, nil
}
