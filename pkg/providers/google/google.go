package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/nerdneilsfield/go-live-translator/pkg/providers"
)

// defaultEndpoint Google Translation API v2 endpoint
const defaultEndpoint = "https://translation.googleapis.com/language/translate/v2"

// Config Google Translate配置
type Config struct {
	providers.BaseConfig
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	config := Config{
		BaseConfig: providers.DefaultConfig(),
	}
	config.APIEndpoint = defaultEndpoint
	return config
}

// Provider Google Translate提供商
type Provider struct {
	config     Config
	httpClient *http.Client
}

// New 创建新的Google Translate提供商
func New(config Config) *Provider {
	if config.APIEndpoint == "" {
		config.APIEndpoint = defaultEndpoint
	}

	return &Provider{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name 获取提供商名称
func (p *Provider) Name() string {
	return "google"
}

// translateResponse 翻译接口响应体
type translateResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText         string `json:"translatedText"`
			DetectedSourceLanguage string `json:"detectedSourceLanguage,omitempty"`
		} `json:"translations"`
	} `json:"data"`
}

// detectResponse 语言检测接口响应体
type detectResponse struct {
	Data struct {
		Detections [][]struct {
			Language   string  `json:"language"`
			Confidence float64 `json:"confidence"`
		} `json:"detections"`
	} `json:"data"`
}

// Translate 执行翻译
func (p *Provider) Translate(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, providers.ErrEmptyText
	}
	if p.config.APIKey == "" {
		return nil, providers.ErrNoAPIKey
	}

	params := url.Values{}
	params.Set("q", req.Text)
	params.Set("target", normalizeLanguageCode(req.TargetLanguage))
	params.Set("format", "text")
	if req.SourceLanguage != "" && req.SourceLanguage != "auto" {
		params.Set("source", normalizeLanguageCode(req.SourceLanguage))
	}

	var resp translateResponse
	if err := p.post(ctx, p.config.APIEndpoint, params, &resp); err != nil {
		return nil, err
	}

	if len(resp.Data.Translations) == 0 {
		return nil, providers.ErrEmptyResult
	}

	return &providers.Response{
		Text:           resp.Data.Translations[0].TranslatedText,
		DetectedSource: resp.Data.Translations[0].DetectedSourceLanguage,
	}, nil
}

// DetectLanguage 检测文本语言
func (p *Provider) DetectLanguage(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", providers.ErrEmptyText
	}
	if p.config.APIKey == "" {
		return "", providers.ErrNoAPIKey
	}

	params := url.Values{}
	params.Set("q", text)

	var resp detectResponse
	if err := p.post(ctx, p.config.APIEndpoint+"/detect", params, &resp); err != nil {
		return "", err
	}

	if len(resp.Data.Detections) == 0 || len(resp.Data.Detections[0]) == 0 {
		return "", providers.ErrEmptyResult
	}

	return resp.Data.Detections[0][0].Language, nil
}

// post 发送表单请求并解析 JSON 响应
func (p *Provider) post(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	reqURL := fmt.Sprintf("%s?key=%s", endpoint, url.QueryEscape(p.config.APIKey))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, strings.NewReader(params.Encode()))
	if err != nil {
		return providers.NewError(providers.ErrCodeUnknown, "failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range p.config.Headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return providers.NewError(providers.ErrCodeNetwork, "request failed", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return providers.NewError(providers.ErrCodeNetwork, "failed to read response", err)
	}

	switch {
	case httpResp.StatusCode == http.StatusOK:
	case httpResp.StatusCode == http.StatusTooManyRequests:
		return providers.NewError(providers.ErrCodeRateLimit,
			fmt.Sprintf("rate limited: %s", string(body)), fmt.Errorf("status 429"))
	case httpResp.StatusCode == http.StatusUnauthorized || httpResp.StatusCode == http.StatusForbidden:
		return providers.NewError(providers.ErrCodeAuth,
			fmt.Sprintf("authentication failed: status %d", httpResp.StatusCode), nil)
	default:
		return providers.NewError(providers.ErrCodeUnknown,
			fmt.Sprintf("unexpected status %d: %s", httpResp.StatusCode, string(body)),
			fmt.Errorf("status %d", httpResp.StatusCode))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return providers.NewError(providers.ErrCodePayload, "failed to decode response", err)
	}
	return nil
}

// normalizeLanguageCode 规范化语言代码（Google 使用 zh-CN 风格）
func normalizeLanguageCode(code string) string {
	switch strings.ToLower(code) {
	case "zh", "zh-cn", "zh-hans":
		return "zh-CN"
	case "zh-tw", "zh-hant":
		return "zh-TW"
	default:
		return strings.ToLower(code)
	}
}
