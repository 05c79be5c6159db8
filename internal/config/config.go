package config

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

// Config 保存引擎和 CLI 的所有配置
type Config struct {
	// SourceLang 源语言代码，"auto" 表示启动时自动检测
	SourceLang string `mapstructure:"source_lang"`

	// TargetLang 目标语言代码
	TargetLang string `mapstructure:"target_lang"`

	// Provider 翻译提供商（google、openai、raw）
	Provider string `mapstructure:"provider"`

	// APIKey 提供商的 API 密钥
	APIKey string `mapstructure:"api_key"`

	// APIEndpoint 自定义 API 端点（为空时使用提供商默认值）
	APIEndpoint string `mapstructure:"api_endpoint"`

	// Enabled 功能开关，关闭时 CLI 不启动引擎
	Enabled bool `mapstructure:"enabled"`

	// BatchSize 每组并发翻译的单元数
	BatchSize int `mapstructure:"batch_size"`

	// BatchDelayMS 组与组之间的延迟（毫秒）
	BatchDelayMS int `mapstructure:"batch_delay_ms"`

	// DebounceMS 变更观察器的防抖窗口（毫秒）
	DebounceMS int `mapstructure:"debounce_ms"`

	// RescanIntervalMS 安全网全量重扫描间隔（毫秒）
	RescanIntervalMS int `mapstructure:"rescan_interval_ms"`

	// MinTextLength 可翻译文本的最小长度（去除空白后的字符数）
	MinTextLength int `mapstructure:"min_text_length"`

	// GlossaryPath 词汇表文件路径（TOML，可选）
	GlossaryPath string `mapstructure:"glossary_path"`

	// Debug 调试模式
	Debug bool `mapstructure:"debug"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		SourceLang:       "auto",
		TargetLang:       "zh",
		Provider:         "google",
		Enabled:          true,
		BatchSize:        5,
		BatchDelayMS:     150,
		DebounceMS:       80,
		RescanIntervalMS: 3000,
		MinTextLength:    2,
	}
}

// BatchDelay 返回组间延迟
func (c *Config) BatchDelay() time.Duration {
	return time.Duration(c.BatchDelayMS) * time.Millisecond
}

// DebounceWindow 返回防抖窗口
func (c *Config) DebounceWindow() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// RescanInterval 返回重扫描间隔
func (c *Config) RescanInterval() time.Duration {
	return time.Duration(c.RescanIntervalMS) * time.Millisecond
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.TargetLang == "" {
		return fmt.Errorf("target_lang is required")
	}
	if _, err := language.Parse(c.TargetLang); err != nil {
		return fmt.Errorf("invalid target_lang %q: %w", c.TargetLang, err)
	}
	if c.SourceLang != "" && c.SourceLang != "auto" {
		if _, err := language.Parse(c.SourceLang); err != nil {
			return fmt.Errorf("invalid source_lang %q: %w", c.SourceLang, err)
		}
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	if c.DebounceMS < 0 {
		return fmt.Errorf("debounce_ms must not be negative, got %d", c.DebounceMS)
	}
	if c.RescanIntervalMS <= 0 {
		return fmt.Errorf("rescan_interval_ms must be positive, got %d", c.RescanIntervalMS)
	}
	switch c.Provider {
	case "google", "openai", "raw":
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	return nil
}
