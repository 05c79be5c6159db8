package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// LoadConfig 加载配置文件，configPath 为空时搜索默认路径
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// 默认配置路径
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}

		v.AddConfigPath(home)
		v.AddConfigPath(".")
		v.SetConfigName(".livetranslator")
		v.SetConfigType("yaml")
	}

	// 环境变量覆盖（LIVETRANSLATOR_API_KEY 等）
	v.SetEnvPrefix("LIVETRANSLATOR")
	v.AutomaticEnv()

	cfg := DefaultConfig()

	// 读取配置
	if err := v.ReadInConfig(); err != nil {
		// 没有配置文件时使用默认配置
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// 解析配置
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 验证配置
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
