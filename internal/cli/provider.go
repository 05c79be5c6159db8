package cli

import (
	"fmt"

	"github.com/nerdneilsfield/go-live-translator/internal/config"
	"github.com/nerdneilsfield/go-live-translator/pkg/providers"
	"github.com/nerdneilsfield/go-live-translator/pkg/providers/google"
	"github.com/nerdneilsfield/go-live-translator/pkg/providers/openai"
	"github.com/nerdneilsfield/go-live-translator/pkg/providers/raw"
)

// buildProvider 根据配置构建翻译提供商
func buildProvider(cfg *config.Config) (providers.Provider, error) {
	switch cfg.Provider {
	case "google":
		gcfg := google.DefaultConfig()
		gcfg.APIKey = cfg.APIKey
		if cfg.APIEndpoint != "" {
			gcfg.APIEndpoint = cfg.APIEndpoint
		}
		return google.New(gcfg), nil
	case "openai":
		ocfg := openai.DefaultConfig()
		ocfg.APIKey = cfg.APIKey
		if cfg.APIEndpoint != "" {
			ocfg.APIEndpoint = cfg.APIEndpoint
		}
		return openai.New(ocfg), nil
	case "raw":
		return raw.New(), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
