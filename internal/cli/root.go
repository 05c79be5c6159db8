package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-live-translator/internal/config"
	"github.com/nerdneilsfield/go-live-translator/internal/dom"
	"github.com/nerdneilsfield/go-live-translator/internal/engine"
	"github.com/nerdneilsfield/go-live-translator/internal/logger"
)

var (
	// 命令行标志变量
	cfgFile      string
	sourceLang   string
	targetLang   string
	providerName string
	apiKey       string
	glossaryPath string
	debugMode    bool
	watchMode    bool
	keepOutput   bool
)

// NewRootCommand 创建根命令
func NewRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "livetranslator [flags] input.html [output.html]",
		Short: "增量翻译持续变化的 HTML 文档",
		Long: `livetranslator 对 HTML 文档做增量翻译：发现可翻译的文本片段，
分批并发送往翻译服务，把译文以可识别的容器拼回树里，并持续观察
文档变更、翻译新出现的内容。停止时所有替换完整还原。

支持的翻译提供商:
  - google: Google Translate
  - openai: OpenAI 聊天模型
  - raw:    原样返回（测试/预演）`,
		Version: fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate),
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().StringVarP(&sourceLang, "source", "s", "", "源语言（auto 表示自动检测）")
	rootCmd.PersistentFlags().StringVarP(&targetLang, "target", "t", "", "目标语言")
	rootCmd.PersistentFlags().StringVarP(&providerName, "provider", "p", "", "翻译提供商")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "提供商 API 密钥")
	rootCmd.PersistentFlags().StringVar(&glossaryPath, "glossary", "", "词汇表文件路径（TOML）")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "调试模式")
	rootCmd.PersistentFlags().BoolVarP(&watchMode, "watch", "w", false, "观察输入文件变化并持续翻译")
	rootCmd.PersistentFlags().BoolVarP(&keepOutput, "keep", "k", false, "watch 模式退出时保留译文而不是还原")

	return rootCmd
}

// run 执行翻译
func run(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := logger.NewLogger(cfg.Debug)
	defer func() {
		_ = log.Sync()
	}()

	if !cfg.Enabled {
		pterm.Warning.Println("翻译功能已在配置中关闭（enabled: false）")
		return nil
	}

	inputPath := args[0]
	outputPath := ""
	if len(args) > 1 {
		outputPath = args[1]
	}

	// 加载词汇表
	glossary := config.EmptyGlossary()
	if cfg.GlossaryPath != "" {
		glossary, err = config.LoadGlossary(cfg.GlossaryPath)
		if err != nil {
			return err
		}
		log.Info("glossary loaded", zap.Int("terms", glossary.Size()))
	}

	// 构建提供商
	provider, err := buildProvider(cfg)
	if err != nil {
		return err
	}

	// 解析文档
	content, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}
	doc, err := dom.ParseString(string(content))
	if err != nil {
		return err
	}
	defer doc.Close()

	eng := engine.New(doc, provider, cfg, glossary, log)

	// 初始扫描 + 批处理
	spinner, _ := pterm.DefaultSpinner.Start("翻译文档中...")
	if err := eng.Start(context.Background()); err != nil {
		spinner.Fail("启动失败: " + err.Error())
		return err
	}
	spinner.Success(fmt.Sprintf("初始翻译完成，共 %d 处替换", eng.Registry().Size()))

	writeOutput := outputPath != ""
	if watchMode {
		stopWatch, err := watch(doc, inputPath, log)
		if err != nil {
			eng.Stop()
			return err
		}
		waitForInterrupt()
		stopWatch()
		// 没有 --keep 时退出即还原，不写出任何译文
		writeOutput = writeOutput && keepOutput
	}

	printSummary(eng.Registry(), cfg)

	// 先写出译文再停止：Stop 会把文档还原成原文
	if writeOutput {
		rendered, err := doc.Render()
		if err != nil {
			eng.Stop()
			return err
		}
		if err := os.WriteFile(outputPath, []byte(rendered), 0o644); err != nil {
			eng.Stop()
			return fmt.Errorf("failed to write output file: %w", err)
		}
		pterm.Info.Println("已写出 " + outputPath)
	}

	eng.Stop()
	return nil
}

// loadConfig 加载配置并用命令行标志覆盖
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}

	if sourceLang != "" {
		cfg.SourceLang = sourceLang
	}
	if targetLang != "" {
		cfg.TargetLang = targetLang
	}
	if providerName != "" {
		cfg.Provider = providerName
	}
	if apiKey != "" {
		cfg.APIKey = apiKey
	}
	if glossaryPath != "" {
		cfg.GlossaryPath = glossaryPath
	}
	if debugMode {
		cfg.Debug = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// waitForInterrupt 阻塞直到收到中断信号
func waitForInterrupt() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	pterm.Println()
	pterm.Info.Println("收到中断信号，正在退出")
}
