package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/nerdneilsfield/go-live-translator/internal/dom"
	"github.com/nerdneilsfield/go-live-translator/pkg/providers"
)

// identityThreshold 译文与原文相似度超过该值时视为翻译失败
const identityThreshold = 0.95

// BatchProcessor 批处理器：把可翻译单元按固定大小分组，组内并发翻译，
// 组间串行并留出间隔，避免打满远端服务。对调用方是 fire-and-forget，
// 内部通过 runMu 保证全局批次严格串行——后一批必须能看到前一批装好的
// 替换容器，幂等检查才成立。
type BatchProcessor struct {
	doc      *dom.Document
	provider providers.Provider
	registry *Registry
	inflight *ProcessingSet
	logger   *zap.Logger

	batchSize  int
	batchDelay time.Duration
	sourceLang string
	targetLang string

	// checkIdentity 是否启用"译文与原文几乎一样视为失败"的质量门
	checkIdentity bool

	runMu sync.Mutex
	wg    sync.WaitGroup
}

// BatchProcessorOptions 批处理器依赖
type BatchProcessorOptions struct {
	Document   *dom.Document
	Provider   providers.Provider
	Registry   *Registry
	InFlight   *ProcessingSet
	Logger     *zap.Logger
	BatchSize  int
	BatchDelay time.Duration
}

// NewBatchProcessor 创建批处理器
func NewBatchProcessor(opts BatchProcessorOptions) *BatchProcessor {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 5
	}
	return &BatchProcessor{
		doc:        opts.Document,
		provider:   opts.Provider,
		registry:   opts.Registry,
		inflight:   opts.InFlight,
		logger:     opts.Logger,
		batchSize:  opts.BatchSize,
		batchDelay: opts.BatchDelay,
	}
}

// SetLanguages 设置本次运行的语言对，checkIdentity 对 raw 提供商关闭
func (bp *BatchProcessor) SetLanguages(source, target string) {
	bp.sourceLang = source
	bp.targetLang = target
	bp.checkIdentity = bp.provider.Name() != "raw"
}

// Wait 等待所有进行中的处理结束（拆除时用）
func (bp *BatchProcessor) Wait() {
	bp.wg.Wait()
}

// Process 处理一批单元。单个单元失败只记日志，不影响兄弟单元。
func (bp *BatchProcessor) Process(ctx context.Context, units []*TextUnit) {
	if len(units) == 0 {
		return
	}

	bp.wg.Add(1)
	defer bp.wg.Done()

	bp.runMu.Lock()
	defer bp.runMu.Unlock()

	groups := partition(units, bp.batchSize)
	bp.logger.Debug("processing units",
		zap.Int("units", len(units)),
		zap.Int("groups", len(groups)))

	for i, group := range groups {
		if i > 0 && bp.batchDelay > 0 {
			select {
			case <-ctx.Done():
				bp.releaseUnits(groups[i:])
				return
			case <-time.After(bp.batchDelay):
			}
		}
		if ctx.Err() != nil {
			bp.releaseUnits(groups[i:])
			return
		}

		var wg sync.WaitGroup
		for _, unit := range group {
			wg.Add(1)
			go func(u *TextUnit) {
				defer wg.Done()
				bp.processUnit(ctx, u)
			}(unit)
		}
		wg.Wait()
	}
}

// processUnit 翻译并替换一个单元
func (bp *BatchProcessor) processUnit(ctx context.Context, unit *TextUnit) {
	defer bp.inflight.Remove(unit.Node)

	translated, err := bp.translate(ctx, strings.TrimSpace(unit.Text))
	if err != nil {
		// 失败的单元保留原文，不向外传播
		bp.logger.Warn("translation failed, leaving original text",
			zap.String("text", truncate(unit.Text, 80)),
			zap.Error(err))
		return
	}

	if bp.checkIdentity && similarity(strings.TrimSpace(unit.Text), translated) >= identityThreshold {
		bp.logger.Warn("translation identical to original, leaving original text",
			zap.String("text", truncate(unit.Text, 80)))
		return
	}

	bp.replace(unit, translated)
}

// translate 把单元文本切成句子片段并发翻译，按原顺序拼回
func (bp *BatchProcessor) translate(ctx context.Context, text string) (string, error) {
	segments := SplitSentences(text)
	if len(segments) == 0 {
		return "", providers.ErrEmptyText
	}

	results := make([]string, len(segments))
	errs := make([]error, len(segments))

	var wg sync.WaitGroup
	for i, seg := range segments {
		wg.Add(1)
		go func(idx int, s string) {
			defer wg.Done()
			resp, err := bp.provider.Translate(ctx, &providers.Request{
				Text:           s,
				SourceLanguage: bp.sourceLang,
				TargetLanguage: bp.targetLang,
			})
			if err != nil {
				errs[idx] = err
				return
			}
			results[idx] = resp.Text
		}(i, seg)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return "", err
		}
	}

	// 片段按原顺序用单个空格拼接，与网络返回顺序无关
	return strings.Join(results, " "), nil
}

// replace 幂等替换：挂载检查、容器检查、内容核对、注册表登记和
// 树替换在文档锁内一步完成。选中单元到此刻隔着一次网络往返，
// 任何旧读取都不可信。
func (bp *BatchProcessor) replace(unit *TextUnit, translated string) {
	id := NewContainerID()
	container := dom.NewElement("span", map[string]string{
		"class":      MarkerClass,
		AttrID:       id,
		AttrOriginal: strings.TrimSpace(unit.Text),
	})
	container.AppendChild(dom.NewText(translated))

	var rec *ReplacementRecord
	err := bp.doc.ReplaceNode(unit.Node, container, func(old *html.Node) bool {
		// 可能已被并发调度的另一批处理过
		if dom.HasAncestorWithClass(old, MarkerClass) {
			return false
		}
		// 翻译往返期间宿主改写了节点内容，这份译文已经过期。
		// 放弃替换并释放在途标记，当前文本由安全网扫描重新捞起。
		if old.Data != unit.Text {
			return false
		}
		// 拆除已开始时注册被拒绝，替换随之放弃
		r, ok := bp.registry.Register(id, container, old.Data, translated)
		if !ok {
			return false
		}
		rec = r
		return true
	})

	switch err {
	case nil:
		bp.logger.Debug("unit replaced",
			zap.String("id", rec.ID),
			zap.Uint64("seq", rec.Seq),
			zap.String("original", truncate(rec.OriginalText, 80)),
			zap.String("translated", truncate(translated, 80)))
	case dom.ErrDetached:
		// 活文档的正常结果：位置在选中和替换之间被移除了
		bp.logger.Debug("unit detached before replacement",
			zap.String("text", truncate(unit.Text, 80)))
	case dom.ErrRejected:
		bp.logger.Debug("replacement rejected",
			zap.String("text", truncate(unit.Text, 80)))
	default:
		bp.logger.Warn("replacement failed",
			zap.String("text", truncate(unit.Text, 80)),
			zap.Error(err))
	}
}

// releaseUnits 把未处理的组从在途集合中摘除
func (bp *BatchProcessor) releaseUnits(groups [][]*TextUnit) {
	for _, group := range groups {
		for _, unit := range group {
			bp.inflight.Remove(unit.Node)
		}
	}
}

// partition 把单元切成固定大小的组
func partition(units []*TextUnit, size int) [][]*TextUnit {
	var groups [][]*TextUnit
	for len(units) > size {
		groups = append(groups, units[:size])
		units = units[size:]
	}
	if len(units) > 0 {
		groups = append(groups, units)
	}
	return groups
}

// similarity 计算两段文本的相似度（编辑距离归一化）
func similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	la := len([]rune(a))
	lb := len([]rune(b))
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	if maxLen == 0 {
		return 1.0
	}
	dist := fuzzy.LevenshteinDistance(a, b)
	return 1.0 - float64(dist)/float64(maxLen)
}

// truncate 截断文本用于日志显示
func truncate(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}
