package engine

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/nerdneilsfield/go-live-translator/internal/config"
	"github.com/nerdneilsfield/go-live-translator/internal/dom"
	"github.com/nerdneilsfield/go-live-translator/pkg/providers"
)

// State 引擎状态
type State int

const (
	StateIdle     State = iota // 空闲
	StateStarting              // 启动中（初始扫描和批处理）
	StateRunning               // 运行中
	StateStopping              // 拆除中
)

// String 返回状态名称
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Engine 引擎控制器。每个文档一个实例，由嵌入方显式持有；
// 依赖全部走构造注入，没有包级单例。Start 和 Stop 是仅有的
// 两个入口，从任何状态重复调用都是安全的。
type Engine struct {
	doc      *dom.Document
	provider providers.Provider
	cfg      *config.Config
	logger   *zap.Logger

	classifier *Classifier
	registry   *Registry
	inflight   *ProcessingSet
	batch      *BatchProcessor
	observer   *ChangeObserver
	rescanner  *Rescanner

	mu        sync.Mutex
	state     State
	runCtx    context.Context
	runCancel context.CancelFunc

	sourceLang string
}

// New 创建引擎控制器
func New(doc *dom.Document, provider providers.Provider, cfg *config.Config,
	glossary *config.Glossary, logger *zap.Logger,
) *Engine {
	e := &Engine{
		doc:        doc,
		provider:   provider,
		cfg:        cfg,
		logger:     logger,
		classifier: NewClassifier(cfg.MinTextLength, glossary),
		registry:   NewRegistry(),
		inflight:   NewProcessingSet(),
	}
	e.batch = NewBatchProcessor(BatchProcessorOptions{
		Document:   doc,
		Provider:   provider,
		Registry:   e.registry,
		InFlight:   e.inflight,
		Logger:     logger,
		BatchSize:  cfg.BatchSize,
		BatchDelay: cfg.BatchDelay(),
	})
	e.observer = NewChangeObserver(doc, e.classifier, e.batch, e.inflight, cfg.DebounceWindow(), logger)
	e.rescanner = NewRescanner(cfg.RescanInterval(), e.rescan, logger)
	return e
}

// State 返回当前状态
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Registry 返回替换记录注册表（嵌入方只读使用）
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Start 启动引擎：初始全量扫描并批处理，然后挂上变更观察器和
// 安全网扫描器。已在启动中或运行中时是无副作用的空操作——宿主
// 应用里多个独立触发源都可能请求激活。
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.state != StateIdle {
		e.mu.Unlock()
		e.logger.Debug("start ignored", zap.String("state", e.state.String()))
		return nil
	}
	e.state = StateStarting
	runCtx, cancel := context.WithCancel(context.Background())
	e.runCtx = runCtx
	e.runCancel = cancel
	e.registry.Reopen()
	e.inflight.Clear()
	e.mu.Unlock()

	e.logger.Info("engine starting",
		zap.String("provider", e.provider.Name()),
		zap.String("sourceLang", e.cfg.SourceLang),
		zap.String("targetLang", e.cfg.TargetLang))

	e.resolveSourceLanguage(ctx)
	e.batch.SetLanguages(e.sourceLang, e.cfg.TargetLang)

	// 初始全量扫描 + 批处理。Stop 在此期间到来时会等待这一批
	// 静止（batch.Wait），迟到的替换被冻结的注册表拒绝。
	units := e.collectScan()
	e.logger.Info("initial scan completed", zap.Int("units", len(units)))
	e.batch.Process(runCtx, units)

	e.mu.Lock()
	if e.state != StateStarting {
		// Stop 抢在启动完成之前介入，剩下的拆除交给它
		e.mu.Unlock()
		return nil
	}
	if err := e.observer.Attach(runCtx); err != nil {
		e.state = StateStopping
		e.mu.Unlock()
		// 订阅机制不可用是系统性故障：回滚初始批次并以启动失败上抛
		e.teardown()
		e.mu.Lock()
		e.state = StateIdle
		e.mu.Unlock()
		return fmt.Errorf("failed to attach change observer: %w", err)
	}
	e.rescanner.Start()
	e.state = StateRunning
	e.mu.Unlock()

	e.logger.Info("engine running", zap.Int("replacements", e.registry.Size()))
	return nil
}

// Stop 停止引擎：摘掉观察器和定时器，等待在途批次静止，然后
// 还原所有替换并清空注册表。从任何状态重复调用都是安全的。
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.state == StateIdle || e.state == StateStopping {
		e.mu.Unlock()
		e.logger.Debug("stop ignored", zap.String("state", e.state.String()))
		return
	}
	e.state = StateStopping
	if e.runCancel != nil {
		e.runCancel()
		e.runCancel = nil
	}
	e.mu.Unlock()

	e.logger.Info("engine stopping")
	e.teardown()

	e.mu.Lock()
	e.state = StateIdle
	e.mu.Unlock()
	e.logger.Info("engine stopped")
}

// teardown 拆除：冻结注册表、等待批次静止、还原全部替换
func (e *Engine) teardown() {
	e.observer.Detach()
	e.rescanner.Stop()
	e.registry.Freeze()
	e.batch.Wait()

	records := e.registry.Drain()
	reverted := 0
	discarded := 0
	for _, rec := range records {
		err := e.doc.ReplaceNode(rec.Container, dom.NewText(rec.OriginalText), nil)
		switch err {
		case nil:
			reverted++
		case dom.ErrDetached:
			// 容器已被宿主页面的无关活动移除，丢弃记录即可
			discarded++
		default:
			discarded++
			e.logger.Warn("revert failed", zap.String("id", rec.ID), zap.Error(err))
		}
	}
	e.inflight.Clear()

	if len(records) > 0 {
		e.logger.Info("replacements reverted",
			zap.Int("reverted", reverted),
			zap.Int("discarded", discarded))
	}
}

// collectScan 全量扫描：遍历所有文本节点，分类并去重
func (e *Engine) collectScan() []*TextUnit {
	var units []*TextUnit
	e.doc.WalkTextNodes(func(n *html.Node) {
		snap := BuildSnapshot(n)
		if v := e.classifier.Classify(snap); !v.Accepted {
			return
		}
		if !e.inflight.Add(n) {
			return
		}
		units = append(units, &TextUnit{Node: n, Text: snap.Text, Snap: snap})
	})
	return units
}

// rescan 安全网扫描：重跑全量扫描并把漏网单元交给批处理器。
// 批次挂在运行上下文上，Stop 的 runCancel 能把赶在状态检查之后
// 溜进来的扫描批次一并排空，拆除不用等它的网络往返。
func (e *Engine) rescan() {
	e.mu.Lock()
	if e.state != StateRunning {
		e.mu.Unlock()
		return
	}
	ctx := e.runCtx
	e.mu.Unlock()

	units := e.collectScan()
	if len(units) == 0 {
		return
	}
	e.logger.Debug("rescan found missed units", zap.Int("units", len(units)))
	e.batch.Process(ctx, units)
}

// resolveSourceLanguage 解析本次运行的源语言。配置为 auto 时在启动
// 时用第一个可翻译单元做一次检测，而不是逐单元检测。
func (e *Engine) resolveSourceLanguage(ctx context.Context) {
	if e.cfg.SourceLang != "" && e.cfg.SourceLang != "auto" {
		e.sourceLang = e.cfg.SourceLang
		return
	}

	sample := e.sampleText()
	if sample == "" {
		e.sourceLang = ""
		return
	}

	detected, err := e.provider.DetectLanguage(ctx, sample)
	if err != nil {
		e.logger.Warn("language detection failed, provider will detect per request", zap.Error(err))
		e.sourceLang = ""
		return
	}
	e.sourceLang = detected
	e.logger.Info("source language detected", zap.String("lang", detected))
}

// sampleText 返回第一个会被接受的单元文本，用于语言检测采样
func (e *Engine) sampleText() string {
	var sample string
	e.doc.WalkTextNodes(func(n *html.Node) {
		if sample != "" {
			return
		}
		snap := BuildSnapshot(n)
		if v := e.classifier.Classify(snap); v.Accepted {
			sample = snap.Text
		}
	})
	return sample
}
