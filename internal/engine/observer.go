package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/nerdneilsfield/go-live-translator/internal/dom"
)

// ChangeObserver 变更观察器。两段式管道：变更通知只做廉价的分类和
// 入队（绝不在回调里改树），防抖定时器到期后才把待处理集合一次性
// 交给批处理器——树的修改只发生在那里，显式切断"观察变更"和
// "制造变更"之间的因果环。
type ChangeObserver struct {
	doc        *dom.Document
	classifier *Classifier
	batch      *BatchProcessor
	inflight   *ProcessingSet
	logger     *zap.Logger
	debounce   time.Duration

	mu       sync.Mutex
	pending  map[*html.Node]*TextUnit
	timer    *time.Timer
	cancel   func()
	runCtx   context.Context
	attached bool
}

// NewChangeObserver 创建变更观察器
func NewChangeObserver(doc *dom.Document, classifier *Classifier, batch *BatchProcessor,
	inflight *ProcessingSet, debounce time.Duration, logger *zap.Logger,
) *ChangeObserver {
	return &ChangeObserver{
		doc:        doc,
		classifier: classifier,
		batch:      batch,
		inflight:   inflight,
		logger:     logger,
		debounce:   debounce,
		pending:    make(map[*html.Node]*TextUnit),
	}
}

// Attach 订阅文档变更通知，每次引擎运行只订阅一次
func (o *ChangeObserver) Attach(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.attached {
		return nil
	}

	cancel, err := o.doc.Observe(o.onMutations)
	if err != nil {
		return err
	}
	o.cancel = cancel
	o.runCtx = ctx
	o.attached = true
	return nil
}

// Detach 取消订阅，停掉防抖定时器并丢弃待处理集合。可重复调用。
func (o *ChangeObserver) Detach() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.attached {
		return
	}
	o.cancel()
	o.cancel = nil
	o.attached = false
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	for n := range o.pending {
		o.inflight.Remove(n)
	}
	o.pending = make(map[*html.Node]*TextUnit)
}

// PendingCount 返回待处理单元数（测试用）
func (o *ChangeObserver) PendingCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}

// onMutations 处理一批合并后的变更记录
func (o *ChangeObserver) onMutations(batch []dom.Mutation) {
	var candidates []*html.Node

	for _, m := range batch {
		switch m.Type {
		case dom.NodeAdded:
			// 新增元素：全子树遍历每个文本后代
			for _, added := range m.Added {
				if added.Type == html.TextNode {
					candidates = append(candidates, added)
					continue
				}
				o.doc.WalkTextNodesUnder(added, func(n *html.Node) {
					candidates = append(candidates, n)
				})
			}
		case dom.TextChanged:
			candidates = append(candidates, m.Target)
		case dom.NodeRemoved:
			// 移除的节点由挂载检查惰性处理，这里不做任何事
		}
	}

	if len(candidates) == 0 {
		return
	}

	o.enqueue(candidates)
}

// enqueue 分类候选节点并把接受的单元放进待处理集合
func (o *ChangeObserver) enqueue(candidates []*html.Node) {
	accepted := make([]*TextUnit, 0, len(candidates))
	o.doc.ReadLocked(func() {
		for _, n := range candidates {
			snap := BuildSnapshot(n)
			if v := o.classifier.Classify(snap); !v.Accepted {
				continue
			}
			accepted = append(accepted, &TextUnit{Node: n, Text: snap.Text, Snap: snap})
		}
	})
	if len(accepted) == 0 {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.attached {
		return
	}

	added := 0
	for _, unit := range accepted {
		if _, exists := o.pending[unit.Node]; exists {
			continue
		}
		// 在途集合去重覆盖排队和翻译中两种状态
		if !o.inflight.Add(unit.Node) {
			continue
		}
		o.pending[unit.Node] = unit
		added++
	}
	if added == 0 {
		return
	}

	o.logger.Debug("units queued from mutations", zap.Int("added", added), zap.Int("pending", len(o.pending)))

	if o.timer == nil {
		o.timer = time.AfterFunc(o.debounce, o.flush)
	}
}

// flush 把待处理集合一次性交给批处理器
func (o *ChangeObserver) flush() {
	o.mu.Lock()
	if !o.attached {
		o.mu.Unlock()
		return
	}
	units := make([]*TextUnit, 0, len(o.pending))
	for _, u := range o.pending {
		units = append(units, u)
	}
	o.pending = make(map[*html.Node]*TextUnit)
	o.timer = nil
	ctx := o.runCtx
	o.mu.Unlock()

	if len(units) == 0 {
		return
	}

	o.logger.Debug("flushing pending units", zap.Int("units", len(units)))
	o.batch.Process(ctx, units)
}
