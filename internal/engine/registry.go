package engine

import (
	"sync"

	"github.com/google/uuid"
	"golang.org/x/net/html"
)

// ReplacementRecord 一次已提交的替换。还原时以记录里的原文为准，
// 不从树上的容器内容重建。
type ReplacementRecord struct {
	// ID 容器的唯一标识
	ID string

	// Container 占据原文位置的容器节点
	Container *html.Node

	// OriginalText 替换时刻的原文（还原用）
	OriginalText string

	// TranslatedText 译文
	TranslatedText string

	// Seq 单调序号，用于排序和调试，不参与正确性判断
	Seq uint64
}

// Registry 替换记录注册表，引擎控制器独占持有。
// Freeze 之后的注册请求一律被拒绝，这是拆除竞态的防线：
// 网络往返里姗姗来迟的替换不会在拆除后留下无主容器。
type Registry struct {
	mu      sync.Mutex
	records map[*html.Node]*ReplacementRecord
	order   []*ReplacementRecord
	seq     uint64
	frozen  bool
}

// NewRegistry 创建注册表
func NewRegistry() *Registry {
	return &Registry{
		records: make(map[*html.Node]*ReplacementRecord),
	}
}

// NewContainerID 生成容器标识
func NewContainerID() string {
	return uuid.NewString()
}

// Register 登记一次替换。注册表已冻结时返回 false，调用方必须放弃替换。
func (r *Registry) Register(id string, container *html.Node, original, translated string) (*ReplacementRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return nil, false
	}

	r.seq++
	rec := &ReplacementRecord{
		ID:             id,
		Container:      container,
		OriginalText:   original,
		TranslatedText: translated,
		Seq:            r.seq,
	}
	r.records[container] = rec
	r.order = append(r.order, rec)
	return rec, true
}

// Get 按容器查找记录
func (r *Registry) Get(container *html.Node) (*ReplacementRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[container]
	return rec, ok
}

// Records 返回所有记录（按注册顺序）
func (r *Registry) Records() []*ReplacementRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*ReplacementRecord, len(r.order))
	copy(out, r.order)
	return out
}

// Size 返回记录数量
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Freeze 冻结注册表，之后的 Register 调用全部被拒绝
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Drain 取出全部记录并清空注册表（保持冻结状态）
func (r *Registry) Drain() []*ReplacementRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.order
	r.order = nil
	r.records = make(map[*html.Node]*ReplacementRecord)
	return out
}

// Reopen 解冻并清空注册表，供下一次引擎运行使用
func (r *Registry) Reopen() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = false
	r.order = nil
	r.records = make(map[*html.Node]*ReplacementRecord)
	r.seq = 0
}
