package engine

import (
	"golang.org/x/net/html"

	"github.com/nerdneilsfield/go-live-translator/internal/dom"
)

// MarkerClass 替换容器携带的标记类名。分类器和变更观察器
// 通过它识别并排除引擎自己产生的输出，防止翻译结果被再次翻译。
const MarkerClass = "lt-translated"

// 容器属性名
const (
	// AttrID 容器的唯一标识
	AttrID = "data-lt-id"

	// AttrOriginal 原文（仅作调试辅助，还原以注册表为准）
	AttrOriginal = "data-lt-original"
)

// TextUnit 一个待翻译的文本单元。只在一次处理趟内有效：
// 底层节点随时可能被宿主代码移出树，替换前必须重新验证。
type TextUnit struct {
	// Node 持有原文的文本节点
	Node *html.Node

	// Text 扫描时刻的原始文本内容（含空白）
	Text string

	// Snap 分类时使用的祖先链快照
	Snap Snapshot
}

// Snapshot 节点分类所需的全部信息的纯数据快照。
// 分类器只看快照，不触碰树，因此可以脱离文档独立测试。
type Snapshot struct {
	// Text 文本节点的原始内容
	Text string

	// ParentTag 最近的元素祖先标签名
	ParentTag string

	// AncestorTags 从近到远的祖先标签名
	AncestorTags []string

	// Visible 按内联样式计算的可见性
	Visible bool

	// InsideMarker 祖先链上是否已有替换容器
	InsideMarker bool

	// AfterLineBreak 前一个元素兄弟是否是换行元素
	AfterLineBreak bool
}

// BuildSnapshot 为文本节点构建分类快照。
// 必须在文档锁内调用（例如 WalkTextNodes 或 ReadLocked 的回调里）。
func BuildSnapshot(n *html.Node) Snapshot {
	return Snapshot{
		Text:           n.Data,
		ParentTag:      dom.ParentTag(n),
		AncestorTags:   dom.AncestorTags(n),
		Visible:        dom.IsVisible(n),
		InsideMarker:   dom.HasAncestorWithClass(n, MarkerClass),
		AfterLineBreak: dom.PrevElementTag(n) == "br",
	}
}
