package dom

import (
	"golang.org/x/net/html"
)

// MutationType 变更类型
type MutationType int

const (
	NodeAdded   MutationType = iota // 节点被加入树
	NodeRemoved                     // 节点被移出树
	TextChanged                     // 文本节点内容变化
)

// String 返回变更类型名称
func (t MutationType) String() string {
	switch t {
	case NodeAdded:
		return "added"
	case NodeRemoved:
		return "removed"
	case TextChanged:
		return "textChanged"
	default:
		return "unknown"
	}
}

// Mutation 描述一次树变更。与浏览器的 MutationRecord 一样，
// 记录描述的是已经发生的事实，节点此刻可能又被移动或删除。
type Mutation struct {
	// Type 变更类型
	Type MutationType

	// Target 变更发生的位置：添加/删除时是父节点，文本变化时是文本节点本身
	Target *html.Node

	// Added 被加入的节点
	Added []*html.Node

	// Removed 被移出的节点
	Removed []*html.Node
}

// ObserverFunc 变更观察回调，接收一批合并后的变更记录。
// 回调在文档锁之外执行，可以安全地读取和修改文档。
type ObserverFunc func([]Mutation)
