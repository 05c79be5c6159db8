package engine

import (
	"sync"

	"golang.org/x/net/html"
)

// ProcessingSet 正在处理（排队中或翻译中）的文本节点集合。
// 不变量：同一个文档位置同一时刻至多出现一次——这是防止重叠的
// 变更通知对同一内容重复翻译的核心去重手段。
type ProcessingSet struct {
	mu      sync.Mutex
	members map[*html.Node]bool
}

// NewProcessingSet 创建处理集合
func NewProcessingSet() *ProcessingSet {
	return &ProcessingSet{
		members: make(map[*html.Node]bool),
	}
}

// Add 尝试加入节点，节点已在集合中时返回 false
func (s *ProcessingSet) Add(n *html.Node) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.members[n] {
		return false
	}
	s.members[n] = true
	return true
}

// Remove 移除节点
func (s *ProcessingSet) Remove(n *html.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.members, n)
}

// Contains 检查节点是否在集合中
func (s *ProcessingSet) Contains(n *html.Node) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.members[n]
}

// Size 返回集合大小
func (s *ProcessingSet) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.members)
}

// Clear 清空集合
func (s *ProcessingSet) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members = make(map[*html.Node]bool)
}
