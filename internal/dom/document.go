package dom

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// 预定义错误
var (
	// ErrDetached 目标节点已不在树上
	ErrDetached = errors.New("node detached from document")

	// ErrRejected 守卫检查拒绝了本次变更
	ErrRejected = errors.New("mutation rejected by guard")

	// ErrClosed 文档已关闭
	ErrClosed = errors.New("document closed")
)

// defaultDeliveryWindow 变更记录的合并投递窗口
const defaultDeliveryWindow = 5 * time.Millisecond

// Document 可变的 HTML 文档树。所有变更必须通过 Document 的方法执行，
// 以便被记录并投递给观察者。文档不属于引擎独占，宿主代码可以随时通过
// 同样的方法修改树。
type Document struct {
	mu   sync.Mutex
	root *html.Node

	observers []*observerEntry
	nextObsID int
	closed    bool

	pending        []Mutation
	deliverTimer   *time.Timer
	deliveryWindow time.Duration
}

type observerEntry struct {
	id int
	fn ObserverFunc
}

// Parse 从 reader 解析 HTML 文档
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &Document{
		root:           root,
		deliveryWindow: defaultDeliveryWindow,
	}, nil
}

// ParseString 从字符串解析 HTML 文档
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// SetDeliveryWindow 设置变更记录的合并投递窗口（测试用）
func (d *Document) SetDeliveryWindow(w time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deliveryWindow = w
}

// Root 返回文档根节点
func (d *Document) Root() *html.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.root
}

// Body 返回 body 元素，没有时返回根节点
func (d *Document) Body() *html.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.findBody()
}

// findBody 查找 body 元素，调用时必须持有 d.mu
func (d *Document) findBody() *html.Node {
	var body *html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		if body != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == "body" {
			body = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(d.root)
	if body == nil {
		return d.root
	}
	return body
}

// Find 使用 CSS 选择器查找节点。选择器在文档锁内求值，
// 返回的选择集是求值时刻的快照。
func (d *Document) Find(selector string) *goquery.Selection {
	d.mu.Lock()
	defer d.mu.Unlock()
	return goquery.NewDocumentFromNode(d.root).Find(selector)
}

// Render 序列化整个文档
func (d *Document) Render() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var buf bytes.Buffer
	if err := html.Render(&buf, d.root); err != nil {
		return "", fmt.Errorf("failed to render document: %w", err)
	}
	return buf.String(), nil
}

// VisibleText 按文档顺序拼接所有文本节点的内容
func (d *Document) VisibleText() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	var buf strings.Builder
	walkTextNodes(d.root, func(n *html.Node) {
		buf.WriteString(n.Data)
	})
	return buf.String()
}

// WalkTextNodes 在文档锁内深度优先遍历所有文本节点。
// 回调必须只做纯读取，不得调用 Document 的其它方法。
func (d *Document) WalkTextNodes(fn func(*html.Node)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	walkTextNodes(d.root, fn)
}

// WalkTextNodesUnder 在文档锁内遍历 n 下的所有文本节点
func (d *Document) WalkTextNodesUnder(n *html.Node, fn func(*html.Node)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	walkTextNodes(n, fn)
}

// ReadLocked 在文档锁内执行纯读取操作。
// fn 不得调用 Document 的其它方法。
func (d *Document) ReadLocked(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn()
}

// Observe 注册变更观察者，返回取消函数。
// 通过 Document 方法执行的树变更会被合并成批次异步投递。
func (d *Document) Observe(fn ObserverFunc) (func(), error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrClosed
	}

	d.nextObsID++
	entry := &observerEntry{id: d.nextObsID, fn: fn}
	d.observers = append(d.observers, entry)

	id := entry.id
	cancel := func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		for i, e := range d.observers {
			if e.id == id {
				d.observers = append(d.observers[:i], d.observers[i+1:]...)
				break
			}
		}
	}
	return cancel, nil
}

// AppendChild 将 child 追加为 parent 的最后一个子节点
func (d *Document) AppendChild(parent, child *html.Node) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !IsAttached(d.root, parent) {
		return ErrDetached
	}
	parent.AppendChild(child)
	d.record(Mutation{Type: NodeAdded, Target: parent, Added: []*html.Node{child}})
	return nil
}

// RemoveNode 将节点从树上移除
func (d *Document) RemoveNode(n *html.Node) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n.Parent == nil || !IsAttached(d.root, n) {
		return ErrDetached
	}
	parent := n.Parent
	parent.RemoveChild(n)
	d.record(Mutation{Type: NodeRemoved, Target: parent, Removed: []*html.Node{n}})
	return nil
}

// SetText 修改文本节点的内容
func (d *Document) SetText(n *html.Node, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n.Type != html.TextNode {
		return fmt.Errorf("not a text node")
	}
	if !IsAttached(d.root, n) {
		return ErrDetached
	}
	n.Data = text
	d.record(Mutation{Type: TextChanged, Target: n})
	return nil
}

// SetTextSilently 修改文本节点内容但不产生变更记录。
// 模拟宿主环境里绕过变更通知的写入路径（测试安全网扫描用）。
func (d *Document) SetTextSilently(n *html.Node, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n.Type != html.TextNode {
		return fmt.Errorf("not a text node")
	}
	if !IsAttached(d.root, n) {
		return ErrDetached
	}
	n.Data = text
	return nil
}

// ReplaceNode 用 newNode 替换 oldNode。guard 在文档锁内、替换之前执行，
// 返回 false 时替换被放弃。挂载检查和替换是一个原子步骤：从选中节点到
// 真正替换可能隔着一次网络往返，调用方给出的任何旧读取在这里都会被重验。
func (d *Document) ReplaceNode(oldNode, newNode *html.Node, guard func(*html.Node) bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if oldNode.Parent == nil || !IsAttached(d.root, oldNode) {
		return ErrDetached
	}
	if guard != nil && !guard(oldNode) {
		return ErrRejected
	}

	parent := oldNode.Parent
	parent.InsertBefore(newNode, oldNode)
	parent.RemoveChild(oldNode)
	d.record(Mutation{
		Type:    NodeAdded,
		Target:  parent,
		Added:   []*html.Node{newNode},
		Removed: []*html.Node{oldNode},
	})
	return nil
}

// SetBodyHTML 用新的 HTML 片段替换 body 的全部子节点
func (d *Document) SetBodyHTML(fragment string) error {
	body := d.Body()

	// ParseFragment 只把 body 作为解析上下文，不会修改它
	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return fmt.Errorf("failed to parse fragment: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var removed []*html.Node
	for c := body.FirstChild; c != nil; {
		next := c.NextSibling
		body.RemoveChild(c)
		removed = append(removed, c)
		c = next
	}
	if len(removed) > 0 {
		d.record(Mutation{Type: NodeRemoved, Target: body, Removed: removed})
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}
	if len(nodes) > 0 {
		d.record(Mutation{Type: NodeAdded, Target: body, Added: nodes})
	}
	return nil
}

// Flush 立即投递所有待处理的变更记录（同步，等待观察者返回）
func (d *Document) Flush() {
	d.deliver()
}

// Close 关闭文档：停止投递定时器并移除所有观察者
func (d *Document) Close() {
	d.mu.Lock()
	d.closed = true
	d.observers = nil
	d.pending = nil
	if d.deliverTimer != nil {
		d.deliverTimer.Stop()
		d.deliverTimer = nil
	}
	d.mu.Unlock()
}

// record 记录一次变更并安排投递，调用时必须持有 d.mu
func (d *Document) record(m Mutation) {
	if d.closed || len(d.observers) == 0 {
		return
	}
	d.pending = append(d.pending, m)
	if d.deliverTimer == nil {
		d.deliverTimer = time.AfterFunc(d.deliveryWindow, d.deliver)
	}
}

// deliver 把累积的变更批次交给观察者，回调在锁外执行
func (d *Document) deliver() {
	d.mu.Lock()
	if d.deliverTimer != nil {
		d.deliverTimer.Stop()
		d.deliverTimer = nil
	}
	batch := d.pending
	d.pending = nil
	obs := make([]*observerEntry, len(d.observers))
	copy(obs, d.observers)
	d.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	for _, e := range obs {
		e.fn(batch)
	}
}
