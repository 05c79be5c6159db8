package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Tag 返回元素节点的标签名（小写），非元素节点返回空字符串
func Tag(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	return strings.ToLower(n.Data)
}

// ParentTag 返回最近的元素祖先的标签名
func ParentTag(n *html.Node) string {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return strings.ToLower(p.Data)
		}
	}
	return ""
}

// AncestorTags 返回从近到远的祖先元素标签名列表
func AncestorTags(n *html.Node) []string {
	var tags []string
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			tags = append(tags, strings.ToLower(p.Data))
		}
	}
	return tags
}

// PrevElementTag 返回前一个元素兄弟节点的标签名（跳过空白文本节点）
func PrevElementTag(n *html.Node) string {
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode {
			return strings.ToLower(s.Data)
		}
		if s.Type == html.TextNode && strings.TrimSpace(s.Data) != "" {
			return ""
		}
	}
	return ""
}

// Attr 返回节点的属性值
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// HasClass 检查元素的 class 属性是否包含指定类名
func HasClass(n *html.Node, class string) bool {
	val, ok := Attr(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(val) {
		if c == class {
			return true
		}
	}
	return false
}

// HasAncestorWithClass 检查节点（含自身）的祖先链上是否有带指定类名的元素
func HasAncestorWithClass(n *html.Node, class string) bool {
	for p := n; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && HasClass(p, class) {
			return true
		}
	}
	return false
}

// IsAttached 检查节点是否仍然挂在以 root 为根的树上
func IsAttached(root, n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == root {
			return true
		}
	}
	return false
}

// IsVisible 根据内联样式和 hidden 属性计算节点可见性。
// 完整的 CSS 级联属于宿主环境，这里只检查祖先链上的内联声明。
func IsVisible(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p.Type != html.ElementNode {
			continue
		}
		if _, hidden := Attr(p, "hidden"); hidden {
			return false
		}
		if style, ok := Attr(p, "style"); ok {
			s := strings.ReplaceAll(strings.ToLower(style), " ", "")
			if strings.Contains(s, "display:none") || strings.Contains(s, "visibility:hidden") {
				return false
			}
		}
	}
	return true
}

// NewElement 创建元素节点
func NewElement(tag string, attrs map[string]string) *html.Node {
	n := &html.Node{
		Type: html.ElementNode,
		Data: tag,
	}
	for k, v := range attrs {
		n.Attr = append(n.Attr, html.Attribute{Key: k, Val: v})
	}
	return n
}

// NewText 创建文本节点
func NewText(text string) *html.Node {
	return &html.Node{
		Type: html.TextNode,
		Data: text,
	}
}

// walkTextNodes 深度优先遍历 n 下的所有文本节点
func walkTextNodes(n *html.Node, fn func(*html.Node)) {
	if n == nil {
		return
	}
	if n.Type == html.TextNode {
		fn(n)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkTextNodes(c, fn)
	}
}
