package engine

import (
	"strings"

	"github.com/nerdneilsfield/go-live-translator/internal/config"
)

// RejectReason 拒绝原因
type RejectReason int

const (
	ReasonNone         RejectReason = iota // 未拒绝
	ReasonSkipTag                          // 位于非内容标签内
	ReasonInsideMarker                     // 已在替换容器内
	ReasonInvisible                        // 不可见
	ReasonTooShort                         // 文本过短
	ReasonGlossary                         // 整体是受保护术语
	ReasonBadContainer                     // 父标签不是有效的文本容器
)

// String 返回拒绝原因名称
func (r RejectReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonSkipTag:
		return "skipTag"
	case ReasonInsideMarker:
		return "insideMarker"
	case ReasonInvisible:
		return "invisible"
	case ReasonTooShort:
		return "tooShort"
	case ReasonGlossary:
		return "glossary"
	case ReasonBadContainer:
		return "badContainer"
	default:
		return "unknown"
	}
}

// Verdict 分类结果
type Verdict struct {
	Accepted bool
	Reason   RejectReason
}

// skipTags 内容永远不翻译的标签
var skipTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"object":   true,
	"embed":    true,
	"canvas":   true,
	"svg":      true,
	"math":     true,
	"audio":    true,
	"video":    true,
	"textarea": true,
	"input":    true,
	"select":   true,
	"option":   true,
	"button":   true,
	"code":     true,
	"pre":      true,
	"title":    true,
}

// contentTags 可以直接容纳文案的标签
var contentTags = map[string]bool{
	"p": true, "div": true, "span": true, "a": true, "li": true,
	"td": true, "th": true, "caption": true, "dd": true, "dt": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"em": true, "strong": true, "b": true, "i": true, "u": true, "s": true,
	"small": true, "mark": true, "sub": true, "sup": true, "q": true,
	"label": true, "legend": true, "figcaption": true, "blockquote": true,
	"summary": true, "cite": true, "time": true, "abbr": true,
	"body": true, "section": true, "article": true, "main": true,
	"header": true, "footer": true, "aside": true, "nav": true,
}

// Classifier 节点分类器。纯同步：不访问网络也不修改树，
// 全量扫描和逐变更过滤都可以廉价调用。
type Classifier struct {
	minTextLength int
	glossary      *config.Glossary
}

// NewClassifier 创建分类器
func NewClassifier(minTextLength int, glossary *config.Glossary) *Classifier {
	if minTextLength < 2 {
		// 单个字符和纯空白不是有意义的翻译单元
		minTextLength = 2
	}
	if glossary == nil {
		glossary = config.EmptyGlossary()
	}
	return &Classifier{
		minTextLength: minTextLength,
		glossary:      glossary,
	}
}

// Classify 判定一个文本单元是否可翻译
func (c *Classifier) Classify(snap Snapshot) Verdict {
	// 首要的防环不变量：引擎自己的输出绝不再作为输入
	if snap.InsideMarker {
		return reject(ReasonInsideMarker)
	}

	if skipTags[snap.ParentTag] {
		return reject(ReasonSkipTag)
	}
	for _, tag := range snap.AncestorTags {
		if skipTags[tag] {
			return reject(ReasonSkipTag)
		}
	}

	if !snap.Visible {
		return reject(ReasonInvisible)
	}

	trimmed := strings.TrimSpace(snap.Text)
	if len([]rune(trimmed)) < c.minTextLength {
		return reject(ReasonTooShort)
	}

	if c.glossary.IsProtected(trimmed) {
		return reject(ReasonGlossary)
	}

	// 紧跟 <br> 的片段总是接受：很多页面用换行元素而不是块元素
	// 排版文案，这类片段常常通不过容器标签的启发式检查
	if snap.AfterLineBreak {
		return Verdict{Accepted: true}
	}

	if snap.ParentTag != "" && !contentTags[snap.ParentTag] {
		return reject(ReasonBadContainer)
	}

	return Verdict{Accepted: true}
}

func reject(r RejectReason) Verdict {
	return Verdict{Accepted: false, Reason: r}
}
