package engine

import (
	"strings"

	"github.com/dlclark/regexp2"
)

// sentenceBoundary 终结标点后的空白是句子边界。
// 需要 lookbehind，标准库 regexp 不支持。
var sentenceBoundary = regexp2.MustCompile(`(?<=[.!?…。！？])\s+`, 0)

// SplitSentences 把文本按终结标点切成句子级片段。
// 每个片段独立翻译再按原顺序拼回：这限制了单次请求的最大体积，
// 也让长文案的翻译质量更好，代价是长单元会产生多次请求。
func SplitSentences(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	// regexp2 的匹配位置以字符计
	runes := []rune(trimmed)

	var segments []string
	start := 0
	m, _ := sentenceBoundary.FindStringMatch(trimmed)
	for m != nil {
		seg := strings.TrimSpace(string(runes[start:m.Index]))
		if seg != "" {
			segments = append(segments, seg)
		}
		start = m.Index + m.Length
		m, _ = sentenceBoundary.FindNextMatch(m)
	}

	if start < len(runes) {
		seg := strings.TrimSpace(string(runes[start:]))
		if seg != "" {
			segments = append(segments, seg)
		}
	}

	return segments
}
