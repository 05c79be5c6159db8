package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Glossary 词汇表，保存不需要翻译的术语
type Glossary struct {
	// DoNotTranslate 不翻译的术语列表（品牌名、产品名等）
	DoNotTranslate []string `toml:"do_not_translate"`

	terms map[string]bool
}

// LoadGlossary 从 TOML 文件加载词汇表
func LoadGlossary(path string) (*Glossary, error) {
	var g Glossary
	if _, err := toml.DecodeFile(path, &g); err != nil {
		return nil, fmt.Errorf("failed to load glossary %s: %w", path, err)
	}
	g.buildIndex()
	return &g, nil
}

// EmptyGlossary 返回空词汇表
func EmptyGlossary() *Glossary {
	g := &Glossary{}
	g.buildIndex()
	return g
}

func (g *Glossary) buildIndex() {
	g.terms = make(map[string]bool, len(g.DoNotTranslate))
	for _, term := range g.DoNotTranslate {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" {
			g.terms[term] = true
		}
	}
}

// IsProtected 检查文本是否是受保护的术语
func (g *Glossary) IsProtected(text string) bool {
	if g == nil || len(g.terms) == 0 {
		return false
	}
	return g.terms[strings.ToLower(strings.TrimSpace(text))]
}

// Size 返回术语数量
func (g *Glossary) Size() int {
	if g == nil {
		return 0
	}
	return len(g.terms)
}
