package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/nerdneilsfield/go-live-translator/internal/config"
	"github.com/nerdneilsfield/go-live-translator/internal/dom"
	"github.com/nerdneilsfield/go-live-translator/pkg/providers"
)

// fakeProvider 可编程的翻译提供商，测试专用
type fakeProvider struct {
	mu sync.Mutex

	// failOn 返回非 nil 时该文本的翻译请求失败
	failOn func(text string) error

	// delay 返回该文本的人为延迟，用于制造乱序完成
	delay func(text string) time.Duration

	// respond 自定义译文，nil 时返回带目标语言前缀的文本
	respond func(text string) string

	calls       []string
	detectCalls int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{}
}

func (p *fakeProvider) Name() string {
	return "fake"
}

func (p *fakeProvider) Translate(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	p.mu.Lock()
	p.calls = append(p.calls, req.Text)
	failOn := p.failOn
	delay := p.delay
	respond := p.respond
	p.mu.Unlock()

	if delay != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay(req.Text)):
		}
	}
	if failOn != nil {
		if err := failOn(req.Text); err != nil {
			return nil, err
		}
	}
	if respond != nil {
		return &providers.Response{Text: respond(req.Text)}, nil
	}
	return &providers.Response{
		Text: fmt.Sprintf("[%s] %s", req.TargetLanguage, req.Text),
	}, nil
}

func (p *fakeProvider) DetectLanguage(ctx context.Context, text string) (string, error) {
	p.mu.Lock()
	p.detectCalls++
	p.mu.Unlock()
	return "en", nil
}

func (p *fakeProvider) detectCallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.detectCalls
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// testConfig 返回适合测试的快速时间参数
func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.TargetLang = "fr"
	cfg.BatchDelayMS = 1
	cfg.DebounceMS = 10
	cfg.RescanIntervalMS = 50
	return cfg
}

// newTestDoc 解析测试文档并缩短投递窗口
func newTestDoc(htmlStr string) (*dom.Document, error) {
	doc, err := dom.ParseString(htmlStr)
	if err != nil {
		return nil, err
	}
	doc.SetDeliveryWindow(time.Millisecond)
	return doc, nil
}

// newTestEngine 组装测试引擎
func newTestEngine(htmlStr string, provider providers.Provider) (*Engine, *dom.Document, error) {
	doc, err := newTestDoc(htmlStr)
	if err != nil {
		return nil, nil, err
	}
	eng := New(doc, provider, testConfig(), config.EmptyGlossary(), zap.NewNop())
	return eng, doc, nil
}

// findTextNode 按子串查找第一个匹配的文本节点
func findTextNode(doc *dom.Document, substr string) *html.Node {
	var found *html.Node
	doc.WalkTextNodes(func(n *html.Node) {
		if found == nil && strings.Contains(n.Data, substr) {
			found = n
		}
	})
	return found
}

// collectUnits 对整个文档跑一遍分类扫描，接受的单元登记进在途集合
func collectUnits(doc *dom.Document, classifier *Classifier, inflight *ProcessingSet) []*TextUnit {
	var units []*TextUnit
	doc.WalkTextNodes(func(n *html.Node) {
		snap := BuildSnapshot(n)
		if v := classifier.Classify(snap); !v.Accepted {
			return
		}
		if !inflight.Add(n) {
			return
		}
		units = append(units, &TextUnit{Node: n, Text: snap.Text, Snap: snap})
	})
	return units
}

const basicPage = `<html><head><title>Sample</title></head><body>
<p>Hello world from the first paragraph.</p>
<div>Another block of readable text here.</div>
<script>var ignored = "not content";</script>
<p style="display:none">Hidden copy that must stay untouched.</p>
</body></html>`
