package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-live-translator/internal/config"
	"github.com/nerdneilsfield/go-live-translator/internal/dom"
)

// newBatchFixture 组装一套独立的批处理器依赖
func newBatchFixture(t *testing.T, htmlStr string, provider *fakeProvider) (*BatchProcessor, *dom.Document, *Registry, *ProcessingSet, *Classifier) {
	t.Helper()
	doc, err := newTestDoc(htmlStr)
	require.NoError(t, err)

	registry := NewRegistry()
	inflight := NewProcessingSet()
	bp := NewBatchProcessor(BatchProcessorOptions{
		Document:   doc,
		Provider:   provider,
		Registry:   registry,
		InFlight:   inflight,
		Logger:     zap.NewNop(),
		BatchSize:  5,
		BatchDelay: time.Millisecond,
	})
	bp.SetLanguages("en", "fr")
	return bp, doc, registry, inflight, NewClassifier(2, config.EmptyGlossary())
}

func TestBatchProcessorReplace(t *testing.T) {
	provider := newFakeProvider()
	bp, doc, registry, inflight, classifier := newBatchFixture(t,
		`<html><body><p>Hello world.</p></body></html>`, provider)

	units := collectUnits(doc, classifier, inflight)
	require.Len(t, units, 1)

	bp.Process(context.Background(), units)

	t.Run("ContainerInserted", func(t *testing.T) {
		sel := doc.Find("span." + MarkerClass)
		require.Equal(t, 1, sel.Length())
		assert.Equal(t, "[fr] Hello world.", sel.Text())

		id, ok := sel.Attr(AttrID)
		assert.True(t, ok)
		assert.NotEmpty(t, id)
		orig, ok := sel.Attr(AttrOriginal)
		assert.True(t, ok)
		assert.Equal(t, "Hello world.", orig)
	})

	t.Run("RecordRegistered", func(t *testing.T) {
		records := registry.Records()
		require.Len(t, records, 1)
		assert.Equal(t, "Hello world.", records[0].OriginalText)
		assert.Equal(t, "[fr] Hello world.", records[0].TranslatedText)
	})

	t.Run("InFlightReleased", func(t *testing.T) {
		assert.Equal(t, 0, inflight.Size())
	})
}

func TestBatchProcessorIdempotent(t *testing.T) {
	provider := newFakeProvider()
	bp, doc, registry, inflight, classifier := newBatchFixture(t,
		`<html><body><p>Hello world.</p><div>Second block of text.</div></body></html>`, provider)

	units := collectUnits(doc, classifier, inflight)
	require.Len(t, units, 2)
	bp.Process(context.Background(), units)
	require.Equal(t, 2, registry.Size())
	calls := provider.callCount()

	// 第二遍扫描：译文已包在容器里，分类器全部拒绝
	again := collectUnits(doc, classifier, inflight)
	assert.Empty(t, again)
	bp.Process(context.Background(), again)

	assert.Equal(t, 2, registry.Size())
	assert.Equal(t, calls, provider.callCount())
	assert.Equal(t, 2, doc.Find("span."+MarkerClass).Length())
}

func TestReplacementContainerNeverReclassified(t *testing.T) {
	provider := newFakeProvider()
	bp, doc, registry, inflight, classifier := newBatchFixture(t,
		`<html><body><p>Feed me back in.</p></body></html>`, provider)

	units := collectUnits(doc, classifier, inflight)
	require.Len(t, units, 1)
	bp.Process(context.Background(), units)
	require.Equal(t, 1, registry.Size())

	// 批处理器刚造出的容器喂回分类器，必须被拒绝
	container := registry.Records()[0].Container
	translated := container.FirstChild
	require.NotNil(t, translated)

	var verdict Verdict
	doc.ReadLocked(func() {
		verdict = classifier.Classify(BuildSnapshot(translated))
	})
	assert.False(t, verdict.Accepted)
	assert.Equal(t, ReasonInsideMarker, verdict.Reason)
}

func TestBatchProcessorFailureIsolation(t *testing.T) {
	provider := newFakeProvider()
	provider.failOn = func(text string) error {
		if strings.Contains(text, "number three") {
			return errors.New("upstream exploded")
		}
		return nil
	}

	bp, doc, registry, inflight, classifier := newBatchFixture(t, `<html><body>
<p>Unit number one here.</p>
<p>Unit number two here.</p>
<p>Unit number three here.</p>
<p>Unit number four here.</p>
<p>Unit number five here.</p>
</body></html>`, provider)

	units := collectUnits(doc, classifier, inflight)
	require.Len(t, units, 5)
	bp.Process(context.Background(), units)

	// 第三个单元失败但不影响兄弟单元
	assert.Equal(t, 4, registry.Size())
	assert.Equal(t, 4, doc.Find("span."+MarkerClass).Length())
	assert.Contains(t, doc.VisibleText(), "Unit number three here.")
	assert.NotContains(t, doc.VisibleText(), "[fr] Unit number three")
	assert.Equal(t, 0, inflight.Size())
}

func TestBatchProcessorSegmentOrder(t *testing.T) {
	provider := newFakeProvider()
	// 第一个片段人为拖慢，完成顺序与文本顺序相反
	provider.delay = func(text string) time.Duration {
		if strings.HasPrefix(text, "The quick") {
			return 30 * time.Millisecond
		}
		return 0
	}

	bp, doc, registry, inflight, classifier := newBatchFixture(t,
		`<html><body><p>The quick fox jumps. It was fast!</p></body></html>`, provider)

	units := collectUnits(doc, classifier, inflight)
	require.Len(t, units, 1)
	bp.Process(context.Background(), units)

	// 两个片段各自独立翻译，拼回时保持原文顺序
	require.Equal(t, 1, registry.Size())
	assert.Equal(t, "[fr] The quick fox jumps. [fr] It was fast!",
		registry.Records()[0].TranslatedText)
	assert.Equal(t, 2, provider.callCount())
}

func TestBatchProcessorIdentityGate(t *testing.T) {
	provider := newFakeProvider()
	provider.respond = func(text string) string { return text }

	bp, doc, registry, inflight, classifier := newBatchFixture(t,
		`<html><body><p>Already in the target language.</p></body></html>`, provider)

	units := collectUnits(doc, classifier, inflight)
	bp.Process(context.Background(), units)

	// 译文与原文一致视为失败，页面保持原样
	assert.Equal(t, 0, registry.Size())
	assert.Equal(t, 0, doc.Find("span."+MarkerClass).Length())
	assert.Equal(t, 0, inflight.Size())
}

func TestBatchProcessorDetachedUnit(t *testing.T) {
	provider := newFakeProvider()
	bp, doc, registry, inflight, classifier := newBatchFixture(t,
		`<html><body><p id="gone">Soon to be removed.</p><p>Still attached here.</p></body></html>`, provider)

	units := collectUnits(doc, classifier, inflight)
	require.Len(t, units, 2)

	// 选中之后、替换之前，宿主把第一个段落移走了
	para := doc.Find("#gone").Get(0)
	require.NoError(t, doc.RemoveNode(para))

	bp.Process(context.Background(), units)

	assert.Equal(t, 1, registry.Size())
	assert.Equal(t, "Still attached here.", registry.Records()[0].OriginalText)
	assert.Equal(t, 0, inflight.Size())
}

func TestBatchProcessorStaleTextRejected(t *testing.T) {
	provider := newFakeProvider()
	provider.delay = func(string) time.Duration { return 40 * time.Millisecond }

	bp, doc, registry, inflight, classifier := newBatchFixture(t,
		`<html><body><p>Old content sentence.</p></body></html>`, provider)

	units := collectUnits(doc, classifier, inflight)
	require.Len(t, units, 1)
	node := units[0].Node

	// 翻译还在网络往返里时宿主改写了节点内容
	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = doc.SetText(node, "Completely new content here.")
	}()
	bp.Process(context.Background(), units)

	// 过期的译文不能盖掉新内容
	assert.Equal(t, 0, registry.Size())
	assert.Equal(t, 0, doc.Find("span."+MarkerClass).Length())
	assert.Contains(t, doc.VisibleText(), "Completely new content here.")
	assert.NotContains(t, doc.VisibleText(), "[fr]")

	// 在途标记已释放，下一轮全量扫描按当前文本重新翻译
	provider.delay = nil
	again := collectUnits(doc, classifier, inflight)
	require.Len(t, again, 1)
	assert.Equal(t, "Completely new content here.", again[0].Text)
	bp.Process(context.Background(), again)

	require.Equal(t, 1, registry.Size())
	assert.Equal(t, "Completely new content here.", registry.Records()[0].OriginalText)
	assert.Contains(t, doc.VisibleText(), "[fr] Completely new content here.")
}

func TestBatchProcessorFrozenRegistry(t *testing.T) {
	provider := newFakeProvider()
	bp, doc, registry, inflight, classifier := newBatchFixture(t,
		`<html><body><p>Caught by the teardown race.</p></body></html>`, provider)

	units := collectUnits(doc, classifier, inflight)
	registry.Freeze()
	bp.Process(context.Background(), units)

	// 冻结后守卫拒绝注册，树上不留无主容器
	assert.Equal(t, 0, doc.Find("span."+MarkerClass).Length())
	assert.Contains(t, doc.VisibleText(), "Caught by the teardown race.")
	assert.Equal(t, 0, inflight.Size())
}

func TestBatchProcessorContextCancel(t *testing.T) {
	provider := newFakeProvider()
	bp, doc, _, inflight, classifier := newBatchFixture(t, `<html><body>
<p>First group unit one.</p>
<p>First group unit two.</p>
<p>Second group unit one.</p>
</body></html>`, provider)
	bp.batchSize = 2
	bp.batchDelay = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	units := collectUnits(doc, classifier, inflight)
	require.Len(t, units, 3)

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	bp.Process(ctx, units)

	// 第一组完成，第二组在组间延迟中被取消并释放在途标记
	assert.Equal(t, 2, doc.Find("span."+MarkerClass).Length())
	assert.Equal(t, 0, inflight.Size())
}

func TestPartition(t *testing.T) {
	units := make([]*TextUnit, 7)
	for i := range units {
		units[i] = &TextUnit{}
	}

	groups := partition(units, 3)
	require.Len(t, groups, 3)
	assert.Len(t, groups[0], 3)
	assert.Len(t, groups[1], 3)
	assert.Len(t, groups[2], 1)

	assert.Nil(t, partition(nil, 3))
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, similarity("same", "same"))
	assert.Equal(t, 1.0, similarity("", ""))
	assert.Less(t, similarity("hello world", "bonjour le monde"), 0.5)
	assert.GreaterOrEqual(t, similarity("hello world!", "hello world"), 0.9)
}
