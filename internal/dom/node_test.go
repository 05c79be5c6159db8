package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

// textNodeIn 返回选择器命中的第一个元素的第一个文本子节点
func textNodeIn(t *testing.T, doc *Document, selector string) *html.Node {
	t.Helper()
	sel := doc.Find(selector)
	require.Positive(t, sel.Length(), "selector %q matched nothing", selector)
	n := sel.Get(0).FirstChild
	require.NotNil(t, n)
	return n
}

func TestNodeHelpers(t *testing.T) {
	doc, err := ParseString(`<html><body>
<section><p id="p1">Text in paragraph</p></section>
<div id="d1" class="card featured">Card text</div>
<p id="p2">before<br>after line break</p>
<p id="p3">before <br> <em>gap</em></p>
</body></html>`)
	require.NoError(t, err)

	t.Run("Tag", func(t *testing.T) {
		assert.Equal(t, "p", Tag(doc.Find("#p1").Get(0)))
		assert.Equal(t, "", Tag(NewText("not an element")))
		assert.Equal(t, "", Tag(nil))
	})

	t.Run("ParentTag", func(t *testing.T) {
		assert.Equal(t, "p", ParentTag(textNodeIn(t, doc, "#p1")))
		assert.Equal(t, "div", ParentTag(textNodeIn(t, doc, "#d1")))
	})

	t.Run("AncestorTags", func(t *testing.T) {
		tags := AncestorTags(textNodeIn(t, doc, "#p1"))
		assert.Equal(t, []string{"p", "section", "body", "html"}, tags)
	})

	t.Run("PrevElementTag", func(t *testing.T) {
		// "after line break" 紧跟 <br>
		br := doc.Find("#p2 br").Get(0)
		after := br.NextSibling
		require.NotNil(t, after)
		assert.Equal(t, "br", PrevElementTag(after))

		// 第一个文本节点前面没有元素兄弟
		assert.Equal(t, "", PrevElementTag(textNodeIn(t, doc, "#p2")))

		// 隔着纯空白文本节点也能看到 <br>
		em := doc.Find("#p3 em").Get(0)
		assert.Equal(t, "br", PrevElementTag(em.PrevSibling))
	})

	t.Run("AttrAndHasClass", func(t *testing.T) {
		div := doc.Find("#d1").Get(0)
		val, ok := Attr(div, "class")
		assert.True(t, ok)
		assert.Equal(t, "card featured", val)
		_, ok = Attr(div, "missing")
		assert.False(t, ok)

		assert.True(t, HasClass(div, "card"))
		assert.True(t, HasClass(div, "featured"))
		assert.False(t, HasClass(div, "feat"))
	})

	t.Run("IsAttached", func(t *testing.T) {
		p := doc.Find("#p1").Get(0)
		assert.True(t, IsAttached(doc.Root(), p))
		assert.False(t, IsAttached(doc.Root(), NewText("orphan")))
	})
}

func TestHasAncestorWithClass(t *testing.T) {
	doc, err := ParseString(`<html><body>
<div class="outer"><span class="inner">deep text</span></div>
<p>plain text</p>
</body></html>`)
	require.NoError(t, err)

	deep := textNodeIn(t, doc, "span.inner")
	assert.True(t, HasAncestorWithClass(deep, "inner"))
	assert.True(t, HasAncestorWithClass(deep, "outer"))
	assert.False(t, HasAncestorWithClass(deep, "missing"))

	plain := textNodeIn(t, doc, "p")
	assert.False(t, HasAncestorWithClass(plain, "outer"))

	// 自身带类名的元素也算
	span := doc.Find("span.inner").Get(0)
	assert.True(t, HasAncestorWithClass(span, "inner"))
}

func TestIsVisible(t *testing.T) {
	doc, err := ParseString(`<html><body>
<p id="plain">visible</p>
<p id="none" style="display: none">hidden by display</p>
<p id="vh" style="color: red; visibility:hidden">hidden by visibility</p>
<div style="DISPLAY: NONE"><p id="nested">hidden by ancestor</p></div>
<p id="attr" hidden>hidden attribute</p>
<p id="block" style="display: block">explicitly visible</p>
</body></html>`)
	require.NoError(t, err)

	assert.True(t, IsVisible(textNodeIn(t, doc, "#plain")))
	assert.False(t, IsVisible(textNodeIn(t, doc, "#none")))
	assert.False(t, IsVisible(textNodeIn(t, doc, "#vh")))
	assert.False(t, IsVisible(textNodeIn(t, doc, "#nested")))
	assert.False(t, IsVisible(textNodeIn(t, doc, "#attr")))
	assert.True(t, IsVisible(textNodeIn(t, doc, "#block")))
}

func TestNewElement(t *testing.T) {
	n := NewElement("span", map[string]string{"class": "marker", "data-x": "1"})
	assert.Equal(t, html.ElementNode, n.Type)
	assert.Equal(t, "span", n.Data)
	assert.True(t, HasClass(n, "marker"))
	val, ok := Attr(n, "data-x")
	assert.True(t, ok)
	assert.Equal(t, "1", val)

	text := NewText("hello")
	assert.Equal(t, html.TextNode, text.Type)
	assert.Equal(t, "hello", text.Data)
}

func TestMutationTypeString(t *testing.T) {
	assert.Equal(t, "added", NodeAdded.String())
	assert.Equal(t, "removed", NodeRemoved.String())
	assert.Equal(t, "textChanged", TextChanged.String())
	assert.Equal(t, "unknown", MutationType(9).String())
}
