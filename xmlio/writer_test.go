package xmlio_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ddexkit/erncore/xmlio"
)

func TestWriter_SelfClosingElement(t *testing.T) {
	w := xmlio.NewWriter(xmlio.WriterConfig{})
	w.WriteElem(&xmlio.Elem{Local: "Empty"}, 0)
	assert.Equal(t, "<Empty/>", string(w.Bytes()))
}

func TestWriter_DeclarationThenElement(t *testing.T) {
	w := xmlio.NewWriter(xmlio.WriterConfig{})
	w.WriteDeclaration()
	w.WriteElem(&xmlio.Elem{Local: "root", Children: []xmlio.Node{{Text: "hi"}}}, 0)
	assert.Equal(t, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<root>hi</root>", string(w.Bytes()))
}

func TestWriter_PrefixedQName(t *testing.T) {
	w := xmlio.NewWriter(xmlio.WriterConfig{})
	w.WriteElem(&xmlio.Elem{Prefix: "ern", Local: "Release"}, 0)
	assert.Equal(t, "<ern:Release/>", string(w.Bytes()))
}

func TestWriter_IndentTwoSpace(t *testing.T) {
	inner := &xmlio.Elem{Local: "b"}
	outer := &xmlio.Elem{Local: "a", Children: []xmlio.Node{{Elem: inner}}}
	w := xmlio.NewWriter(xmlio.WriterConfig{Indent: xmlio.IndentTwoSpace})
	w.WriteElem(outer, 0)
	assert.Equal(t, "<a>\n  <b/>\n</a>\n", string(w.Bytes()))
}

func TestWriter_DeterministicAcrossCalls(t *testing.T) {
	build := func() []byte {
		w := xmlio.NewWriter(xmlio.WriterConfig{Indent: xmlio.IndentTwoSpace})
		w.WriteDeclaration()
		w.WriteElem(&xmlio.Elem{
			Local: "root",
			Attrs: []xmlio.WriterAttr{{QName: "xmlns", Value: "http://example.com"}},
			Children: []xmlio.Node{
				{Elem: &xmlio.Elem{Local: "child", Children: []xmlio.Node{{Text: "x"}}}},
			},
		}, 0)
		return w.Bytes()
	}
	assert.Equal(t, build(), build())
}

func TestEscapeText(t *testing.T) {
	assert.Equal(t, "a &amp; b &lt;c&gt;", xmlio.EscapeText("a & b <c>"))
}

func TestEscapeAttr(t *testing.T) {
	assert.Equal(t, "&quot;q&quot; &amp; &apos;a&apos;", xmlio.EscapeAttr(`"q" & 'a'`))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "PT3M10S", xmlio.FormatDuration(3*60+10))
	assert.Equal(t, "PT1H", xmlio.FormatDuration(3600))
	assert.Equal(t, "PT0S", xmlio.FormatDuration(0))
}

func TestWriter_MixedContentKeepsInline(t *testing.T) {
	e := &xmlio.Elem{
		Local: "p",
		Children: []xmlio.Node{
			{Text: "before "},
			{Elem: &xmlio.Elem{Local: "b", Children: []xmlio.Node{{Text: "bold"}}}},
			{Text: " after"},
		},
	}
	w := xmlio.NewWriter(xmlio.WriterConfig{})
	w.WriteElem(e, 0)
	assert.Equal(t, "<p>before <b>bold</b> after</p>", string(w.Bytes()))
}
