package canon_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ddexkit/erncore/canon"
	"github.com/ddexkit/erncore/graph"
	"github.com/ddexkit/erncore/xmlio"
)

func buildDoc(t *testing.T, x string) *graph.Document {
	t.Helper()
	d, err := graph.NewBuilder(graph.DefaultBuilderConfig()).Build(context.Background(), strings.NewReader(x))
	require.NoError(t, err)
	return d
}

func render(t *testing.T, doc *graph.Document, opts canon.Options) string {
	t.Helper()
	elem, err := canon.Canonicalize(doc, opts)
	require.NoError(t, err)
	w := xmlio.NewWriter(xmlio.WriterConfig{})
	w.WriteElem(elem, 0)
	return string(w.Bytes())
}

const equivalentA = `<x:NewReleaseMessage xmlns:x="http://ddex.net/xml/ern/43" b="2" a="1">
  <x:MessageHeader><x:MessageThreadId>t</x:MessageThreadId><x:MessageId>m</x:MessageId></x:MessageHeader>
</x:NewReleaseMessage>`

const equivalentB = `<NewReleaseMessage xmlns="http://ddex.net/xml/ern/43" a="1" b="2">
  <MessageHeader><MessageThreadId>t</MessageThreadId><MessageId>m</MessageId></MessageHeader>
</NewReleaseMessage>`

func TestCanonicalize_PrefixAndAttributeOrderIndependence(t *testing.T) {
	docA := buildDoc(t, equivalentA)
	docB := buildDoc(t, equivalentB)
	outA := render(t, docA, canon.Options{})
	outB := render(t, docB, canon.Options{})
	assert.Equal(t, outA, outB)
}

func TestCanonicalize_IsIdempotent(t *testing.T) {
	doc := buildDoc(t, equivalentB)
	once := render(t, doc, canon.Options{})
	elem, err := canon.Canonicalize(doc, canon.Options{})
	require.NoError(t, err)
	w := xmlio.NewWriter(xmlio.WriterConfig{})
	w.WriteElem(elem, 0)
	assert.Equal(t, once, string(w.Bytes()))
}

const autoIDDoc = `<NewReleaseMessage xmlns="http://ddex.net/xml/ern/43">
  <MessageHeader><MessageThreadId>t</MessageThreadId><MessageId>m</MessageId></MessageHeader>
  <ReleaseList>
    <Release ReleaseType="Single"><ReleaseReference>R#auto1</ReleaseReference><DisplayTitleText>Song A</DisplayTitleText></Release>
    <Release ReleaseType="Single"><ReleaseReference>R#auto2</ReleaseReference><DisplayTitleText>Song B</DisplayTitleText></Release>
  </ReleaseList>
</NewReleaseMessage>`

func markAutoID(doc *graph.Document) {
	for _, n := range doc.Nodes(graph.KindRelease) {
		n.AutoID = true
	}
}

func TestCanonicalize_SequentialAutoIDRenumbersInOrder(t *testing.T) {
	doc := buildDoc(t, autoIDDoc)
	markAutoID(doc)
	out := render(t, doc, canon.Options{AutoID: canon.AutoIDSequential})
	assert.Contains(t, out, "<ReleaseReference>R1</ReleaseReference>")
	assert.Contains(t, out, "<ReleaseReference>R2</ReleaseReference>")
	assert.NotContains(t, out, "auto")
}

func TestCanonicalize_ContentHashAutoIDIsDeterministic(t *testing.T) {
	doc1 := buildDoc(t, autoIDDoc)
	markAutoID(doc1)
	doc2 := buildDoc(t, autoIDDoc)
	markAutoID(doc2)

	out1 := render(t, doc1, canon.Options{AutoID: canon.AutoIDContentHash})
	out2 := render(t, doc2, canon.Options{AutoID: canon.AutoIDContentHash})
	assert.Equal(t, out1, out2)
	assert.NotContains(t, out1, "auto")
}

func TestCanonicalize_ContentHashDiffersForDifferentContent(t *testing.T) {
	doc := buildDoc(t, autoIDDoc)
	markAutoID(doc)
	elem, err := canon.Canonicalize(doc, canon.Options{AutoID: canon.AutoIDContentHash})
	require.NoError(t, err)
	w := xmlio.NewWriter(xmlio.WriterConfig{})
	w.WriteElem(elem, 0)
	out := string(w.Bytes())

	// Song A and Song B have different content, so their stabilized
	// references must differ.
	rels := doc.Nodes(graph.KindRelease)
	require.Len(t, rels, 2)
	assert.NotEqual(t, extractBetween(out, 0), extractBetween(out, 1))
}

const mixedKindAutoIDDoc = `<NewReleaseMessage xmlns="http://ddex.net/xml/ern/43">
  <MessageHeader><MessageThreadId>t</MessageThreadId><MessageId>m</MessageId></MessageHeader>
  <PartyList>
    <Party><PartyReference>P#auto1</PartyReference><PartyName><FullName>Acme</FullName></PartyName></Party>
  </PartyList>
  <ResourceList>
    <SoundRecording><ResourceReference>A#auto1</ResourceReference><DisplayTitleText>Track One</DisplayTitleText></SoundRecording>
  </ResourceList>
  <ReleaseList>
    <Release ReleaseType="Single"><ReleaseReference>R#auto1</ReleaseReference><DisplayTitleText>Song</DisplayTitleText>
      <ResourceGroup><ResourceGroupContentItem><ReleaseResourceReference>A#auto1</ReleaseResourceReference></ResourceGroupContentItem></ResourceGroup>
    </Release>
  </ReleaseList>
</NewReleaseMessage>`

func TestCanonicalize_SequentialAutoIDUsesDistinctPrefixesPerKind(t *testing.T) {
	doc := buildDoc(t, mixedKindAutoIDDoc)
	for _, n := range doc.Nodes(graph.KindParty) {
		n.AutoID = true
	}
	for _, n := range doc.Nodes(graph.KindResource) {
		n.AutoID = true
	}
	for _, n := range doc.Nodes(graph.KindRelease) {
		n.AutoID = true
	}

	out := render(t, doc, canon.Options{AutoID: canon.AutoIDSequential})
	assert.Contains(t, out, "<PartyReference>P1</PartyReference>")
	assert.Contains(t, out, "<ResourceReference>A1</ResourceReference>")
	assert.Contains(t, out, "<ReleaseReference>R1</ReleaseReference>")
	assert.NotContains(t, out, "auto")
}

func extractBetween(s string, which int) string {
	idx := -1
	for i := 0; i <= which; i++ {
		next := strings.Index(s[idx+1:], "<ReleaseReference>")
		if next == -1 {
			return ""
		}
		idx = idx + 1 + next
	}
	end := strings.Index(s[idx:], "</ReleaseReference>")
	return s[idx : idx+end]
}
