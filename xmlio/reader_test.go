package xmlio_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ddexkit/erncore/ernerr"
	"github.com/ddexkit/erncore/xmlio"
)

func readAll(t *testing.T, r *xmlio.Reader) ([]xmlio.Token, error) {
	t.Helper()
	var toks []xmlio.Token
	for {
		tok, err := r.Next()
		if err == io.EOF {
			return toks, nil
		}
		if err != nil {
			return toks, err
		}
		toks = append(toks, tok)
	}
}

func TestReader_StripsBOM(t *testing.T) {
	bom := "\xEF\xBB\xBF<root/>"
	r := xmlio.NewReader(context.Background(), strings.NewReader(bom), xmlio.DefaultReaderConfig())
	toks, err := readAll(t, r)
	require.NoError(t, err)
	require.Len(t, toks, 2)
	assert.Equal(t, xmlio.TokStartElement, toks[0].Kind)
	assert.Equal(t, "root", toks[0].Name.Local)
}

func TestReader_MaxDepthExceeded(t *testing.T) {
	cfg := xmlio.DefaultReaderConfig()
	cfg.MaxDepth = 2
	r := xmlio.NewReader(context.Background(), strings.NewReader("<a><b><c/></b></a>"), cfg)
	_, err := readAll(t, r)
	require.Error(t, err)
	assert.True(t, ernerr.IsCode(err, ernerr.SecurityViolation))
}

func TestReader_MaxAttributesExceeded(t *testing.T) {
	cfg := xmlio.DefaultReaderConfig()
	cfg.MaxAttributesPerElement = 1
	r := xmlio.NewReader(context.Background(), strings.NewReader(`<a x="1" y="2"/>`), cfg)
	_, err := readAll(t, r)
	require.Error(t, err)
	assert.True(t, ernerr.IsCode(err, ernerr.SecurityViolation))
}

func TestReader_MaxElementTextBytesExceeded(t *testing.T) {
	cfg := xmlio.DefaultReaderConfig()
	cfg.MaxElementTextBytes = 4
	r := xmlio.NewReader(context.Background(), strings.NewReader(`<a>abcdef</a>`), cfg)
	_, err := readAll(t, r)
	require.Error(t, err)
	assert.True(t, ernerr.IsCode(err, ernerr.SecurityViolation))
}

func TestReader_RejectsExternalEntityDoctype(t *testing.T) {
	cfg := xmlio.DefaultReaderConfig()
	doc := `<!DOCTYPE foo SYSTEM "http://example.com/evil.dtd"><foo/>`
	r := xmlio.NewReader(context.Background(), strings.NewReader(doc), cfg)
	_, err := readAll(t, r)
	require.Error(t, err)
	assert.True(t, ernerr.IsCode(err, ernerr.SecurityViolation))
}

func TestReader_RejectsInternalEntityExpansion(t *testing.T) {
	cfg := xmlio.DefaultReaderConfig()
	doc := `<!DOCTYPE lolz [<!ENTITY lol "lol">]><lolz>&lol;</lolz>`
	r := xmlio.NewReader(context.Background(), strings.NewReader(doc), cfg)
	_, err := readAll(t, r)
	require.Error(t, err)
	assert.True(t, ernerr.IsCode(err, ernerr.SecurityViolation))
}

func TestReader_MaxBytesExceeded(t *testing.T) {
	cfg := xmlio.DefaultReaderConfig()
	cfg.MaxBytes = 5
	r := xmlio.NewReader(context.Background(), strings.NewReader(`<aVeryLongElementName/>`), cfg)
	_, err := readAll(t, r)
	require.Error(t, err)
	assert.True(t, ernerr.IsCode(err, ernerr.SecurityViolation))
}

func TestReader_ManyElementsWithoutEntitiesDoNotTripMaxEntityExpansions(t *testing.T) {
	cfg := xmlio.DefaultReaderConfig()
	cfg.MaxEntityExpansions = 10
	var b strings.Builder
	b.WriteString(`<root xmlns:a="urn:a" xmlns:b="urn:b">`)
	for i := 0; i < 50; i++ {
		b.WriteString(`<item/>`)
	}
	b.WriteString(`</root>`)
	r := xmlio.NewReader(context.Background(), strings.NewReader(b.String()), cfg)
	_, err := readAll(t, r)
	assert.NoError(t, err)
}

func TestReader_ManyEntityReferencesTripMaxEntityExpansions(t *testing.T) {
	cfg := xmlio.DefaultReaderConfig()
	cfg.MaxEntityExpansions = 3
	r := xmlio.NewReader(context.Background(), strings.NewReader(`<root>&amp;&amp;&amp;&amp;&amp;</root>`), cfg)
	_, err := readAll(t, r)
	require.Error(t, err)
	assert.True(t, ernerr.IsCode(err, ernerr.SecurityViolation))
}

func TestReader_NamespaceDeclarationsSeparatedFromAttrs(t *testing.T) {
	doc := `<root xmlns="http://example.com/ns" xmlns:x="http://example.com/x" a="1"/>`
	r := xmlio.NewReader(context.Background(), strings.NewReader(doc), xmlio.DefaultReaderConfig())
	toks, err := readAll(t, r)
	require.NoError(t, err)
	require.Len(t, toks, 2)
	start := toks[0]
	require.Len(t, start.Attrs, 1)
	assert.Equal(t, "a", start.Attrs[0].Name.Local)
	require.Len(t, start.NSDecls, 2)
}

func TestReader_FailedOnceThenSticky(t *testing.T) {
	cfg := xmlio.DefaultReaderConfig()
	cfg.MaxDepth = 1
	r := xmlio.NewReader(context.Background(), strings.NewReader("<a><b/></a>"), cfg)
	_, err1 := r.Next()
	require.NoError(t, err1)
	_, err2 := r.Next()
	require.Error(t, err2)
	_, err3 := r.Next()
	require.Error(t, err3)
	assert.Equal(t, err2, err3)
}
