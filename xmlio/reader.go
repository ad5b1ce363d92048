package xmlio

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"time"

	"github.com/ddexkit/erncore/ernerr"
	"github.com/ddexkit/erncore/internal/ernschema"
)

// ReaderConfig carries the Secure XML Reader's resource-exhaustion limits
// (spec §4.1). The zero value is not valid; use DefaultReaderConfig.
type ReaderConfig struct {
	MaxBytes                int64
	MaxDepth                int
	MaxEntityExpansions     int
	MaxAttributesPerElement int
	MaxElementTextBytes     int
	AllowExternalEntities   bool
	PreserveWhitespace      bool
	Timeout                 time.Duration
}

// DefaultReaderConfig returns the limits spec §4.1 specifies as defaults.
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{
		MaxBytes:                ernschema.MaxBytesDefault,
		MaxDepth:                ernschema.MaxDepthDefault,
		MaxEntityExpansions:     ernschema.MaxEntityExpansionsDefault,
		MaxAttributesPerElement: ernschema.MaxAttributesPerElemDefault,
		MaxElementTextBytes:     ernschema.MaxElementTextBytesDefault,
		AllowExternalEntities:   false,
		PreserveWhitespace:      false,
	}
}

// Reader is a lazy, finite, non-restartable token stream over an XML byte
// source (spec §4.1). A Reader must not be used from more than one
// goroutine and must not be reused once exhausted or failed.
type Reader struct {
	cfg     ReaderConfig
	dec     *xml.Decoder
	cr      *countingReader
	ctx     context.Context
	depth   int
	done    bool
	failed  error
	start   time.Time
	deadline time.Time
}

// countingReader tracks bytes consumed so MaxBytes can be enforced without
// buffering the whole input. It also counts raw '&' bytes in the stream as
// a proxy for entity-reference occurrences: every entity reference, named
// or numeric, begins with '&', so this counts actual references rather
// than unrelated structural tokens (elements, namespace decls).
type countingReader struct {
	r   io.Reader
	n   int64
	max int64

	entityRefs    int
	maxEntityRefs int
}

func (c *countingReader) Read(p []byte) (int, error) {
	if c.max > 0 && c.n >= c.max {
		return 0, ernerr.SecurityViolation(ernerr.KindByteBudget, fmt.Sprintf("exceeded max_bytes=%d", c.max))
	}
	if c.max > 0 && int64(len(p)) > c.max-c.n {
		p = p[:c.max-c.n]
	}
	n, err := c.r.Read(p)
	c.n += int64(n)
	if c.maxEntityRefs > 0 {
		c.entityRefs += bytes.Count(p[:n], []byte{'&'})
		if c.entityRefs > c.maxEntityRefs {
			return n, ernerr.SecurityViolation(ernerr.KindEntityExpansion, fmt.Sprintf("entity reference count exceeds max_entity_expansions=%d", c.maxEntityRefs))
		}
	}
	return n, err
}

// NewReader constructs a Reader over src. The UTF-8 BOM, if present, is
// stripped before tokenizing (spec §4.1).
func NewReader(ctx context.Context, src io.Reader, cfg ReaderConfig) *Reader {
	src = stripBOM(src)
	cr := &countingReader{r: src, max: cfg.MaxBytes, maxEntityRefs: cfg.MaxEntityExpansions}
	dec := xml.NewDecoder(cr)
	dec.Strict = true
	if !cfg.AllowExternalEntities {
		// encoding/xml never fetches external entities; names beyond XML's
		// predefined five resolve only through the static xml.HTMLEntity
		// table. A DOCTYPE naming a SYSTEM/PUBLIC identifier is rejected
		// in convert.
		dec.Entity = xml.HTMLEntity
	}
	r := &Reader{cfg: cfg, dec: dec, cr: cr, ctx: ctx, start: time.Now()}
	if cfg.Timeout > 0 {
		r.deadline = r.start.Add(cfg.Timeout)
	}
	return r
}

func stripBOM(r io.Reader) io.Reader {
	br := bufReader{r}
	b := make([]byte, 3)
	n, _ := io.ReadFull(br, b)
	if n == 3 && bytes.Equal(b, []byte{0xEF, 0xBB, 0xBF}) {
		return br.r
	}
	return io.MultiReader(bytes.NewReader(b[:n]), br.r)
}

// bufReader avoids importing bufio just to peek 3 bytes.
type bufReader struct{ r io.Reader }

func (b bufReader) Read(p []byte) (int, error) { return b.r.Read(p) }

// Next returns the next Token, or io.EOF when the document is exhausted,
// or a *ernerr.Error (SECURITY_VIOLATION / INVALID_XML / TIMEOUT) on
// failure. Once Next returns an error other than io.EOF, the Reader is
// failed and must not be called again.
func (r *Reader) Next() (Token, error) {
	if r.done {
		return Token{}, io.EOF
	}
	if r.failed != nil {
		return Token{}, r.failed
	}
	if err := r.checkDeadline(); err != nil {
		r.failed = err
		return Token{}, err
	}
	select {
	case <-r.ctxDone():
		err := ernerr.New(ernerr.Timeout, "context cancelled")
		r.failed = err
		return Token{}, err
	default:
	}

	line, col := r.dec.InputPos()
	off := r.dec.InputOffset()
	tok, err := r.dec.Token()
	if err != nil {
		if err == io.EOF {
			r.done = true
			return Token{}, io.EOF
		}
		wrapped := r.classify(err)
		r.failed = wrapped
		return Token{}, wrapped
	}

	out, err := r.convert(tok)
	if err != nil {
		r.failed = err
		return Token{}, err
	}
	out.Pos = Position{Offset: off, Line: line, Column: col}
	return out, nil
}

func (r *Reader) ctxDone() <-chan struct{} {
	if r.ctx == nil {
		return nil
	}
	return r.ctx.Done()
}

func (r *Reader) checkDeadline() error {
	if r.deadline.IsZero() {
		return nil
	}
	if time.Now().After(r.deadline) {
		return ernerr.New(ernerr.Timeout, "reader deadline exceeded after %s", time.Since(r.start))
	}
	return nil
}

func (r *Reader) classify(err error) error {
	if se, ok := err.(*ernerr.Error); ok {
		return se
	}
	line, col := r.dec.InputPos()
	return ernerr.New(ernerr.InvalidXML, "%s", err.Error()).WithPos(line, col, err.Error())
}

func (r *Reader) convert(tok xml.Token) (Token, error) {
	switch t := tok.(type) {
	case xml.StartElement:
		return r.convertStart(t)
	case xml.EndElement:
		r.depth--
		return Token{Kind: TokEndElement, Name: Name{Space: t.Name.Space, Local: t.Name.Local}}, nil
	case xml.CharData:
		b := []byte(t)
		if len(b) > r.cfg.MaxElementTextBytes && r.cfg.MaxElementTextBytes > 0 {
			return Token{}, ernerr.SecurityViolation(ernerr.KindTextSize, fmt.Sprintf("text segment of %d bytes exceeds max_element_text_bytes=%d", len(b), r.cfg.MaxElementTextBytes))
		}
		insig := !r.cfg.PreserveWhitespace && isAllWhitespace(b)
		return Token{Kind: TokText, Bytes: append([]byte(nil), b...), Insignificant: insig}, nil
	case xml.Comment:
		return Token{Kind: TokComment, Bytes: append([]byte(nil), []byte(t)...)}, nil
	case xml.ProcInst:
		return Token{Kind: TokProcInst, Target: t.Target, Data: append([]byte(nil), t.Inst...)}, nil
	case xml.Directive:
		d := string(t)
		if bytes.Contains(t, []byte("<!ENTITY")) {
			return Token{}, ernerr.SecurityViolation(ernerr.KindDoctypeEntity, "DOCTYPE declares an internal entity")
		}
		if bytes.Contains(t, []byte("SYSTEM")) || bytes.Contains(t, []byte("PUBLIC")) {
			return Token{}, ernerr.SecurityViolation(ernerr.KindExternalEntity, "DOCTYPE references an external identifier")
		}
		_ = d
		return Token{Kind: TokComment, Bytes: nil}, nil
	default:
		return Token{}, ernerr.New(ernerr.InvalidXML, "unexpected token type %T", tok)
	}
}

func (r *Reader) convertStart(t xml.StartElement) (Token, error) {
	r.depth++
	if r.cfg.MaxDepth > 0 && r.depth > r.cfg.MaxDepth {
		return Token{}, ernerr.SecurityViolation(ernerr.KindNestingDepth, fmt.Sprintf("depth %d exceeds max_depth=%d", r.depth, r.cfg.MaxDepth))
	}
	if r.cfg.MaxAttributesPerElement > 0 && len(t.Attr) > r.cfg.MaxAttributesPerElement {
		return Token{}, ernerr.SecurityViolation(ernerr.KindAttributeCount, fmt.Sprintf("%d attributes exceeds max_attributes_per_element=%d", len(t.Attr), r.cfg.MaxAttributesPerElement))
	}

	var attrs []Attr
	var nsDecls []NSDecl
	for _, a := range t.Attr {
		if a.Name.Space == "xmlns" {
			nsDecls = append(nsDecls, NSDecl{Prefix: a.Name.Local, URI: a.Value})
			continue
		}
		if a.Name.Space == "" && a.Name.Local == "xmlns" {
			nsDecls = append(nsDecls, NSDecl{Prefix: "", URI: a.Value})
			continue
		}
		attrs = append(attrs, Attr{Name: Name{Space: a.Name.Space, Local: a.Name.Local}, Value: a.Value})
	}

	return Token{
		Kind:    TokStartElement,
		Name:    Name{Space: t.Name.Space, Local: t.Name.Local},
		Attrs:   attrs,
		NSDecls: nsDecls,
	}, nil
}

func isAllWhitespace(b []byte) bool {
	for _, c := range b {
		switch c {
		case ' ', '\t', '\r', '\n':
		default:
			return false
		}
	}
	return true
}
