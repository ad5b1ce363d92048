package graph

import (
	"context"
	"fmt"
	"io"

	"github.com/ddexkit/erncore/ernerr"
	"github.com/ddexkit/erncore/internal/ernschema"
	"github.com/ddexkit/erncore/xmlio"
)

// parserState implements the state machine of spec §4.10.
type parserState int

const (
	stateInit parserState = iota
	stateHeader
	stateBody
	stateDone
	stateFailed
)

// BuilderConfig configures the Graph Builder.
type BuilderConfig struct {
	Reader            xmlio.ReaderConfig
	PreserveComments  bool
	PreservePIs       bool
}

// DefaultBuilderConfig returns sane defaults: comments and PIs dropped
// (not preserved) unless the caller opts in, matching a typical
// application's default expectations while still supporting spec §4.5
// rule 7 when requested.
func DefaultBuilderConfig() BuilderConfig {
	return BuilderConfig{Reader: xmlio.DefaultReaderConfig()}
}

// Builder consumes a token stream and constructs a Document (spec §4.3).
type Builder struct {
	cfg   BuilderConfig
	doc   *Document
	state parserState
	// path tracks local-name ancestry for StructuralError / Extension
	// path reporting.
	path []string
}

// NewBuilder constructs a Graph Builder with the given configuration.
func NewBuilder(cfg BuilderConfig) *Builder {
	return &Builder{cfg: cfg}
}

// Build consumes src fully and returns the resulting Document.
func (b *Builder) Build(ctx context.Context, src io.Reader) (*Document, error) {
	r := xmlio.NewReader(ctx, src, b.cfg.Reader)

	var stack []*Node
	var rootNS string

	for {
		tok, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			b.state = stateFailed
			return nil, err
		}

		switch tok.Kind {
		case xmlio.TokStartElement:
			if b.state == stateInit {
				version, ok := ernschema.VersionForNamespace(tok.Name.Space)
				if !ok {
					b.state = stateFailed
					return nil, ernerr.New(ernerr.UnsupportedVersion, "unrecognized root namespace %q", tok.Name.Space)
				}
				b.doc = NewDocument(version)
				rootNS = tok.Name.Space
				b.state = stateHeader
				b.applyRootAttrs(tok)
			}

			n := &Node{Name: tok.Name, Attrs: tok.Attrs, NSDecls: tok.NSDecls, Pos: tok.Pos}
			b.path = append(b.path, tok.Name.Local)

			if len(stack) == 0 {
				b.doc.Root = n
			} else {
				parent := stack[len(stack)-1]
				if isExtensionNS(tok.Name.Space, rootNS) {
					ext := &Extension{
						Path:         "/" + joinPath(b.path),
						NamespaceURI: tok.Name.Space,
						Root:         n,
					}
					parent.Children = append(parent.Children, Child{Extension: ext})
				} else {
					parent.Children = append(parent.Children, Child{Elem: n})
				}
			}
			stack = append(stack, n)

		case xmlio.TokEndElement:
			if len(stack) == 0 {
				b.state = stateFailed
				return nil, ernerr.New(ernerr.StructuralError, "unbalanced end element %s", tok.Name.Local)
			}
			closed := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if len(b.path) > 0 {
				b.path = b.path[:len(b.path)-1]
			}

			switch {
			case b.state == stateHeader && closed.Name.Local == "MessageHeader":
				b.state = stateBody
			case b.state == stateBody && len(stack) == 0:
				b.state = stateDone
			}

		case xmlio.TokText:
			if len(stack) == 0 {
				continue
			}
			top := stack[len(stack)-1]
			top.Children = append(top.Children, Child{Text: string(tok.Bytes), Insignificant: tok.Insignificant})

		case xmlio.TokComment:
			if !b.cfg.PreserveComments || len(stack) == 0 {
				continue
			}
			top := stack[len(stack)-1]
			top.Children = append(top.Children, Child{Comment: string(tok.Bytes)})

		case xmlio.TokProcInst:
			if !b.cfg.PreservePIs || len(stack) == 0 {
				continue
			}
			top := stack[len(stack)-1]
			top.Children = append(top.Children, Child{ProcTarget: tok.Target, ProcData: string(tok.Data)})
		}
	}

	if b.doc == nil || b.doc.Root == nil {
		return nil, ernerr.New(ernerr.StructuralError, "empty document")
	}
	if b.doc.Root.FirstElement("MessageHeader") == nil {
		return nil, ernerr.New(ernerr.StructuralError, "MessageHeader is required").WithPath("/" + b.doc.Root.Name.Local)
	}
	if b.state != stateDone {
		return nil, ernerr.New(ernerr.StructuralError, "document ended in unexpected state")
	}

	if err := IndexEntities(b.doc); err != nil {
		return nil, err
	}
	return b.doc, nil
}

func (b *Builder) applyRootAttrs(tok xmlio.Token) {
	for _, a := range tok.Attrs {
		switch a.Name.Local {
		case "BusinessProfileVersionId":
			b.doc.Profile = a.Value
		case "ReleaseProfileVersionId":
			b.doc.ReleaseProfile = a.Value
		}
	}
}

func isExtensionNS(space, rootNS string) bool {
	return space != "" && space != rootNS
}

func joinPath(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "/"
		}
		out += p
	}
	return out
}

// IndexEntities populates doc's entity vectors from its Root's well-known
// list composites (PartyList, ResourceList, ReleaseList, DealList),
// regardless of which ERN version produced them (spec §4.4 step 1). The
// Graph Builder calls this after a parse; the request-construction
// Builder (ern382/ern42/ern43) calls it after assembling a Document by
// hand, so both paths produce Documents with the same invariants.
func IndexEntities(doc *Document) error {
	return indexEntities(doc)
}

func indexEntities(doc *Document) error {
	root := doc.Root

	if pl := root.FirstElement("PartyList"); pl != nil {
		for _, p := range pl.Elements("Party") {
			ref := p.Text() // overwritten below if PartyReference child exists
			if r := p.FirstElement("PartyReference"); r != nil {
				ref = r.Text()
			}
			if _, ok := doc.Index(KindParty, ref, p); !ok {
				return ernerr.New(ernerr.StructuralError, "duplicate PartyReference %q", ref).WithPath("/PartyList/Party")
			}
		}
	}

	if rl := root.FirstElement("ResourceList"); rl != nil {
		for _, kind := range []string{"SoundRecording", "Image", "Video", "Text"} {
			for _, res := range rl.Elements(kind) {
				ref := ""
				if r := res.FirstElement("ResourceReference"); r != nil {
					ref = r.Text()
				}
				if ref == "" {
					return ernerr.New(ernerr.StructuralError, "Resource missing ResourceReference").WithPath(fmt.Sprintf("/ResourceList/%s", kind))
				}
				if _, ok := doc.Index(KindResource, ref, res); !ok {
					return ernerr.New(ernerr.StructuralError, "duplicate ResourceReference %q", ref).WithPath("/ResourceList")
				}
			}
		}
	}

	if rl := root.FirstElement("ReleaseList"); rl != nil {
		for i, rel := range rl.Elements("Release") {
			ref := ""
			if r := rel.FirstElement("ReleaseReference"); r != nil {
				ref = r.Text()
			}
			if ref == "" {
				return ernerr.New(ernerr.StructuralError, "Release missing ReleaseReference").WithPath(fmt.Sprintf("/ReleaseList/Release[%d]", i+1))
			}
			if _, ok := doc.Index(KindRelease, ref, rel); !ok {
				return ernerr.New(ernerr.StructuralError, "duplicate ReleaseReference %q", ref).WithPath("/ReleaseList")
			}
		}
	}

	if dl := root.FirstElement("DealList"); dl != nil {
		for i, rd := range dl.Elements("ReleaseDeal") {
			ref := fmt.Sprintf("D%d", i+1)
			doc.Index(KindDeal, ref, rd)
		}
	}

	return nil
}
