// Package graph implements the Graph model (spec §3, §4.3): a tree
// faithful to the parsed XML, preserving element order, attribute order,
// namespace scope, and partner extensions, plus the Graph Builder that
// constructs it from an xmlio.Reader token stream.
package graph

import (
	"github.com/ddexkit/erncore/xmlio"
)

// Node is one element in the Graph, in document order. The Graph
// exclusively owns every Node; nothing outside this package should retain
// a *Node past the owning Document's lifetime (spec §3.2 ownership
// invariant).
type Node struct {
	Name    xmlio.Name
	Attrs   []xmlio.Attr
	NSDecls []xmlio.NSDecl
	Children []Child

	// AutoID marks an element whose reference-like text content (e.g. a
	// ReleaseReference) was generated by a Builder in "auto" mode and is
	// eligible for ID stabilization (spec §4.5 rule 3). The Canonicalizer
	// also honours it when set on the entity element itself (Party,
	// SoundRecording, Release, ...). Parsed documents never set this; only
	// request-built Graphs do.
	AutoID bool

	Pos xmlio.Position
}

// Child is the tagged union of one unit of element content.
type Child struct {
	Elem      *Node
	Text      string
	Insignificant bool
	Comment   string
	ProcTarget string
	ProcData  string
	Extension *Extension
}

// Extension wraps a subtree whose element or attribute namespace isn't the
// document's own ERN namespace (spec §3.1 Extension entity, §3.2 "byte-
// exact... survive round-trip"). erncore preserves extensions by keeping
// their fully decoded subtree and re-serializing it through the same
// deterministic escaping rules on every write, so content and attribute
// values survive parse -> build -> parse identically.
type Extension struct {
	Path string // local names from the root down to and including the extension element, no positional indexes, e.g. "/NewReleaseMessage/ReleaseList/Release/CanvasUrl"
	NamespaceURI string
	Root *Node
}

// Text returns the concatenated character data directly under n, which is
// what callers mean by "an element's text content" for simple leaf
// elements (e.g. <Duration>PT3M30S</Duration>).
func (n *Node) Text() string {
	var out []byte
	for _, c := range n.Children {
		if c.Elem == nil && c.Extension == nil && c.Comment == "" && c.ProcTarget == "" {
			out = append(out, c.Text...)
		}
	}
	return string(out)
}

// Attr returns the value of the first attribute with the given local name
// in the empty namespace, and whether it was present.
func (n *Node) Attr(local string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == local && a.Name.Space == "" {
			return a.Value, true
		}
	}
	return "", false
}

// Child elements (not Extensions, not text) with the given local name, in
// document order.
func (n *Node) Elements(local string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Elem != nil && c.Elem.Name.Local == local {
			out = append(out, c.Elem)
		}
	}
	return out
}

// FirstElement returns the first child element with the given local name,
// or nil.
func (n *Node) FirstElement(local string) *Node {
	for _, c := range n.Children {
		if c.Elem != nil && c.Elem.Name.Local == local {
			return c.Elem
		}
	}
	return nil
}

// AppendElem appends a child element and returns it, for use by the
// Builder's request-construction path.
func (n *Node) AppendElem(child *Node) *Node {
	n.Children = append(n.Children, Child{Elem: child})
	return child
}

// AppendText appends a text child.
func (n *Node) AppendText(s string) {
	n.Children = append(n.Children, Child{Text: s})
}

// SetAttr sets (or appends) an attribute in the empty namespace.
func (n *Node) SetAttr(local, value string) {
	for i, a := range n.Attrs {
		if a.Name.Local == local && a.Name.Space == "" {
			n.Attrs[i].Value = value
			return
		}
	}
	n.Attrs = append(n.Attrs, xmlio.Attr{Name: xmlio.Name{Local: local}, Value: value})
}

// NewElem constructs a bare element node in the given namespace.
func NewElem(ns, local string) *Node {
	return &Node{Name: xmlio.Name{Space: ns, Local: local}}
}
