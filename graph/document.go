package graph

import (
	"github.com/ddexkit/erncore/internal/ernschema"
)

// EntityKind discriminates the four entity vectors a Document indexes
// (spec §3.1: Party, Resource, Release, Deal).
type EntityKind int

const (
	KindParty EntityKind = iota
	KindResource
	KindRelease
	KindDeal
)

func (k EntityKind) String() string {
	switch k {
	case KindParty:
		return "Party"
	case KindResource:
		return "Resource"
	case KindRelease:
		return "Release"
	case KindDeal:
		return "Deal"
	default:
		return "Unknown"
	}
}

// Handle is a stable, Document-relative reference to an entity node: an
// index into the Document's entity vector for that Kind, never a raw
// pointer. This is the arena+index mechanism spec §9 calls for to avoid
// the Graph<->Flat cyclic-ownership trap: a Handle outlives nothing: it is
// meaningless once its Document is gone, and dereferencing it against a
// different Document is a caller bug, not a memory-safety issue.
type Handle struct {
	Kind  EntityKind
	Index int
}

// entityVector holds one Kind's entities in document order, plus a
// by-reference lookup built during the Graph Builder's resolve pass.
type entityVector struct {
	nodes []*Node
	refs  []string
	byRef map[string]int
}

func newEntityVector() *entityVector {
	return &entityVector{byRef: make(map[string]int)}
}

func (v *entityVector) add(ref string, n *Node) (Handle, bool) {
	if _, dup := v.byRef[ref]; dup {
		return Handle{}, false
	}
	idx := len(v.nodes)
	v.nodes = append(v.nodes, n)
	v.refs = append(v.refs, ref)
	v.byRef[ref] = idx
	return Handle{Index: idx}, true
}

// Document is the root of a Graph: a parsed-or-constructed message plus
// its entity indices (spec §3.1 Message, §3.2 reference invariants).
type Document struct {
	Version        ernschema.Version
	Profile        string
	ReleaseProfile string
	Root           *Node // the root element, e.g. NewReleaseMessage

	vectors [4]*entityVector
}

// NewDocument returns an empty Document ready for either the Graph
// Builder's parse path or the Builder's request-construction path.
func NewDocument(version ernschema.Version) *Document {
	d := &Document{Version: version}
	for i := range d.vectors {
		d.vectors[i] = newEntityVector()
	}
	return d
}

// Index registers n under the given Kind and ref, returning a Handle. ok
// is false if ref is a duplicate within its Kind (spec §3.2 "uniqueness of
// each reference within its entity kind is required").
func (d *Document) Index(kind EntityKind, ref string, n *Node) (Handle, bool) {
	h, ok := d.vectors[kind].add(ref, n)
	h.Kind = kind
	return h, ok
}

// Resolve returns the Node for a Handle, or nil if the Handle is
// out-of-range for this Document.
func (d *Document) Resolve(h Handle) *Node {
	v := d.vectors[h.Kind]
	if h.Index < 0 || h.Index >= len(v.nodes) {
		return nil
	}
	return v.nodes[h.Index]
}

// Lookup resolves a reference string of the given Kind to a Handle.
func (d *Document) Lookup(kind EntityKind, ref string) (Handle, bool) {
	idx, ok := d.vectors[kind].byRef[ref]
	if !ok {
		return Handle{}, false
	}
	return Handle{Kind: kind, Index: idx}, true
}

// Refs returns the references of Kind in document order.
func (d *Document) Refs(kind EntityKind) []string {
	return d.vectors[kind].refs
}

// Nodes returns the entity nodes of Kind in document order.
func (d *Document) Nodes(kind EntityKind) []*Node {
	return d.vectors[kind].nodes
}

// Len returns how many entities of Kind the Document indexes.
func (d *Document) Len(kind EntityKind) int {
	return len(d.vectors[kind].nodes)
}

// Count returns the total number of Nodes reachable from Root, used by
// the Round-Trip Verifier's fidelity score (spec §4.8).
func (d *Document) Count() int {
	if d.Root == nil {
		return 0
	}
	return countNodes(d.Root)
}

func countNodes(n *Node) int {
	total := 1
	for _, c := range n.Children {
		if c.Elem != nil {
			total += countNodes(c.Elem)
		} else if c.Extension != nil && c.Extension.Root != nil {
			total += countNodes(c.Extension.Root)
		}
	}
	return total
}
