// Package canon implements the Canonicalizer (spec §4.5): the DB-C14N/1.0
// normalization that makes two structurally-identical Graphs serialize to
// identical bytes regardless of input formatting, prefix choice, or
// attribute order.
package canon

import (
	"sort"
	"strings"

	"github.com/ddexkit/erncore/graph"
	"github.com/ddexkit/erncore/internal/ernschema"
	"github.com/ddexkit/erncore/xmlio"
)

// AutoIDMode selects how Canonicalize stabilizes elements the Builder
// marked AutoID (spec §4.5 rule 3).
type AutoIDMode int

const (
	// AutoIDNone leaves auto-marked references exactly as given.
	AutoIDNone AutoIDMode = iota
	// AutoIDSequential renumbers auto-marked references to R1, R2, ...
	// / A1, A2, ... / P1, P2, ... / D1, D2, ... in document order.
	AutoIDSequential
	// AutoIDContentHash renumbers auto-marked references to the kind letter
	// (R/A/P/D) followed by the first 64 bits of SHA-256 over the entity's
	// canonicalized subtree, lowercase hex (spec §4.5 rule 3,
	// testable-property scenario 5).
	AutoIDContentHash
)

// Options configures Canonicalize.
type Options struct {
	AutoID           AutoIDMode
	PreserveComments bool
}

// Canonicalize normalizes doc and returns a writer-ready Elem tree (spec
// §4.5 rules 1-7). It does not mutate doc's underlying Nodes; ID
// stabilization operates on a substitution map applied while converting,
// so the same Document can be canonicalized more than once
// (idempotence: canonicalize ∘ canonicalize = canonicalize, spec §8).
func Canonicalize(doc *graph.Document, opts Options) (*xmlio.Elem, error) {
	rootNS := ernschema.NamespaceForVersion(doc.Version)
	if rootNS == "" {
		rootNS = doc.Root.Name.Space
	}

	nsTable := buildNamespaceTable(doc.Root, rootNS)

	subs, err := buildIDSubstitutions(doc, opts.AutoID, nsTable)
	if err != nil {
		return nil, err
	}

	c := &converter{rootNS: rootNS, nsTable: nsTable, subs: subs, preserveComments: opts.PreserveComments}
	elem := c.convert(doc.Root, true)
	return elem, nil
}

// nsEntry is one namespace's assigned canonical prefix.
type nsEntry struct {
	URI    string
	Prefix string
}

// namespaceTable maps a namespace URI to its canonical prefix for one
// Canonicalize call, built per spec §4.5 rule 1 / §9.
type namespaceTable struct {
	byURI   map[string]string
	ordered []nsEntry
}

func buildNamespaceTable(root *graph.Node, rootNS string) *namespaceTable {
	used := map[string]bool{rootNS: true}
	collectNamespaces(root, used)

	uris := make([]string, 0, len(used))
	for u := range used {
		if u != "" {
			uris = append(uris, u)
		}
	}
	sort.Strings(uris)

	t := &namespaceTable{byURI: map[string]string{}}
	nextNS := 1
	for _, u := range uris {
		prefix, ok := ernschema.FixedPrefix(u)
		if u == rootNS && !ok {
			prefix, ok = "ern", true
		}
		if !ok {
			prefix = nsNumbered(nextNS)
			nextNS++
		}
		t.byURI[u] = prefix
		t.ordered = append(t.ordered, nsEntry{URI: u, Prefix: prefix})
	}
	return t
}

func nsNumbered(n int) string {
	digits := "0123456789"
	if n < 10 {
		return "ns" + string(digits[n])
	}
	out := ""
	for n > 0 {
		out = string(digits[n%10]) + out
		n /= 10
	}
	return "ns" + out
}

func collectNamespaces(n *graph.Node, used map[string]bool) {
	if n.Name.Space != "" {
		used[n.Name.Space] = true
	}
	for _, a := range n.Attrs {
		if a.Name.Space != "" {
			used[a.Name.Space] = true
		}
	}
	for _, c := range n.Children {
		if c.Elem != nil {
			collectNamespaces(c.Elem, used)
		}
		if c.Extension != nil && c.Extension.Root != nil {
			used[c.Extension.NamespaceURI] = true
			collectNamespaces(c.Extension.Root, used)
		}
	}
}

// converter walks a Document's tree converting graph.Node into the
// writer's Elem shape, applying namespace/attribute ordering and ID
// substitution as it goes.
type converter struct {
	rootNS           string
	nsTable          *namespaceTable
	subs             map[graph.EntityKind]map[string]string
	preserveComments bool
}

func (c *converter) convert(n *graph.Node, isRoot bool) *xmlio.Elem {
	e := &xmlio.Elem{
		Prefix: c.nsTable.byURI[n.Name.Space],
		Local:  n.Name.Local,
	}

	var attrs []xmlio.WriterAttr
	if isRoot {
		for _, ent := range c.nsTable.ordered {
			qname := "xmlns"
			if ent.Prefix != "" {
				qname = "xmlns:" + ent.Prefix
			}
			attrs = append(attrs, xmlio.WriterAttr{QName: qname, Value: ent.URI})
		}
	}

	type sortableAttr struct {
		ns, local, qname, value string
	}
	var plain []sortableAttr
	for _, a := range n.Attrs {
		prefix := c.nsTable.byURI[a.Name.Space]
		qname := a.Name.Local
		if prefix != "" {
			qname = prefix + ":" + a.Name.Local
		}
		plain = append(plain, sortableAttr{ns: a.Name.Space, local: a.Name.Local, qname: qname, value: a.Value})
	}
	sort.SliceStable(plain, func(i, j int) bool {
		if plain[i].ns == plain[j].ns {
			return plain[i].local < plain[j].local
		}
		if plain[i].ns == "" {
			return false
		}
		if plain[j].ns == "" {
			return true
		}
		return plain[i].ns < plain[j].ns
	})
	for _, a := range plain {
		attrs = append(attrs, xmlio.WriterAttr{QName: a.qname, Value: a.value})
	}
	e.Attrs = attrs

	textOnly := isTextOnlyRef(n.Name.Local)
	for _, ch := range n.Children {
		switch {
		case ch.Elem != nil:
			e.Children = append(e.Children, xmlio.Node{Elem: c.convert(ch.Elem, false)})
		case ch.Extension != nil:
			e.Children = append(e.Children, xmlio.Node{Elem: c.convertExtension(ch.Extension)})
		case ch.Comment != "":
			if c.preserveComments {
				e.Children = append(e.Children, xmlio.Node{Comment: ch.Comment})
			}
		case ch.ProcTarget != "":
			if c.preserveComments {
				e.Children = append(e.Children, xmlio.Node{ProcTarget: ch.ProcTarget, ProcData: ch.ProcData})
			}
		default:
			if ch.Insignificant && !hasMixedSiblingText(n) {
				continue
			}
			text := ch.Text
			if textOnly {
				if sub, ok := c.substitute(n.Name.Local, text); ok {
					text = sub
				}
			}
			e.Children = append(e.Children, xmlio.Node{Text: text})
		}
	}

	return e
}

func (c *converter) convertExtension(ext *graph.Extension) *xmlio.Elem {
	prev := c.nsTable.byURI[ext.Root.Name.Space]
	if prev == "" {
		c.nsTable.byURI[ext.Root.Name.Space] = nsNumbered(len(c.nsTable.ordered) + 1)
	}
	return c.convert(ext.Root, false)
}

// isTextOnlyRef reports whether local names this shape of element as one
// whose text content is a stabilizable entity reference.
func isTextOnlyRef(local string) bool {
	switch {
	case strings.HasSuffix(local, "PartyReference"):
		return true
	case strings.HasSuffix(local, "ResourceReference"):
		return true
	case strings.HasSuffix(local, "ReleaseReference"):
		return true
	}
	return false
}

func (c *converter) substitute(local, text string) (string, bool) {
	kind, ok := refKindFor(local)
	if !ok {
		return "", false
	}
	m, ok := c.subs[kind]
	if !ok {
		return "", false
	}
	v, ok := m[text]
	return v, ok
}

func refKindFor(local string) (graph.EntityKind, bool) {
	switch {
	case strings.HasSuffix(local, "PartyReference"):
		return graph.KindParty, true
	case strings.HasSuffix(local, "ResourceReference"):
		return graph.KindResource, true
	case strings.HasSuffix(local, "ReleaseReference"):
		return graph.KindRelease, true
	}
	return 0, false
}

// hasMixedSiblingText is a conservative check: if any sibling Child in
// the same element is significant text, whitespace siblings must be kept
// verbatim too (spec §4.5 rule 4, mixed content).
func hasMixedSiblingText(n *graph.Node) bool {
	for _, c := range n.Children {
		if c.Elem == nil && c.Extension == nil && c.Comment == "" && c.ProcTarget == "" && !c.Insignificant && c.Text != "" {
			return true
		}
	}
	return false
}
