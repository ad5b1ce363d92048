package canon

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"fmt"

	"github.com/ddexkit/erncore/graph"
	"github.com/ddexkit/erncore/xmlio"
	"github.com/ucarion/c14n"
)

// buildIDSubstitutions computes the old-ref -> new-ref map for every
// AutoID-marked entity, per mode. An entity counts as marked when the flag
// is set on its own element or on its direct PartyReference /
// ResourceReference / ReleaseReference child (where ernwire sets it).
// Entities the Builder did not mark AutoID
// are left out of the map entirely, so convert's substitute() is a no-op
// for them regardless of mode (spec §4.5 rule 3: "only references the
// Builder marked as auto-generated are eligible").
func buildIDSubstitutions(doc *graph.Document, mode AutoIDMode, nsTable *namespaceTable) (map[graph.EntityKind]map[string]string, error) {
	out := map[graph.EntityKind]map[string]string{}
	if mode == AutoIDNone {
		return out, nil
	}

	for _, kind := range []graph.EntityKind{graph.KindParty, graph.KindResource, graph.KindRelease, graph.KindDeal} {
		m := map[string]string{}
		seq := 1
		for i, ref := range doc.Refs(kind) {
			n := doc.Nodes(kind)[i]
			auto := n.AutoID
			for _, c := range n.Children {
				if c.Elem != nil && c.Elem.AutoID && isTextOnlyRef(c.Elem.Name.Local) {
					auto = true
				}
			}
			if !auto {
				continue
			}
			var newRef string
			var err error
			switch mode {
			case AutoIDSequential:
				newRef = fmt.Sprintf("%s%d", seqPrefix(kind), seq)
				seq++
			case AutoIDContentHash:
				newRef, err = contentHashRef(kind, n, nsTable)
				if err != nil {
					return nil, err
				}
			}
			m[ref] = newRef
		}
		if len(m) > 0 {
			out[kind] = m
		}
	}
	return out, nil
}

// seqPrefix returns the reference-letter spec.md:112 assigns per entity
// kind: Release=R, Resource=A, Party=P, Deal=D.
func seqPrefix(kind graph.EntityKind) string {
	switch kind {
	case graph.KindParty:
		return "P"
	case graph.KindResource:
		return "A"
	case graph.KindRelease:
		return "R"
	case graph.KindDeal:
		return "D"
	default:
		return "X"
	}
}

// contentHashRef computes a content-derived reference: SHA-256 over the
// entity's subtree after running it through Exclusive XML Canonicalization
// (spec §4.5 rule 3, §9 "content-hash mode"). The entity's own reference
// element is blanked before hashing so the hash doesn't depend on its
// current (about-to-be-replaced) value.
func contentHashRef(kind graph.EntityKind, n *graph.Node, nsTable *namespaceTable) (string, error) {
	snippet, err := serializeStandalone(n, nsTable)
	if err != nil {
		return "", err
	}

	dec := xml.NewDecoder(bytes.NewReader(snippet))
	canonical, err := c14n.Canonicalize(dec)
	if err != nil {
		return "", fmt.Errorf("canon: content-hash canonicalization failed: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return seqPrefix(kind) + hex.EncodeToString(sum[:8]), nil
}

// blankSelfRef clears the text of elem's direct PartyReference /
// ResourceReference / ReleaseReference child, if any, so an entity's
// content hash doesn't depend on the arbitrary reference string it
// happened to arrive with.
func blankSelfRef(elem *xmlio.Elem) {
	for i, c := range elem.Children {
		if c.Elem != nil && isTextOnlyRef(c.Elem.Local) {
			elem.Children[i].Elem.Children = nil
		}
	}
}

// serializeStandalone renders n as a self-contained XML document: its own
// element plus every namespace prefix used anywhere within it declared on
// the root, so the snippet decodes without relying on ancestor context that
// doesn't exist outside the full message.
func serializeStandalone(n *graph.Node, nsTable *namespaceTable) ([]byte, error) {
	used := map[string]bool{}
	if n.Name.Space != "" {
		used[n.Name.Space] = true
	}
	collectNamespaces(n, used)

	c := &converter{nsTable: nsTable}
	elem := c.convert(n, false)
	blankSelfRef(elem)

	for uri := range used {
		prefix := nsTable.byURI[uri]
		qname := "xmlns"
		if prefix != "" {
			qname = "xmlns:" + prefix
		}
		elem.Attrs = append([]xmlio.WriterAttr{{QName: qname, Value: uri}}, elem.Attrs...)
	}

	w := xmlio.NewWriter(xmlio.WriterConfig{Indent: xmlio.IndentNone})
	w.WriteElem(elem, 0)
	return w.Bytes(), nil
}
