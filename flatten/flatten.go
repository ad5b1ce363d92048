// Package flatten implements the Reference Resolver / Flattener (spec
// §4.4): walking a Graph and producing the denormalized Flat model.
package flatten

import (
	"github.com/ddexkit/erncore/ernerr"
	"github.com/ddexkit/erncore/graph"
)

// ErrorStrategy controls what happens when a reference doesn't resolve
// (spec §4.4 step 4).
type ErrorStrategy int

const (
	// StrategyAbort fails Flatten on the first unresolved reference.
	StrategyAbort ErrorStrategy = iota
	// StrategyContinue records a ReferenceError as a warning and leaves
	// a nil slot rather than aborting.
	StrategyContinue
)

// Options configures Flatten.
type Options struct {
	ErrorStrategy ErrorStrategy
}

// FlatParty is the denormalized view of a Party (spec §3.1).
type FlatParty struct {
	Ref   string
	Names []string
	IDs   map[string]string // namespace -> id value
	Node  graph.Handle
}

// FlatResource is the denormalized view of a Resource (spec §3.1).
type FlatResource struct {
	Ref              string
	Kind             string // SoundRecording | Image | Video | Text
	Title            string
	DisplayArtistRef string
	ISRC             string
	Duration         string
	Node             graph.Handle
}

// FlatRelease is the denormalized view of a Release, with its track list
// resolved to FlatResources in document order (spec §4.4 step 2).
type FlatRelease struct {
	Ref              string
	ReleaseType      string
	Title            string
	DisplayArtistRef string
	Territories      []string
	Tracks           []*FlatResource
	Node             graph.Handle
}

// FlatDeal is the denormalized view of a Deal, with release_refs resolved
// (spec §4.4 step 3).
type FlatDeal struct {
	Ref         string
	Releases    []*FlatRelease
	Territories []string
	UseTypes    []string
	Node        graph.Handle
}

// Flat is the full denormalized model produced by Flatten. Flat never
// mutates or owns its Document; dropping the Document invalidates every
// Flat value derived from it (spec §3.2, §3.3).
type Flat struct {
	Parties  []*FlatParty
	Resources []*FlatResource
	Releases []*FlatRelease
	Deals    []*FlatDeal
	Warnings []error
}

// Flatten builds the Flat model for doc. With StrategyAbort (the
// default), the first unresolved reference returns a *ernerr.Error with
// Code ReferenceError and no Flat is returned. With StrategyContinue,
// unresolved references are appended to Flat.Warnings and flattening
// proceeds with a nil slot in that position.
func Flatten(doc *graph.Document, opts Options) (*Flat, error) {
	f := &Flat{}

	partyByRef := map[string]*FlatParty{}
	for i, ref := range doc.Refs(graph.KindParty) {
		n := doc.Nodes(graph.KindParty)[i]
		fp := FlattenParty(ref, n, graph.Handle{Kind: graph.KindParty, Index: i})
		f.Parties = append(f.Parties, fp)
		partyByRef[ref] = fp
	}

	resByRef := map[string]*FlatResource{}
	for i, ref := range doc.Refs(graph.KindResource) {
		n := doc.Nodes(graph.KindResource)[i]
		fr := FlattenResource(ref, n, graph.Handle{Kind: graph.KindResource, Index: i})
		f.Resources = append(f.Resources, fr)
		resByRef[ref] = fr
	}

	relByRef := map[string]*FlatRelease{}
	for i, ref := range doc.Refs(graph.KindRelease) {
		n := doc.Nodes(graph.KindRelease)[i]
		rel, err := FlattenRelease(ref, n, graph.Handle{Kind: graph.KindRelease, Index: i}, resByRef, opts, f)
		if err != nil {
			return nil, err
		}
		f.Releases = append(f.Releases, rel)
		relByRef[ref] = rel
	}

	for i, ref := range doc.Refs(graph.KindDeal) {
		n := doc.Nodes(graph.KindDeal)[i]
		deal, err := FlattenDeal(ref, n, graph.Handle{Kind: graph.KindDeal, Index: i}, relByRef, opts, f)
		if err != nil {
			return nil, err
		}
		f.Deals = append(f.Deals, deal)
	}

	return f, nil
}

func FlattenParty(ref string, n *graph.Node, h graph.Handle) *FlatParty {
	fp := &FlatParty{Ref: ref, Node: h, IDs: map[string]string{}}
	if pn := n.FirstElement("PartyName"); pn != nil {
		if full := pn.FirstElement("FullName"); full != nil {
			fp.Names = append(fp.Names, full.Text())
		}
	}
	for _, id := range n.Elements("PartyId") {
		if ns, ok := id.Attr("Namespace"); ok {
			fp.IDs[ns] = id.Text()
		} else {
			fp.IDs["DDEX"] = id.Text()
		}
	}
	return fp
}

func FlattenResource(ref string, n *graph.Node, h graph.Handle) *FlatResource {
	fr := &FlatResource{Ref: ref, Kind: n.Name.Local, Node: h}
	if t := n.FirstElement("DisplayTitleText"); t != nil {
		fr.Title = t.Text()
	}
	for _, rid := range n.Elements("ResourceId") {
		if isrc := rid.FirstElement("ISRC"); isrc != nil {
			fr.ISRC = isrc.Text()
		}
	}
	if d := n.FirstElement("Duration"); d != nil {
		fr.Duration = d.Text()
	}
	for _, da := range n.Elements("DisplayArtist") {
		if r := da.FirstElement("ArtistPartyReference"); r != nil {
			fr.DisplayArtistRef = r.Text()
			break
		}
	}
	return fr
}

func FlattenRelease(ref string, n *graph.Node, h graph.Handle, resByRef map[string]*FlatResource, opts Options, f *Flat) (*FlatRelease, error) {
	rel := &FlatRelease{Ref: ref, Node: h}
	rel.ReleaseType, _ = n.Attr("ReleaseType")
	if rel.ReleaseType == "" {
		if rt := n.FirstElement("ReleaseType"); rt != nil {
			rel.ReleaseType = rt.Text()
		}
	}
	if t := n.FirstElement("DisplayTitleText"); t != nil {
		rel.Title = t.Text()
	}
	for _, da := range n.Elements("DisplayArtist") {
		if r := da.FirstElement("ArtistPartyReference"); r != nil {
			rel.DisplayArtistRef = r.Text()
			break
		}
	}
	for _, terr := range findAll(n, "TerritoryCode") {
		rel.Territories = append(rel.Territories, terr.Text())
	}

	for _, trackRef := range trackRefs(n) {
		res, ok := resByRef[trackRef]
		if !ok {
			err := ernerr.RefError(ernerr.RefResource, trackRef, "/ReleaseList/Release["+ref+"]")
			if opts.ErrorStrategy == StrategyAbort {
				return nil, err
			}
			f.Warnings = append(f.Warnings, err)
			rel.Tracks = append(rel.Tracks, nil)
			continue
		}
		rel.Tracks = append(rel.Tracks, res)
	}
	return rel, nil
}

// trackRefs walks Release -> ResourceGroup -> ResourceGroupContentItem ->
// ReleaseResourceReference in document order (spec §4.4 step 2).
func trackRefs(release *graph.Node) []string {
	var refs []string
	for _, item := range findAll(release, "ResourceGroupContentItem") {
		if r := item.FirstElement("ReleaseResourceReference"); r != nil {
			refs = append(refs, r.Text())
		}
	}
	return refs
}

// FlattenDeal builds the FlatDeal view of a single ReleaseDeal node,
// resolving its DealReleaseReference entries against relByRef (spec §4.4
// step 3). Exported so the Streaming Iterator can flatten deals
// incrementally without a full Document.
func FlattenDeal(ref string, n *graph.Node, h graph.Handle, relByRef map[string]*FlatRelease, opts Options, f *Flat) (*FlatDeal, error) {
	deal := &FlatDeal{Ref: ref, Node: h}

	for _, rr := range n.Elements("DealReleaseReference") {
		releaseRef := rr.Text()
		rel, ok := relByRef[releaseRef]
		if !ok {
			err := ernerr.RefError(ernerr.RefRelease, releaseRef, "/DealList/ReleaseDeal["+ref+"]")
			if opts.ErrorStrategy == StrategyAbort {
				return nil, err
			}
			f.Warnings = append(f.Warnings, err)
			deal.Releases = append(deal.Releases, nil)
			continue
		}
		deal.Releases = append(deal.Releases, rel)
	}

	for _, d := range n.Elements("Deal") {
		if terms := d.FirstElement("DealTerms"); terms != nil {
			if tc, ok := terms.Attr("TerritoryCode"); ok {
				deal.Territories = append(deal.Territories, tc)
			}
			for _, tc := range terms.Elements("TerritoryCode") {
				deal.Territories = append(deal.Territories, tc.Text())
			}
			for _, ut := range terms.Elements("UseType") {
				deal.UseTypes = append(deal.UseTypes, ut.Text())
			}
		}
	}
	return deal, nil
}

// findAll performs a depth-first search for every descendant element
// (at any depth) with the given local name, in document order.
func findAll(n *graph.Node, local string) []*graph.Node {
	var out []*graph.Node
	var walk func(*graph.Node)
	walk = func(cur *graph.Node) {
		for _, c := range cur.Children {
			if c.Elem == nil {
				continue
			}
			if c.Elem.Name.Local == local {
				out = append(out, c.Elem)
			}
			walk(c.Elem)
		}
	}
	walk(n)
	return out
}
