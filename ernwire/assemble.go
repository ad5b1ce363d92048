package ernwire

import (
	"github.com/ddexkit/erncore/graph"
	"github.com/ddexkit/erncore/internal/ernschema"
)

// Request is everything needed to assemble a root message Document,
// independent of which ERN version the caller targets.
type Request struct {
	Header               MessageHeader
	Parties              []Party
	Resources             []SoundRecording
	Releases              []Release
	Deals                 []ReleaseDeal
	ReleaseProfileVersionID string
	LanguageAndScriptCode string
}

// Assemble builds a full root element and its indexed Document for
// version v in namespace ns, gating MessageAuditTrail/PartyList/Profile/
// PreOrderDate per ernschema.Supports (spec §4.3 "version-specific decode
// target").
func Assemble(v ernschema.Version, ns string, req Request) (*graph.Document, error) {
	root := graph.NewElem(ns, "NewReleaseMessage")
	root.SetAttr("MessageSchemaVersionId", schemaVersionID(v))
	if req.ReleaseProfileVersionID != "" {
		root.SetAttr("ReleaseProfileVersionId", req.ReleaseProfileVersionID)
	}
	if req.LanguageAndScriptCode != "" {
		root.SetAttr("LanguageAndScriptCode", req.LanguageAndScriptCode)
	}

	root.AppendElem(req.Header.ToNode(ns, ernschema.Supports(v, ernschema.FeatureMessageAuditTrail)))

	if ernschema.Supports(v, ernschema.FeaturePartyList) && len(req.Parties) > 0 {
		pl := graph.NewElem(ns, "PartyList")
		for _, p := range req.Parties {
			pl.AppendElem(p.ToNode(ns))
		}
		root.AppendElem(pl)
	}

	if len(req.Resources) > 0 {
		rl := graph.NewElem(ns, "ResourceList")
		for _, r := range req.Resources {
			rl.AppendElem(r.ToNode(ns))
		}
		root.AppendElem(rl)
	}

	supportsProfile := ernschema.Supports(v, ernschema.FeatureReleaseProfile)
	if len(req.Releases) > 0 {
		rl := graph.NewElem(ns, "ReleaseList")
		for _, r := range req.Releases {
			rl.AppendElem(r.ToNode(ns, supportsProfile))
		}
		root.AppendElem(rl)
	}

	supportsPreOrder := ernschema.Supports(v, ernschema.FeaturePreOrderDate)
	if len(req.Deals) > 0 {
		dl := graph.NewElem(ns, "DealList")
		for _, d := range req.Deals {
			dl.AppendElem(d.ToNode(ns, supportsPreOrder))
		}
		root.AppendElem(dl)
	}

	doc := graph.NewDocument(v)
	doc.Root = root
	if err := graph.IndexEntities(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func schemaVersionID(v ernschema.Version) string {
	switch v {
	case ernschema.ERN382:
		return "ern/382"
	case ernschema.ERN42:
		return "ern/42"
	case ernschema.ERN43:
		return "ern/43"
	default:
		return ""
	}
}
