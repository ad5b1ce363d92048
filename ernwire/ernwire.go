// Package ernwire is the typed construction layer shared by ern382, ern42,
// and ern43: request-side Go structs in the teacher's fluent-builder idiom
// that lower to the generic graph.Node tree the rest of erncore operates
// on. Each type's ToNode converts it into the namespace the caller's
// version package supplies, so the same struct shapes serve all three ERN
// families; only the gated fields (MessageAuditTrail, Profile,
// PreOrderDate, PartyList) are conditional on ernschema.Feature.
package ernwire

import (
	"time"

	"github.com/ddexkit/erncore/graph"
)

// PartyID is a namespaced party identifier (e.g. DPID, ISNI).
type PartyID struct {
	Value     string
	Namespace string
}

func (p PartyID) toNode(ns string) *graph.Node {
	n := graph.NewElem(ns, "PartyId")
	if p.Namespace != "" {
		n.SetAttr("Namespace", p.Namespace)
	}
	n.AppendText(p.Value)
	return n
}

// Name is a party's full name, with an optional ASCII fallback.
type Name struct {
	FullName      string
	FullNameAscii string
}

func (nm Name) toNode(ns, elem string) *graph.Node {
	n := graph.NewElem(ns, elem)
	full := graph.NewElem(ns, "FullName")
	full.AppendText(nm.FullName)
	n.AppendElem(full)
	if nm.FullNameAscii != "" {
		ascii := graph.NewElem(ns, "FullNameAscii")
		ascii.AppendText(nm.FullNameAscii)
		n.AppendElem(ascii)
	}
	return n
}

// MessageSender is the MessageHeader's required sender party.
type MessageSender struct {
	PartyID []PartyID
	Name    Name
}

func (s MessageSender) toNode(ns string) *graph.Node {
	n := graph.NewElem(ns, "MessageSender")
	for _, id := range s.PartyID {
		n.AppendElem(id.toNode(ns))
	}
	n.AppendElem(s.Name.toNode(ns, "PartyName"))
	return n
}

// MessageRecipient is one recipient party on the MessageHeader.
type MessageRecipient struct {
	PartyID []PartyID
	Name    Name
}

func (r MessageRecipient) toNode(ns string) *graph.Node {
	n := graph.NewElem(ns, "MessageRecipient")
	for _, id := range r.PartyID {
		n.AppendElem(id.toNode(ns))
	}
	n.AppendElem(r.Name.toNode(ns, "PartyName"))
	return n
}

// AuditTrailEvent is one entry of a MessageAuditTrail (v4.2+ only).
type AuditTrailEvent struct {
	MessagingPartyReference string
	EventDateTime           time.Time
	EventTypeCode           string
}

func (e AuditTrailEvent) toNode(ns string) *graph.Node {
	n := graph.NewElem(ns, "MessageAuditTrailEvent")
	ref := graph.NewElem(ns, "MessagingPartyReference")
	ref.AppendText(e.MessagingPartyReference)
	n.AppendElem(ref)
	dt := graph.NewElem(ns, "MessageAuditTrailEventDateTime")
	dt.AppendText(e.EventDateTime.UTC().Format(time.RFC3339))
	n.AppendElem(dt)
	code := graph.NewElem(ns, "MessageAuditTrailEventTypeCode")
	code.AppendText(e.EventTypeCode)
	n.AppendElem(code)
	return n
}

// MessageHeader is the required header of every ERN message (spec §3.1).
type MessageHeader struct {
	MessageThreadID    string
	MessageID          string
	Sender             MessageSender
	Recipients         []MessageRecipient
	CreatedDateTime    time.Time
	MessageControlType string
	AuditTrail         []AuditTrailEvent // only rendered when the version supports it
}

func (h MessageHeader) toNode(ns string, supportsAuditTrail bool) *graph.Node {
	n := graph.NewElem(ns, "MessageHeader")

	threadID := graph.NewElem(ns, "MessageThreadId")
	threadID.AppendText(h.MessageThreadID)
	n.AppendElem(threadID)

	msgID := graph.NewElem(ns, "MessageId")
	msgID.AppendText(h.MessageID)
	n.AppendElem(msgID)

	n.AppendElem(h.Sender.toNode(ns))
	for _, r := range h.Recipients {
		n.AppendElem(r.toNode(ns))
	}

	created := graph.NewElem(ns, "MessageCreatedDateTime")
	created.AppendText(h.CreatedDateTime.UTC().Format(time.RFC3339))
	n.AppendElem(created)

	if h.MessageControlType != "" {
		ct := graph.NewElem(ns, "MessageControlType")
		ct.AppendText(h.MessageControlType)
		n.AppendElem(ct)
	}

	if supportsAuditTrail && len(h.AuditTrail) > 0 {
		trail := graph.NewElem(ns, "MessageAuditTrail")
		for _, ev := range h.AuditTrail {
			trail.AppendElem(ev.toNode(ns))
		}
		n.AppendElem(trail)
	}

	return n
}

// ToNode renders h as a MessageHeader element. supportsAuditTrail comes
// from the calling version package's ernschema.Supports check.
func (h MessageHeader) ToNode(ns string, supportsAuditTrail bool) *graph.Node {
	return h.toNode(ns, supportsAuditTrail)
}

// Party is one entry of PartyList (v4.2+) or an inline party reference
// target (spec §3.1 Party entity).
type Party struct {
	Reference string
	Name      Name
	IDs       []PartyID
	AutoRef   bool
}

// ToNode renders p as a Party element, marking its PartyReference AutoID
// when the caller didn't supply an explicit reference (spec §4.5 rule 3).
func (p Party) ToNode(ns string) *graph.Node {
	n := graph.NewElem(ns, "Party")
	ref := graph.NewElem(ns, "PartyReference")
	ref.AppendText(p.Reference)
	ref.AutoID = p.AutoRef
	n.AppendElem(ref)
	n.AppendElem(p.Name.toNode(ns, "PartyName"))
	for _, id := range p.IDs {
		n.AppendElem(id.toNode(ns))
	}
	return n
}

// DisplayArtist links a Release or Resource to a Party by reference.
type DisplayArtist struct {
	ArtistPartyReference string
}

func (a DisplayArtist) toNode(ns string) *graph.Node {
	n := graph.NewElem(ns, "DisplayArtist")
	ref := graph.NewElem(ns, "ArtistPartyReference")
	ref.AppendText(a.ArtistPartyReference)
	n.AppendElem(ref)
	return n
}

// SoundRecording is the common case of a Resource (spec §3.1 Resource
// entity); Image/Video/Text follow the same shape and are handled by the
// Graph Builder/Flattener generically once wrapped in a graph.Node.
type SoundRecording struct {
	Reference     string
	AutoRef       bool
	ISRC          string
	Title         string
	Duration      string // ISO 8601, e.g. via xmlio.FormatDuration
	DisplayArtist DisplayArtist
}

// ToNode renders s as a SoundRecording element.
func (s SoundRecording) ToNode(ns string) *graph.Node {
	n := graph.NewElem(ns, "SoundRecording")
	ref := graph.NewElem(ns, "ResourceReference")
	ref.AppendText(s.Reference)
	ref.AutoID = s.AutoRef
	n.AppendElem(ref)

	rid := graph.NewElem(ns, "ResourceId")
	isrc := graph.NewElem(ns, "ISRC")
	isrc.AppendText(s.ISRC)
	rid.AppendElem(isrc)
	n.AppendElem(rid)

	title := graph.NewElem(ns, "DisplayTitleText")
	title.AppendText(s.Title)
	n.AppendElem(title)

	if s.Duration != "" {
		dur := graph.NewElem(ns, "Duration")
		dur.AppendText(s.Duration)
		n.AppendElem(dur)
	}

	if s.DisplayArtist.ArtistPartyReference != "" {
		n.AppendElem(s.DisplayArtist.toNode(ns))
	}
	return n
}

// Release is one ReleaseList/Release entry (spec §3.1 Release entity).
type Release struct {
	Reference     string
	AutoRef       bool
	ReleaseType   string
	Title         string
	DisplayArtist DisplayArtist
	TrackRefs     []string // resolved against SoundRecording.Reference by the caller
	Profile       string   // rendered only when the version supports FeatureReleaseProfile
}

// ToNode renders r as a Release element.
func (r Release) ToNode(ns string, supportsProfile bool) *graph.Node {
	n := graph.NewElem(ns, "Release")
	ref := graph.NewElem(ns, "ReleaseReference")
	ref.AppendText(r.Reference)
	ref.AutoID = r.AutoRef
	n.AppendElem(ref)

	n.SetAttr("ReleaseType", r.ReleaseType)

	if supportsProfile && r.Profile != "" {
		p := graph.NewElem(ns, "Profile")
		p.AppendText(r.Profile)
		n.AppendElem(p)
	}

	title := graph.NewElem(ns, "DisplayTitleText")
	title.AppendText(r.Title)
	n.AppendElem(title)

	if r.DisplayArtist.ArtistPartyReference != "" {
		n.AppendElem(r.DisplayArtist.toNode(ns))
	}

	if len(r.TrackRefs) > 0 {
		group := graph.NewElem(ns, "ResourceGroup")
		for _, ref := range r.TrackRefs {
			item := graph.NewElem(ns, "ResourceGroupContentItem")
			rr := graph.NewElem(ns, "ReleaseResourceReference")
			rr.AppendText(ref)
			item.AppendElem(rr)
			group.AppendElem(item)
		}
		n.AppendElem(group)
	}

	return n
}

// DealTerms is the commercial terms of one Deal (spec §3.1 Deal entity).
type DealTerms struct {
	TerritoryCode       []string
	CommercialModelType string
	UseType             []string
	PreOrderDate        string // rendered only when the version supports FeaturePreOrderDate
}

func (t DealTerms) toNode(ns string, supportsPreOrderDate bool) *graph.Node {
	n := graph.NewElem(ns, "DealTerms")
	if t.CommercialModelType != "" {
		cm := graph.NewElem(ns, "CommercialModelType")
		cm.AppendText(t.CommercialModelType)
		n.AppendElem(cm)
	}
	for _, ut := range t.UseType {
		u := graph.NewElem(ns, "UseType")
		u.AppendText(ut)
		n.AppendElem(u)
	}
	for _, tc := range t.TerritoryCode {
		c := graph.NewElem(ns, "TerritoryCode")
		c.AppendText(tc)
		n.AppendElem(c)
	}
	if supportsPreOrderDate && t.PreOrderDate != "" {
		pod := graph.NewElem(ns, "PreOrderDate")
		pod.AppendText(t.PreOrderDate)
		n.AppendElem(pod)
	}
	return n
}

// ReleaseDeal is one DealList/ReleaseDeal entry.
type ReleaseDeal struct {
	ReleaseReference string
	Terms            DealTerms
}

// ToNode renders d as a ReleaseDeal element.
func (d ReleaseDeal) ToNode(ns string, supportsPreOrderDate bool) *graph.Node {
	n := graph.NewElem(ns, "ReleaseDeal")
	ref := graph.NewElem(ns, "DealReleaseReference")
	ref.AppendText(d.ReleaseReference)
	n.AppendElem(ref)

	deal := graph.NewElem(ns, "Deal")
	deal.AppendElem(d.Terms.toNode(ns, supportsPreOrderDate))
	n.AppendElem(deal)
	return n
}
