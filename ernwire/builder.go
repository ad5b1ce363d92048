package ernwire

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/ddexkit/erncore/graph"
	"github.com/ddexkit/erncore/internal/ernschema"
)

// Builder is the fluent request-construction type shared by ern382,
// ern42, and ern43 (spec §6.3 Builder.add_release/add_resource/add_deal).
// Each version package's NewBuilder pins Version and the namespace;
// everything else behaves identically across versions.
type Builder struct {
	version ernschema.Version
	ns      string
	req     Request
	seqA    int
	seqR    int
}

// NewBuilderFor constructs a Builder pinned to version v and namespace ns.
// Version packages (ern382, ern42, ern43) call this with their fixed
// version/namespace so callers never have to think about either.
func NewBuilderFor(v ernschema.Version, ns, messageID, threadID, senderDPID, senderName string) *Builder {
	if messageID == "" {
		messageID = uuid.NewString()
	}
	if threadID == "" {
		threadID = messageID
	}
	return &Builder{
		version: v,
		ns:      ns,
		req: Request{
			Header: MessageHeader{
				MessageThreadID: threadID,
				MessageID:       messageID,
				Sender: MessageSender{
					PartyID: []PartyID{{Value: senderDPID, Namespace: "DPID"}},
					Name:    Name{FullName: senderName},
				},
				CreatedDateTime:    time.Now(),
				MessageControlType: "TestMessage",
			},
			LanguageAndScriptCode: "en",
		},
	}
}

// WithRecipient adds a recipient to the message header.
func (b *Builder) WithRecipient(dpid, name string) *Builder {
	b.req.Header.Recipients = append(b.req.Header.Recipients, MessageRecipient{
		PartyID: []PartyID{{Value: dpid, Namespace: "DPID"}},
		Name:    Name{FullName: name},
	})
	return b
}

// WithAuditTrailEvent appends a MessageAuditTrail event; silently ignored
// on versions that don't support FeatureMessageAuditTrail (ERN 3.8.2).
func (b *Builder) WithAuditTrailEvent(partyRef, typeCode string, at time.Time) *Builder {
	b.req.Header.AuditTrail = append(b.req.Header.AuditTrail, AuditTrailEvent{
		MessagingPartyReference: partyRef,
		EventDateTime:           at,
		EventTypeCode:           typeCode,
	})
	return b
}

// SetLanguage overrides the default "en" LanguageAndScriptCode. code is
// canonicalized as a BCP-47 tag (e.g. "EN-us" -> "en-US"); an unparseable
// tag is kept verbatim, since DDEX's LanguageAndScriptCode is a closed
// code list the language package doesn't know about.
func (b *Builder) SetLanguage(code string) *Builder {
	if tag, err := language.Parse(code); err == nil {
		code = tag.String()
	}
	b.req.LanguageAndScriptCode = code
	return b
}

// SetReleaseProfile sets ReleaseProfileVersionId, meaningful only on
// versions that carry it (ERN 3.8.2/4.3 at the message level).
func (b *Builder) SetReleaseProfile(profile string) *Builder {
	b.req.ReleaseProfileVersionID = profile
	return b
}

// AddParty adds a party to PartyList, auto-assigning a reference if ref is
// empty (eligible for ID stabilization per spec §4.5 rule 3). Ignored on
// versions without FeaturePartyList (ERN 3.8.2), where parties are
// expected inline via AddResource's DisplayArtist / AddRelease's
// DisplayArtist instead.
func (b *Builder) AddParty(ref string, name Name, ids ...PartyID) *Builder {
	auto := ref == ""
	if auto {
		b.seqA++
		ref = placeholderRef("A", b.seqA)
	}
	b.req.Parties = append(b.req.Parties, Party{Reference: ref, Name: name, IDs: ids, AutoRef: auto})
	return b
}

// AddResource adds a SoundRecording to ResourceList, auto-assigning a
// reference if s.Reference is empty.
func (b *Builder) AddResource(s SoundRecording) *Builder {
	if s.Reference == "" {
		b.seqR++
		s.Reference = placeholderRef("R", b.seqR)
		s.AutoRef = true
	}
	b.req.Resources = append(b.req.Resources, s)
	return b
}

// AddRelease adds a Release to ReleaseList, auto-assigning a reference if
// r.Reference is empty.
func (b *Builder) AddRelease(r Release) *Builder {
	if r.Reference == "" {
		b.seqR++
		r.Reference = placeholderRef("R", b.seqR)
		r.AutoRef = true
	}
	b.req.Releases = append(b.req.Releases, r)
	return b
}

// AddDeal adds a ReleaseDeal to DealList.
func (b *Builder) AddDeal(d ReleaseDeal) *Builder {
	b.req.Deals = append(b.req.Deals, d)
	return b
}

// Reset discards every Party/Resource/Release/Deal added so far, keeping
// the message header (spec §6.3 Builder.reset).
func (b *Builder) Reset() *Builder {
	b.req.Parties = nil
	b.req.Resources = nil
	b.req.Releases = nil
	b.req.Deals = nil
	b.seqA, b.seqR = 0, 0
	return b
}

// Build assembles and indexes the Document (spec §6.3 Builder.build).
func (b *Builder) Build() (*graph.Document, error) {
	return Assemble(b.version, b.ns, b.req)
}

// placeholderRef produces a temporary, visibly-placeholder reference for
// an auto-assigned entity (e.g. "A#auto1"). The Canonicalizer's AutoID
// stabilization pass is what assigns the final stable reference; this
// value only needs to be unique within the request before that pass runs.
func placeholderRef(kind string, n int) string {
	digits := "0123456789"
	s := ""
	for n > 0 {
		s = string(digits[n%10]) + s
		n /= 10
	}
	if s == "" {
		s = "0"
	}
	return kind + "#auto" + s
}
