package erncore

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ddexkit/erncore/canon"
	"github.com/ddexkit/erncore/ernerr"
	"github.com/ddexkit/erncore/ernwire"
	"github.com/ddexkit/erncore/graph"
	"github.com/ddexkit/erncore/internal/ernschema"
	"github.com/ddexkit/erncore/preset"
	"github.com/ddexkit/erncore/roundtrip"
	"github.com/ddexkit/erncore/xmlio"
)

// Builder is the version-switchable facade over ernwire's per-version
// builders (spec §6.2): `new() -> Builder` with mutable add_release,
// add_resource, add_deal, apply_preset, set_version, reset.
type Builder struct {
	version ernschema.Version
	req     ernwire.Request
	presets []string
	canon   canon.Options
	writer  xmlio.WriterConfig
}

// NewBuilder starts a Builder targeting version v (spec §6.2 "new()").
func NewBuilder(v ernschema.Version, messageID, threadID, senderDPID, senderName string) *Builder {
	b := &Builder{
		version: v,
		canon:   canon.Options{AutoID: canon.AutoIDSequential},
		writer:  xmlio.WriterConfig{Indent: xmlio.IndentNone},
	}
	b.req.Header = ernwire.MessageHeader{
		MessageThreadID:    threadID,
		MessageID:          messageID,
		Sender:             ernwire.MessageSender{PartyID: []ernwire.PartyID{{Value: senderDPID, Namespace: "DPID"}}, Name: ernwire.Name{FullName: senderName}},
		MessageControlType: "TestMessage",
	}
	b.req.LanguageAndScriptCode = "en"
	return b
}

// SetVersion switches the target ERN version in place (spec §6.2
// "set_version"). Fields the new version doesn't support are simply
// omitted at Build time; nothing already added to the request is lost.
func (b *Builder) SetVersion(v ernschema.Version) *Builder {
	b.version = v
	return b
}

// WithRecipient adds a message recipient.
func (b *Builder) WithRecipient(dpid, name string) *Builder {
	b.req.Header.Recipients = append(b.req.Header.Recipients, ernwire.MessageRecipient{
		PartyID: []ernwire.PartyID{{Value: dpid, Namespace: "DPID"}},
		Name:    ernwire.Name{FullName: name},
	})
	return b
}

// AddParty adds a party (spec §6.2 mutable Builder, applies to v4.2+).
func (b *Builder) AddParty(ref string, name ernwire.Name, ids ...ernwire.PartyID) *Builder {
	b.req.Parties = append(b.req.Parties, ernwire.Party{Reference: ref, AutoRef: ref == "", Name: name, IDs: ids})
	return b
}

// AddResource adds a Resource (spec §6.2 "add_resource").
func (b *Builder) AddResource(s ernwire.SoundRecording) *Builder {
	s.AutoRef = s.Reference == ""
	b.req.Resources = append(b.req.Resources, s)
	return b
}

// AddRelease adds a Release (spec §6.2 "add_release").
func (b *Builder) AddRelease(r ernwire.Release) *Builder {
	r.AutoRef = r.Reference == ""
	b.req.Releases = append(b.req.Releases, r)
	return b
}

// AddDeal adds a Deal (spec §6.2 "add_deal").
func (b *Builder) AddDeal(d ernwire.ReleaseDeal) *Builder {
	b.req.Deals = append(b.req.Deals, d)
	return b
}

// ApplyPreset registers a named partner preset to be checked/applied to
// every Release at Build time (spec §6.2 "apply_preset", §4.7). Applying
// the same preset name twice is a no-op, matching the idempotence law of
// spec §8.
func (b *Builder) ApplyPreset(name string) *Builder {
	for _, p := range b.presets {
		if p == name {
			return b
		}
	}
	b.presets = append(b.presets, name)
	return b
}

// Reset discards every Party/Resource/Release/Deal/preset added so far,
// keeping the message header (spec §6.2 "reset").
func (b *Builder) Reset() *Builder {
	b.req.Parties = nil
	b.req.Resources = nil
	b.req.Releases = nil
	b.req.Deals = nil
	b.presets = nil
	return b
}

// BuildStats accompanies Build's output bytes (spec §6.2 "build() ->
// {xml, stats}").
type BuildStats struct {
	Version        ernschema.Version
	ReleaseCount   int
	ResourceCount  int
	PartyCount     int
	DealCount      int
	PresetWarnings []string
}

// Build assembles, applies registered presets, canonicalizes, and writes
// the message (spec §6.2 "build()").
func (b *Builder) Build() ([]byte, BuildStats, error) {
	ns := ernschema.NamespaceForVersion(b.version)
	doc, err := ernwire.Assemble(b.version, ns, b.req)
	if err != nil {
		L().Sugar().Errorw("build: assemble failed", "version", b.version, "error", err)
		return nil, BuildStats{}, err
	}

	stats := BuildStats{
		Version:       b.version,
		ReleaseCount:  doc.Len(graph.KindRelease),
		ResourceCount: doc.Len(graph.KindResource),
		PartyCount:    doc.Len(graph.KindParty),
		DealCount:     doc.Len(graph.KindDeal),
	}

	registry := preset.Builtin()
	for _, name := range b.presets {
		p, ok := registry.Get(name)
		if !ok {
			return nil, stats, ernerr.New(ernerr.PresetViolation, "unknown preset %q", name)
		}
		for _, relNode := range doc.Nodes(graph.KindRelease) {
			res := preset.ApplyToRelease(relNode, p)
			stats.PresetWarnings = append(stats.PresetWarnings, res.Warnings...)
			for _, w := range res.Warnings {
				L().Sugar().Warnw("build: preset warning", "preset", name, "warning", w)
			}
			if !res.OK() {
				L().Sugar().Errorw("build: preset violation", "preset", name, "error", res.Violations[0])
				return nil, stats, res.Violations[0]
			}
		}
	}

	elem, err := canon.Canonicalize(doc, b.canon)
	if err != nil {
		L().Sugar().Errorw("build: canonicalize failed", "error", err)
		return nil, stats, err
	}
	w := xmlio.NewWriter(b.writer)
	w.WriteDeclaration()
	w.WriteElem(elem, 0)
	return w.Bytes(), stats, nil
}

// ValidationResult is the report of Validate (spec §6.2 "validate()").
type ValidationResult struct {
	Valid      bool
	Violations []error
}

// Validate runs structural and preset checks without emitting bytes (spec
// §6.2 "validate() -> ValidationResult (structural + preset checks; no
// XSD)").
func (b *Builder) Validate() ValidationResult {
	res := ValidationResult{Valid: true}
	if b.req.Header.MessageID == "" {
		res.Valid = false
		res.Violations = append(res.Violations, ernerr.New(ernerr.StructuralError, "MessageHeader.MessageId is required"))
	}
	if len(b.req.Releases) == 0 {
		res.Valid = false
		res.Violations = append(res.Violations, ernerr.New(ernerr.StructuralError, "at least one Release is required"))
	}

	ns := ernschema.NamespaceForVersion(b.version)
	doc, err := ernwire.Assemble(b.version, ns, b.req)
	if err != nil {
		res.Valid = false
		res.Violations = append(res.Violations, err)
		return res
	}
	registry := preset.Builtin()
	for _, name := range b.presets {
		p, ok := registry.Get(name)
		if !ok {
			res.Valid = false
			res.Violations = append(res.Violations, ernerr.New(ernerr.PresetViolation, "unknown preset %q", name))
			continue
		}
		for _, relNode := range doc.Nodes(graph.KindRelease) {
			r := preset.ApplyToRelease(relNode, p)
			if !r.OK() {
				res.Valid = false
				res.Violations = append(res.Violations, r.Violations...)
			}
		}
	}
	return res
}

// SemanticDiff is the result of Diff (spec §6.2 "diff()").
type SemanticDiff struct {
	Identical bool
	Issues    []roundtrip.Issue
}

// Diff compares two ERN messages structurally after canonicalizing each
// independently (spec §6.2 "diff(xml_a, xml_b) -> SemanticDiff comparing
// two messages after canonicalization").
func Diff(ctx context.Context, xmlA, xmlB []byte, cfg graph.BuilderConfig) (*SemanticDiff, error) {
	docA, err := graph.NewBuilder(cfg).Build(ctx, bytes.NewReader(xmlA))
	if err != nil {
		L().Sugar().Errorw("diff: parsing A failed", "error", err)
		return nil, fmt.Errorf("erncore: diff: parsing A: %w", err)
	}
	docB, err := graph.NewBuilder(cfg).Build(ctx, bytes.NewReader(xmlB))
	if err != nil {
		L().Sugar().Errorw("diff: parsing B failed", "error", err)
		return nil, fmt.Errorf("erncore: diff: parsing B: %w", err)
	}

	elemA, err := canon.Canonicalize(docA, canon.Options{})
	if err != nil {
		return nil, err
	}
	elemB, err := canon.Canonicalize(docB, canon.Options{})
	if err != nil {
		return nil, err
	}

	issues := roundtrip.Compare(elemA, elemB)
	return &SemanticDiff{Identical: len(issues) == 0, Issues: issues}, nil
}
