package erncore

import (
	"bytes"
	"context"
	"io"

	"github.com/ddexkit/erncore/ernerr"
	"github.com/ddexkit/erncore/ernversion"
	"github.com/ddexkit/erncore/ernwire"
	"github.com/ddexkit/erncore/flatten"
	"github.com/ddexkit/erncore/graph"
	"github.com/ddexkit/erncore/internal/ernschema"
	"github.com/ddexkit/erncore/streamiter"
)

// ParseOptions configures Parse and ParseStream (spec §6.1).
type ParseOptions struct {
	Builder       graph.BuilderConfig
	Flatten       flatten.Options
	AutoThreshold int64 // bytes; Parse streams internally above this size. 0 selects the default.
	Stream        streamiter.Config
}

// DefaultParseOptions returns erncore's default parse configuration.
func DefaultParseOptions() ParseOptions {
	return ParseOptions{
		Builder:       graph.DefaultBuilderConfig(),
		AutoThreshold: ernschema.StreamingAutoThreshold,
		Stream:        streamiter.DefaultConfig(),
	}
}

// ParseResult exposes both the Graph and Flat views of one parsed message
// (spec §6.1). Above opts.AutoThreshold, Parse builds Flat through the
// Streaming Iterator rather than a materialized Graph; Graph is nil in
// that case, since nothing in the streaming path ever holds the whole
// document in memory at once. ParseStream yields only FlatRelease values,
// never a Graph; a Graph for a large message comes from Parse with
// opts.AutoThreshold raised above the input size.
type ParseResult struct {
	Graph *graph.Document
	Flat  *flatten.Flat
}

// ToBuildRequest converts r's Flat view back into an ernwire.Request
// suitable for re-building, e.g. under a different preset or version
// (spec §6.1 "ParseResult... a to_build_request() convertor"). The
// resulting Request has a zero-value Header; callers that intend to
// rebuild must set one, since Flat doesn't retain header fields.
func (r *ParseResult) ToBuildRequest() ernwire.Request {
	req := ernwire.Request{}
	for _, p := range r.Flat.Parties {
		name := ernwire.Name{}
		if len(p.Names) > 0 {
			name.FullName = p.Names[0]
		}
		var ids []ernwire.PartyID
		for ns, v := range p.IDs {
			ids = append(ids, ernwire.PartyID{Value: v, Namespace: ns})
		}
		req.Parties = append(req.Parties, ernwire.Party{Reference: p.Ref, Name: name, IDs: ids})
	}
	for _, res := range r.Flat.Resources {
		req.Resources = append(req.Resources, ernwire.SoundRecording{
			Reference:     res.Ref,
			ISRC:          res.ISRC,
			Title:         res.Title,
			Duration:      res.Duration,
			DisplayArtist: ernwire.DisplayArtist{ArtistPartyReference: res.DisplayArtistRef},
		})
	}
	for _, rel := range r.Flat.Releases {
		var trackRefs []string
		for _, t := range rel.Tracks {
			if t != nil {
				trackRefs = append(trackRefs, t.Ref)
			}
		}
		req.Releases = append(req.Releases, ernwire.Release{
			Reference:     rel.Ref,
			ReleaseType:   rel.ReleaseType,
			Title:         rel.Title,
			DisplayArtist: ernwire.DisplayArtist{ArtistPartyReference: rel.DisplayArtistRef},
			TrackRefs:     trackRefs,
		})
	}
	for _, d := range r.Flat.Deals {
		for _, rel := range d.Releases {
			if rel == nil {
				continue
			}
			req.Deals = append(req.Deals, ernwire.ReleaseDeal{
				ReleaseReference: rel.Ref,
				Terms: ernwire.DealTerms{
					TerritoryCode: d.Territories,
					UseType:       d.UseTypes,
				},
			})
		}
	}
	return req
}

// Parse parses input fully into a Graph and Flat view (spec §6.1
// "parse(bytes, options)"). Above opts.AutoThreshold, Parse builds the
// Flat view through the Streaming Iterator instead of materializing a
// Graph, matching the streaming-vs-full-parse behavioral-equivalence note
// of spec §9: the resulting Flat carries the same Parties, Resources,
// Releases, Deals and Warnings either way, just without the Graph.
func Parse(ctx context.Context, input []byte, opts ParseOptions) (*ParseResult, error) {
	threshold := opts.AutoThreshold
	if threshold <= 0 {
		threshold = ernschema.StreamingAutoThreshold
	}
	if int64(len(input)) > threshold {
		L().Sugar().Debugw("parse: above auto_threshold, falling back to streaming", "bytes", len(input), "threshold", threshold)
		return parseViaStream(ctx, input, opts)
	}

	doc, err := graph.NewBuilder(opts.Builder).Build(ctx, bytes.NewReader(input))
	if err != nil {
		L().Sugar().Errorw("parse: graph build failed", "error", err)
		return nil, err
	}
	flat, err := flatten.Flatten(doc, opts.Flatten)
	if err != nil {
		L().Sugar().Errorw("parse: flatten failed", "error", err)
		return nil, err
	}
	for _, w := range flat.Warnings {
		L().Sugar().Warnw("parse: reference warning", "error", w)
	}
	return &ParseResult{Graph: doc, Flat: flat}, nil
}

// parseViaStream drains a Streaming Iterator over input and returns its
// accumulated Flat view, used by Parse above opts.AutoThreshold.
func parseViaStream(ctx context.Context, input []byte, opts ParseOptions) (*ParseResult, error) {
	cfg := opts.Stream
	cfg.Reader = opts.Builder.Reader
	cfg.FlattenOpts = opts.Flatten

	it := streamiter.Open(ctx, bytes.NewReader(input), cfg)
	defer it.Close()

	for {
		_, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			L().Sugar().Errorw("parse: streaming build failed", "error", err)
			return nil, err
		}
	}
	flat := it.Flat()
	for _, w := range flat.Warnings {
		L().Sugar().Warnw("parse: reference warning", "error", w)
	}
	return &ParseResult{Flat: flat}, nil
}

// ParseStream opens a Streaming Iterator over src (spec §6.1
// "parse_stream(source, options)").
func ParseStream(ctx context.Context, src io.Reader, opts ParseOptions) *streamiter.Iterator {
	cfg := opts.Stream
	cfg.Reader = opts.Builder.Reader
	cfg.FlattenOpts = opts.Flatten
	return streamiter.Open(ctx, src, cfg)
}

// DetectVersion returns the ERN version recognized from input's root
// namespace in O(1) tokens, or ernschema.Unknown for a well-formed root
// element in an unrecognized namespace (spec §6.1 "detect_version", §8
// property 5: "returns a value in {3.8.2, 4.2, 4.3, Unknown}"). Only a
// malformed or empty document returns a non-nil error.
func DetectVersion(ctx context.Context, input []byte) (ernschema.Version, error) {
	d, err := ernversion.Detect(ctx, bytes.NewReader(input))
	if ernerr.IsCode(err, ernerr.UnsupportedVersion) {
		return ernschema.Unknown, nil
	}
	if err != nil {
		return ernschema.Unknown, err
	}
	return d.Version, nil
}

// SanityCheckResult is the report of SanityCheck (spec §6.1
// "sanity_check").
type SanityCheckResult struct {
	Valid    bool
	Version  ernschema.Version
	Errors   []error
	Warnings []error
}

// SanityCheck parses input with StrategyContinue and reports whether it is
// structurally valid without requiring the caller to handle a parse
// failure as a Go error (spec §6.1 "sanity_check(bytes) -> {valid, ...}").
func SanityCheck(ctx context.Context, input []byte) SanityCheckResult {
	res := SanityCheckResult{}
	if v, err := DetectVersion(ctx, input); err == nil {
		res.Version = v
	}

	doc, err := graph.NewBuilder(graph.DefaultBuilderConfig()).Build(ctx, bytes.NewReader(input))
	if err != nil {
		L().Sugar().Errorw("sanity_check: graph build failed", "error", err)
		res.Errors = append(res.Errors, err)
		return res
	}

	flat, err := flatten.Flatten(doc, flatten.Options{ErrorStrategy: flatten.StrategyContinue})
	if err != nil {
		L().Sugar().Errorw("sanity_check: flatten failed", "error", err)
		res.Errors = append(res.Errors, err)
		return res
	}
	for _, w := range flat.Warnings {
		L().Sugar().Warnw("sanity_check: reference warning", "error", w)
	}
	res.Warnings = append(res.Warnings, flat.Warnings...)
	res.Valid = true
	return res
}
