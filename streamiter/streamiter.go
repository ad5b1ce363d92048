// Package streamiter implements the Streaming Iterator (spec §4.9):
// release-at-a-time iteration over a large message without materializing
// the whole Graph, bounded by a configurable high-water mark.
package streamiter

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ddexkit/erncore/ernerr"
	"github.com/ddexkit/erncore/flatten"
	"github.com/ddexkit/erncore/graph"
	"github.com/ddexkit/erncore/internal/ernschema"
	"github.com/ddexkit/erncore/xmlio"
)

// Progress is delivered to the caller's callback at the configured
// interval (spec §4.9 "Progress callback").
type Progress struct {
	BytesRead       int64
	ReleasesEmitted int
	Elapsed         time.Duration
}

// Config configures an Iterator.
type Config struct {
	Reader           xmlio.ReaderConfig
	HighWaterMark    int64 // bytes; 0 selects ernschema.StreamHighWaterMarkDefault
	ProgressEvery    int   // releases; 0 disables the callback
	OnProgress       func(Progress)
	FlattenOpts      flatten.Options
}

// DefaultConfig returns the streaming defaults of spec §4.9 and §9
// ("auto_threshold").
func DefaultConfig() Config {
	return Config{
		Reader:        xmlio.DefaultReaderConfig(),
		HighWaterMark: ernschema.StreamHighWaterMarkDefault,
	}
}

// Iterator produces a lazy, finite, non-restartable sequence of
// *flatten.FlatRelease values (spec §4.9 "Contract"). It is not safe for
// concurrent use by more than one goroutine.
type Iterator struct {
	cfg     Config
	results chan result
	cancel  context.CancelFunc
	done    chan struct{}
	started time.Time
	emitted int

	// flat accumulates Parties, Resources, Deals, Releases and Warnings as
	// the background goroutine discovers them. It is only safe to read via
	// Flat() after Next has returned io.EOF or an error: the channel
	// close that signals either happens after the goroutine's last write,
	// giving the reader a happens-before guarantee.
	flat *flatten.Flat
}

type result struct {
	rel *flatten.FlatRelease
	err error
}

// Open starts streaming src in a background goroutine and returns an
// Iterator the caller pulls from with Next. The background goroutine halts
// at the next token boundary once ctx is canceled or Close is called,
// releasing every resource it acquired (spec §4.9 "Cancellation").
func Open(ctx context.Context, src io.Reader, cfg Config) *Iterator {
	if cfg.HighWaterMark <= 0 {
		cfg.HighWaterMark = ernschema.StreamHighWaterMarkDefault
	}
	runCtx, cancel := context.WithCancel(ctx)
	it := &Iterator{
		cfg:     cfg,
		results: make(chan result, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
		started: time.Now(),
		flat:    &flatten.Flat{},
	}
	go it.run(runCtx, src)
	return it
}

// Flat returns the Parties, Resources, Deals, Releases and Warnings
// accumulated over the whole stream. Only call Flat after Next has
// returned io.EOF or a non-nil error; reading it earlier races with the
// background goroutine still populating it. Once drained, it holds the
// same content a full flatten.Flatten of the same document would, except
// for the Graph itself, which streaming never materializes (spec §9
// streaming/full-parse equivalence).
func (it *Iterator) Flat() *flatten.Flat { return it.flat }

// Next blocks until the next FlatRelease is available, the stream is
// exhausted (io.EOF), or an error occurs. Once Next returns io.EOF or a
// non-nil error, the Iterator is done and must not be used again.
func (it *Iterator) Next() (*flatten.FlatRelease, error) {
	r, ok := <-it.results
	if !ok {
		return nil, io.EOF
	}
	if r.err != nil {
		return nil, r.err
	}
	it.emitted++
	if it.cfg.OnProgress != nil && it.cfg.ProgressEvery > 0 && it.emitted%it.cfg.ProgressEvery == 0 {
		it.cfg.OnProgress(Progress{ReleasesEmitted: it.emitted, Elapsed: time.Since(it.started)})
	}
	return r.rel, nil
}

// Close stops the background parse at the next token boundary and waits
// for it to exit.
func (it *Iterator) Close() error {
	it.cancel()
	<-it.done
	return nil
}

func (it *Iterator) run(ctx context.Context, src io.Reader) {
	defer close(it.done)
	defer close(it.results)

	err := buildStreaming(ctx, src, it.cfg, it.flat, func(rel *flatten.FlatRelease) error {
		select {
		case it.results <- result{rel: rel}:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err != nil && err != io.EOF {
		select {
		case it.results <- result{err: err}:
		case <-ctx.Done():
		}
	}
}

// buildStreaming re-implements the Graph Builder's token loop, but rather
// than building one full Document it indexes Party, Resource and Deal
// entities as they arrive (DealList always closes the message, after
// every Release it can reference) and calls onRelease as soon as each
// top-level Release element closes, discarding its Node afterward so
// memory stays bounded by the high-water mark rather than by total
// message size. acc accumulates the same Parties/Resources/Deals/
// Releases/Warnings a full flatten.Flatten would produce, so Parse can
// offer the same result shape above and below its streaming threshold
// (spec §9).
func buildStreaming(ctx context.Context, src io.Reader, cfg Config, acc *flatten.Flat, onRelease func(*flatten.FlatRelease) error) error {
	r := xmlio.NewReader(ctx, src, cfg.Reader)

	var stack []*graph.Node
	var rootNS string
	partyByRef := map[string]*flatten.FlatParty{}
	resByRef := map[string]*flatten.FlatResource{}
	relByRef := map[string]*flatten.FlatRelease{}
	var inReleaseList, inDealList bool
	var releaseDepth, dealDepth int

	partyCount, resCount, relCount, dealCount := 0, 0, 0, 0

	for {
		tok, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		switch tok.Kind {
		case xmlio.TokStartElement:
			if rootNS == "" && len(stack) == 0 {
				if _, ok := ernschema.VersionForNamespace(tok.Name.Space); !ok {
					return ernerr.New(ernerr.UnsupportedVersion, "unrecognized root namespace %q", tok.Name.Space)
				}
				rootNS = tok.Name.Space
			}
			n := &graph.Node{Name: tok.Name, Attrs: tok.Attrs, NSDecls: tok.NSDecls, Pos: tok.Pos}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, graph.Child{Elem: n})
			}
			stack = append(stack, n)

			if tok.Name.Local == "ReleaseList" {
				inReleaseList = true
			}
			if inReleaseList && tok.Name.Local == "Release" {
				releaseDepth = len(stack)
			}
			if tok.Name.Local == "DealList" {
				inDealList = true
			}
			if inDealList && tok.Name.Local == "ReleaseDeal" {
				dealDepth = len(stack)
			}

		case xmlio.TokEndElement:
			if len(stack) == 0 {
				return ernerr.New(ernerr.StructuralError, "unbalanced end element %s", tok.Name.Local)
			}
			closed := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			switch closed.Name.Local {
			case "Party":
				ref := closed.Text()
				if rr := closed.FirstElement("PartyReference"); rr != nil {
					ref = rr.Text()
				}
				partyCount++
				h := graph.Handle{Kind: graph.KindParty, Index: partyCount - 1}
				fp := flatten.FlattenParty(ref, closed, h)
				partyByRef[ref] = fp
				acc.Parties = append(acc.Parties, fp)
			case "SoundRecording", "Image", "Video", "Text":
				if rr := closed.FirstElement("ResourceReference"); rr != nil {
					ref := rr.Text()
					resCount++
					h := graph.Handle{Kind: graph.KindResource, Index: resCount - 1}
					fr := flatten.FlattenResource(ref, closed, h)
					resByRef[ref] = fr
					acc.Resources = append(acc.Resources, fr)
				}
			case "ReleaseList":
				inReleaseList = false
			case "Release":
				if inReleaseList && len(stack)+1 == releaseDepth {
					ref := ""
					if rr := closed.FirstElement("ReleaseReference"); rr != nil {
						ref = rr.Text()
					}
					relCount++
					h := graph.Handle{Kind: graph.KindRelease, Index: relCount - 1}
					rel, err := flatten.FlattenRelease(ref, closed, h, resByRef, cfg.FlattenOpts, acc)
					if err != nil {
						return err
					}
					relByRef[ref] = rel
					acc.Releases = append(acc.Releases, rel)
					if err := onRelease(rel); err != nil {
						return err
					}
					// closed is detached from its parent here, so nothing
					// still reachable from it survives past this iteration,
					// bounding memory to the high-water mark rather than
					// total message size.
					if len(stack) > 0 {
						parent := stack[len(stack)-1]
						parent.Children[len(parent.Children)-1] = graph.Child{}
						parent.Children = parent.Children[:len(parent.Children)-1]
					}
				}
			case "DealList":
				inDealList = false
			case "ReleaseDeal":
				if inDealList && len(stack)+1 == dealDepth {
					dealCount++
					ref := fmt.Sprintf("D%d", dealCount)
					h := graph.Handle{Kind: graph.KindDeal, Index: dealCount - 1}
					deal, err := flatten.FlattenDeal(ref, closed, h, relByRef, cfg.FlattenOpts, acc)
					if err != nil {
						return err
					}
					acc.Deals = append(acc.Deals, deal)
				}
			}

			if approxBytes(partyCount, resCount, relCount, dealCount) > cfg.HighWaterMark {
				return ernerr.New(ernerr.BackpressureExceeded, "streaming high-water mark exceeded")
			}

		case xmlio.TokText:
			if len(stack) == 0 {
				continue
			}
			top := stack[len(stack)-1]
			top.Children = append(top.Children, graph.Child{Text: string(tok.Bytes), Insignificant: tok.Insignificant})
		}
	}

	return io.EOF
}

// approxBytes is a conservative per-entity footprint estimate used to
// enforce the high-water mark without tracking exact allocation sizes
// (spec §4.9 "Memory footprint bounded by a configurable high-water
// mark"). 2 KiB per indexed Party/Resource/Release/Deal is a deliberately
// coarse upper bound for typical ERN metadata sizes.
func approxBytes(parties, resources, releases, deals int) int64 {
	return int64(parties+resources+releases+deals) * 2048
}
