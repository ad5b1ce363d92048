// Package roundtrip implements the Round-Trip Verifier (spec §4.8): the
// parse -> canonicalize -> write -> reparse -> compare pipeline that proves
// fidelity and determinism for a given input.
package roundtrip

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/go-cmp/cmp"

	"github.com/ddexkit/erncore/canon"
	"github.com/ddexkit/erncore/graph"
	"github.com/ddexkit/erncore/xmlio"
)

// Issue is one structural or determinism discrepancy found during
// verification.
type Issue struct {
	Path    string
	Message string
}

// Report is the Round-Trip Verifier's output (spec §4.8 "Reports").
type Report struct {
	RoundTripSuccess         bool
	FidelityScore            float64
	CanonicalizationConsistent bool
	DeterminismVerified      bool
	Issues                   []Issue
}

// Options configures one Verify call.
type Options struct {
	Builder graph.BuilderConfig
	Canon   canon.Options
	Writer  xmlio.WriterConfig
}

// DefaultOptions returns the verifier's default configuration.
func DefaultOptions() Options {
	return Options{
		Builder: graph.DefaultBuilderConfig(),
		Canon:   canon.Options{AutoID: canon.AutoIDNone, PreserveComments: false},
		Writer:  xmlio.WriterConfig{Indent: xmlio.IndentNone},
	}
}

// Verify runs the five-step procedure of spec §4.8 against input and
// returns a Report. A parse failure at any step is returned as an error
// rather than folded into the Report, since a Report asserts something
// about a document that was at least structurally parseable.
func Verify(ctx context.Context, input []byte, opts Options) (*Report, error) {
	docA, err := graph.NewBuilder(opts.Builder).Build(ctx, bytes.NewReader(input))
	if err != nil {
		return nil, fmt.Errorf("roundtrip: parsing input: %w", err)
	}
	elemAPrime, err := canon.Canonicalize(docA, opts.Canon)
	if err != nil {
		return nil, fmt.Errorf("roundtrip: canonicalizing A: %w", err)
	}
	b := write(elemAPrime, opts.Writer)

	docC, err := graph.NewBuilder(opts.Builder).Build(ctx, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("roundtrip: reparsing B: %w", err)
	}
	elemCPrime, err := canon.Canonicalize(docC, opts.Canon)
	if err != nil {
		return nil, fmt.Errorf("roundtrip: canonicalizing C: %w", err)
	}

	divergent, total, issues := diffElems("/", elemAPrime, elemCPrime)

	d := write(elemCPrime, opts.Writer)
	determinismVerified := bytes.Equal(b, d)
	if !determinismVerified {
		issues = append(issues, Issue{Path: "/", Message: "Write(C') did not byte-exactly match Write(A')"})
	}

	score := 1.0
	if total > 0 {
		score = 1.0 - float64(divergent)/float64(total)
	}

	return &Report{
		RoundTripSuccess:           divergent == 0 && determinismVerified,
		FidelityScore:              score,
		CanonicalizationConsistent: divergent == 0,
		DeterminismVerified:        determinismVerified,
		Issues:                     issues,
	}, nil
}

// Compare structurally diffs two canonicalized Elem trees and returns
// every Issue found, with no total/divergent bookkeeping (for callers that
// just want a semantic diff, e.g. erncore.Diff, rather than a fidelity
// score).
func Compare(a, b *xmlio.Elem) []Issue {
	_, _, issues := diffElems("/", a, b)
	return issues
}

func write(e *xmlio.Elem, cfg xmlio.WriterConfig) []byte {
	w := xmlio.NewWriter(cfg)
	w.WriteDeclaration()
	w.WriteElem(e, 0)
	return w.Bytes()
}

// diffElems walks a and b in lockstep, counting every element pair and
// leaf pair visited as one node (total) and flagging mismatches
// (divergent). It stops at a pair whose names or child counts differ,
// since a shape mismatch there makes pairwise comparison meaningless (for
// a child-count mismatch, both sides' descendants are added to total); a
// pair whose attributes alone differ is still recursed (spec §4.8 step 4, "element-
// wise, attribute-wise, extension-bytes-wise").
func diffElems(path string, a, b *xmlio.Elem) (divergent, total int, issues []Issue) {
	total = 1
	if a.Local != b.Local || a.Prefix != b.Prefix {
		return 1, 1, []Issue{{Path: path, Message: fmt.Sprintf("element mismatch: %s:%s vs %s:%s", a.Prefix, a.Local, b.Prefix, b.Local)}}
	}
	if !cmp.Equal(a.Attrs, b.Attrs) {
		issues = append(issues, Issue{Path: path, Message: "attribute set differs: " + cmp.Diff(a.Attrs, b.Attrs)})
		divergent++
	}
	if len(a.Children) != len(b.Children) {
		issues = append(issues, Issue{Path: path, Message: fmt.Sprintf("child count differs: %d vs %d", len(a.Children), len(b.Children))})
		divergent++
		for _, ca := range a.Children {
			total += countNode(ca)
		}
		for _, cb := range b.Children {
			total += countNode(cb)
		}
		return divergent, total, issues
	}

	for i := range a.Children {
		childPath := fmt.Sprintf("%s%s[%d]/", path, a.Local, i+1)
		ca, cb := a.Children[i], b.Children[i]
		switch {
		case ca.Elem != nil && cb.Elem != nil:
			d, t, iss := diffElems(childPath, ca.Elem, cb.Elem)
			divergent += d
			total += t
			issues = append(issues, iss...)
		case ca.Elem == nil && cb.Elem == nil:
			total++
			if ca.Text != cb.Text || ca.Comment != cb.Comment || ca.ProcTarget != cb.ProcTarget {
				divergent++
				issues = append(issues, Issue{Path: childPath, Message: "leaf content differs"})
			}
		default:
			total++
			divergent++
			issues = append(issues, Issue{Path: childPath, Message: "node kind differs (element vs text/comment/PI)"})
		}
	}
	return divergent, total, issues
}

func countNode(n xmlio.Node) int {
	if n.Elem == nil {
		return 1
	}
	total := 1
	for _, c := range n.Elem.Children {
		total += countNode(c)
	}
	return total
}
