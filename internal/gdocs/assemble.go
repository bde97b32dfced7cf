package gdocs

import (
	"sort"

	"google.golang.org/api/docs/v1"

	"git.home.luguber.info/inful/archivist/internal/textdiff"
)

// MaxRequestsPerBatch is the Docs API limit on operations per batchUpdate
// call; larger plans are split into sequential requests.
const MaxRequestsPerBatch = 100

// Plan is an ordered set of request batches ready for transmission.
//
// When UsedFallback is set the partial operations were discarded and
// Replacement holds the full document text to write instead; Batches is
// empty in that case and the executor performs a single full replacement.
type Plan struct {
	Batches      [][]*docs.Request
	UsedFallback bool
	Replacement  string
}

// RequestCount returns the total number of requests across all batches.
func (p *Plan) RequestCount() int {
	n := 0
	for _, b := range p.Batches {
		n += len(b)
	}
	return n
}

// Empty reports whether the plan carries no work at all.
func (p *Plan) Empty() bool {
	return !p.UsedFallback && p.RequestCount() == 0
}

// Assemble orders content and style operations into a transmit-ready plan.
//
// Ordering policy: content-addressed Replace/Delete operations first (they
// match disjoint text and are order-independent among themselves), then
// Insert operations by descending anchor so later insertions never invalidate
// earlier anchors, then style requests last so they see the final
// post-insertion document state.
//
// When staleGuardOk is false the live document no longer matches the expected
// old text; every partial operation is discarded and the plan degrades to a
// single full replacement with fullText.
func Assemble(diffOps []textdiff.Op, styleReqs []*docs.Request, staleGuardOk bool, fullText string) *Plan {
	if !staleGuardOk {
		return &Plan{UsedFallback: true, Replacement: fullText}
	}

	var ordered []*docs.Request

	var inserts []textdiff.Op
	for _, op := range diffOps {
		switch op.Kind {
		case textdiff.OpReplace:
			ordered = append(ordered, replaceAllRequest(op.OldText, op.NewText))
		case textdiff.OpDelete:
			ordered = append(ordered, replaceAllRequest(op.OldText, ""))
		case textdiff.OpInsert:
			inserts = append(inserts, op)
		}
	}

	sort.SliceStable(inserts, func(i, j int) bool {
		return inserts[i].Anchor > inserts[j].Anchor
	})
	for _, op := range inserts {
		ordered = append(ordered, insertRequest(op.NewText))
	}

	ordered = append(ordered, styleReqs...)

	return &Plan{Batches: chunkRequests(ordered, MaxRequestsPerBatch)}
}

// replaceAllRequest builds a content-addressed replacement: the API locates
// the old segment by exact text match, so the operation is immune to offset
// drift and preserves the styling attached to the surrounding run. An empty
// replacement text deletes the matched segment.
func replaceAllRequest(oldSeg, newSeg string) *docs.Request {
	return &docs.Request{
		ReplaceAllText: &docs.ReplaceAllTextRequest{
			ContainsText: &docs.SubstringMatchCriteria{
				Text:      oldSeg,
				MatchCase: true,
			},
			ReplaceText: newSeg,
		},
	}
}

// insertRequest appends a segment at the end of the body segment. Inserts are
// not anchored at their original position: true mid-document anchoring would
// require remapping every numeric position after each content mutation, and
// appended segments are re-integrated on the next full conversion cycle.
func insertRequest(text string) *docs.Request {
	return &docs.Request{
		InsertText: &docs.InsertTextRequest{
			Text:                 text,
			EndOfSegmentLocation: &docs.EndOfSegmentLocation{},
		},
	}
}

func chunkRequests(reqs []*docs.Request, size int) [][]*docs.Request {
	if len(reqs) == 0 {
		return nil
	}
	var batches [][]*docs.Request
	for start := 0; start < len(reqs); start += size {
		end := start + size
		if end > len(reqs) {
			end = len(reqs)
		}
		batches = append(batches, reqs[start:end])
	}
	return batches
}
