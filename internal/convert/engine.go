// Package convert is the engine façade: it turns markup into formatting
// request plans, computes partial content patches against a previous document
// state, and drives full update cycles against a remote document backend.
package convert

import (
	"context"
	"log/slog"

	"google.golang.org/api/docs/v1"

	"git.home.luguber.info/inful/archivist/internal/errors"
	"git.home.luguber.info/inful/archivist/internal/gdocs"
	"git.home.luguber.info/inful/archivist/internal/markup"
	"git.home.luguber.info/inful/archivist/internal/observability"
	"git.home.luguber.info/inful/archivist/internal/textdiff"
)

// Remote abstracts the rich-document backend. The production implementation
// lives in internal/drive; tests substitute an in-memory fake.
type Remote interface {
	// DocumentText returns the current plain-text content of the document.
	DocumentText(ctx context.Context, docID string) (string, error)
	// Submit transmits the plan's batches sequentially, aborting on the
	// first failed batch.
	Submit(ctx context.Context, docID string, plan *gdocs.Plan) error
	// ReplaceAll replaces the entire document body with text.
	ReplaceAll(ctx context.Context, docID, text string) error
}

// Conversion is the output of a full markup conversion.
type Conversion struct {
	// PlainText is the marker-stripped document text.
	PlainText string
	// StyleRequests are the formatting requests addressing PlainText by
	// 1-based character offsets.
	StyleRequests []*docs.Request
	// Unsupported lists markup constructs the converter passed through as
	// literal text.
	Unsupported []markup.UnsupportedConstruct
}

// Engine binds the conversion pipeline to a remote backend.
type Engine struct {
	remote   Remote
	minChunk int
}

// NewEngine returns an engine using minChunk as the partial-patch noise
// threshold; minChunk <= 0 selects textdiff.DefaultMinChunk.
func NewEngine(remote Remote, minChunk int) *Engine {
	return &Engine{remote: remote, minChunk: minChunk}
}

// ConvertMarkup parses source markup and produces the plain text plus the
// style requests that reproduce its formatting. Malformed constructs never
// fail the conversion; they degrade to literal text and are reported in
// Unsupported.
func ConvertMarkup(source string) *Conversion {
	idx := markup.ComputeOffsets(markup.Parse(source))
	return &Conversion{
		PlainText:     idx.FinalText,
		StyleRequests: gdocs.BuildStyleRequests(idx),
		Unsupported:   markup.InspectUnsupported(source),
	}
}

// ComputePartialPatch diffs two plain-text states into a transmit-ready plan.
// A nil plan means the texts are identical and nothing needs to be sent. When
// every individual change falls under the noise threshold but the texts still
// differ, the plan degrades to a full replacement with newText so no real
// change is silently dropped.
func (e *Engine) ComputePartialPatch(oldText, newText string) *gdocs.Plan {
	ops := textdiff.Compute(oldText, newText, e.minChunk)
	if ops == nil {
		return nil
	}
	if len(ops) == 0 {
		return &gdocs.Plan{UsedFallback: true, Replacement: newText}
	}
	return gdocs.Assemble(ops, nil, true, newText)
}

// UpdateResult summarizes what one update cycle actually did.
type UpdateResult struct {
	// Skipped is set when no operations were produced and nothing was sent.
	Skipped bool
	// Fallback is set when partial patching degraded to a full replacement,
	// either from the stale guard or the noise threshold.
	Fallback bool
	// Batches and Requests count the submitted work.
	Batches  int
	Requests int
}

// ApplyUpdate runs one full update cycle against the document: convert the
// new markup, verify the live document still matches the expected old text,
// assemble content and style operations, and submit.
//
// The stale check happens immediately before submission. On mismatch the
// cycle silently falls back to a full replacement of the converted text;
// partial operations computed against the stale baseline are discarded,
// including style requests, since their offsets address a document state that
// no longer exists. Remote failures are returned unmodified apart from
// category wrapping.
func (e *Engine) ApplyUpdate(ctx context.Context, docID, oldText, newMarkup string) (*UpdateResult, error) {
	ctx = observability.WithDocID(ctx, docID)

	conv := ConvertMarkup(newMarkup)

	if oldText == "" {
		observability.InfoContext(ctx, "no previous text, writing full document")
		return e.replaceAndStyle(ctx, docID, conv, false)
	}

	ops := textdiff.Compute(oldText, conv.PlainText, e.minChunk)
	if ops == nil && len(conv.StyleRequests) == 0 {
		observability.InfoContext(ctx, "no operations produced, skipping update")
		return &UpdateResult{Skipped: true}, nil
	}
	if ops != nil && len(ops) == 0 {
		// Every change fell under the noise threshold; the texts still
		// differ, so degrade to a full rewrite.
		observability.InfoContext(ctx, "all patch operations below threshold, using full replacement")
		return e.replaceAndStyle(ctx, docID, conv, true)
	}

	live, err := e.remote.DocumentText(ctx, docID)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryRemote, "reading live document text")
	}

	fresh := live == oldText
	if !fresh {
		observability.WarnContext(ctx, "live document diverged from expected text, falling back to full replacement",
			slog.Int("expected_chars", len(oldText)), slog.Int("live_chars", len(live)))
	}

	plan := gdocs.Assemble(ops, conv.StyleRequests, fresh, conv.PlainText)
	if plan.UsedFallback {
		// Out-of-band edits invalidated the baseline: every partial
		// operation is discarded, style requests included, and the body is
		// rewritten as plain text. Formatting is restored on the next cycle.
		if err := e.remote.ReplaceAll(ctx, docID, plan.Replacement); err != nil {
			return nil, errors.WrapError(err, errors.CategoryRemote, "replacing document content")
		}
		return &UpdateResult{Fallback: true}, nil
	}
	if plan.Empty() {
		return &UpdateResult{Skipped: true}, nil
	}

	observability.InfoContext(ctx, "submitting patch plan",
		slog.Int("batches", len(plan.Batches)), slog.Int("requests", plan.RequestCount()))
	if err := e.remote.Submit(ctx, docID, plan); err != nil {
		return nil, errors.WrapError(err, errors.CategoryRemote, "submitting patch plan")
	}
	return &UpdateResult{Batches: len(plan.Batches), Requests: plan.RequestCount()}, nil
}

// replaceAndStyle rewrites the whole document body and then applies the
// conversion's style requests, whose offsets address the freshly written text.
func (e *Engine) replaceAndStyle(ctx context.Context, docID string, conv *Conversion, fallback bool) (*UpdateResult, error) {
	if err := e.remote.ReplaceAll(ctx, docID, conv.PlainText); err != nil {
		return nil, errors.WrapError(err, errors.CategoryRemote, "replacing document content")
	}
	res := &UpdateResult{Fallback: fallback}
	if len(conv.StyleRequests) == 0 {
		return res, nil
	}
	stylePlan := gdocs.Assemble(nil, conv.StyleRequests, true, "")
	if err := e.remote.Submit(ctx, docID, stylePlan); err != nil {
		return nil, errors.WrapError(err, errors.CategoryRemote, "applying style requests")
	}
	res.Batches = len(stylePlan.Batches)
	res.Requests = stylePlan.RequestCount()
	return res, nil
}
