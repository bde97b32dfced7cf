package markup

import (
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"
)

// ParagraphRange is a paragraph with its final-text offsets. Start and End are
// 1-based character offsets, End exclusive; the range never includes the line
// terminator.
type ParagraphRange struct {
	Paragraph Paragraph
	Start     int64
	End       int64
}

// SpanRange is an inline span with its final-text offsets.
type SpanRange struct {
	Kind  SpanKind
	Text  string
	Start int64
	End   int64
}

// Indexed holds the fully marker-free text and the 1-based character ranges
// of every paragraph and span within it. Offset 1 is the document's implicit
// first insertion point.
type Indexed struct {
	FinalText  string
	Paragraphs []ParagraphRange
	Spans      []SpanRange
}

// ComputeOffsets removes inline markers from the block-stripped text and
// computes final character offsets for every paragraph and span.
//
// Inline spans are removed in descending start order so each removal leaves
// all earlier offsets untouched; the per-span shift is then a single
// accumulated delta sweep instead of a re-scan after every removal.
// Paragraph boundaries are recomputed by re-splitting the final text.
func ComputeOffsets(doc *Document) *Indexed {
	spans := validSpans(doc)

	final := doc.Stripped
	for i := len(spans) - 1; i >= 0; i-- {
		sp := spans[i]
		final = final[:sp.Start] + sp.Text + final[sp.End:]
	}

	idx := &Indexed{FinalText: final}

	// Accumulated delta: marker bytes removed before each span's start.
	delta := 0
	for _, sp := range spans {
		startByte := sp.Start - delta
		start := int64(utf8.RuneCountInString(final[:startByte])) + 1
		idx.Spans = append(idx.Spans, SpanRange{
			Kind:  sp.Kind,
			Text:  sp.Text,
			Start: start,
			End:   start + int64(utf8.RuneCountInString(sp.Text)),
		})
		delta += (sp.End - sp.Start) - len(sp.Text)
	}

	lines := strings.Split(final, "\n")
	if len(lines) != len(doc.Paragraphs) {
		// Inline spans never contain a line terminator, so the counts can
		// only diverge on malformed input; truncate rather than abort.
		slog.Warn("markup: paragraph count mismatch after inline removal",
			"paragraphs", len(doc.Paragraphs), "lines", len(lines))
	}

	var run int64
	for i, line := range lines {
		if i >= len(doc.Paragraphs) {
			break
		}
		start := run + 1
		end := start + int64(utf8.RuneCountInString(line))
		idx.Paragraphs = append(idx.Paragraphs, ParagraphRange{
			Paragraph: doc.Paragraphs[i],
			Start:     start,
			End:       end,
		})
		// The line terminator occupies position end, so the next line
		// starts at end+1.
		run = end
	}

	return idx
}

// validSpans filters out spans with impossible ranges, keeping the rest in
// ascending start order. A bad span is skipped and logged, never fatal.
func validSpans(doc *Document) []Span {
	spans := make([]Span, 0, len(doc.Spans))
	for _, sp := range doc.Spans {
		if sp.Start < 0 || sp.End < sp.Start || sp.End > len(doc.Stripped) {
			slog.Warn("markup: span with invalid range skipped",
				"kind", sp.Kind.String(), "start", sp.Start, "end", sp.End)
			continue
		}
		spans = append(spans, sp)
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
	return spans
}
