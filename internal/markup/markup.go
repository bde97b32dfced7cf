// Package markup parses the lightweight heading/bold/italic/list/code syntax
// produced by the knowledge-extraction pipeline into a block-stripped text
// plus per-line classifications and inline spans.
//
// The parser is deliberately permissive: malformed or unterminated markers are
// left as literal text and never produce an error.
package markup

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// ParagraphKind classifies a single input line.
type ParagraphKind int

const (
	ParagraphPlain ParagraphKind = iota
	ParagraphHeading
	ParagraphBullet
	ParagraphNumbered
)

func (k ParagraphKind) String() string {
	switch k {
	case ParagraphHeading:
		return "heading"
	case ParagraphBullet:
		return "bullet"
	case ParagraphNumbered:
		return "numbered"
	default:
		return "plain"
	}
}

// Paragraph is the classification of one input line. Text is the line with
// block markers stripped; for plain lines it is the line unmodified.
type Paragraph struct {
	Line  int
	Kind  ParagraphKind
	Level int // 1-6 for headings, 0 otherwise
	Text  string
}

// SpanKind classifies an inline span.
type SpanKind int

const (
	SpanBold SpanKind = iota
	SpanItalic
	SpanCode
)

func (k SpanKind) String() string {
	switch k {
	case SpanBold:
		return "bold"
	case SpanItalic:
		return "italic"
	default:
		return "code"
	}
}

// Span is an inline formatting span. Start and End are byte offsets into the
// block-stripped text and include the delimiters; Text is the inner text.
type Span struct {
	Kind  SpanKind
	Start int
	End   int
	Text  string
}

// Document is the result of parsing markup: the block-stripped text, one
// Paragraph per input line, and the recorded inline spans in ascending
// start order.
type Document struct {
	Source          string
	Stripped        string
	Paragraphs      []Paragraph
	Spans           []Span
	TrailingNewline bool
}

var (
	headingRe = regexp.MustCompile(`^(#{1,6}) (.+)$`)
	bulletRe  = regexp.MustCompile(`^[-*] (.+)$`)
	numberRe  = regexp.MustCompile(`^\d+\. (.+)$`)

	// Marker-only lines: recognized so the empty-content case can be reported.
	emptyMarkerRe = regexp.MustCompile(`^(#{1,6}|[-*]|\d+\.)\s*$`)

	codeRe   = regexp.MustCompile("`([^`\n]+?)`")
	boldRe   = regexp.MustCompile(`\*\*(.+?)\*\*|__(.+?)__`)
	italicRe = regexp.MustCompile(`\*([^*\n]+?)\*|_([^_\n]+?)_`)
)

// Parse splits markup into lines, classifies each line, strips block markers,
// and collects inline spans from the joined stripped text.
func Parse(markup string) *Document {
	doc := &Document{
		Source:          markup,
		TrailingNewline: strings.HasSuffix(markup, "\n"),
	}

	lines := strings.Split(markup, "\n")
	stripped := make([]string, len(lines))

	for i, line := range lines {
		p := classifyLine(i, line)
		doc.Paragraphs = append(doc.Paragraphs, p)
		stripped[i] = p.Text
	}

	doc.Stripped = strings.Join(stripped, "\n")
	doc.Spans = scanInlineSpans(doc.Stripped)
	return doc
}

// classifyLine applies the block rules in precedence order: heading, bullet,
// numbered, plain. A marker with empty trailing content stays plain text.
func classifyLine(index int, line string) Paragraph {
	if m := headingRe.FindStringSubmatch(line); m != nil {
		return Paragraph{Line: index, Kind: ParagraphHeading, Level: len(m[1]), Text: m[2]}
	}
	if m := bulletRe.FindStringSubmatch(line); m != nil && utf8.RuneCountInString(m[1]) > 2 {
		return Paragraph{Line: index, Kind: ParagraphBullet, Text: m[1]}
	}
	if m := numberRe.FindStringSubmatch(line); m != nil {
		return Paragraph{Line: index, Kind: ParagraphNumbered, Text: m[1]}
	}
	if emptyMarkerRe.MatchString(line) {
		slog.Debug("markup: marker with empty content treated as plain text", "line", index)
	}
	return Paragraph{Line: index, Kind: ParagraphPlain, Text: line}
}

// scanInlineSpans collects inline spans from the block-stripped text in
// precedence order: code first, then bold, then italic. Spans never cross
// line boundaries (the patterns exclude newlines or are non-greedy within a
// line) and later kinds are discarded when they overlap earlier ones.
func scanInlineSpans(text string) []Span {
	var spans []Span

	for _, m := range codeRe.FindAllStringSubmatchIndex(text, -1) {
		spans = append(spans, Span{
			Kind:  SpanCode,
			Start: m[0],
			End:   m[1],
			Text:  text[m[2]:m[3]],
		})
	}

	for _, m := range boldRe.FindAllStringSubmatchIndex(text, -1) {
		inner := submatch(text, m)
		sp := Span{Kind: SpanBold, Start: m[0], End: m[1], Text: inner}
		if crossesLine(text, sp) || overlapsAny(spans, sp) {
			continue
		}
		spans = append(spans, sp)
	}

	for _, m := range italicRe.FindAllStringSubmatchIndex(text, -1) {
		inner := submatch(text, m)
		sp := Span{Kind: SpanItalic, Start: m[0], End: m[1], Text: inner}
		if crossesLine(text, sp) || adjacentToMarker(text, sp) || overlapsAny(spans, sp) {
			continue
		}
		spans = append(spans, sp)
	}

	sortSpans(spans)
	return spans
}

// submatch returns the first participating capture group from an alternation match.
func submatch(text string, m []int) string {
	for g := 2; g+1 < len(m); g += 2 {
		if m[g] >= 0 {
			return text[m[g] : m[g+1]]
		}
	}
	return ""
}

func crossesLine(text string, sp Span) bool {
	return strings.ContainsRune(text[sp.Start:sp.End], '\n')
}

// adjacentToMarker rejects italic candidates whose delimiters touch another
// asterisk/underscore, which would otherwise split bold runs.
func adjacentToMarker(text string, sp Span) bool {
	if sp.Start > 0 {
		c := text[sp.Start-1]
		if c == '*' || c == '_' {
			return true
		}
	}
	if sp.End < len(text) {
		c := text[sp.End]
		if c == '*' || c == '_' {
			return true
		}
	}
	return false
}

func overlapsAny(spans []Span, sp Span) bool {
	for _, other := range spans {
		if sp.Start < other.End && other.Start < sp.End {
			return true
		}
	}
	return false
}

func sortSpans(spans []Span) {
	sort.Slice(spans, func(i, j int) bool {
		return spans[i].Start < spans[j].Start
	})
}
