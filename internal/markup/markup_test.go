package markup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_HeadingAndInline(t *testing.T) {
	doc := Parse("# Title\n\nSome **bold** and *italic* text.")

	require.Len(t, doc.Paragraphs, 3)
	assert.Equal(t, ParagraphHeading, doc.Paragraphs[0].Kind)
	assert.Equal(t, 1, doc.Paragraphs[0].Level)
	assert.Equal(t, "Title", doc.Paragraphs[0].Text)
	assert.Equal(t, ParagraphPlain, doc.Paragraphs[1].Kind)
	assert.Equal(t, ParagraphPlain, doc.Paragraphs[2].Kind)

	assert.Equal(t, "Title\n\nSome **bold** and *italic* text.", doc.Stripped)

	require.Len(t, doc.Spans, 2)
	assert.Equal(t, SpanBold, doc.Spans[0].Kind)
	assert.Equal(t, "bold", doc.Spans[0].Text)
	assert.Equal(t, SpanItalic, doc.Spans[1].Kind)
	assert.Equal(t, "italic", doc.Spans[1].Text)
}

func TestParse_HeadingLevels(t *testing.T) {
	doc := Parse("## Second\n###### Sixth")
	require.Len(t, doc.Paragraphs, 2)
	assert.Equal(t, 2, doc.Paragraphs[0].Level)
	assert.Equal(t, "Second", doc.Paragraphs[0].Text)
	assert.Equal(t, 6, doc.Paragraphs[1].Level)
}

func TestParse_EmptyHeadingMarkerStaysPlain(t *testing.T) {
	for _, line := range []string{"#", "### ", "-", "3."} {
		doc := Parse(line)
		require.Len(t, doc.Paragraphs, 1)
		assert.Equal(t, ParagraphPlain, doc.Paragraphs[0].Kind, "line %q", line)
		assert.Equal(t, line, doc.Paragraphs[0].Text)
	}
}

func TestParse_SevenHashesIsPlain(t *testing.T) {
	doc := Parse("####### too deep")
	assert.Equal(t, ParagraphPlain, doc.Paragraphs[0].Kind)
}

func TestParse_Bullets(t *testing.T) {
	doc := Parse("- item one\n- item two")
	require.Len(t, doc.Paragraphs, 2)
	assert.Equal(t, ParagraphBullet, doc.Paragraphs[0].Kind)
	assert.Equal(t, "item one", doc.Paragraphs[0].Text)
	assert.Equal(t, ParagraphBullet, doc.Paragraphs[1].Kind)
	assert.Equal(t, "item two", doc.Paragraphs[1].Text)
	assert.Equal(t, "item one\nitem two", doc.Stripped)
}

func TestParse_ShortBulletRemainderStaysPlain(t *testing.T) {
	// Bullet rule requires the remainder to be longer than 2 characters.
	doc := Parse("- ab")
	assert.Equal(t, ParagraphPlain, doc.Paragraphs[0].Kind)
	assert.Equal(t, "- ab", doc.Paragraphs[0].Text)
}

func TestParse_BulletRemainderCountsRunes(t *testing.T) {
	// Two runes, six bytes: still too short to be a bullet.
	doc := Parse("- 日本")
	assert.Equal(t, ParagraphPlain, doc.Paragraphs[0].Kind)
	assert.Equal(t, "- 日本", doc.Paragraphs[0].Text)

	doc = Parse("- 日本語")
	assert.Equal(t, ParagraphBullet, doc.Paragraphs[0].Kind)
	assert.Equal(t, "日本語", doc.Paragraphs[0].Text)
}

func TestParse_AsteriskBullet(t *testing.T) {
	doc := Parse("* starred item")
	assert.Equal(t, ParagraphBullet, doc.Paragraphs[0].Kind)
	assert.Equal(t, "starred item", doc.Paragraphs[0].Text)
}

func TestParse_NumberedList(t *testing.T) {
	doc := Parse("1. first\n12. twelfth")
	assert.Equal(t, ParagraphNumbered, doc.Paragraphs[0].Kind)
	assert.Equal(t, "first", doc.Paragraphs[0].Text)
	assert.Equal(t, ParagraphNumbered, doc.Paragraphs[1].Kind)
	assert.Equal(t, "twelfth", doc.Paragraphs[1].Text)
}

func TestParse_HeadingWinsOverOtherRules(t *testing.T) {
	// First matching rule wins: heading before bullet/numbered.
	doc := Parse("# - not a bullet")
	assert.Equal(t, ParagraphHeading, doc.Paragraphs[0].Kind)
	assert.Equal(t, "- not a bullet", doc.Paragraphs[0].Text)
}

func TestParse_UnclosedBoldIsLiteral(t *testing.T) {
	doc := Parse("**unclosed bold")
	assert.Empty(t, doc.Spans)
	assert.Equal(t, "**unclosed bold", doc.Stripped)
}

func TestParse_CodeSpanPrecedence(t *testing.T) {
	// Code spans are resolved first; bold overlapping code is discarded.
	doc := Parse("run `go **test**` now")
	require.Len(t, doc.Spans, 1)
	assert.Equal(t, SpanCode, doc.Spans[0].Kind)
	assert.Equal(t, "go **test**", doc.Spans[0].Text)
}

func TestParse_ItalicInsideBoldDiscarded(t *testing.T) {
	doc := Parse("**bold** and more")
	require.Len(t, doc.Spans, 1)
	assert.Equal(t, SpanBold, doc.Spans[0].Kind)
}

func TestParse_UnderscoreDelimiters(t *testing.T) {
	doc := Parse("__strong__ and _slanted_")
	require.Len(t, doc.Spans, 2)
	assert.Equal(t, SpanBold, doc.Spans[0].Kind)
	assert.Equal(t, "strong", doc.Spans[0].Text)
	assert.Equal(t, SpanItalic, doc.Spans[1].Kind)
	assert.Equal(t, "slanted", doc.Spans[1].Text)
}

func TestParse_SpansDoNotCrossLines(t *testing.T) {
	doc := Parse("**start\nend**")
	assert.Empty(t, doc.Spans)
}

func TestParse_TrailingNewlineRecorded(t *testing.T) {
	assert.True(t, Parse("line\n").TrailingNewline)
	assert.False(t, Parse("line").TrailingNewline)
}

func TestParse_SpanOffsetsPointIntoStrippedText(t *testing.T) {
	doc := Parse("## Head\nbody with `code` span")
	require.Len(t, doc.Spans, 1)
	sp := doc.Spans[0]
	assert.Equal(t, "`code`", doc.Stripped[sp.Start:sp.End])
	assert.Equal(t, "code", sp.Text)
}
