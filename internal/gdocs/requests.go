// Package gdocs maps conversion and patch results onto Google Docs
// batchUpdate requests and assembles them into transmit-ready plans.
package gdocs

import (
	"fmt"
	"log/slog"

	"google.golang.org/api/docs/v1"

	"git.home.luguber.info/inful/archivist/internal/markup"
)

const (
	bulletPreset   = "BULLET_DISC_CIRCLE_SQUARE"
	numberedPreset = "NUMBERED_DECIMAL_ALPHA_ROMAN"
	monospaceFont  = "Courier New"
)

// BuildStyleRequests maps indexed paragraphs and spans onto Docs style
// requests. Style requests are idempotent and target disjoint or layered
// ranges, so their relative order does not matter; combined-batch ordering
// with content operations is the assembler's concern.
func BuildStyleRequests(idx *markup.Indexed) []*docs.Request {
	var reqs []*docs.Request

	for _, pr := range idx.Paragraphs {
		if pr.End <= pr.Start {
			if pr.Paragraph.Kind != markup.ParagraphPlain {
				slog.Warn("gdocs: paragraph with empty range skipped",
					"line", pr.Paragraph.Line, "kind", pr.Paragraph.Kind.String())
			}
			continue
		}
		switch pr.Paragraph.Kind {
		case markup.ParagraphHeading:
			reqs = append(reqs, headingRequest(pr.Start, pr.End, pr.Paragraph.Level))
		case markup.ParagraphBullet:
			reqs = append(reqs, bulletRequest(pr.Start, pr.End, false))
		case markup.ParagraphNumbered:
			reqs = append(reqs, bulletRequest(pr.Start, pr.End, true))
		}
	}

	for _, sp := range idx.Spans {
		if sp.End <= sp.Start {
			slog.Warn("gdocs: span with empty range skipped", "kind", sp.Kind.String())
			continue
		}
		reqs = append(reqs, textStyleRequest(sp))
	}

	return reqs
}

func headingRequest(start, end int64, level int) *docs.Request {
	if level < 1 || level > 6 {
		level = 1
	}
	return &docs.Request{
		UpdateParagraphStyle: &docs.UpdateParagraphStyleRequest{
			Range: &docs.Range{StartIndex: start, EndIndex: end},
			ParagraphStyle: &docs.ParagraphStyle{
				NamedStyleType: fmt.Sprintf("HEADING_%d", level),
			},
			Fields: "namedStyleType",
		},
	}
}

func bulletRequest(start, end int64, ordered bool) *docs.Request {
	preset := bulletPreset
	if ordered {
		preset = numberedPreset
	}
	return &docs.Request{
		CreateParagraphBullets: &docs.CreateParagraphBulletsRequest{
			Range:        &docs.Range{StartIndex: start, EndIndex: end},
			BulletPreset: preset,
		},
	}
}

func textStyleRequest(sp markup.SpanRange) *docs.Request {
	r := &docs.Range{StartIndex: sp.Start, EndIndex: sp.End}
	switch sp.Kind {
	case markup.SpanBold:
		return &docs.Request{
			UpdateTextStyle: &docs.UpdateTextStyleRequest{
				Range:     r,
				TextStyle: &docs.TextStyle{Bold: true},
				Fields:    "bold",
			},
		}
	case markup.SpanItalic:
		return &docs.Request{
			UpdateTextStyle: &docs.UpdateTextStyleRequest{
				Range:     r,
				TextStyle: &docs.TextStyle{Italic: true},
				Fields:    "italic",
			},
		}
	default:
		return &docs.Request{
			UpdateTextStyle: &docs.UpdateTextStyleRequest{
				Range: r,
				TextStyle: &docs.TextStyle{
					WeightedFontFamily: &docs.WeightedFontFamily{FontFamily: monospaceFont},
				},
				Fields: "weightedFontFamily",
			},
		}
	}
}
