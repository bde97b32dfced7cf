package drive

import (
	"strings"

	"google.golang.org/api/docs/v1"
)

// PlainText flattens the document body into plain text: paragraph runs in
// order, table cells tab-separated with rows on their own lines, and table of
// contents entries inline. The Docs body always terminates with a newline;
// one trailing newline is stripped so results round-trip against converter
// output.
func PlainText(doc *docs.Document) string {
	if doc == nil || doc.Body == nil {
		return ""
	}
	var b strings.Builder
	for _, el := range doc.Body.Content {
		appendElementText(&b, el)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func appendElementText(b *strings.Builder, el *docs.StructuralElement) {
	if el == nil {
		return
	}
	switch {
	case el.Paragraph != nil:
		for _, pe := range el.Paragraph.Elements {
			if pe.TextRun != nil {
				b.WriteString(pe.TextRun.Content)
			}
		}
	case el.Table != nil:
		for rowIdx, row := range el.Table.TableRows {
			if rowIdx > 0 {
				b.WriteString("\n")
			}
			for cellIdx, cell := range row.TableCells {
				if cellIdx > 0 {
					b.WriteString("\t")
				}
				for _, content := range cell.Content {
					appendElementText(b, content)
				}
			}
		}
	case el.TableOfContents != nil:
		for _, content := range el.TableOfContents.Content {
			appendElementText(b, content)
		}
	}
}

// deleteBodyRequest builds the request that clears the document body. The
// body's final newline cannot be deleted, so the range ends one short of the
// last element's end index. Returns nil for an already-empty document.
func deleteBodyRequest(doc *docs.Document) *docs.Request {
	if doc == nil || doc.Body == nil || len(doc.Body.Content) == 0 {
		return nil
	}
	lastEl := doc.Body.Content[len(doc.Body.Content)-1]
	if lastEl == nil || lastEl.EndIndex <= 2 {
		return nil
	}
	return &docs.Request{
		DeleteContentRange: &docs.DeleteContentRangeRequest{
			Range: &docs.Range{
				StartIndex: 1,
				EndIndex:   lastEl.EndIndex - 1,
			},
		},
	}
}
