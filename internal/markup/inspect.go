package markup

import (
	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// UnsupportedConstruct names a Markdown construct the converter does not
// model. Such constructs render as plain text; callers typically log them
// before conversion so surprising output can be traced to its input.
type UnsupportedConstruct string

const (
	ConstructLink  UnsupportedConstruct = "link"
	ConstructImage UnsupportedConstruct = "image"
	ConstructTable UnsupportedConstruct = "table"
)

// InspectUnsupported parses markup with a full CommonMark parser and reports
// constructs outside the supported subset (links, images, tables). It is an
// analysis pass only; the conversion pipeline never consumes its output.
func InspectUnsupported(markup string) []UnsupportedConstruct {
	source := []byte(markup)
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	root := md.Parser().Parse(text.NewReader(source))

	var found []UnsupportedConstruct
	seen := map[UnsupportedConstruct]bool{}

	record := func(c UnsupportedConstruct) {
		if !seen[c] {
			seen[c] = true
			found = append(found, c)
		}
	}

	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch n.(type) {
		case *gmast.Link, *gmast.AutoLink:
			record(ConstructLink)
		case *gmast.Image:
			record(ConstructImage)
		case *extast.Table:
			record(ConstructTable)
		}
		return gmast.WalkContinue, nil
	})

	return found
}
