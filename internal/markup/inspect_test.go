package markup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInspectUnsupported_CleanMarkup(t *testing.T) {
	got := InspectUnsupported("# Title\n\nSome **bold** text\n- item one")
	assert.Empty(t, got)
}

func TestInspectUnsupported_Link(t *testing.T) {
	got := InspectUnsupported("see [docs](https://example.com) for details")
	assert.Contains(t, got, ConstructLink)
}

func TestInspectUnsupported_AutoLink(t *testing.T) {
	got := InspectUnsupported("visit <https://example.com> now")
	assert.Contains(t, got, ConstructLink)
}

func TestInspectUnsupported_Image(t *testing.T) {
	got := InspectUnsupported("![alt](pic.png)")
	assert.Contains(t, got, ConstructImage)
}

func TestInspectUnsupported_Table(t *testing.T) {
	got := InspectUnsupported("| a | b |\n|---|---|\n| 1 | 2 |")
	assert.Contains(t, got, ConstructTable)
}

func TestInspectUnsupported_Deduplicates(t *testing.T) {
	got := InspectUnsupported("[a](x) and [b](y)")
	assert.Equal(t, []UnsupportedConstruct{ConstructLink}, got)
}
