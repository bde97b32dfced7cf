// Package textdiff computes minimal content patches between two plain-text
// document states. It aligns the texts with an LCS-based diff and reduces the
// result to content-addressed replace/delete operations plus anchored inserts,
// filtering out sub-threshold noise.
package textdiff

import (
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// OpKind discriminates patch operations.
type OpKind int

const (
	OpReplace OpKind = iota
	OpDelete
	OpInsert
)

func (k OpKind) String() string {
	switch k {
	case OpReplace:
		return "replace"
	case OpDelete:
		return "delete"
	default:
		return "insert"
	}
}

// Op is a single patch operation.
//
// Replace and Delete are content-addressed: the consumer locates OldText by
// substring match, so the operation survives offset drift in the live
// document. Insert carries Anchor, the 0-based character offset into the old
// text where the segment belongs, so callers can resolve it independently of
// operation reordering.
type Op struct {
	Kind    OpKind
	OldText string
	NewText string
	Anchor  int
}

// DefaultMinChunk is the minimum trimmed segment length an operation must
// reach to be emitted. Shorter segments are treated as noise (typically
// whitespace churn) and dropped.
const DefaultMinChunk = 5

// Compute diffs oldText against newText and returns the surviving patch
// operations in old-text order. Identical inputs yield nil. When every
// operation falls under minChunk but the texts differ, Compute returns an
// empty (non-nil) slice; the caller must fall back to full replacement
// rather than silently dropping a real change.
func Compute(oldText, newText string, minChunk int) []Op {
	if oldText == newText {
		return nil
	}
	if minChunk <= 0 {
		minChunk = DefaultMinChunk
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(oldText, newText, false))

	ops := make([]Op, 0, len(diffs))

	// Consecutive non-equal segments collapse into one operation: a run with
	// both old and new text is a replace, otherwise a pure delete or insert.
	oldPos := 0
	runStart := 0
	var runOld, runNew strings.Builder

	flush := func() {
		if runOld.Len() == 0 && runNew.Len() == 0 {
			return
		}
		op, ok := buildOp(runOld.String(), runNew.String(), runStart, minChunk)
		if ok {
			ops = append(ops, op)
		}
		runOld.Reset()
		runNew.Reset()
	}

	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush()
			oldPos += utf8.RuneCountInString(d.Text)
			runStart = oldPos
		case diffmatchpatch.DiffDelete:
			runOld.WriteString(d.Text)
			oldPos += utf8.RuneCountInString(d.Text)
		case diffmatchpatch.DiffInsert:
			runNew.WriteString(d.Text)
		}
	}
	flush()

	return ops
}

// buildOp classifies one non-equal run and applies the minimum-chunk guard.
func buildOp(oldSeg, newSeg string, anchor, minChunk int) (Op, bool) {
	switch {
	case oldSeg != "" && newSeg != "":
		if trimmedLen(oldSeg) < minChunk {
			return Op{}, false
		}
		return Op{Kind: OpReplace, OldText: oldSeg, NewText: newSeg}, true
	case oldSeg != "":
		if trimmedLen(oldSeg) < minChunk {
			return Op{}, false
		}
		return Op{Kind: OpDelete, OldText: oldSeg}, true
	default:
		if trimmedLen(newSeg) < minChunk {
			return Op{}, false
		}
		return Op{Kind: OpInsert, NewText: newSeg, Anchor: anchor}, true
	}
}

func trimmedLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}
