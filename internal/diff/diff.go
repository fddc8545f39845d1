// Package diff explains how two versions of a single line differ, using the
// sergi/go-diff library. It backs the --explain hint under a drift report and
// never looks past the one line it is given.
package diff

import (
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Op is the kind of a segment.
type Op int

const (
	OpEqual  Op = iota // present on both sides
	OpDelete           // only in the documentation
	OpInsert           // only in the source
)

// Segment is a run of text sharing one Op.
type Segment struct {
	Op   Op
	Text string
}

// Engine wraps a configured diffmatchpatch instance.
type Engine struct {
	dmp *diffmatchpatch.DiffMatchPatch
}

// NewEngine creates an engine tuned for short code lines.
func NewEngine() *Engine {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0 // lines are short; favour an exact answer
	return &Engine{dmp: dmp}
}

// DefaultEngine is shared by callers that don't need their own.
var DefaultEngine = NewEngine()

// Inline computes the word-level difference turning oldLine into newLine.
// Trailing line endings are ignored.
func (e *Engine) Inline(oldLine, newLine string) []Segment {
	oldLine = strings.TrimRight(oldLine, "\r\n")
	newLine = strings.TrimRight(newLine, "\r\n")

	diffs := e.dmp.DiffMain(oldLine, newLine, false)
	diffs = e.dmp.DiffCleanupSemantic(diffs)

	segments := make([]Segment, 0, len(diffs))
	for _, d := range diffs {
		if d.Text == "" {
			continue
		}
		var op Op
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			op = OpDelete
		case diffmatchpatch.DiffInsert:
			op = OpInsert
		default:
			op = OpEqual
		}
		segments = append(segments, Segment{Op: op, Text: d.Text})
	}
	return segments
}

// Inline is a convenience function using the default engine.
func Inline(oldLine, newLine string) []Segment {
	return DefaultEngine.Inline(oldLine, newLine)
}

// Column returns the 1-based character column of the first change, or 0 if
// the segments describe identical lines.
func Column(segments []Segment) int {
	col := 1
	for _, s := range segments {
		if s.Op != OpEqual {
			return col
		}
		col += utf8.RuneCountInString(s.Text)
	}
	return 0
}
