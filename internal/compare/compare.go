// Package compare decides whether a documented block still matches its source.
//
// The comparison stops at the first differing line: callers get that one
// index and nothing about later lines.
package compare

import (
	"strings"

	"lockeye/internal/reference"
)

// Result is the outcome of comparing one record.
type Result struct {
	Synced bool
	Index  int // first divergent line within the block, -1 when Synced
}

// Compare walks the reference block line by line against the source block.
// Two lines that are both blank after trimming whitespace are equal; any
// other pair must match exactly, line ending and indentation included. Running
// past the end of OrigCode is a divergence at that index, even for a blank
// reference line.
func Compare(rec reference.Record) Result {
	for i := 0; i < rec.Size; i++ {
		if i >= len(rec.OrigCode) {
			return Result{Synced: false, Index: i}
		}
		ref, orig := rec.RefCode[i], rec.OrigCode[i]
		if isBlank(ref) && isBlank(orig) {
			continue
		}
		if ref != orig {
			return Result{Synced: false, Index: i}
		}
	}
	return Result{Synced: true, Index: -1}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
