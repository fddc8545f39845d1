// Package reference extracts both sides of a documented code reference: the
// block copied into the documentation and the live lines of the source file
// it claims to mirror.
package reference

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"lockeye/internal/directive"
)

// Record bundles one directive occurrence with both snippets.
//
// Size is len(RefCode) and OrigCode never holds more than Size lines; it
// holds fewer when the source file is short or missing.
type Record struct {
	RefFile  string   `json:"ref_file"`
	RefLine  int      `json:"ref_line"`
	RefCode  []string `json:"ref_code"`
	OrigFile string   `json:"orig_file"`
	OrigLine int      `json:"orig_line"`
	OrigCode []string `json:"orig_code"`
	Size     int      `json:"size"`
}

// Build reads the directive on line refLine of refFile, the block it
// introduces, and the matching lines of the referenced source file. Relative
// source paths are resolved against root.
//
// A malformed header yields a *directive.MissingDirectiveError and a block
// without terminator a *UnterminatedBlockError; both describe the content and
// leave the caller free to carry on with other occurrences.
func Build(root, refFile string, refLine int, parser directive.Parser) (Record, error) {
	f, err := os.Open(refFile)
	if err != nil {
		return Record{}, fmt.Errorf("reference: open %s: %w", refFile, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	if err := skipLines(r, refLine-1); err != nil && err != io.EOF {
		return Record{}, fmt.Errorf("reference: read %s: %w", refFile, err)
	}

	header, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return Record{}, fmt.Errorf("reference: read %s: %w", refFile, err)
	}
	d, err := parser.Parse(NormalizeEOL(header))
	if err != nil {
		return Record{}, err
	}

	refCode, err := ReadBlock(r, d.Indent, parser.Terminator())
	if err != nil {
		return Record{}, err
	}

	origFile := ResolvePath(root, d.Path)
	origCode, err := ReadSource(origFile, d.Line, len(refCode))
	if err != nil {
		return Record{}, fmt.Errorf("reference: %w", err)
	}

	return Record{
		RefFile:  refFile,
		RefLine:  refLine,
		RefCode:  refCode,
		OrigFile: origFile,
		OrigLine: d.Line,
		OrigCode: origCode,
		Size:     len(refCode),
	}, nil
}

// ResolvePath joins a directive path onto root unless it is already absolute.
func ResolvePath(root, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(root, filepath.FromSlash(path))
}

// RefEnd is the line following the last documented line, as shown in reports.
func (r Record) RefEnd() int { return r.RefLine + r.Size }

// OrigEnd is the line following the last mirrored source line, as shown in reports.
func (r Record) OrigEnd() int { return r.OrigLine + r.Size }
