// Package report renders lockeye findings for people and for tools.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"lockeye/internal/diff"
	"lockeye/internal/reference"
)

// Marker prefixes the first divergent documentation line.
const Marker = "> "

// Renderer turns one finding into report text.
type Renderer interface {
	// Drift renders a record whose block diverges from the source at index.
	Drift(rec reference.Record, index int) string
	// Malformed renders an occurrence whose directive or block is unreadable.
	Malformed(file string, line int, err error) string
}

// Options configures a TextRenderer.
type Options struct {
	Color   bool
	Explain bool
}

// TextRenderer renders findings as context-diff style text.
type TextRenderer struct {
	styles  Styles
	color   bool
	explain bool
	engine  *diff.Engine
}

// NewTextRenderer creates a renderer. When opts.Color is set the output
// carries ANSI colour codes, styled for w.
func NewTextRenderer(w io.Writer, opts Options) *TextRenderer {
	return &TextRenderer{
		styles:  NewStyles(ANSIRenderer(w)),
		color:   opts.Color,
		explain: opts.Explain,
		engine:  diff.DefaultEngine,
	}
}

// Drift renders:
//
//	*** "docs/a.rst" +4
//	--- "src/a.py" +3
//	***************
//	*** 4,7 ***
//	<documented block, first divergent line prefixed with "> ">
//	--- 3,6 ---
//	<source block>
func (r *TextRenderer) Drift(rec reference.Record, index int) string {
	var b strings.Builder
	s := r.styles

	fmt.Fprintf(&b, "%s \"%s\" +%d\n", r.paint(s.Ref, "***"), rec.RefFile, rec.RefLine)
	fmt.Fprintf(&b, "%s \"%s\" +%d\n", r.paint(s.Orig, "---"), rec.OrigFile, rec.OrigLine)
	b.WriteString("***************\n")

	fmt.Fprintf(&b, "%s %d,%d %s\n", r.paint(s.Sep, "***"), rec.RefLine, rec.RefEnd(), r.paint(s.Sep, "***"))
	for i, line := range rec.RefCode {
		if i == index {
			r.writeLine(&b, s.Marker, Marker+line)
			continue
		}
		r.writeLine(&b, s.Ref, line)
	}

	fmt.Fprintf(&b, "%s %d,%d %s\n", r.paint(s.Sep, "---"), rec.OrigLine, rec.OrigEnd(), r.paint(s.Sep, "---"))
	for _, line := range rec.OrigCode {
		r.writeLine(&b, s.Orig, line)
	}

	if r.explain && index >= 0 && index < len(rec.RefCode) {
		r.writeExplain(&b, rec, index)
	}

	return b.String()
}

// Malformed renders an unreadable occurrence.
func (r *TextRenderer) Malformed(file string, line int, err error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s \"%s\" +%d\n", r.paint(r.styles.Ref, "***"), file, line)
	fmt.Fprintf(&b, "%s %s\n", r.paint(r.styles.Error, "!!!"), err)
	return b.String()
}

// writeExplain appends the inline difference of the divergent line pair.
func (r *TextRenderer) writeExplain(b *strings.Builder, rec reference.Record, index int) {
	s := r.styles
	ref := rec.RefCode[index]

	if index >= len(rec.OrigCode) {
		fmt.Fprintf(b, "%s line %d: source ends before line %d\n",
			r.paint(s.Hint, "~~~"), rec.RefLine+1+index, rec.OrigLine+index)
		return
	}

	segments := r.engine.Inline(ref, rec.OrigCode[index])
	col := diff.Column(segments)
	if col == 0 {
		// Same text; the source line is the last one and has no newline.
		fmt.Fprintf(b, "%s line %d: source line has no trailing newline\n", r.paint(s.Hint, "~~~"), rec.RefLine+1+index)
		return
	}

	fmt.Fprintf(b, "%s line %d, column %d\n", r.paint(s.Hint, "~~~"), rec.RefLine+1+index, col)
	b.WriteString(r.paint(s.Ref, "-") + " ")
	for _, seg := range segments {
		switch seg.Op {
		case diff.OpEqual:
			b.WriteString(seg.Text)
		case diff.OpDelete:
			b.WriteString(r.mark(s.Deleted, "[-", seg.Text, "-]"))
		}
	}
	b.WriteString("\n")
	b.WriteString(r.paint(s.Orig, "+") + " ")
	for _, seg := range segments {
		switch seg.Op {
		case diff.OpEqual:
			b.WriteString(seg.Text)
		case diff.OpInsert:
			b.WriteString(r.mark(s.Inserted, "{+", seg.Text, "+}"))
		}
	}
	b.WriteString("\n")
}

// writeLine writes one code line, making sure it ends with a newline. Plain
// output keeps the line exactly as read.
func (r *TextRenderer) writeLine(b *strings.Builder, style lipgloss.Style, line string) {
	if !r.color {
		b.WriteString(line)
		if !strings.HasSuffix(line, "\n") {
			b.WriteString("\n")
		}
		return
	}
	b.WriteString(style.Render(strings.TrimRight(line, "\r\n")))
	b.WriteString("\n")
}

func (r *TextRenderer) paint(style lipgloss.Style, text string) string {
	if !r.color {
		return text
	}
	return style.Render(text)
}

// mark highlights changed text with colour, or with word-diff brackets in
// plain output.
func (r *TextRenderer) mark(style lipgloss.Style, open, text, close string) string {
	if !r.color {
		return open + text + close
	}
	return style.Render(text)
}

var _ Renderer = (*TextRenderer)(nil)
