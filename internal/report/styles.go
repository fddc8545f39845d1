package report

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// ANSI palette shared by every report. The reference side is red, the source
// side green and range separators cyan, as in a classic context diff;
// --explain hints are yellow.
var (
	RefColor  = lipgloss.Color("1")
	OrigColor = lipgloss.Color("2")
	SepColor  = lipgloss.Color("6")
	WarnColor = lipgloss.Color("3")
)

// Styles holds the styled components of a report.
type Styles struct {
	Ref      lipgloss.Style
	Orig     lipgloss.Style
	Sep      lipgloss.Style
	Marker   lipgloss.Style
	Error    lipgloss.Style
	Deleted  lipgloss.Style
	Inserted lipgloss.Style
	Hint     lipgloss.Style
}

// NewStyles builds the report styles on r. Code lines keep their tabs.
func NewStyles(r *lipgloss.Renderer) Styles {
	code := r.NewStyle().TabWidth(lipgloss.NoTabConversion)

	return Styles{
		Ref:      code.Foreground(RefColor),
		Orig:     code.Foreground(OrigColor),
		Sep:      r.NewStyle().Foreground(SepColor),
		Marker:   code.Foreground(RefColor).Bold(true),
		Error:    r.NewStyle().Foreground(RefColor).Bold(true),
		Deleted:  code.Foreground(RefColor).Underline(true),
		Inserted: code.Foreground(OrigColor).Bold(true),
		Hint:     r.NewStyle().Foreground(WarnColor),
	}
}

// ANSIRenderer returns a lipgloss renderer writing to w that always emits
// basic ANSI colours, whatever w is connected to.
func ANSIRenderer(w io.Writer) *lipgloss.Renderer {
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(termenv.ANSI)
	return r
}

// ColorEnabled resolves a colour mode ("auto", "always" or "never") for f.
// In auto mode colour is used only when f is a terminal and TERM is not dumb.
func ColorEnabled(mode string, f *os.File) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if f == nil || os.Getenv("TERM") == "dumb" {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
