// Package directive parses the header lines that tie a documentation block
// to a range of lines in a source file.
//
// A directive looks like:
//
//	    .. lockeye: src/events.py +8
//
// and the block it introduces ends at the first later line containing
// "lockeye-stop".
package directive

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// DefaultAnchor is the keyword used when none is configured.
const DefaultAnchor = "lockeye"

// terminatorSuffix is appended to the anchor to form the block terminator.
const terminatorSuffix = "-stop"

var (
	// ErrMissingDirective is wrapped by MissingDirectiveError.
	ErrMissingDirective = errors.New("no directive header found")
	// ErrAnchorCollision means the terminator for an anchor would itself parse as a directive.
	ErrAnchorCollision = errors.New("anchor terminator collides with directive pattern")
	// ErrEmptyAnchor is returned for a blank anchor keyword.
	ErrEmptyAnchor = errors.New("anchor must not be empty")
)

// Directive is one parsed header line.
type Directive struct {
	Indent int    // leading whitespace width, in characters
	Path   string // referenced source file, as written
	Line   int    // 1-based start line in Path
}

// MissingDirectiveError reports a line that does not hold a well-formed directive.
type MissingDirectiveError struct {
	Line string
}

func (e *MissingDirectiveError) Error() string {
	return fmt.Sprintf("%v: %q", ErrMissingDirective, strings.TrimRight(e.Line, "\r\n"))
}

func (e *MissingDirectiveError) Unwrap() error { return ErrMissingDirective }

// Parser recognises directive headers and knows the terminator that closes
// their blocks. Implementations must be safe for concurrent use.
type Parser interface {
	Parse(line string) (Directive, error)
	Anchor() string
	Terminator() string
}

// RegexParser matches directives with a regular expression built from the anchor.
type RegexParser struct {
	anchor     string
	terminator string
	re         *regexp.Regexp
}

// NewRegexParser compiles the directive pattern for anchor and checks that the
// anchor's terminator can never be mistaken for a directive.
func NewRegexParser(anchor string) (*RegexParser, error) {
	if strings.TrimSpace(anchor) == "" {
		return nil, ErrEmptyAnchor
	}

	pattern := `^(\s*).*?` + regexp.QuoteMeta(anchor) + `:\s+(.*?)\s\+(\d+)$`
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("directive: compile pattern for anchor %q: %w", anchor, err)
	}

	p := &RegexParser{
		anchor:     anchor,
		terminator: anchor + terminatorSuffix,
		re:         re,
	}
	if err := p.checkCollision(); err != nil {
		return nil, err
	}
	return p, nil
}

// MustRegexParser is NewRegexParser for anchors known at compile time.
func MustRegexParser(anchor string) *RegexParser {
	p, err := NewRegexParser(anchor)
	if err != nil {
		panic(err)
	}
	return p
}

// Anchor returns the configured keyword.
func (p *RegexParser) Anchor() string { return p.anchor }

// Terminator returns the string that ends a reference block.
func (p *RegexParser) Terminator() string { return p.terminator }

// Parse extracts the directive from line. Any trailing line ending is ignored.
func (p *RegexParser) Parse(line string) (Directive, error) {
	m := p.re.FindStringSubmatch(strings.TrimRight(line, "\r\n"))
	if m == nil {
		return Directive{}, &MissingDirectiveError{Line: line}
	}

	n, err := strconv.Atoi(m[3])
	if err != nil || n < 1 {
		// Line numbers are 1-based; "+0" or an overflowing number cannot point anywhere.
		return Directive{}, &MissingDirectiveError{Line: line}
	}

	return Directive{
		Indent: utf8.RuneCountInString(m[1]),
		Path:   m[2],
		Line:   n,
	}, nil
}

// checkCollision runs the common terminator spellings through the pattern.
func (p *RegexParser) checkCollision() error {
	candidates := []string{
		p.terminator,
		".. " + p.terminator,
		"    .. " + p.terminator,
		"# " + p.terminator,
		"// " + p.terminator,
		"<!-- " + p.terminator + " -->",
		p.terminator + " +1",
	}
	for _, c := range candidates {
		if p.re.MatchString(c) {
			return fmt.Errorf("%w: anchor %q, line %q", ErrAnchorCollision, p.anchor, c)
		}
	}
	return nil
}

var _ Parser = (*RegexParser)(nil)
