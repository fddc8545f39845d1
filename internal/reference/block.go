package reference

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// ErrUnterminatedBlock is wrapped by UnterminatedBlockError.
var ErrUnterminatedBlock = errors.New("reference block is not terminated")

// UnterminatedBlockError reports a directive whose block runs into end of file.
type UnterminatedBlockError struct {
	Terminator string
	Read       int // lines consumed before EOF
}

func (e *UnterminatedBlockError) Error() string {
	return fmt.Sprintf("%v: reached end of file after %d lines without %q", ErrUnterminatedBlock, e.Read, e.Terminator)
}

func (e *UnterminatedBlockError) Unwrap() error { return ErrUnterminatedBlock }

// ReadBlock reads the documentation lines following a directive header up to
// the first line containing terminator. The terminator line is consumed and
// dropped. Every returned line has its line ending normalised and its first
// indent characters removed, so a block of k lines always yields k entries.
func ReadBlock(r *bufio.Reader, indent int, terminator string) ([]string, error) {
	var block []string
	for {
		line, err := r.ReadString('\n')
		if line != "" && strings.Contains(line, terminator) {
			return block, nil
		}
		if err == io.EOF {
			// A final line without newline still counts as read.
			n := len(block)
			if line != "" {
				n++
			}
			return nil, &UnterminatedBlockError{Terminator: terminator, Read: n}
		}
		if err != nil {
			return nil, err
		}
		block = append(block, StripIndent(NormalizeEOL(line), indent))
	}
}

// StripIndent removes the first width characters of line. When nothing would
// remain, the last character of line (its line ending) is returned instead.
func StripIndent(line string, width int) string {
	if line == "" {
		return line
	}
	rest := line
	for i := 0; i < width && rest != ""; i++ {
		_, size := utf8.DecodeRuneInString(rest)
		rest = rest[size:]
	}
	if rest != "" {
		return rest
	}
	_, size := utf8.DecodeLastRuneInString(line)
	return line[len(line)-size:]
}

// NormalizeEOL rewrites a trailing "\r\n" or "\r" to "\n". Lines are split
// on "\n" only, so a carriage return inside a line is left alone and line
// numbers agree with grep.
func NormalizeEOL(line string) string {
	if strings.HasSuffix(line, "\r\n") {
		return line[:len(line)-2] + "\n"
	}
	if strings.HasSuffix(line, "\r") {
		return line[:len(line)-1] + "\n"
	}
	return line
}

// ReadSource reads up to size lines of path starting at the 1-based line
// start, with line endings normalised. A missing file yields no lines; a
// short file yields fewer than size.
// Any other I/O failure is returned.
func ReadSource(path string, start, size int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	if err := skipLines(r, start-1); err != nil {
		if err == io.EOF {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	lines := make([]string, 0, size)
	for len(lines) < size {
		line, err := r.ReadString('\n')
		if line != "" {
			lines = append(lines, NormalizeEOL(line))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}
	return lines, nil
}

// skipLines discards n lines from r.
func skipLines(r *bufio.Reader, n int) error {
	for i := 0; i < n; i++ {
		if _, err := r.ReadString('\n'); err != nil {
			return err
		}
	}
	return nil
}
