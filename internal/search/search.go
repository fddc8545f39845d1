// Package search finds documentation lines that may hold directives.
//
// It plays the role of "grep -Rn" for the checker: given a root, a set of
// file patterns and a needle, it returns every matching line as file, line
// number and content. Two implementations exist: Walker reads files natively
// and Grep shells out to the system grep.
package search

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
)

// Hit is one matching line.
type Hit struct {
	File    string `json:"file"`
	Line    int    `json:"line"` // 1-based
	Content string `json:"content"`
}

// Query describes what to look for.
type Query struct {
	// Root is the directory searched and the base for relative Paths.
	Root string
	// Paths restricts the search to these files or directories under Root.
	// Empty means all of Root.
	Paths []string
	// Patterns select documentation files by name ("*.rst") or by
	// slash-separated path relative to Root ("docs/**/*.md").
	Patterns []string
	// Exclude skips files and directories, using the same matching as Patterns.
	Exclude []string
	// Needle must appear in a line for it to be a hit.
	Needle string
	// Reject, when set, disqualifies a line that contains it.
	Reject string
}

// Searcher runs a Query.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Hit, error)
}

// Kind names a Searcher implementation.
type Kind string

const (
	KindWalk Kind = "walk"
	KindGrep Kind = "grep"
)

// Kinds lists the accepted Kind values.
var Kinds = []Kind{KindWalk, KindGrep}

// New returns the Searcher for kind.
func New(kind Kind, logger *zap.Logger) (Searcher, error) {
	switch kind {
	case KindWalk, "":
		return NewWalker(logger), nil
	case KindGrep:
		return NewGrep(logger), nil
	default:
		return nil, fmt.Errorf("search: unknown searcher %q", kind)
	}
}

// Accept reports whether a line qualifies as a hit for q.
func (q Query) Accept(line string) bool {
	if !strings.Contains(line, q.Needle) {
		return false
	}
	return q.Reject == "" || !strings.Contains(line, q.Reject)
}

// MatchFile reports whether the file at rel (relative to Root) is a
// documentation file. A pattern without a slash is matched against the base
// name, like grep --include; any other pattern against the whole path.
func (q Query) MatchFile(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, p := range normalizePatterns(q.Patterns) {
		target := rel
		if !strings.Contains(p, "/") {
			target = path.Base(rel)
		}
		if ok, _ := doublestar.Match(p, target); ok {
			return true
		}
	}
	return false
}

// Excluded reports whether rel (relative to Root) is skipped. A pattern
// without a slash matches any path component, so "node_modules" hides the
// whole tree below such a directory; a pattern with a slash matches the path
// or one of its parents.
func (q Query) Excluded(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, p := range normalizePatterns(q.Exclude) {
		if !strings.Contains(p, "/") {
			for _, part := range strings.Split(rel, "/") {
				if ok, _ := doublestar.Match(p, part); ok {
					return true
				}
			}
			continue
		}
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
		if strings.HasPrefix(rel, p+"/") {
			return true
		}
	}
	return false
}

// ValidatePatterns checks each pattern's glob syntax.
func ValidatePatterns(patterns []string) error {
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("search: empty pattern")
		}
		if !doublestar.ValidatePattern(filepath.ToSlash(p)) {
			return fmt.Errorf("search: invalid pattern %q", p)
		}
	}
	return nil
}

func normalizePatterns(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		p = strings.TrimSuffix(p, "/")
		p = strings.TrimSuffix(p, "\\")
		if p == "" {
			continue
		}
		out = append(out, filepath.ToSlash(p))
	}
	return out
}
