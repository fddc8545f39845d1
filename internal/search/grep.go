package search

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Grep searches by running the system grep. Results are filtered with the
// same rules as Walker so both implementations agree on what counts as a hit.
type Grep struct {
	Binary string
	logger *zap.Logger
}

// NewGrep returns a Grep using the grep found on PATH.
func NewGrep(logger *zap.Logger) *Grep {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Grep{Binary: "grep", logger: logger}
}

// Search runs grep -RnF over the targets of q.
func (g *Grep) Search(ctx context.Context, q Query) ([]Hit, error) {
	targets, err := resolveTargets(q)
	if err != nil {
		return nil, err
	}

	args := g.args(q, targets)
	g.logger.Debug("looking for references", zap.String("command", g.Binary+" "+strings.Join(args, " ")))

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, g.Binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return nil, nil // no matching lines
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("search: %s: %w", g.Binary, err)
		}
		return nil, fmt.Errorf("search: %s: %w: %s", g.Binary, err, msg)
	}

	parsed, err := ParseGrepOutput(stdout.Bytes())
	if err != nil {
		return nil, err
	}

	hits := parsed[:0]
	for _, h := range parsed {
		h.File = filepath.Clean(h.File)
		rel := relPath(q.Root, h.File)
		if q.Excluded(rel) || !q.MatchFile(rel) || !q.Accept(h.Content) {
			continue
		}
		hits = append(hits, h)
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].File != hits[j].File {
			return hits[i].File < hits[j].File
		}
		return hits[i].Line < hits[j].Line
	})
	return hits, nil
}

// args builds the grep command line. --include only understands base names,
// so it is passed only when every pattern is one; otherwise all files are
// searched and filtered afterwards.
func (g *Grep) args(q Query, targets []string) []string {
	args := []string{"-RnF", "--null"}
	include := true
	for _, p := range q.Patterns {
		if strings.Contains(p, "/") {
			include = false
			break
		}
	}
	if include {
		for _, p := range normalizePatterns(q.Patterns) {
			args = append(args, "--include="+p)
		}
	}
	for _, p := range normalizePatterns(q.Exclude) {
		if !strings.Contains(p, "/") {
			args = append(args, "--exclude-dir="+p)
		}
	}
	args = append(args, "-e", q.Needle, "--")
	return append(args, targets...)
}

// ParseGrepOutput parses "grep -n --null" output: each line is the file
// name, a NUL byte, the line number, a colon and the content.
func ParseGrepOutput(out []byte) ([]Hit, error) {
	var hits []Hit
	for _, raw := range strings.Split(string(out), "\n") {
		raw = strings.TrimSuffix(raw, "\r")
		if strings.TrimSpace(raw) == "" {
			continue
		}
		file, rest, ok := strings.Cut(raw, "\x00")
		if !ok {
			return nil, fmt.Errorf("search: unexpected grep output %q", raw)
		}
		num, content, ok := strings.Cut(rest, ":")
		if !ok {
			return nil, fmt.Errorf("search: unexpected grep output %q", raw)
		}
		line, err := strconv.Atoi(num)
		if err != nil {
			return nil, fmt.Errorf("search: bad line number in grep output %q: %w", raw, err)
		}
		hits = append(hits, Hit{File: file, Line: line, Content: content})
	}
	return hits, nil
}

var _ Searcher = (*Grep)(nil)
