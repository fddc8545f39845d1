package search

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// DefaultExclude returns the directories skipped unless configured otherwise:
// version control metadata and node_modules.
func DefaultExclude() []string {
	return []string{
		".git",
		".hg",
		".svn",
		"node_modules",
	}
}

// Walker searches by walking the tree and reading files itself.
type Walker struct {
	logger *zap.Logger
}

// NewWalker returns a Walker. A nil logger disables logging.
func NewWalker(logger *zap.Logger) *Walker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Walker{logger: logger}
}

// Search walks every target of q in order and returns hits in file order,
// then line order. A file reached twice is only read once.
func (w *Walker) Search(ctx context.Context, q Query) ([]Hit, error) {
	targets, err := resolveTargets(q)
	if err != nil {
		return nil, err
	}

	var hits []Hit
	seen := make(map[string]struct{})
	visit := func(path string) error {
		if _, ok := seen[path]; ok {
			return nil
		}
		seen[path] = struct{}{}
		found, err := scanFile(path, q)
		if err != nil {
			return err
		}
		if len(found) > 0 {
			w.logger.Debug("directive candidates", zap.String("file", path), zap.Int("hits", len(found)))
		}
		hits = append(hits, found...)
		return nil
	}

	for _, target := range targets {
		info, err := os.Stat(target)
		if err != nil {
			return nil, fmt.Errorf("search: %w", err)
		}
		if !info.IsDir() {
			rel := relPath(q.Root, target)
			if q.MatchFile(rel) && !q.Excluded(rel) {
				if err := visit(target); err != nil {
					return nil, err
				}
			}
			continue
		}

		walkErr := filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				return err
			}

			rel := relPath(q.Root, path)
			if d.IsDir() {
				if path != target && q.Excluded(rel) {
					w.logger.Debug("skipping excluded directory", zap.String("dir", rel))
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || q.Excluded(rel) || !q.MatchFile(rel) {
				return nil
			}
			return visit(path)
		})
		if walkErr != nil {
			return nil, fmt.Errorf("search: walk %s: %w", target, walkErr)
		}
	}

	w.logger.Debug("search finished",
		zap.String("root", q.Root),
		zap.Strings("patterns", q.Patterns),
		zap.String("needle", q.Needle),
		zap.Int("files", len(seen)),
		zap.Int("hits", len(hits)),
	)
	return hits, nil
}

// resolveTargets turns q.Paths into paths to stat, defaulting to q.Root.
func resolveTargets(q Query) ([]string, error) {
	if len(q.Paths) == 0 {
		return []string{q.Root}, nil
	}
	targets := make([]string, 0, len(q.Paths))
	for _, p := range q.Paths {
		if strings.TrimSpace(p) == "" {
			return nil, fmt.Errorf("search: empty path")
		}
		if filepath.IsAbs(p) {
			targets = append(targets, filepath.Clean(p))
			continue
		}
		targets = append(targets, filepath.Join(q.Root, p))
	}
	return targets, nil
}

// scanFile returns the accepted lines of one file.
func scanFile(path string, q Query) ([]Hit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer f.Close()

	var hits []Hit
	r := bufio.NewReader(f)
	for n := 1; ; n++ {
		line, err := r.ReadString('\n')
		if line != "" {
			content := strings.TrimRight(line, "\r\n")
			if q.Accept(content) {
				hits = append(hits, Hit{File: path, Line: n, Content: content})
			}
		}
		if err == io.EOF {
			return hits, nil
		}
		if err != nil {
			return nil, fmt.Errorf("search: read %s: %w", path, err)
		}
	}
}

// relPath returns path relative to root, falling back to path itself when
// it lies outside root.
func relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

var _ Searcher = (*Walker)(nil)
