// Package checker drives a lockeye run: it searches the documentation for
// directive headers, builds a reference record for every hit, compares each
// record against its source and collects the reports.
//
// Occurrences are independent, so they are checked concurrently. Results are
// still returned in search order, which keeps the output of two runs over the
// same tree identical.
package checker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"lockeye/internal/compare"
	"lockeye/internal/directive"
	"lockeye/internal/reference"
	"lockeye/internal/report"
	"lockeye/internal/search"
)

// Options selects what a Checker scans.
type Options struct {
	Root     string
	Paths    []string
	Patterns []string
	Exclude  []string
	Workers  int
}

// Checker checks every directive found under a root.
type Checker struct {
	opts     Options
	parser   directive.Parser
	searcher search.Searcher
	renderer report.Renderer
	logger   *zap.Logger
}

// New creates a Checker. A nil logger discards log output.
func New(opts Options, parser directive.Parser, searcher search.Searcher, renderer report.Renderer, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Checker{
		opts:     opts,
		parser:   parser,
		searcher: searcher,
		renderer: renderer,
		logger:   logger,
	}
}

// Query is the search issued by Run.
func (c *Checker) Query() search.Query {
	return search.Query{
		Root:     c.opts.Root,
		Paths:    c.opts.Paths,
		Patterns: c.opts.Patterns,
		Exclude:  c.opts.Exclude,
		Needle:   c.parser.Anchor() + ":",
		Reject:   c.parser.Terminator(),
	}
}

// Run checks every occurrence. Drift and malformed directives end up in the
// Summary; an error is returned only when the search or file access fails,
// in which case no Summary is produced.
func (c *Checker) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()

	hits, err := c.searcher.Search(ctx, c.Query())
	if err != nil {
		return nil, err
	}
	c.logger.Debug("occurrences found", zap.Int("count", len(hits)))

	results := make([]Result, len(hits))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)

	for i, hit := range hits {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := c.Check(hit)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &Summary{Results: results, Elapsed: time.Since(start)}
	checked, drifted, malformed := summary.Counts()
	c.logger.Info("check finished",
		zap.Int("checked", checked),
		zap.Int("drifted", drifted),
		zap.Int("malformed", malformed),
		zap.Duration("elapsed", summary.Elapsed),
	)
	return summary, nil
}

// Check builds and compares the record for one hit. A malformed directive or
// an unterminated block yields a failed Result; any other error is returned.
func (c *Checker) Check(hit search.Hit) (Result, error) {
	res := Result{Hit: hit, Index: -1}

	rec, err := reference.Build(c.opts.Root, hit.File, hit.Line, c.parser)
	if err != nil {
		if !isContentError(err) {
			return Result{}, fmt.Errorf("checker: %s:%d: %w", hit.File, hit.Line, err)
		}
		c.logger.Debug("malformed occurrence",
			zap.String("file", hit.File),
			zap.Int("line", hit.Line),
			zap.Error(err),
		)
		res.Err = err
		res.Report = c.renderer.Malformed(hit.File, hit.Line, err)
		return res, nil
	}

	res.Record = &rec
	cmp := compare.Compare(rec)
	res.Synced = cmp.Synced
	res.Index = cmp.Index
	if !cmp.Synced {
		c.logger.Debug("drift",
			zap.String("file", rec.RefFile),
			zap.Int("line", rec.RefLine),
			zap.String("source", rec.OrigFile),
			zap.Int("index", cmp.Index),
		)
		res.Report = c.renderer.Drift(rec, cmp.Index)
	}
	return res, nil
}

func isContentError(err error) bool {
	return errors.Is(err, directive.ErrMissingDirective) || errors.Is(err, reference.ErrUnterminatedBlock)
}
