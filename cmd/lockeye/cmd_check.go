package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lockeye/internal/checker"
	"lockeye/internal/directive"
	"lockeye/internal/logging"
	"lockeye/internal/report"
	"lockeye/internal/search"
	"lockeye/internal/watch"
)

// =============================================================================
// CHECK - default command
// =============================================================================

func (a *app) runCheck(cmd *cobra.Command, args []string) error {
	chk, err := a.newChecker(cmd.OutOrStdout(), args)
	if err != nil {
		return &exitCodeError{code: exitError, err: err}
	}

	if a.opts.watch {
		return a.watchLoop(cmd, chk)
	}

	summary, err := chk.Run(cmd.Context())
	if err != nil {
		return &exitCodeError{code: exitError, err: err}
	}
	if err := a.printSummary(cmd.OutOrStdout(), summary); err != nil {
		return &exitCodeError{code: exitError, err: err}
	}
	if summary.Failed() {
		return &exitCodeError{code: exitDrift}
	}
	return nil
}

func (a *app) newChecker(out io.Writer, args []string) (*checker.Checker, error) {
	cfg := a.cfg

	paths, err := scanPaths(cfg.Root, args)
	if err != nil {
		return nil, err
	}

	parser, err := directive.NewRegexParser(cfg.Anchor)
	if err != nil {
		return nil, err
	}
	searcher, err := search.New(search.Kind(cfg.Searcher), logging.For(a.logger, logging.CategorySearch))
	if err != nil {
		return nil, err
	}

	var outFile *os.File
	if f, ok := out.(*os.File); ok {
		outFile = f
	}
	renderer := report.NewTextRenderer(out, report.Options{
		Color:   report.ColorEnabled(cfg.Output.Color, outFile),
		Explain: cfg.Output.Explain,
	})

	return checker.New(
		checker.Options{
			Root:     cfg.Root,
			Paths:    paths,
			Patterns: cfg.Patterns,
			Exclude:  cfg.Exclude,
			Workers:  cfg.Workers,
		},
		parser,
		searcher,
		renderer,
		logging.For(a.logger, logging.CategoryChecker),
	), nil
}

// scanPaths expresses command-line paths, given relative to the working
// directory, relative to root where possible so reports stay short.
func scanPaths(root string, args []string) ([]string, error) {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("root %s: %w", root, err)
	}
	paths := make([]string, 0, len(args))
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("path %s: %w", arg, err)
		}
		rel, err := filepath.Rel(rootAbs, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			paths = append(paths, abs)
			continue
		}
		paths = append(paths, rel)
	}
	return paths, nil
}

// printSummary writes the failures, or the whole JSON document, to out. A
// clean text run prints nothing.
func (a *app) printSummary(out io.Writer, summary *checker.Summary) error {
	if a.cfg.Output.Format == "json" {
		return report.WriteJSON(out, summary.Document())
	}
	for i, res := range summary.Failures() {
		if i > 0 {
			if _, err := fmt.Fprintln(out); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(out, res.Report); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// WATCH MODE
// =============================================================================

// watchLoop checks once, then again after every settled batch of changes,
// until the command context is cancelled.
func (a *app) watchLoop(cmd *cobra.Command, chk *checker.Checker) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	log := logging.For(a.logger, logging.CategoryWatch)

	check := func(ctx context.Context) {
		summary, err := chk.Run(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Error("check failed", zap.Error(err))
			}
			return
		}
		if err := a.printSummary(out, summary); err != nil {
			log.Error("write report", zap.Error(err))
			return
		}
		if !summary.Failed() {
			log.Info("all references in sync")
		}
	}

	check(ctx)

	w, err := watch.New(a.cfg.Root, a.cfg.Exclude, watch.DefaultDebounce, func(ctx context.Context, paths []string) {
		log.Info("change detected", zap.Int("paths", len(paths)), zap.String("first", paths[0]))
		check(ctx)
	}, log)
	if err != nil {
		return &exitCodeError{code: exitError, err: err}
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return &exitCodeError{code: exitError, err: err}
	}

	<-ctx.Done()
	w.Stop()
	return nil
}
