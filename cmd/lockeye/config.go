package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"lockeye/internal/config"
)

// resolveConfig layers the config file, the environment and the flags that
// were set explicitly, then validates the result.
func (a *app) resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()

	path := a.opts.configPath
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, &exitCodeError{code: exitError, err: fmt.Errorf("config: %w", err)}
		}
	} else {
		start := "."
		if flags.Changed("root") {
			start = a.opts.root
		}
		found, err := config.FindConfigFile(start)
		if err != nil {
			return nil, &exitCodeError{code: exitError, err: fmt.Errorf("config: %w", err)}
		}
		path = found
	}

	cfg := config.FromEnv()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, &exitCodeError{code: exitError, err: err}
		}
		cfg = loaded
	}

	if flags.Changed("anchor") {
		cfg.Anchor = a.opts.anchor
	}
	if flags.Changed("pattern") {
		cfg.Patterns = a.opts.patterns
	}
	if flags.Changed("exclude") {
		cfg.Exclude = a.opts.exclude
	}
	if flags.Changed("root") {
		cfg.Root = a.opts.root
	}
	if flags.Changed("workers") {
		cfg.Workers = a.opts.workers
	}
	if flags.Changed("searcher") {
		cfg.Searcher = a.opts.searcher
	}
	if flags.Changed("format") {
		cfg.Output.Format = a.opts.format
	}
	if flags.Changed("color") {
		cfg.Output.Color = a.opts.color
	}
	if flags.Changed("explain") {
		cfg.Output.Explain = a.opts.explain
	}
	a.applyLoggingFlags(cmd, &cfg.Logging)

	cfg.Root = filepath.Clean(cfg.Root)
	if err := cfg.Validate(); err != nil {
		return nil, &exitCodeError{code: exitError, err: err}
	}
	return cfg, nil
}

func (a *app) applyLoggingFlags(cmd *cobra.Command, cfg *config.LoggingConfig) {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Level = a.opts.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Format = a.opts.logFormat
	}
	if a.opts.verbose {
		cfg.Level = "debug"
	}
}
