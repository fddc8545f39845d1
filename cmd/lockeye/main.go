// Command lockeye checks that code blocks quoted in documentation still match
// the source lines they were copied from.
//
// A documentation file marks a quoted block with a directive naming the
// source file and its first line, and closes it with a terminator:
//
//	.. lockeye: src/server.go +42
//	   func serve() error {
//	       return nil
//	   }
//	.. lockeye-stop
//
// lockeye prints a context-diff report for every block that has drifted and
// exits 1 when any block drifted or could not be read.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lockeye/internal/config"
	"lockeye/internal/logging"
	"lockeye/internal/search"
)

// Exit codes.
const (
	exitOK    = 0
	exitDrift = 1 // drift or malformed directives
	exitError = 2 // bad usage, bad config or an environment failure
)

// exitCodeError carries a process exit code through cobra. err may be nil
// when everything worth saying has already been printed.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitCodeError) Unwrap() error { return e.err }

// options holds the raw command-line flags.
type options struct {
	configPath string
	anchor     string
	patterns   []string
	exclude    []string
	root       string
	workers    int
	searcher   string
	format     string
	color      string
	explain    bool
	logLevel   string
	logFormat  string
	verbose    bool
	watch      bool
}

// app is the state shared by the commands of one invocation.
type app struct {
	opts   options
	cfg    *config.Config
	logger *zap.Logger
}

// skipConfig lists commands that run without resolving configuration.
var skipConfig = map[string]bool{
	"version": true,
	"init":    true,
	"help":    true,
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	rootCmd := &cobra.Command{
		Use:   "lockeye [paths...]",
		Short: "Detect drift between documentation and the code it quotes",
		Long: `lockeye scans documentation files for quoted code blocks that carry a
directive such as

  .. lockeye: src/server.go +42

and compares each block, up to its "lockeye-stop" terminator, with the named
lines of the source file. Only the first differing line of a block is marked.

Paths limit the scan to the given files or directories; by default the whole
root is scanned. Settings are read from .lockeye.yaml (searched upwards from
the root), then LOCKEYE_* environment variables, then flags.

Exit status is 0 when every block is in sync, 1 when a block drifted or a
directive is malformed, and 2 on usage, configuration or I/O errors.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if skipConfig[cmd.Name()] {
				logCfg := config.DefaultConfig().Logging
				a.applyLoggingFlags(cmd, &logCfg)
				return a.initLogger(cmd, logCfg)
			}
			cfg, err := a.resolveConfig(cmd)
			if err != nil {
				return err
			}
			a.cfg = cfg
			if err := a.initLogger(cmd, cfg.Logging); err != nil {
				return err
			}
			logging.For(a.logger, logging.CategoryBoot).Debug("configuration resolved",
				zap.String("root", cfg.Root),
				zap.String("anchor", cfg.Anchor),
				zap.Strings("patterns", cfg.Patterns),
				zap.Int("workers", cfg.Workers),
				zap.String("searcher", cfg.Searcher),
			)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: a.runCheck,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.opts.configPath, "config", "", "Config file (default: .lockeye.yaml found from the root upwards)")
	flags.StringVarP(&a.opts.root, "root", "C", ".", "Scan root; relative directive paths resolve against it")
	flags.StringVar(&a.opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flags.StringVar(&a.opts.logFormat, "log-format", "console", "Log format: console or json")
	flags.BoolVarP(&a.opts.verbose, "verbose", "v", false, "Enable debug logging")

	local := rootCmd.Flags()
	local.StringVar(&a.opts.anchor, "anchor", "lockeye", "Directive keyword; blocks end at <anchor>-stop")
	local.StringArrayVar(&a.opts.patterns, "pattern", []string{"*.rst"}, "Documentation file pattern (repeatable)")
	local.StringArrayVar(&a.opts.exclude, "exclude", nil, "File or directory pattern to skip (repeatable; replaces the defaults)")
	local.IntVar(&a.opts.workers, "workers", config.DefaultWorkers(), "Occurrences checked concurrently")
	local.StringVar(&a.opts.searcher, "searcher", string(search.KindWalk), "Line search backend: "+searcherKinds())
	local.StringVar(&a.opts.format, "format", "text", "Report format: text or json")
	local.StringVar(&a.opts.color, "color", "auto", "Colour reports: auto, always or never")
	local.BoolVar(&a.opts.explain, "explain", false, "Show an inline diff of the first divergent line")
	local.BoolVarP(&a.opts.watch, "watch", "w", false, "Re-run the check whenever files under the root change")

	rootCmd.AddCommand(newInitCmd(a))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// searcherKinds lists the accepted --searcher values.
func searcherKinds() string {
	names := make([]string, len(search.Kinds))
	for i, k := range search.Kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

func (a *app) initLogger(cmd *cobra.Command, cfg config.LoggingConfig) error {
	logger, err := logging.New(cfg, cmd.ErrOrStderr())
	if err != nil {
		return &exitCodeError{code: exitError, err: err}
	}
	a.logger = logger
	return nil
}

// execute runs the command line args and returns the process exit code.
func execute(args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	var exitErr *exitCodeError
	if errors.As(err, &exitErr) {
		if exitErr.err != nil {
			fmt.Fprintln(stderr, "lockeye:", exitErr.err)
		}
		return exitErr.code
	}
	fmt.Fprintln(stderr, "lockeye:", err)
	return exitError
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}
