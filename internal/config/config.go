// Package config loads and validates lockeye settings.
//
// Values come from, lowest precedence first: DefaultConfig, a YAML file
// (.lockeye.yaml in the scan root by default), LOCKEYE_* environment
// variables, and finally explicitly set command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"lockeye/internal/directive"
	"lockeye/internal/search"
)

// FileName is the configuration file looked up in the scan root.
const FileName = ".lockeye.yaml"

// Config holds all lockeye configuration.
type Config struct {
	// Anchor is the keyword marking directives ("<anchor>: path +N") and
	// terminators ("<anchor>-stop").
	Anchor string `yaml:"anchor" validate:"required"`

	// Patterns select the documentation files to scan.
	Patterns []string `yaml:"patterns" validate:"required,min=1,dive,required"`

	// Exclude skips files and directories during the scan.
	Exclude []string `yaml:"exclude"`

	// Root is the scan root and the base for directive paths.
	Root string `yaml:"root" validate:"required"`

	// Workers bounds how many references are checked at once.
	Workers int `yaml:"workers" validate:"min=1,max=256"`

	// Searcher picks the line search backend: walk or grep.
	Searcher string `yaml:"searcher" validate:"oneof=walk grep"`

	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// OutputConfig controls how reports are rendered.
type OutputConfig struct {
	Format  string `yaml:"format" validate:"oneof=text json"`       // text, json
	Color   string `yaml:"color" validate:"oneof=auto always never"` // auto, always, never
	Explain bool   `yaml:"explain"`                                  // inline diff of the first divergent line
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		Anchor:   directive.DefaultAnchor,
		Patterns: []string{"*.rst"},
		Exclude:  search.DefaultExclude(),
		Root:     ".",
		Workers:  DefaultWorkers(),
		Searcher: string(search.KindWalk),
		Output: OutputConfig{
			Format: "text",
			Color:  "auto",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// DefaultWorkers is the CPU count clamped to [1, 16].
func DefaultWorkers() int {
	workers := runtime.NumCPU()
	if workers > 16 {
		workers = 16
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}

// FromEnv returns the defaults with environment overrides applied, for runs
// without a configuration file.
func FromEnv() *Config {
	cfg := DefaultConfig()
	cfg.applyEnvOverrides()
	return cfg
}

// Load reads the YAML file at path over the defaults and applies
// environment overrides. A missing file is not an error. A relative root in
// the file is taken relative to the file's directory.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FromEnv(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if cfg.Root != "" && !filepath.IsAbs(cfg.Root) {
		cfg.Root = filepath.Join(filepath.Dir(path), cfg.Root)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append([]byte("# lockeye configuration\n"), data...)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies LOCKEYE_* variables and NO_COLOR.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("LOCKEYE_ANCHOR"); v != "" {
		c.Anchor = v
	}
	if v := os.Getenv("LOCKEYE_PATTERNS"); v != "" {
		c.Patterns = splitList(v)
	}
	if v := os.Getenv("LOCKEYE_EXCLUDE"); v != "" {
		c.Exclude = splitList(v)
	}
	if v := os.Getenv("LOCKEYE_ROOT"); v != "" {
		c.Root = v
	}
	if v := os.Getenv("LOCKEYE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		}
	}
	if v := os.Getenv("LOCKEYE_SEARCHER"); v != "" {
		c.Searcher = v
	}
	if v := os.Getenv("LOCKEYE_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	// https://no-color.org: any non-empty value disables colour.
	if os.Getenv("NO_COLOR") != "" {
		c.Output.Color = "never"
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints, pattern syntax, that the anchor yields
// an unambiguous directive grammar, and that the root is a directory.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, describe(fe))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if strings.ContainsFunc(c.Anchor, unicode.IsSpace) || strings.Contains(c.Anchor, ":") {
		return fmt.Errorf("invalid config: anchor %q must not contain whitespace or ':'", c.Anchor)
	}
	if _, err := directive.NewRegexParser(c.Anchor); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := search.ValidatePatterns(c.Patterns); err != nil {
		return fmt.Errorf("invalid config: patterns: %w", err)
	}
	if len(c.Exclude) > 0 {
		if err := search.ValidatePatterns(c.Exclude); err != nil {
			return fmt.Errorf("invalid config: exclude: %w", err)
		}
	}

	info, err := os.Stat(c.Root)
	if err != nil {
		return fmt.Errorf("invalid config: root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("invalid config: root %s is not a directory", c.Root)
	}

	return nil
}

// describe renders one validator failure using the YAML field path.
func describe(fe validator.FieldError) string {
	field := strings.ToLower(strings.TrimPrefix(fe.Namespace(), "Config."))
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", field, fe.Param(), fe.Value())
	case "min", "max":
		return fmt.Sprintf("%s must be %s %s, got %v", field, map[string]string{"min": ">=", "max": "<="}[fe.Tag()], fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
