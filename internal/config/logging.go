package config

import "strings"

// LoggingConfig configures logging. Reports always go to stdout; log lines
// go to stderr.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"` // debug, info, warn, error
	Format string `yaml:"format" validate:"oneof=console json"`         // console, json
}

// IsDebug reports whether debug logging is enabled.
func (c *LoggingConfig) IsDebug() bool {
	return strings.EqualFold(strings.TrimSpace(c.Level), "debug")
}
