// Package logging adapts zerolog to the field-map Logger interface used by
// the rest packages.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// FormatJSON writes one JSON object per line.
	FormatJSON = "json"
	// FormatConsole writes human readable lines.
	FormatConsole = "console"
)

// Config contains logging configuration.
type Config struct {
	Level     string `yaml:"level" mapstructure:"level"`
	Format    string `yaml:"format" mapstructure:"format"`
	NoColor   bool   `yaml:"no_color" mapstructure:"no_color"`
	Timestamp bool   `yaml:"timestamp" mapstructure:"timestamp"`
}

// ApplyDefaults applies default values to logging configuration.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}

	if c.Format == "" {
		c.Format = FormatConsole
	}
}

// Logger wraps zerolog.Logger.
type Logger struct {
	logger zerolog.Logger
}

// New creates a logger writing to output, stderr when nil.
func New(cfg Config, output io.Writer) *Logger {
	cfg.ApplyDefaults()

	if output == nil {
		output = os.Stderr
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	if strings.EqualFold(cfg.Format, FormatConsole) {
		output = zerolog.ConsoleWriter{
			Out:        output,
			NoColor:    cfg.NoColor,
			TimeFormat: time.Kitchen,
		}
	}

	zl := zerolog.New(output).Level(level)
	if cfg.Timestamp {
		zl = zl.With().Timestamp().Logger()
	}

	return &Logger{logger: zl}
}

// WithComponent returns a logger tagged with a component name.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{logger: l.logger.With().Str("component", name).Logger()}
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields map[string]interface{}) {
	l.logger.Debug().Fields(fields).Msg(msg)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields map[string]interface{}) {
	l.logger.Info().Fields(fields).Msg(msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields map[string]interface{}) {
	l.logger.Warn().Fields(fields).Msg(msg)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields map[string]interface{}) {
	l.logger.Error().Fields(fields).Msg(msg)
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{logger: zerolog.Nop()}
}
