package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config captures options for configuring the global logger
type Config struct {
	Level   string    // "debug", "info", "warn", "error"; empty reads VIDGEN_LOG_LEVEL
	Format  string    // "json" or "console" (default)
	Output  io.Writer // defaults to os.Stderr so stdout stays free for command output
	Service string    // attached to every entry, defaults to "vidgen"
	File    string    // optional log file, written in addition to Output
}

var (
	mu      sync.Mutex
	base    = zerolog.New(os.Stderr).With().Timestamp().Logger()
	logFile *os.File
)

// Configure replaces the global logger. It may be called again, e.g. once
// flags have been parsed.
func Configure(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	levelName := cfg.Level
	if levelName == "" {
		levelName = os.Getenv("VIDGEN_LOG_LEVEL")
	}
	zerolog.SetGlobalLevel(ParseLevel(levelName))
	zerolog.TimeFieldFormat = time.RFC3339

	writer := cfg.Output
	if writer == nil {
		writer = os.Stderr
	}
	if !strings.EqualFold(cfg.Format, "json") {
		writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: "2006-01-02 15:04:05"}
	}

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	if cfg.File != "" {
		f, err := openLogFile(cfg.File)
		if err != nil {
			return err
		}
		logFile = f
		// The file always gets JSON lines
		writer = zerolog.MultiLevelWriter(writer, f)
	}

	service := cfg.Service
	if service == "" {
		service = "vidgen"
	}

	base = zerolog.New(writer).With().
		Timestamp().
		Str("service", service).
		Logger()
	return nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return f, nil
}

// Base returns the configured base logger
func Base() zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return base
}

// WithComponent returns a child logger annotated with the given component name
func WithComponent(component string) zerolog.Logger {
	return Base().With().Str("component", component).Logger()
}

// ParseLevel parses a log level string, defaulting to info
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Close closes the log file if one was opened
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}
