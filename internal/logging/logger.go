// Package logging provides categorized, file-backed logging for shire.
//
// Each category writes to its own file under <repoRoot>/.shire/logs/, gated
// by the [logging] table in shire.toml. When debug mode is off, Get returns
// a no-op logger so call sites never need to check a global flag themselves.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	charmlog "github.com/charmbracelet/log"
)

// Category identifies a logging subsystem within shire.
type Category string

const (
	CategoryDiscovery Category = "discovery"
	CategoryParse     Category = "parse"
	CategorySymbols   Category = "symbols"
	CategoryHash      Category = "hash"
	CategoryBuild     Category = "build"
	CategoryStore     Category = "store"
	CategoryQuery     Category = "query"
	CategoryMCP       Category = "mcp"
	CategoryWatch     Category = "watch"
	CategoryBoot      Category = "boot"
)

// Level mirrors the four levels shire.toml's [logging] level field accepts.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Config drives which categories log and at what level. It is populated
// from shire.toml's [logging] table by internal/config.
type Config struct {
	DebugMode  bool
	Level      string
	Categories map[string]bool
	JSONFormat bool
}

var (
	mu         sync.RWMutex
	cfg        Config
	logLevel   = LevelInfo
	logsDir    string
	loggers    = map[Category]*Logger{}
	loggersMu  sync.Mutex
	configured bool
)

// Logger writes timestamped lines for one category. A zero-value Logger
// (as returned when a category is disabled) discards everything.
type Logger struct {
	category Category
	inner    *charmlog.Logger
	file     *os.File
}

// Init wires logging to repoRoot/.shire/logs and applies c. Safe to call
// multiple times; the most recent call wins.
func Init(repoRoot string, c Config) error {
	mu.Lock()
	cfg = c
	switch c.Level {
	case "debug":
		logLevel = LevelDebug
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}
	configured = true
	mu.Unlock()

	if !c.DebugMode {
		return nil
	}

	logsDir = filepath.Join(repoRoot, ".shire", "logs")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return fmt.Errorf("logging: create log dir: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("shire logging initialized", "root", repoRoot, "level", c.Level)
	return nil
}

func categoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	if !cfg.DebugMode {
		return false
	}
	if cfg.Categories == nil {
		return true
	}
	enabled, ok := cfg.Categories[string(category)]
	if !ok {
		return true
	}
	return enabled
}

// Get returns the logger for category, creating its backing file on first
// use. Returns a discarding logger if logging is disabled for category.
func Get(category Category) *Logger {
	if !categoryEnabled(category) || logsDir == "" {
		return &Logger{category: category}
	}

	loggersMu.Lock()
	defer loggersMu.Unlock()

	if l, ok := loggers[category]; ok {
		return l
	}

	path := filepath.Join(logsDir, string(category)+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: open %s: %v\n", path, err)
		return &Logger{category: category}
	}

	inner := charmlog.NewWithOptions(f, charmlog.Options{
		ReportTimestamp: true,
		Prefix:          string(category),
	})
	mu.RLock()
	if cfg.JSONFormat {
		inner.SetFormatter(charmlog.JSONFormatter)
	}
	mu.RUnlock()

	l := &Logger{category: category, inner: inner, file: f}
	loggers[category] = l
	return l
}

func (l *Logger) levelEnabled(min Level) bool {
	return l.inner != nil && logLevel <= min
}

func (l *Logger) Debug(msg string, kv ...interface{}) {
	if l.levelEnabled(LevelDebug) {
		l.inner.Debug(msg, kv...)
	}
}

func (l *Logger) Info(msg string, kv ...interface{}) {
	if l.levelEnabled(LevelInfo) {
		l.inner.Info(msg, kv...)
	}
}

func (l *Logger) Warn(msg string, kv ...interface{}) {
	if l.levelEnabled(LevelWarn) {
		l.inner.Warn(msg, kv...)
	}
}

func (l *Logger) Error(msg string, kv ...interface{}) {
	if l.levelEnabled(LevelError) {
		l.inner.Error(msg, kv...)
	}
}

// Close flushes and closes every opened log file. Call during shutdown.
func Close() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	for cat, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
		delete(loggers, cat)
	}
}

// IsDebugMode reports whether logging is currently enabled at all.
func IsDebugMode() bool {
	mu.RLock()
	defer mu.RUnlock()
	return cfg.DebugMode
}
