// Package logging provides config-driven categorized file logging for overseer.
// Logs are written to <state dir>/logs/ with a separate file per category.
// When debug mode is disabled every logger is a silent no-op, so hot paths
// can log unconditionally.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Category identifies the subsystem a log line belongs to.
type Category string

const (
	CategoryBoot       Category = "boot"       // startup, config loading
	CategoryPolicy     Category = "policy"     // directive gate decisions
	CategoryDecision   Category = "decision"   // classifier + verdict framework
	CategoryDiagnostic Category = "diagnostic" // cycle engine, checks, corrections
	CategoryOversight  Category = "oversight"  // 7-day map, daily reports
	CategoryStore      Category = "store"      // repository + archive
	CategoryAuthority  Category = "authority"  // rejected privileged operations
)

// Level values, ordered by severity.
const (
	LevelDebug = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Logger writes category-tagged lines to its own file. A Logger with a nil
// inner logger is a no-op.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	mu       sync.RWMutex
	loggers  = map[Category]*Logger{}
	logsDir  string
	enabled  bool
	minLevel = LevelInfo
)

// Initialize points the logging system at a state directory. Logging stays
// disabled until Enable is called (or Initialize is called with debug=true),
// matching production default of no log files.
func Initialize(stateDir string, debug bool, level string) error {
	if stateDir == "" {
		return fmt.Errorf("state directory required")
	}

	mu.Lock()
	defer mu.Unlock()

	logsDir = filepath.Join(stateDir, "logs")
	enabled = debug
	minLevel = parseLevel(level)
	loggers = map[Category]*Logger{}

	if !enabled {
		return nil
	}
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}
	return nil
}

// Enabled reports whether log files are being written.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// Get returns (or creates) the logger for a category. Safe to call before
// Initialize; the result is then a no-op logger.
func Get(category Category) *Logger {
	mu.RLock()
	if !enabled || logsDir == "" {
		mu.RUnlock()
		return &Logger{category: category}
	}
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	path := filepath.Join(logsDir, string(category)+".log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return &Logger{category: category}
	}
	l := &Logger{
		category: category,
		logger:   log.New(file, "", log.LstdFlags|log.Lmicroseconds),
		file:     file,
	}
	loggers[category] = l
	return l
}

// Close flushes and closes all open log files.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	for _, l := range loggers {
		if l.file != nil {
			_ = l.file.Sync()
			_ = l.file.Close()
		}
	}
	loggers = map[Category]*Logger{}
}

func (l *Logger) Debug(format string, args ...interface{}) { l.write(LevelDebug, "DEBUG", format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.write(LevelInfo, "INFO", format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.write(LevelWarn, "WARN", format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.write(LevelError, "ERROR", format, args...) }

func (l *Logger) write(level int, tag, format string, args ...interface{}) {
	if l == nil || l.logger == nil {
		return
	}
	mu.RLock()
	min := minLevel
	mu.RUnlock()
	if level < min {
		return
	}
	l.logger.Printf("[%s] %s", tag, fmt.Sprintf(format, args...))
}

func parseLevel(level string) int {
	switch level {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Convenience helpers for the chattiest categories.

// Policy logs to the policy gate category.
func Policy(format string, args ...interface{}) { Get(CategoryPolicy).Info(format, args...) }

// Diagnostic logs to the cycle engine category.
func Diagnostic(format string, args ...interface{}) { Get(CategoryDiagnostic).Info(format, args...) }

// Oversight logs to the oversight map category.
func Oversight(format string, args ...interface{}) { Get(CategoryOversight).Info(format, args...) }
