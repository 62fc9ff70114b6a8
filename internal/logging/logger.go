// Package logging provides categorized file-based logging for cartograph.
// Logs are written to <workspace>/.cartograph/logs/ with one file per
// category. When no workspace is configured the package is a silent no-op.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category represents a log category/subsystem.
type Category string

const (
	CategoryBoot    Category = "boot"    // Startup and configuration
	CategorySession Category = "session" // Session lifecycle
	CategoryBrowser Category = "browser" // Browser driver, CDP traffic
	CategoryObserve Category = "observe" // Snapshot, fingerprint, frontier updates
	CategoryDecide  Category = "decide"  // Action selection, LLM calls
	CategoryExecute Category = "execute" // Action execution, transitions
	CategoryPersist Category = "persist" // Graph writes
	CategoryGraph   Category = "graph"   // Graph store internals
	CategoryLLM     Category = "llm"     // Provider requests and responses
	CategoryUsage   Category = "usage"   // Token accounting
)

// Log levels.
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Logger wraps a standard logger with category and file output.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	logsDir   string
	logLevel  = LevelInfo
	enabled   bool
)

// Initialize sets up the logging directory. level is one of
// debug/info/warn/error; an empty workspace disables file logging entirely.
func Initialize(workspace, level string) error {
	switch level {
	case "debug":
		logLevel = LevelDebug
	case "info", "":
		logLevel = LevelInfo
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		return fmt.Errorf("unknown log level: %s", level)
	}

	if workspace == "" {
		enabled = false
		return nil
	}

	logsDir = filepath.Join(workspace, ".cartograph", "logs")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}
	enabled = true

	boot := Get(CategoryBoot)
	boot.Info("=== cartograph logging initialized ===")
	boot.Info("Logs directory: %s", logsDir)
	boot.Info("Log level: %s", level)
	return nil
}

// Get returns (or creates) a logger for the given category. Returns a no-op
// logger when logging is disabled.
func Get(category Category) *Logger {
	if !enabled || logsDir == "" {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	if l, ok := loggers[category]; ok {
		return l
	}

	// Date prefix keeps rotation trivial.
	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(logsDir, fmt.Sprintf("%s_%s.log", date, category))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not open log file %s: %v\n", logPath, err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l
	return l
}

// Debug logs a debug message (only if level <= debug).
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelDebug {
		return
	}
	l.logger.Printf("[DEBUG] %s", fmt.Sprintf(format, args...))
}

// Info logs an informational message (only if level <= info).
func (l *Logger) Info(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelInfo {
		return
	}
	l.logger.Printf("[INFO] %s", fmt.Sprintf(format, args...))
}

// Warn logs a warning message (only if level <= warn).
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelWarn {
		return
	}
	l.logger.Printf("[WARN] %s", fmt.Sprintf(format, args...))
}

// Error logs an error message (always logged if logger exists).
func (l *Logger) Error(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.Printf("[ERROR] %s", fmt.Sprintf(format, args...))
}

// CloseAll closes all open log files (call at shutdown).
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// =============================================================================

// Boot logs to the boot category.
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// Session logs to the session category.
func Session(format string, args ...interface{}) {
	Get(CategorySession).Info(format, args...)
}

// SessionError logs error to the session category.
func SessionError(format string, args ...interface{}) {
	Get(CategorySession).Error(format, args...)
}

// Browser logs to the browser category.
func Browser(format string, args ...interface{}) {
	Get(CategoryBrowser).Info(format, args...)
}

// BrowserDebug logs debug to the browser category.
func BrowserDebug(format string, args ...interface{}) {
	Get(CategoryBrowser).Debug(format, args...)
}

// BrowserWarn logs warning to the browser category.
func BrowserWarn(format string, args ...interface{}) {
	Get(CategoryBrowser).Warn(format, args...)
}

// BrowserError logs error to the browser category.
func BrowserError(format string, args ...interface{}) {
	Get(CategoryBrowser).Error(format, args...)
}

// Observe logs to the observe category.
func Observe(format string, args ...interface{}) {
	Get(CategoryObserve).Info(format, args...)
}

// ObserveDebug logs debug to the observe category.
func ObserveDebug(format string, args ...interface{}) {
	Get(CategoryObserve).Debug(format, args...)
}

// ObserveWarn logs warning to the observe category.
func ObserveWarn(format string, args ...interface{}) {
	Get(CategoryObserve).Warn(format, args...)
}

// Decide logs to the decide category.
func Decide(format string, args ...interface{}) {
	Get(CategoryDecide).Info(format, args...)
}

// DecideDebug logs debug to the decide category.
func DecideDebug(format string, args ...interface{}) {
	Get(CategoryDecide).Debug(format, args...)
}

// Execute logs to the execute category.
func Execute(format string, args ...interface{}) {
	Get(CategoryExecute).Info(format, args...)
}

// ExecuteWarn logs warning to the execute category.
func ExecuteWarn(format string, args ...interface{}) {
	Get(CategoryExecute).Warn(format, args...)
}

// Persist logs to the persist category.
func Persist(format string, args ...interface{}) {
	Get(CategoryPersist).Info(format, args...)
}

// PersistError logs error to the persist category.
func PersistError(format string, args ...interface{}) {
	Get(CategoryPersist).Error(format, args...)
}

// GraphDebug logs debug to the graph category.
func GraphDebug(format string, args ...interface{}) {
	Get(CategoryGraph).Debug(format, args...)
}

// LLM logs to the llm category.
func LLM(format string, args ...interface{}) {
	Get(CategoryLLM).Info(format, args...)
}

// LLMError logs error to the llm category.
func LLMError(format string, args ...interface{}) {
	Get(CategoryLLM).Error(format, args...)
}

// Usage logs to the usage category.
func Usage(format string, args ...interface{}) {
	Get(CategoryUsage).Info(format, args...)
}

// =============================================================================
// TIMING HELPERS
// =============================================================================

// Timer helps measure operation duration.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}
