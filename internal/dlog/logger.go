// Package dlog provides config-driven, categorized, file-based logging for
// dlsql, adapted from the codeNERD internal/logging package down to the
// categories the evaluator actually emits: schema construction, fact
// loading, rule compilation, fixpoint iteration boundaries, and model
// extraction. Logging is opt-in — when disabled (the default), every call
// is a cheap no-op — and it never logs the SQL text the compiler emits;
// that stays the job of an external collaborator per the core's stated
// Non-goals.
package dlog

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category names one of the evaluator's logging streams. Each gets its own
// file under the configured log directory.
type Category string

const (
	CategorySchema   Category = "schema"
	CategoryLoad     Category = "load"
	CategoryCompile  Category = "compile"
	CategoryFixpoint Category = "fixpoint"
	CategoryModel    Category = "model"
)

// Logger writes timestamped lines to one category's log file.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	logsDir   string
	enabled   bool
	enabledMu sync.RWMutex
)

// Initialize sets the directory logs are written under and creates it if
// necessary. It does not itself enable logging; call Enable(true) (or set
// DLSQL_DEBUG=1 before Initialize) to turn logging on.
func Initialize(dir string) error {
	if dir == "" {
		return fmt.Errorf("dlog: log directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("dlog: create log directory: %w", err)
	}
	logsDir = dir
	if os.Getenv("DLSQL_DEBUG") != "" {
		Enable(true)
	}
	return nil
}

// Enable turns logging on or off process-wide. Disabled loggers perform no
// I/O.
func Enable(v bool) {
	enabledMu.Lock()
	defer enabledMu.Unlock()
	enabled = v
}

func isEnabled() bool {
	enabledMu.RLock()
	defer enabledMu.RUnlock()
	return enabled
}

// Get returns (creating if necessary) the Logger for category cat. The
// logger is safe to retain and reuse; it lazily opens its backing file on
// first use after logging has been enabled.
func Get(cat Category) *Logger {
	loggersMu.RLock()
	l, ok := loggers[cat]
	loggersMu.RUnlock()
	if ok {
		return l
	}

	loggersMu.Lock()
	defer loggersMu.Unlock()
	if l, ok := loggers[cat]; ok {
		return l
	}
	l = &Logger{category: cat}
	loggers[cat] = l
	return l
}

func (l *Logger) ensureOpen() {
	if l.file != nil || !isEnabled() || logsDir == "" {
		return
	}
	path := filepath.Join(logsDir, string(l.category)+".log")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	l.file = f
	l.logger = log.New(f, "", log.LstdFlags|log.Lmicroseconds)
}

func (l *Logger) printf(level string, format string, args ...any) {
	if !isEnabled() {
		return
	}
	l.ensureOpen()
	if l.logger == nil {
		return
	}
	l.logger.Printf("[%s] %s", level, fmt.Sprintf(format, args...))
}

// Infof logs an informational line in category l.
func (l *Logger) Infof(format string, args ...any) { l.printf("INFO", format, args...) }

// Debugf logs a debug line in category l.
func (l *Logger) Debugf(format string, args ...any) { l.printf("DEBUG", format, args...) }

// Warnf logs a warning line in category l.
func (l *Logger) Warnf(format string, args ...any) { l.printf("WARN", format, args...) }

// CloseAll closes every open category log file. Safe to call even if
// logging was never enabled.
func CloseAll() error {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	var firstErr error
	for _, l := range loggers {
		if l.file == nil {
			continue
		}
		if err := l.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		l.file = nil
		l.logger = nil
	}
	return firstErr
}

// Timer measures and logs the duration of an operation when Stop is called.
type Timer struct {
	logger *Logger
	op     string
	start  time.Time
}

// StartTimer begins timing op in category cat. Call Stop (typically via
// defer) to log the elapsed duration.
func StartTimer(cat Category, op string) *Timer {
	return &Timer{logger: Get(cat), op: op, start: time.Now()}
}

// Stop logs the elapsed time since StartTimer was called.
func (t *Timer) Stop() {
	t.logger.Debugf("%s took %s", t.op, time.Since(t.start))
}
