// Package logx provides leveled printf-style logging with per-component
// prefixes and env-driven debug filtering.
package logx

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Logger writes timestamped log lines tagged with a component name.
type Logger struct {
	component string
}

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// DebugConfig controls which components emit debug lines.
type DebugConfig struct {
	Enabled bool
	Domains map[string]bool // nil means every component
}

var (
	debugConfig = &DebugConfig{}
	debugMutex  sync.RWMutex

	// logWriter overrides the destination when non-nil (tests). Default is stderr.
	logWriter     io.Writer
	logWriterLock sync.Mutex
)

func init() { //nolint:gochecknoinits // Required for env var initialization
	initDebugFromEnv()
}

// initDebugFromEnv reads DEBUG and DEBUG_DOMAINS.
//
//	DEBUG=1                          # Enable debug for all components
//	DEBUG=1 DEBUG_DOMAINS=tracker    # Enable debug only for the tracker client
//	DEBUG=1 DEBUG_DOMAINS=agent,bot  # Enable debug for several components
func initDebugFromEnv() {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	v := os.Getenv("DEBUG")
	debugConfig.Enabled = v == "1" || strings.EqualFold(v, "true")

	if csv := os.Getenv("DEBUG_DOMAINS"); csv != "" {
		debugConfig.Domains = domainSet(strings.Split(csv, ","))
	}
}

func domainSet(domains []string) map[string]bool {
	if len(domains) == 0 {
		return nil
	}
	set := make(map[string]bool, len(domains))
	for _, d := range domains {
		set[strings.TrimSpace(d)] = true
	}
	return set
}

// NewLogger creates a logger for the named component ("bot", "tracker", ...).
func NewLogger(component string) *Logger {
	return &Logger{component: component}
}

// SetDebug configures debug logging programmatically, overriding the env.
func SetDebug(enabled bool, domains []string) {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	debugConfig.Enabled = enabled
	debugConfig.Domains = domainSet(domains)
}

// IsDebugEnabled returns whether debug logging is enabled at all.
func IsDebugEnabled() bool {
	debugMutex.RLock()
	defer debugMutex.RUnlock()
	return debugConfig.Enabled
}

func debugEnabledFor(component string) bool {
	debugMutex.RLock()
	defer debugMutex.RUnlock()

	switch {
	case !debugConfig.Enabled:
		return false
	case debugConfig.Domains == nil:
		return true
	}
	return debugConfig.Domains[component]
}

func (l *Logger) log(level Level, format string, args ...any) {
	ts := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	line := fmt.Sprintf("[%s] [%s] %s: %s\n", ts, l.component, level, fmt.Sprintf(format, args...))

	logWriterLock.Lock()
	w := logWriter
	if w == nil {
		w = os.Stderr
	}
	_, _ = io.WriteString(w, line)
	logWriterLock.Unlock()
}

// Debug logs at DEBUG level, subject to the debug domain filter.
func (l *Logger) Debug(format string, args ...any) {
	if !debugEnabledFor(l.component) {
		return
	}
	l.log(LevelDebug, format, args...)
}

// Info logs at INFO level.
func (l *Logger) Info(format string, args ...any) {
	l.log(LevelInfo, format, args...)
}

// Warn logs at WARN level.
func (l *Logger) Warn(format string, args ...any) {
	l.log(LevelWarn, format, args...)
}

// Error logs at ERROR level.
func (l *Logger) Error(format string, args ...any) {
	l.log(LevelError, format, args...)
}

// GetComponent returns the component name this logger tags lines with.
func (l *Logger) GetComponent() string {
	return l.component
}

// WithComponent returns a logger for a sub-component.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{component: component}
}

// Package-level convenience logger.
var defaultLogger = NewLogger("tai")

// Debugf logs debug output through the default logger.
func Debugf(format string, args ...any) {
	defaultLogger.Debug(format, args...)
}

// Infof logs through the default logger.
func Infof(format string, args ...any) {
	defaultLogger.Info(format, args...)
}

// Warnf logs a warning through the default logger.
func Warnf(format string, args ...any) {
	defaultLogger.Warn(format, args...)
}

// Errorf builds an error, logs it at ERROR level, and returns it, so call
// sites can log and propagate in one step:
//
//	err := logx.Errorf("setup failed: %w", err)
func Errorf(format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	defaultLogger.Error("%s", err.Error())
	return err
}

// Wrap logs the annotated error and returns it wrapped with %w. A nil err
// passes through untouched.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	wrapped := fmt.Errorf("%s: %w", msg, err)
	defaultLogger.Error("%s", wrapped.Error())
	return wrapped
}
