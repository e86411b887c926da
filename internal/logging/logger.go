package logging

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"careersync/internal/logging/types"
)

// MultiLogger fans log entries out to a set of named adapters
type MultiLogger struct {
	adapters map[string]types.LogAdapter
	level    types.LogLevel
	context  context.Context
	fields   map[string]interface{}
	mu       sync.RWMutex
}

// NewMultiLogger creates a logger with no adapters attached
func NewMultiLogger() *MultiLogger {
	return &MultiLogger{
		adapters: make(map[string]types.LogAdapter),
		level:    types.InfoLevel,
		fields:   make(map[string]interface{}),
	}
}

// Debug logs a debug message
func (l *MultiLogger) Debug(message string, fields ...map[string]interface{}) {
	l.Log(types.DebugLevel, message, fields...)
}

// Info logs an info message
func (l *MultiLogger) Info(message string, fields ...map[string]interface{}) {
	l.Log(types.InfoLevel, message, fields...)
}

// Warn logs a warning message
func (l *MultiLogger) Warn(message string, fields ...map[string]interface{}) {
	l.Log(types.WarnLevel, message, fields...)
}

// Error logs an error message
func (l *MultiLogger) Error(message string, fields ...map[string]interface{}) {
	l.Log(types.ErrorLevel, message, fields...)
}

// Fatal logs a fatal message, closes all adapters and exits
func (l *MultiLogger) Fatal(message string, fields ...map[string]interface{}) {
	l.Log(types.FatalLevel, message, fields...)
	l.Close()
	os.Exit(1)
}

// Log writes an entry to every registered adapter. Adapter failures are
// reported on stderr so one broken destination never drops the others.
func (l *MultiLogger) Log(level types.LogLevel, message string, fields ...map[string]interface{}) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if level < l.level {
		return
	}

	entry := &types.LogEntry{
		Level:     level,
		Message:   message,
		Timestamp: time.Now(),
		Fields:    l.mergeFields(fields...),
		Context:   l.context,
	}

	for _, adapter := range l.adapters {
		if err := adapter.Write(entry); err != nil {
			fmt.Fprintf(os.Stderr, "log adapter %s write failed: %v\n", adapter.Name(), err)
		}
	}
}

// WithContext returns a logger that carries the given context on every entry
func (l *MultiLogger) WithContext(ctx context.Context) types.Logger {
	clone := l.clone()
	clone.context = ctx
	return clone
}

// WithField returns a logger that adds the field to every entry
func (l *MultiLogger) WithField(key string, value interface{}) types.Logger {
	clone := l.clone()
	clone.fields[key] = value
	return clone
}

// WithFields returns a logger that adds the fields to every entry
func (l *MultiLogger) WithFields(fields map[string]interface{}) types.Logger {
	clone := l.clone()
	for k, v := range fields {
		clone.fields[k] = v
	}
	return clone
}

// SetLevel sets the minimum level that will be written
func (l *MultiLogger) SetLevel(level types.LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the minimum level that will be written
func (l *MultiLogger) GetLevel() types.LogLevel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

// AddAdapter registers an adapter under its name
func (l *MultiLogger) AddAdapter(adapter types.LogAdapter) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	name := adapter.Name()
	if _, exists := l.adapters[name]; exists {
		return fmt.Errorf("adapter %s is already registered", name)
	}
	l.adapters[name] = adapter
	return nil
}

// RemoveAdapter closes and unregisters the named adapter
func (l *MultiLogger) RemoveAdapter(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	adapter, exists := l.adapters[name]
	if !exists {
		return fmt.Errorf("adapter %s is not registered", name)
	}
	delete(l.adapters, name)
	return adapter.Close()
}

// Close closes every registered adapter
func (l *MultiLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for name, adapter := range l.adapters {
		if err := adapter.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close adapter %s: %w", name, err)
		}
	}
	l.adapters = make(map[string]types.LogAdapter)
	return firstErr
}

// clone copies the logger's context and fields while sharing its adapters
func (l *MultiLogger) clone() *MultiLogger {
	l.mu.RLock()
	defer l.mu.RUnlock()

	fields := make(map[string]interface{}, len(l.fields))
	for k, v := range l.fields {
		fields[k] = v
	}

	return &MultiLogger{
		adapters: l.adapters,
		level:    l.level,
		context:  l.context,
		fields:   fields,
	}
}

// mergeFields combines the logger's bound fields with per-call fields
func (l *MultiLogger) mergeFields(fields ...map[string]interface{}) map[string]interface{} {
	if len(l.fields) == 0 && len(fields) == 0 {
		return nil
	}

	merged := make(map[string]interface{}, len(l.fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for _, m := range fields {
		for k, v := range m {
			merged[k] = v
		}
	}
	return merged
}

// ParseLogLevel maps a configuration string onto a LogLevel, defaulting to info
func ParseLogLevel(level string) types.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return types.DebugLevel
	case "info":
		return types.InfoLevel
	case "warn", "warning":
		return types.WarnLevel
	case "error":
		return types.ErrorLevel
	case "fatal":
		return types.FatalLevel
	default:
		return types.InfoLevel
	}
}
