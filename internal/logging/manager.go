package logging

import (
	"fmt"
	"sync"

	"careersync/internal/config"
	"careersync/internal/logging/types"
)

// Manager wires the application configuration to a MultiLogger
type Manager struct {
	factory *AdapterFactory
	logger  *MultiLogger
}

// NewManager creates a new logging manager
func NewManager() *Manager {
	return &Manager{
		factory: NewAdapterFactory(),
		logger:  NewMultiLogger(),
	}
}

// Initialize builds the logger from configuration. When no adapters are
// configured (or none are enabled) a stdout adapter is attached so the
// application always logs somewhere.
func (m *Manager) Initialize(cfg *config.Config) error {
	m.logger.SetLevel(ParseLogLevel(cfg.Logging.Level))

	enabled := 0
	for _, ac := range cfg.Logging.Adapters {
		if !ac.Enabled {
			continue
		}
		adapter, err := m.factory.CreateAdapter(types.AdapterConfig{
			Name:    ac.Name,
			Type:    ac.Type,
			Enabled: ac.Enabled,
			Options: ac.Options,
		})
		if err != nil {
			return fmt.Errorf("failed to create %s adapter %q: %w", ac.Type, ac.Name, err)
		}
		if err := m.logger.AddAdapter(adapter); err != nil {
			return fmt.Errorf("failed to register adapter %q: %w", ac.Name, err)
		}
		enabled++
	}

	if enabled == 0 {
		return m.initializeDefault(cfg.Logging.Format)
	}
	return nil
}

func (m *Manager) initializeDefault(format string) error {
	if format == "" {
		format = "json"
	}
	adapter, err := m.factory.CreateAdapter(types.AdapterConfig{
		Name:    "stdout",
		Type:    "stdout",
		Enabled: true,
		Options: map[string]interface{}{"format": format},
	})
	if err != nil {
		return fmt.Errorf("failed to create default stdout adapter: %w", err)
	}
	return m.logger.AddAdapter(adapter)
}

// GetLogger returns the managed logger
func (m *Manager) GetLogger() types.Logger {
	return m.logger
}

// Close closes the managed logger and all its adapters
func (m *Manager) Close() error {
	return m.logger.Close()
}

var (
	globalMu      sync.RWMutex
	globalManager *Manager
)

// InitializeLogging configures the process-wide logger from configuration
func InitializeLogging(cfg *config.Config) error {
	manager := NewManager()
	if err := manager.Initialize(cfg); err != nil {
		return err
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalManager != nil {
		globalManager.Close()
	}
	globalManager = manager
	return nil
}

// GetGlobalLogger returns the process-wide logger, creating a stdout JSON
// fallback when logging has not been initialized yet
func GetGlobalLogger() types.Logger {
	globalMu.RLock()
	if globalManager != nil {
		logger := globalManager.GetLogger()
		globalMu.RUnlock()
		return logger
	}
	globalMu.RUnlock()

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalManager == nil {
		manager := NewManager()
		if err := manager.initializeDefault("json"); err != nil {
			fmt.Printf("failed to initialize fallback logger: %v\n", err)
		}
		globalManager = manager
	}
	return globalManager.GetLogger()
}

// CloseLogging flushes and closes the process-wide logger
func CloseLogging() error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager == nil {
		return nil
	}
	err := globalManager.Close()
	globalManager = nil
	return err
}

// LogWithRequestID returns a logger that tags every entry with the request id
func LogWithRequestID(requestID string) types.Logger {
	return GetGlobalLogger().WithField("request_id", requestID)
}

// Package-level convenience helpers that use the global logger.

func Debug(message string, fields ...map[string]interface{}) {
	GetGlobalLogger().Debug(message, fields...)
}

func Info(message string, fields ...map[string]interface{}) {
	GetGlobalLogger().Info(message, fields...)
}

func Warn(message string, fields ...map[string]interface{}) {
	GetGlobalLogger().Warn(message, fields...)
}

func Error(message string, fields ...map[string]interface{}) {
	GetGlobalLogger().Error(message, fields...)
}

func Fatal(message string, fields ...map[string]interface{}) {
	GetGlobalLogger().Fatal(message, fields...)
}
