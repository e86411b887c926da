package logging

import (
	"fmt"
	"os"
	"strings"
	"time"

	"careersync/internal/logging/adapters"
	"careersync/internal/logging/types"
)

// AdapterFactory builds log adapters from configuration blocks
type AdapterFactory struct{}

// NewAdapterFactory creates a new adapter factory
func NewAdapterFactory() *AdapterFactory {
	return &AdapterFactory{}
}

// CreateAdapter builds a single adapter from its configuration
func (f *AdapterFactory) CreateAdapter(cfg types.AdapterConfig) (types.LogAdapter, error) {
	switch strings.ToLower(cfg.Type) {
	case "stdout":
		return f.createStdoutAdapter(cfg)
	case "file":
		return f.createFileAdapter(cfg)
	case "betterstack":
		return f.createBetterstackAdapter(cfg)
	default:
		return nil, fmt.Errorf("unknown adapter type: %s", cfg.Type)
	}
}

func (f *AdapterFactory) createStdoutAdapter(cfg types.AdapterConfig) (types.LogAdapter, error) {
	config := adapters.StdoutConfig{
		Format:    getStringOption(cfg.Options, "format", "json"),
		Colorized: getBoolOption(cfg.Options, "colorized", false),
	}
	return adapters.NewStdoutAdapter(cfg.Name, config), nil
}

func (f *AdapterFactory) createFileAdapter(cfg types.AdapterConfig) (types.LogAdapter, error) {
	filePath := getStringOption(cfg.Options, "file_path", "")
	if filePath == "" {
		return nil, fmt.Errorf("file adapter %s requires a file_path option", cfg.Name)
	}

	config := adapters.FileConfig{
		FilePath:       filePath,
		Format:         getStringOption(cfg.Options, "format", "json"),
		MaxSize:        getInt64Option(cfg.Options, "max_size", 0),
		MaxAge:         getDurationOption(cfg.Options, "max_age", 0),
		MaxBackups:     getIntOption(cfg.Options, "max_backups", 10),
		Compress:       getBoolOption(cfg.Options, "compress", false),
		CreateDirs:     getBoolOption(cfg.Options, "create_dirs", true),
		FileMode:       os.FileMode(getIntOption(cfg.Options, "file_mode", 0644)),
		SyncOnWrite:    getBoolOption(cfg.Options, "sync_on_write", false),
		RotationPolicy: getStringOption(cfg.Options, "rotation_policy", "size"),
	}
	return adapters.NewFileAdapter(cfg.Name, config)
}

func (f *AdapterFactory) createBetterstackAdapter(cfg types.AdapterConfig) (types.LogAdapter, error) {
	token := getStringOption(cfg.Options, "source_token", "")
	if token == "" {
		return nil, fmt.Errorf("betterstack adapter %s requires a source_token option", cfg.Name)
	}

	config := adapters.BetterstackConfig{
		SourceToken:   token,
		Endpoint:      getStringOption(cfg.Options, "endpoint", ""),
		BatchSize:     getIntOption(cfg.Options, "batch_size", 0),
		FlushInterval: getDurationOption(cfg.Options, "flush_interval", 0),
		MaxRetries:    getIntOption(cfg.Options, "max_retries", 0),
		Timeout:       getDurationOption(cfg.Options, "timeout", 0),
		UserAgent:     getStringOption(cfg.Options, "user_agent", ""),
	}
	return adapters.NewBetterstackAdapter(cfg.Name, config)
}

// Option helpers. Values arrive as interface{} from YAML so each helper
// tolerates the decodings yaml.v3 actually produces.

func getStringOption(options map[string]interface{}, key, defaultValue string) string {
	if v, ok := options[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return defaultValue
}

func getIntOption(options map[string]interface{}, key string, defaultValue int) int {
	if v, ok := options[key]; ok {
		switch val := v.(type) {
		case int:
			return val
		case int64:
			return int(val)
		case float64:
			return int(val)
		}
	}
	return defaultValue
}

func getInt64Option(options map[string]interface{}, key string, defaultValue int64) int64 {
	if v, ok := options[key]; ok {
		switch val := v.(type) {
		case int:
			return int64(val)
		case int64:
			return val
		case float64:
			return int64(val)
		}
	}
	return defaultValue
}

func getBoolOption(options map[string]interface{}, key string, defaultValue bool) bool {
	if v, ok := options[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return defaultValue
}

func getDurationOption(options map[string]interface{}, key string, defaultValue time.Duration) time.Duration {
	if v, ok := options[key]; ok {
		switch val := v.(type) {
		case string:
			if d, err := time.ParseDuration(val); err == nil {
				return d
			}
		case int:
			return time.Duration(val) * time.Second
		case int64:
			return time.Duration(val) * time.Second
		case time.Duration:
			return val
		}
	}
	return defaultValue
}
