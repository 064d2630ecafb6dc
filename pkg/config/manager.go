package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/trailkeeper/trailkeeper/internal/utils"
)

type ConfigChangeType string

const (
	LogLevelChanged  ConfigChangeType = "log_level"
	IntervalsChanged ConfigChangeType = "intervals"
)

type ConfigChange struct {
	Type     ConfigChangeType
	OldValue interface{}
	NewValue interface{}
}

type ConfigChangeCallback func(change ConfigChange) error

type ConfigManager struct {
	config     *Config
	configPath string
	mu         sync.RWMutex
}

func NewConfigManager(configPath string, config *Config) *ConfigManager {
	return &ConfigManager{
		config:     config,
		configPath: configPath,
	}
}

// InitConfigManager reads the config at configPath, applies overrides and
// defaults, and returns a manager for it. A missing file means defaults.
func InitConfigManager(configPath string, overrides ...func(*Config)) (*ConfigManager, []string, error) {
	cfg, err := readAndReturnConfig(configPath)
	if errors.Is(err, os.ErrNotExist) {
		cfg = &Config{}
	} else if err != nil {
		return nil, nil, fmt.Errorf("failed to read config: %w", err)
	}

	for _, override := range overrides {
		override(cfg)
	}

	cfg, warnings, err := ValidateAndEnforceDefaults(cfg)
	if err != nil {
		return nil, warnings, fmt.Errorf("invalid config: %w", err)
	}

	return NewConfigManager(configPath, cfg), warnings, nil
}

func (cm *ConfigManager) With(mutators ...func(*Config)) *ConfigManager {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	for _, mutate := range mutators {
		mutate(cm.config)
	}
	return cm
}

// Writes the cm's config to disk
func (cm *ConfigManager) WriteConfig() error {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	data, err := json.MarshalIndent(cm.config, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return utils.WriteFileAtomic(cm.configPath, data)
}

func (cm *ConfigManager) ConfigPath() string {
	return cm.configPath
}

func (cm *ConfigManager) detectChanges(oldConfig *Config, newConfig *Config) []ConfigChange {
	var changes []ConfigChange

	if oldConfig.AppConfig.LogLevel != newConfig.AppConfig.LogLevel {
		changes = append(changes, ConfigChange{
			Type:     LogLevelChanged,
			OldValue: oldConfig.AppConfig.LogLevel,
			NewValue: newConfig.AppConfig.LogLevel,
		})
	}

	if oldConfig.AppConfig.SnapshotInterval != newConfig.AppConfig.SnapshotInterval {
		changes = append(changes, ConfigChange{
			Type:     IntervalsChanged,
			OldValue: oldConfig.AppConfig.SnapshotInterval,
			NewValue: newConfig.AppConfig.SnapshotInterval,
		})
	}

	return changes
}

// ReloadConfig re-reads the config file and returns what changed. Settings
// that need a restart (listen address, history size) are kept at their
// current values and reported as warnings.
func (cm *ConfigManager) ReloadConfig() ([]ConfigChange, []string, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	oldConfig := cm.config

	newConfig, err := readAndReturnConfig(cm.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read config from disk: %w", err)
	}

	validatedConfig, warnings, err := ValidateAndEnforceDefaults(newConfig)
	if err != nil {
		return nil, warnings, fmt.Errorf("failed to validate reloaded config: %w", err)
	}

	if validatedConfig.AppConfig.ListenAddress != oldConfig.AppConfig.ListenAddress {
		warnings = append(warnings, "listen_address change requires a restart, ignoring")
		validatedConfig.AppConfig.ListenAddress = oldConfig.AppConfig.ListenAddress
	}
	if validatedConfig.AppConfig.HistorySize != oldConfig.AppConfig.HistorySize {
		warnings = append(warnings, "history_size change requires a restart, ignoring")
		validatedConfig.AppConfig.HistorySize = oldConfig.AppConfig.HistorySize
	}
	// Flags and env vars decide output format for the process lifetime.
	validatedConfig.AppConfig.JSONLogging = oldConfig.AppConfig.JSONLogging

	changes := cm.detectChanges(oldConfig, validatedConfig)

	cm.config = validatedConfig

	return changes, warnings, nil
}

// Reads the config at the given path and returns the parsed Config.
func readAndReturnConfig(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "{}" {
		return nil, os.ErrNotExist
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
