package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

var validLogLevels = map[string]bool{
	zerolog.LevelDebugValue: true,
	zerolog.LevelInfoValue:  true,
	zerolog.LevelWarnValue:  true,
	zerolog.LevelErrorValue: true,
	zerolog.LevelFatalValue: true,
	zerolog.LevelPanicValue: true,
}

// ValidateAndEnforceDefaults fills missing values with defaults and replaces
// invalid ones, reporting each replacement as a warning. It returns an error
// only for values that cannot be defaulted.
func ValidateAndEnforceDefaults(config *Config) (*Config, []string, error) {
	var warnings []string

	if config == nil {
		warnings = append(warnings, "nil config provided, using defaults")
		config = &Config{}
	}

	if config.AppConfig.LogLevel == "" {
		config.AppConfig.LogLevel = DefaultLogLevel
	} else if !validLogLevels[strings.ToLower(config.AppConfig.LogLevel)] {
		warnings = append(warnings, fmt.Sprintf(
			"invalid log_level '%s' provided. Valid options are: info, debug, panic, error, warn, fatal. Defaulting to 'info'.",
			config.AppConfig.LogLevel,
		))
		config.AppConfig.LogLevel = DefaultLogLevel
	} else {
		config.AppConfig.LogLevel = strings.ToLower(config.AppConfig.LogLevel)
	}

	if config.AppConfig.ListenAddress == "" {
		config.AppConfig.ListenAddress = DefaultListenAddress
	} else if _, _, err := net.SplitHostPort(config.AppConfig.ListenAddress); err != nil {
		return nil, warnings, fmt.Errorf("invalid listen_address %q: %w", config.AppConfig.ListenAddress, err)
	}

	switch {
	case config.AppConfig.HistorySize == 0:
		config.AppConfig.HistorySize = DefaultHistorySize
	case config.AppConfig.HistorySize < 0 || config.AppConfig.HistorySize > MaxHistorySize:
		warnings = append(warnings, fmt.Sprintf(
			"invalid history_size %d provided, must be between 1 and %d. Defaulting to %d.",
			config.AppConfig.HistorySize, MaxHistorySize, DefaultHistorySize,
		))
		config.AppConfig.HistorySize = DefaultHistorySize
	}

	if config.AppConfig.SnapshotInterval == "" {
		config.AppConfig.SnapshotInterval = DefaultSnapshotCronExpr
	} else if !isValidEveryExpression(config.AppConfig.SnapshotInterval) {
		warnings = append(warnings, fmt.Sprintf("invalid schedule provided for snapshot_interval, using default schedule %s", DefaultSnapshotCronExpr))
		config.AppConfig.SnapshotInterval = DefaultSnapshotCronExpr
	}

	return config, warnings, nil
}

// isValidEveryExpression accepts "@every <duration>" cron expressions of at
// least one second.
func isValidEveryExpression(expr string) bool {
	const prefix = "@every "
	if !strings.HasPrefix(expr, prefix) || !isValidCronExpression(expr) {
		return false
	}
	d, err := time.ParseDuration(strings.TrimPrefix(expr, prefix))
	return err == nil && d >= time.Second
}

// isValidCronExpression checks the validity of a cron expression.
func isValidCronExpression(cronExpression string) bool {
	if _, err := cron.ParseStandard(cronExpression); err != nil {
		return false
	}
	return true
}
