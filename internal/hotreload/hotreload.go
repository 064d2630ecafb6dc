package hotreload

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/trailkeeper/trailkeeper/internal/logger"
	"github.com/trailkeeper/trailkeeper/pkg/config"
)

// IntervalResetter is a scheduler whose interval can change at runtime.
type IntervalResetter interface {
	ResetIntervalFromExpr(intervalExpr string) error
}

type HotReloadManager struct {
	cm                *config.ConfigManager
	log               *zerolog.Logger
	snapshotScheduler IntervalResetter
	changeCallbacks   map[config.ConfigChangeType][]config.ConfigChangeCallback
	callbackMu        sync.RWMutex
}

func NewHotReloadManager(cm *config.ConfigManager, log *zerolog.Logger, snapshotScheduler IntervalResetter) *HotReloadManager {
	manager := &HotReloadManager{
		cm:                cm,
		log:               log,
		snapshotScheduler: snapshotScheduler,
		changeCallbacks:   make(map[config.ConfigChangeType][]config.ConfigChangeCallback),
	}

	manager.registerCallbacks()

	return manager
}

func (hrm *HotReloadManager) registerCallbacks() {
	hrm.RegisterChangeCallback(config.IntervalsChanged, hrm.handleIntervalsChange)
	hrm.RegisterChangeCallback(config.LogLevelChanged, hrm.handleLogLevelChange)
}

// RegisterChangeCallback adds a callback run for every change of changeType.
func (hrm *HotReloadManager) RegisterChangeCallback(changeType config.ConfigChangeType, callback config.ConfigChangeCallback) {
	hrm.callbackMu.Lock()
	defer hrm.callbackMu.Unlock()

	hrm.changeCallbacks[changeType] = append(hrm.changeCallbacks[changeType], callback)
}

func (hrm *HotReloadManager) notifyChangeCallbacks(change config.ConfigChange) []error {
	hrm.callbackMu.RLock()
	defer hrm.callbackMu.RUnlock()

	var errs []error
	for _, callback := range hrm.changeCallbacks[change.Type] {
		if err := callback(change); err != nil {
			errs = append(errs, err)
			continue
		}
		hrm.log.Info().Str("change_type", string(change.Type)).Msg("Configuration change processed")
	}

	return errs
}

func (hrm *HotReloadManager) handleIntervalsChange(change config.ConfigChange) error {
	hrm.log.Info().
		Str("type", string(change.Type)).
		Interface("old_value", change.OldValue).
		Interface("new_value", change.NewValue).
		Msg("Handling intervals change")

	if hrm.snapshotScheduler == nil {
		hrm.log.Debug().Msg("Snapshots disabled; nothing to reschedule")
		return nil
	}

	if err := hrm.snapshotScheduler.ResetIntervalFromExpr(hrm.cm.GetSnapshotInterval()); err != nil {
		return fmt.Errorf("unable to reset snapshot scheduler: %w", err)
	}
	return nil
}

func (hrm *HotReloadManager) handleLogLevelChange(change config.ConfigChange) error {
	hrm.log.Info().
		Str("type", string(change.Type)).
		Interface("old_value", change.OldValue).
		Interface("new_value", change.NewValue).
		Msg("Handling log level change")

	newLogLevel, ok := change.NewValue.(string)
	if !ok {
		return fmt.Errorf("invalid log level type: %T", change.NewValue)
	}
	logger.SetLevel(newLogLevel)
	hrm.log.Info().Str("new_level", newLogLevel).Msg("Log level updated successfully")

	return nil
}

// ProcessConfigChanges runs the registered callbacks for each change.
func (hrm *HotReloadManager) ProcessConfigChanges(changes []config.ConfigChange) error {
	hrm.log.Info().Int("change_count", len(changes)).Msg("Processing configuration changes")

	var errs []error
	for _, change := range changes {
		hrm.log.Debug().
			Str("change_type", string(change.Type)).
			Interface("old_value", change.OldValue).
			Interface("new_value", change.NewValue).
			Msg("Processing configuration change")

		errs = append(errs, hrm.notifyChangeCallbacks(change)...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors occurred while processing configuration changes: %w", errors.Join(errs...))
	}

	hrm.log.Info().Msg("All configuration changes processed successfully")
	return nil
}

// Run reloads the configuration on every event until ctx is done. Reload
// failures keep the previous configuration.
func (hrm *HotReloadManager) Run(ctx context.Context, events <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-events:
			changes, warnings, err := hrm.cm.ReloadConfig()
			for _, warn := range warnings {
				hrm.log.Warn().Msg(warn)
			}
			if err != nil {
				hrm.log.Error().Err(err).Msg("Failed to reload config, keeping previous values")
				continue
			}
			if len(changes) == 0 {
				hrm.log.Debug().Msg("Config file changed without hot-reloadable changes")
				continue
			}
			if err := hrm.ProcessConfigChanges(changes); err != nil {
				hrm.log.Error().Err(err).Msg("Failed to apply config changes")
			}
		}
	}
}
