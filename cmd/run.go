package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/trailkeeper/trailkeeper/internal/history"
	"github.com/trailkeeper/trailkeeper/internal/hotreload"
	"github.com/trailkeeper/trailkeeper/internal/logger"
	"github.com/trailkeeper/trailkeeper/internal/scheduler"
	"github.com/trailkeeper/trailkeeper/internal/server"
	"github.com/trailkeeper/trailkeeper/internal/tracker"
	"github.com/trailkeeper/trailkeeper/internal/utils"
	"github.com/trailkeeper/trailkeeper/internal/watcher"
	"github.com/trailkeeper/trailkeeper/pkg/config"
	"golang.org/x/sync/errgroup"
)

const schedulerStopTimeout = 10 * time.Second

func newRunCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the trailkeeper agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := utils.SetupContext(cmd.Context())
			defer cancel()
			return run(ctx, v)
		},
	}

	flags := cmd.Flags()
	flags.String(flagListenAddress, config.DefaultListenAddress, "address of the local HTTP API")
	flags.Int(flagHistorySize, config.DefaultHistorySize, "number of readings kept in the trail")
	flags.String(flagSnapshotInterval, config.DefaultSnapshotCronExpr, "trail snapshot interval as @every <duration>")
	flags.Bool(flagDisableSnapshots, false, "do not write trail snapshots")
	flags.String(flagAuditLog, "", "append audit events to this file")
	if err := bindFlags(v, flags); err != nil {
		panic(err)
	}

	return cmd
}

func run(ctx context.Context, v *viper.Viper) error {
	paths, cm, warnings, err := loadConfig(v)
	if err != nil {
		return err
	}

	ctx, log := logger.InitLogger(ctx, cm.GetLogLevel(), cm.IsJSONLog(), warnings)

	closeAudit, err := setupAuditLog(cm.GetAuditLogPath())
	if err != nil {
		log.Error().Err(err).Msg("Error opening audit log")
		return err
	}
	defer closeAudit()

	// Write the config to disk, in case any values were enforced at runtime
	if err := cm.WriteConfig(); err != nil {
		log.Error().Err(err).Msg("Error writing config to disk")
		return err
	}

	trail, err := history.New(cm.GetHistorySize())
	if err != nil {
		return err
	}
	t := tracker.New(newResolver(paths.DataDir, cm, log), trail, tracker.NewMetrics(nil), log)
	if err := t.Start(ctx); err != nil {
		log.Error().Err(err).Msg("Error resolving device identity")
		return err
	}
	restoreTrail(t, paths.SnapshotFile, log)

	g, ctx := errgroup.WithContext(ctx)

	var snapshotScheduler *scheduler.Scheduler
	var resetter hotreload.IntervalResetter
	if !cm.IsSnapshotDisabled() {
		proc := tracker.NewSnapshotProcess(config.SnapshotJobName, paths.SnapshotFile, t)
		snapshotScheduler, err = scheduler.NewSchedulerWithInterval(cm.GetSnapshotInterval(), proc, log)
		if err != nil {
			log.Error().Err(err).Msg("Error creating snapshot scheduler")
			return err
		}
		snapshotScheduler.Start(ctx)
		resetter = snapshotScheduler
	}

	hrm := hotreload.NewHotReloadManager(cm, log, resetter)
	configEvents := make(chan struct{}, 1)
	g.Go(func() error {
		if err := watcher.WatchChanges(ctx, *log, paths.ConfigFile, configEvents); err != nil {
			log.Warn().Err(err).Msg("Config hot reload disabled")
		}
		return nil
	})
	g.Go(func() error {
		return hrm.Run(ctx, configEvents)
	})

	app := setupServerApp(cm, log, t)
	app.SetupRoutes()
	app.SetupServer(ctx, g)

	log.Info().Msg("Startup complete 🚀")
	err = g.Wait()

	if snapshotScheduler != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), schedulerStopTimeout)
		if stopErr := snapshotScheduler.Stop(stopCtx); stopErr != nil {
			log.Warn().Err(stopErr).Msg("Snapshot scheduler did not stop in time")
		}
		stopCancel()

		if saveErr := tracker.SaveSnapshot(paths.SnapshotFile, t.Trail()); saveErr != nil {
			log.Error().Err(saveErr).Msg("Error writing final trail snapshot")
		}
	}

	return err
}

func setupServerApp(cm *config.ConfigManager, log *zerolog.Logger, t *tracker.Tracker) *server.App {
	router := server.NewDefaultRouter("")
	router.Use(server.LoggingMiddleware(log))

	return server.NewApp(
		cm.GetListenAddress(),
		router,
		log,
		server.NewHealthRegistrar(t),
		&server.MetricsRegistrar{},
		&server.DebugRegistrar{},
		tracker.NewRegistrar(t),
	)
}

// restoreTrail reloads the last snapshot so a restart keeps the trail.
func restoreTrail(t *tracker.Tracker, path string, log *zerolog.Logger) {
	snap, err := tracker.LoadSnapshot(path)
	if err != nil {
		log.Warn().Err(err).Msg("Ignoring unreadable trail snapshot")
		return
	}
	n, err := t.Restore(snap)
	if err != nil {
		log.Warn().Err(err).Msg("Error restoring trail snapshot")
		return
	}
	if n > 0 {
		log.Info().Int("entries", n).Msg("Restored trail from snapshot")
	}
}

func setupAuditLog(path string) (func(), error) {
	if path == "" {
		return func() {}, nil
	}
	w, err := logger.NewFileAuditWriter(path)
	if err != nil {
		return nil, fmt.Errorf("open audit log %s: %w", path, err)
	}
	logger.InitAuditLogger(w)
	return func() {
		logger.InitAuditLogger(nil)
		if c, ok := w.(io.Closer); ok {
			_ = c.Close()
		}
	}, nil
}
