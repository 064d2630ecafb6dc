package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/trailkeeper/trailkeeper/internal/utils"
	"github.com/trailkeeper/trailkeeper/pkg/config"
)

const (
	flagConfigDir        = "config-dir"
	flagEnvFile          = "env-file"
	flagLogLevel         = "log-level"
	flagJSONLogging      = "json-logging"
	flagListenAddress    = "listen-address"
	flagHistorySize      = "history-size"
	flagSnapshotInterval = "snapshot-interval"
	flagDisableSnapshots = "disable-snapshots"
	flagAuditLog         = "audit-log"
	flagSecureIDSentinel = "secure-id-sentinel"
)

func NewRootCommand() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:           "trailkeeper",
		Short:         "trailkeeper resolves a stable device identity and keeps a bounded trail of location readings",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnvFile(v.GetString(flagEnvFile))
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String(flagConfigDir, "", "configuration directory (default $XDG_CONFIG_HOME/trailkeeper)")
	flags.String(flagEnvFile, ".env", "optional dotenv file loaded before reading TRAILKEEPER_* variables")
	flags.String(flagLogLevel, config.DefaultLogLevel, "log level (debug, info, warn, error, fatal, panic)")
	flags.Bool(flagJSONLogging, false, "log as JSON instead of the console format")
	flags.String(flagSecureIDSentinel, "", "secure id value rejected as a known placeholder")
	if err := bindFlags(v, flags); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(newRunCommand(v))
	rootCmd.AddCommand(newIdentityCommand(v))
	rootCmd.AddCommand(newConfigCommand(v))
	return rootCmd
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if err := v.BindPFlag(f.Name, f); err != nil {
			bindErr = errors.Join(bindErr, fmt.Errorf("bind flag %s: %w", f.Name, err))
		}
	})
	return bindErr
}

// loadEnvFile loads path into the environment. Existing variables win and a
// missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// configOverrides turns explicitly set flags and TRAILKEEPER_* variables into
// config modifiers. Unset keys leave config.json values alone.
func configOverrides(v *viper.Viper) []func(*config.Config) {
	var overrides []func(*config.Config)

	if v.IsSet(flagLogLevel) {
		overrides = append(overrides, config.SetLogLevel(v.GetString(flagLogLevel)))
	}
	if v.IsSet(flagJSONLogging) {
		overrides = append(overrides, config.SetJSONLogging(v.GetBool(flagJSONLogging)))
	}
	if v.IsSet(flagListenAddress) {
		overrides = append(overrides, config.SetListenAddress(v.GetString(flagListenAddress)))
	}
	if v.IsSet(flagHistorySize) {
		overrides = append(overrides, config.SetHistorySize(v.GetInt(flagHistorySize)))
	}
	if v.IsSet(flagSnapshotInterval) {
		overrides = append(overrides, config.SetSnapshotInterval(v.GetString(flagSnapshotInterval)))
	}
	if v.IsSet(flagDisableSnapshots) {
		overrides = append(overrides, config.SetDisableSnapshots(v.GetBool(flagDisableSnapshots)))
	}
	if v.IsSet(flagAuditLog) {
		overrides = append(overrides, config.SetAuditLogPath(v.GetString(flagAuditLog)))
	}
	if v.IsSet(flagSecureIDSentinel) {
		overrides = append(overrides, config.SetSecureIDSentinel(v.GetString(flagSecureIDSentinel)))
	}

	return overrides
}

// loadConfig resolves the storage paths and the effective configuration.
func loadConfig(v *viper.Viper) (*config.PathConfig, *config.ConfigManager, []string, error) {
	configDir := v.GetString(flagConfigDir)
	if configDir == "" {
		var err error
		if configDir, err = config.DefaultConfigDir(); err != nil {
			return nil, nil, nil, err
		}
	}
	if utils.HasInvalidPathChars(configDir) {
		return nil, nil, nil, fmt.Errorf("config directory %q contains invalid characters", configDir)
	}

	paths, err := config.ResolvePathConfig(configDir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("resolve paths: %w", err)
	}

	cm, warnings, err := config.InitConfigManager(paths.ConfigFile, configOverrides(v)...)
	if err != nil {
		return nil, nil, warnings, err
	}

	return paths, cm, warnings, nil
}
