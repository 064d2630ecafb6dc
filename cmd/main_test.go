package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"github.com/trailkeeper/trailkeeper/internal/identity"
	"github.com/trailkeeper/trailkeeper/pkg/config"
)

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestIdentityCommand(t *testing.T) {
	dir := t.TempDir()

	first, err := executeCommand(t, "identity", "--config-dir", dir, "--env-file", "")
	require.NoError(t, err)
	fields := strings.Fields(first)
	require.Len(t, fields, 2)
	require.NotEmpty(t, fields[0])

	second, err := executeCommand(t, "identity", "--config-dir", dir, "--env-file", "")
	require.NoError(t, err)
	require.Equal(t, first, second)

	if fields[1] == string(identity.SourceInstallation) {
		data, err := os.ReadFile(filepath.Join(dir, "data", identity.InstallationFileName))
		require.NoError(t, err)
		require.Equal(t, fields[0], string(data))
	}
}

func TestIdentityCommand_JSON(t *testing.T) {
	out, err := executeCommand(t, "identity", "--json", "--config-dir", t.TempDir(), "--env-file", "")
	require.NoError(t, err)

	var id identity.Identity
	require.NoError(t, json.Unmarshal([]byte(out), &id))
	require.NotEmpty(t, id.ID)
	require.NotEmpty(t, id.Source)
}

func TestIdentityCommand_InvalidConfigDir(t *testing.T) {
	_, err := executeCommand(t, "identity", "--config-dir", filepath.Join(t.TempDir(), "bad*dir"), "--env-file", "")
	require.Error(t, err)
}

func TestConfigShowCommand(t *testing.T) {
	dir := t.TempDir()
	out, err := executeCommand(t, "config", "show", "--config-dir", dir, "--log-level", "debug", "--env-file", "")
	require.NoError(t, err)
	require.Contains(t, out, "    1 | {")
	require.Contains(t, out, `"log_level": "debug"`)

	data, err := os.ReadFile(filepath.Join(dir, config.DefaultConfigFileName))
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, json.Unmarshal(data, &cfg))
	require.Equal(t, "debug", cfg.AppConfig.LogLevel)
	require.Equal(t, config.DefaultHistorySize, cfg.AppConfig.HistorySize)
}

func TestConfigOverrides(t *testing.T) {
	t.Setenv("TRAILKEEPER_HISTORY_SIZE", "12")
	t.Setenv("TRAILKEEPER_SNAPSHOT_INTERVAL", "@every 1m")

	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.Set(flagLogLevel, "warn")

	cfg := &config.Config{AppConfig: config.AppConfig{LogLevel: "info", ListenAddress: ":7000"}}
	for _, override := range configOverrides(v) {
		override(cfg)
	}

	require.Equal(t, "warn", cfg.AppConfig.LogLevel)
	require.Equal(t, 12, cfg.AppConfig.HistorySize)
	require.Equal(t, "@every 1m", cfg.AppConfig.SnapshotInterval)
	require.Equal(t, ":7000", cfg.AppConfig.ListenAddress, "unset keys keep file values")
}

func TestLoadEnvFile(t *testing.T) {
	require.NoError(t, loadEnvFile(""))
	require.NoError(t, loadEnvFile(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TRAILKEEPER_TEST_VALUE=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("TRAILKEEPER_TEST_VALUE") })

	require.NoError(t, loadEnvFile(path))
	require.Equal(t, "from-file", os.Getenv("TRAILKEEPER_TEST_VALUE"))
}
