package config

// Default config.json name inside the config directory
const DefaultConfigFileName string = "config.json"

// The values below are used when the user does not provide a value, or provides one in the wrong format,
// in the config.json file.

const DefaultLogLevel string = "info"
const DefaultListenAddress string = ":9090"

// DefaultHistorySize matches the number of markers the trail view shows.
const DefaultHistorySize int = 5

// MaxHistorySize bounds the in-memory trail.
const MaxHistorySize int = 10000

const DefaultSnapshotCronExpr string = "@every 00h00m30s"

const SnapshotJobName string = "trail_snapshot"

const EnvPrefix string = "TRAILKEEPER"
