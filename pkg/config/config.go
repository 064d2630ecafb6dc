package config

// Warning represents a non-critical issue with configuration.
type Warning string

type AppConfig struct {
	LogLevel         string `json:"log_level,omitempty"`
	JSONLogging      bool   `json:"json_logging,omitempty"`
	ListenAddress    string `json:"listen_address,omitempty"`
	HistorySize      int    `json:"history_size,omitempty"`
	SnapshotInterval string `json:"snapshot_interval,omitempty"`
	DisableSnapshots bool   `json:"disable_snapshots,omitempty"`
	AuditLogPath     string `json:"audit_log_path,omitempty"`
}

type IdentityConfig struct {
	// SecureIDSentinel overrides the platform's known-bad secure id.
	SecureIDSentinel string `json:"secure_id_sentinel,omitempty"`
}

type Config struct {
	AppConfig      AppConfig      `json:"app_config"`
	IdentityConfig IdentityConfig `json:"identity_config,omitempty"`
}
