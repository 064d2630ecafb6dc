package config

func SetLogLevel(level string) func(*Config) {
	return func(cfg *Config) {
		cfg.AppConfig.LogLevel = level
	}
}

func SetJSONLogging(enabled bool) func(*Config) {
	return func(cfg *Config) {
		cfg.AppConfig.JSONLogging = enabled
	}
}

func SetListenAddress(addr string) func(*Config) {
	return func(cfg *Config) {
		cfg.AppConfig.ListenAddress = addr
	}
}

func SetHistorySize(size int) func(*Config) {
	return func(cfg *Config) {
		cfg.AppConfig.HistorySize = size
	}
}

func SetSnapshotInterval(cronExpr string) func(*Config) {
	return func(cfg *Config) {
		cfg.AppConfig.SnapshotInterval = cronExpr
	}
}

func SetDisableSnapshots(disabled bool) func(*Config) {
	return func(cfg *Config) {
		cfg.AppConfig.DisableSnapshots = disabled
	}
}

func SetAuditLogPath(path string) func(*Config) {
	return func(cfg *Config) {
		cfg.AppConfig.AuditLogPath = path
	}
}

func SetSecureIDSentinel(sentinel string) func(*Config) {
	return func(cfg *Config) {
		cfg.IdentityConfig.SecureIDSentinel = sentinel
	}
}
