package config

// Threadsafe getter functions to fetch config data.

func (cm *ConfigManager) GetLogLevel() string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config.AppConfig.LogLevel
}

func (cm *ConfigManager) IsJSONLog() bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config.AppConfig.JSONLogging
}

func (cm *ConfigManager) GetListenAddress() string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config.AppConfig.ListenAddress
}

func (cm *ConfigManager) GetHistorySize() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config.AppConfig.HistorySize
}

func (cm *ConfigManager) GetSnapshotInterval() string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config.AppConfig.SnapshotInterval
}

func (cm *ConfigManager) IsSnapshotDisabled() bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config.AppConfig.DisableSnapshots
}

func (cm *ConfigManager) GetAuditLogPath() string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config.AppConfig.AuditLogPath
}

func (cm *ConfigManager) GetSecureIDSentinel() string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config.IdentityConfig.SecureIDSentinel
}

// GetConfig returns a copy of the current config.
func (cm *ConfigManager) GetConfig() Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return *cm.config
}
