package config

// Default values for configuration options. These represent "layer 0" of
// the override chain. Connection details and credentials have no default.
const (
	defaultBrowseRoot      = "cloudreve://my"
	defaultRefreshInterval = "25m"
	defaultPageSize        = 10
	defaultPollInterval    = "5s"
	defaultTaskCategory    = "downloading"
	defaultMaxPendingScans = 120
	defaultMaxScanFailures = 0
	defaultConnectTimeout  = "10s"
	defaultDataTimeout     = "60s"
	defaultRetryMax        = 3
	defaultLogLevel        = "info"
)

// DefaultConfig returns a Config populated with all default values. It is
// the starting point for TOML decoding, so unset fields retain defaults.
func DefaultConfig() *Config {
	return &Config{
		ServerConfig: ServerConfig{
			BrowseRoot: defaultBrowseRoot,
		},
		SessionConfig: SessionConfig{
			RefreshInterval: defaultRefreshInterval,
		},
		BrowseConfig: BrowseConfig{
			PageSize: defaultPageSize,
		},
		MonitorConfig: MonitorConfig{
			PollInterval:    defaultPollInterval,
			TaskCategory:    defaultTaskCategory,
			MaxPendingScans: defaultMaxPendingScans,
			MaxScanFailures: defaultMaxScanFailures,
		},
		NetworkConfig: NetworkConfig{
			ConnectTimeout: defaultConnectTimeout,
			DataTimeout:    defaultDataTimeout,
			RetryMax:       defaultRetryMax,
		},
		LoggingConfig: LoggingConfig{
			LogLevel: defaultLogLevel,
		},
	}
}
