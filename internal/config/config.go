// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for cloudreve-go. It supports a
// four-layer override chain (defaults -> config file -> environment -> CLI
// flags). All keys are flat at the top level of the file.
package config

import "time"

// Config is the top-level configuration structure parsed from a TOML file.
// The embedded sections only group fields in Go; in the file every key sits
// at the top level.
type Config struct {
	ServerConfig
	SessionConfig
	BrowseConfig
	MonitorConfig
	NetworkConfig
	LoggingConfig
}

// ServerConfig identifies the backend and the account used against it.
type ServerConfig struct {
	APIURL      string `toml:"api_url"`
	Username    string `toml:"username"`
	Password    string `toml:"password"`
	BrowseRoot  string `toml:"browse_root"`
	DownloadDir string `toml:"download_dir"`
	ResolverURL string `toml:"resolver_url"`
}

// SessionConfig controls credential upkeep.
type SessionConfig struct {
	RefreshInterval string `toml:"refresh_interval"`
}

// BrowseConfig controls directory listing.
type BrowseConfig struct {
	PageSize int `toml:"page_size"`
}

// MonitorConfig controls remote-download polling. Zero bounds mean unbounded.
type MonitorConfig struct {
	PollInterval    string `toml:"poll_interval"`
	TaskCategory    string `toml:"task_category"`
	MaxPendingScans int    `toml:"max_pending_scans"`
	MaxScanFailures int    `toml:"max_scan_failures"`
}

// NetworkConfig controls HTTP client behavior.
type NetworkConfig struct {
	ConnectTimeout string `toml:"connect_timeout"`
	DataTimeout    string `toml:"data_timeout"`
	RetryMax       int    `toml:"retry_max"`
	UserAgent      string `toml:"user_agent"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	LogLevel string `toml:"log_level"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Pointer fields distinguish "not specified" (nil)
// from "explicitly set to the zero value".
type CLIOverrides struct {
	ConfigPath  string  // --config flag (empty = use default)
	APIURL      *string // --api-url flag
	DownloadDir *string // --dst flag, where a command accepts one
	LogLevel    *string // derived from --verbose / --quiet
}

// Duration values are validated before a Config leaves Load or Resolve, so
// the accessors below ignore parse errors.

// RefreshEvery returns the session refresh period.
func (s *SessionConfig) RefreshEvery() time.Duration {
	return parseDurationOr(s.RefreshInterval, defaultRefreshInterval)
}

// PollEvery returns the monitor scan interval.
func (m *MonitorConfig) PollEvery() time.Duration {
	return parseDurationOr(m.PollInterval, defaultPollInterval)
}

// ConnectTimeoutDuration returns the TCP connect timeout.
func (n *NetworkConfig) ConnectTimeoutDuration() time.Duration {
	return parseDurationOr(n.ConnectTimeout, defaultConnectTimeout)
}

// DataTimeoutDuration returns the per-request response timeout.
func (n *NetworkConfig) DataTimeoutDuration() time.Duration {
	return parseDurationOr(n.DataTimeout, defaultDataTimeout)
}

func parseDurationOr(s, fallback string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}

	d, _ := time.ParseDuration(fallback)

	return d
}
