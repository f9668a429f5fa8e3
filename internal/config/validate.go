package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validation range constants.
const (
	minRefreshInterval = 1 * time.Minute
	minPollInterval    = 1 * time.Second
	minConnectTimeout  = 1 * time.Second
	minDataTimeout     = 5 * time.Second
	minPageSize        = 1
	maxPageSize        = 200
	maxRetry           = 10
	remoteScheme       = "cloudreve://"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks the format of every configured value and returns all
// errors found. It accumulates every error rather than stopping at the
// first, so users can fix all issues in one pass. Missing required keys are
// left to ValidateResolved.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateServer(&cfg.ServerConfig)...)
	errs = append(errs, validateSession(&cfg.SessionConfig)...)
	errs = append(errs, validateBrowse(&cfg.BrowseConfig)...)
	errs = append(errs, validateMonitor(&cfg.MonitorConfig)...)
	errs = append(errs, validateNetwork(&cfg.NetworkConfig)...)
	errs = append(errs, validateLogging(&cfg.LoggingConfig)...)

	return errors.Join(errs...)
}

// ValidateResolved checks a Config after environment and CLI overrides have
// been applied: the format checks of Validate plus every required key.
func ValidateResolved(cfg *Config) error {
	var errs []error

	required := []struct {
		key, env, value string
	}{
		{"api_url", EnvAPIURL, cfg.APIURL},
		{"username", EnvUsername, cfg.Username},
		{"password", EnvPassword, cfg.Password},
		{"download_dir", EnvDownloadDir, cfg.DownloadDir},
	}

	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, fmt.Errorf("%s: required (set it in the config file or %s)", r.key, r.env))
		}
	}

	if err := Validate(cfg); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func validateServer(s *ServerConfig) []error {
	var errs []error

	if s.APIURL != "" {
		errs = append(errs, validateHTTPURL("api_url", s.APIURL)...)
	}

	if s.ResolverURL != "" {
		errs = append(errs, validateHTTPURL("resolver_url", s.ResolverURL)...)
	}

	if !strings.HasPrefix(s.BrowseRoot, remoteScheme) {
		errs = append(errs, fmt.Errorf("browse_root: must start with %s, got %q", remoteScheme, s.BrowseRoot))
	}

	if s.DownloadDir != "" && !strings.HasPrefix(s.DownloadDir, remoteScheme) {
		errs = append(errs, fmt.Errorf("download_dir: must start with %s, got %q", remoteScheme, s.DownloadDir))
	}

	return errs
}

func validateHTTPURL(key, raw string) []error {
	u, err := url.Parse(raw)
	if err != nil {
		return []error{fmt.Errorf("%s: %w", key, err)}
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return []error{fmt.Errorf("%s: scheme must be http or https, got %q", key, u.Scheme)}
	}

	if u.Host == "" {
		return []error{fmt.Errorf("%s: missing host in %q", key, raw)}
	}

	return nil
}

func validateSession(s *SessionConfig) []error {
	return validateDurationMin("refresh_interval", s.RefreshInterval, minRefreshInterval)
}

func validateBrowse(b *BrowseConfig) []error {
	if b.PageSize < minPageSize || b.PageSize > maxPageSize {
		return []error{fmt.Errorf("page_size: must be between %d and %d, got %d",
			minPageSize, maxPageSize, b.PageSize)}
	}

	return nil
}

func validateMonitor(m *MonitorConfig) []error {
	var errs []error

	errs = append(errs, validateDurationMin("poll_interval", m.PollInterval, minPollInterval)...)

	if m.TaskCategory == "" {
		errs = append(errs, errors.New("task_category: must not be empty"))
	}

	if m.MaxPendingScans < 0 {
		errs = append(errs, fmt.Errorf("max_pending_scans: must be >= 0, got %d", m.MaxPendingScans))
	}

	if m.MaxScanFailures < 0 {
		errs = append(errs, fmt.Errorf("max_scan_failures: must be >= 0, got %d", m.MaxScanFailures))
	}

	return errs
}

func validateNetwork(n *NetworkConfig) []error {
	var errs []error

	errs = append(errs, validateDurationMin("connect_timeout", n.ConnectTimeout, minConnectTimeout)...)
	errs = append(errs, validateDurationMin("data_timeout", n.DataTimeout, minDataTimeout)...)

	if n.RetryMax < 0 || n.RetryMax > maxRetry {
		errs = append(errs, fmt.Errorf("retry_max: must be between 0 and %d, got %d", maxRetry, n.RetryMax))
	}

	return errs
}

func validateLogging(l *LoggingConfig) []error {
	if !validLogLevels[l.LogLevel] {
		return []error{fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", l.LogLevel)}
	}

	return nil
}

func validateDurationMin(key, value string, minimum time.Duration) []error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return []error{fmt.Errorf("%s: invalid duration %q: %w", key, value, err)}
	}

	if d < minimum {
		return []error{fmt.Errorf("%s: must be at least %s, got %s", key, minimum, d)}
	}

	return nil
}
