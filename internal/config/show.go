package config

import (
	"fmt"
	"io"
)

const redacted = "********"

// RenderEffective writes the resolved configuration as a human-readable
// summary to w. This powers the "config show" command. The password is
// never printed.
func RenderEffective(cfg *Config, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("# Effective configuration\n\n")

	ew.printf("api_url           = %q\n", cfg.APIURL)
	ew.printf("username          = %q\n", cfg.Username)
	ew.printf("password          = %q\n", Redact(cfg.Password))
	ew.printf("browse_root       = %q\n", cfg.BrowseRoot)
	ew.printf("download_dir      = %q\n", cfg.DownloadDir)

	if cfg.ResolverURL != "" {
		ew.printf("resolver_url      = %q\n", cfg.ResolverURL)
	}

	ew.printf("\n")
	ew.printf("refresh_interval  = %q\n", cfg.RefreshInterval)
	ew.printf("page_size         = %d\n", cfg.PageSize)
	ew.printf("poll_interval     = %q\n", cfg.PollInterval)
	ew.printf("task_category     = %q\n", cfg.TaskCategory)
	ew.printf("max_pending_scans = %d\n", cfg.MaxPendingScans)
	ew.printf("max_scan_failures = %d\n", cfg.MaxScanFailures)
	ew.printf("\n")
	ew.printf("connect_timeout   = %q\n", cfg.ConnectTimeout)
	ew.printf("data_timeout      = %q\n", cfg.DataTimeout)
	ew.printf("retry_max         = %d\n", cfg.RetryMax)

	if cfg.UserAgent != "" {
		ew.printf("user_agent        = %q\n", cfg.UserAgent)
	}

	ew.printf("log_level         = %q\n", cfg.LogLevel)

	return ew.err
}

// Redact masks a secret for display. Empty stays empty so "unset" remains
// visible.
func Redact(secret string) string {
	if secret == "" {
		return ""
	}

	return redacted
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
