package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/cloudreve-go/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Display effective configuration after all overrides",
		RunE:  runConfigShow,
	})

	return cmd
}

// configJSON is the JSON form of config show. The password is redacted.
type configJSON struct {
	APIURL          string `json:"api_url"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	BrowseRoot      string `json:"browse_root"`
	DownloadDir     string `json:"download_dir"`
	ResolverURL     string `json:"resolver_url,omitempty"`
	RefreshInterval string `json:"refresh_interval"`
	PageSize        int    `json:"page_size"`
	PollInterval    string `json:"poll_interval"`
	TaskCategory    string `json:"task_category"`
	MaxPendingScans int    `json:"max_pending_scans"`
	MaxScanFailures int    `json:"max_scan_failures"`
	ConnectTimeout  string `json:"connect_timeout"`
	DataTimeout     string `json:"data_timeout"`
	RetryMax        int    `json:"retry_max"`
	UserAgent       string `json:"user_agent,omitempty"`
	LogLevel        string `json:"log_level"`
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	if resolvedCfg == nil {
		return errors.New("no configuration loaded")
	}

	if flagJSON {
		c := resolvedCfg

		return printJSON(os.Stdout, configJSON{
			APIURL:          c.APIURL,
			Username:        c.Username,
			Password:        config.Redact(c.Password),
			BrowseRoot:      c.BrowseRoot,
			DownloadDir:     c.DownloadDir,
			ResolverURL:     c.ResolverURL,
			RefreshInterval: c.RefreshInterval,
			PageSize:        c.PageSize,
			PollInterval:    c.PollInterval,
			TaskCategory:    c.TaskCategory,
			MaxPendingScans: c.MaxPendingScans,
			MaxScanFailures: c.MaxScanFailures,
			ConnectTimeout:  c.ConnectTimeout,
			DataTimeout:     c.DataTimeout,
			RetryMax:        c.RetryMax,
			UserAgent:       c.UserAgent,
			LogLevel:        c.LogLevel,
		})
	}

	return config.RenderEffective(resolvedCfg, os.Stdout)
}
