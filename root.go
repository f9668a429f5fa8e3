package main

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/cloudreve-go/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagAPIURL     string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// resolvedCfg holds the effective configuration loaded by PersistentPreRunE.
// It is available to all subcommands after the root pre-run phase completes.
var resolvedCfg *config.Config

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cloudreve-go",
		Short:   "Cloudreve V4 command-line client",
		Long:    "Browse a Cloudreve drive, resolve direct links, and follow remote downloads.",
		Version: version,
		// Errors are printed by exitOnError.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagAPIURL, "api-url", "", "server root URL (overrides api_url)")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLsCmd())
	cmd.AddCommand(newSourceCmd())
	cmd.AddCommand(newDownloadCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newResolveCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// loadConfig resolves the effective configuration from the four-layer
// override chain and stores the result in resolvedCfg.
func loadConfig(cmd *cobra.Command) error {
	cli := config.CLIOverrides{
		ConfigPath: flagConfigPath,
	}

	if cmd.Flags().Changed("api-url") {
		cli.APIURL = &flagAPIURL
	}

	// --dst is local to the commands that submit downloads.
	if f := cmd.Flags().Lookup("dst"); f != nil && f.Changed {
		dst := f.Value.String()
		cli.DownloadDir = &dst
	}

	if level := flagLogLevel(); level != "" {
		cli.LogLevel = &level
	}

	resolved, err := config.Resolve(config.ReadEnvOverrides(), cli)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	resolvedCfg = resolved

	return nil
}

// flagLogLevel maps --verbose / --quiet onto a config log level. Empty when
// neither is set.
func flagLogLevel() string {
	switch {
	case flagQuiet:
		return "error"
	case flagVerbose:
		return "debug"
	default:
		return ""
	}
}

// buildLogger creates an slog.Logger configured by the resolved config and
// CLI flags. Config-file log level provides the baseline; --verbose and
// --quiet override it.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo

	if resolvedCfg != nil {
		level = parseLevel(resolvedCfg.LogLevel)
	}

	if lvl := flagLogLevel(); lvl != "" {
		level = parseLevel(lvl)
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const dialKeepAlive = 30 * time.Second

// newHTTPClient builds the HTTP client shared by the API client and the link
// resolver. connect_timeout bounds dialing; data_timeout bounds each
// request end to end.
func newHTTPClient(cfg *config.Config) *http.Client {
	transport := cleanhttp.DefaultPooledTransport()
	transport.DialContext = (&net.Dialer{
		Timeout:   cfg.ConnectTimeoutDuration(),
		KeepAlive: dialKeepAlive,
	}).DialContext
	transport.ResponseHeaderTimeout = cfg.DataTimeoutDuration()

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.DataTimeoutDuration(),
	}
}

// userAgent returns the configured user agent or "cloudreve-go/<version>".
func userAgent(cfg *config.Config) string {
	if cfg.UserAgent != "" {
		return cfg.UserAgent
	}

	return "cloudreve-go/" + version
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
