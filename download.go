package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/cloudreve-go/internal/config"
	"github.com/tonimelisma/cloudreve-go/internal/linkresolve"
	"github.com/tonimelisma/cloudreve-go/internal/remotedl"
)

func newDownloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download <url>",
		Short: "Submit a remote download and follow it to completion",
		Long: `Ask the server to fetch <url> into a remote folder, then poll the task
list until the download finishes. The task is matched by its source URL,
so submitting the same URL twice follows whichever task is listed first.`,
		Args: cobra.ExactArgs(1),
		RunE: runDownload,
	}

	cmd.Flags().String("dst", "", "remote destination folder (default download_dir)")
	cmd.Flags().Bool("no-wait", false, "submit and exit without watching")
	cmd.Flags().String("category", "", "task list category to watch (default task_category)")

	return cmd
}

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <url>",
		Short: "Follow an already submitted remote download",
		Args:  cobra.ExactArgs(1),
		RunE:  runWatch,
	}

	cmd.Flags().String("category", "", "task list category to watch (default task_category)")

	return cmd
}

func newResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <share-url>",
		Short: "Resolve a share link to a direct stream URL",
		Long: `Ask the link resolver at resolver_url for the direct stream URL behind a
share link. With --download, the resolved URL is submitted as a remote
download and followed like the download command.`,
		Args: cobra.ExactArgs(1),
		RunE: runResolve,
	}

	cmd.Flags().Bool("download", false, "submit the resolved URL as a remote download")
	cmd.Flags().String("dst", "", "remote destination folder (default download_dir)")
	cmd.Flags().Bool("no-wait", false, "with --download, submit and exit without watching")
	cmd.Flags().String("category", "", "task list category to watch (default task_category)")

	return cmd
}

// summaryJSON is the JSON output of a completed download.
type summaryJSON struct {
	Done      bool   `json:"done"`
	Name      string `json:"name"`
	Size      string `json:"size"`
	TotalSize int64  `json:"total_bytes"`
	Progress  string `json:"progress"`
	Scans     int    `json:"scans"`
}

func runDownload(cmd *cobra.Command, args []string) error {
	noWait, _ := cmd.Flags().GetBool("no-wait")

	return submitAndWatch(cmd, args[0], !noWait)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, app := commandSession(cmd)

	return app.Run(ctx, func(ctx context.Context) error {
		return watchDownload(ctx, app, args[0], categoryFlag(cmd))
	})
}

func runResolve(cmd *cobra.Command, args []string) error {
	download, _ := cmd.Flags().GetBool("download")
	noWait, _ := cmd.Flags().GetBool("no-wait")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Resolving needs no Cloudreve login.
	link, err := NewAppSession(resolvedCfg, buildLogger()).Resolver.Resolve(ctx, args[0])
	if err != nil {
		if errors.Is(err, linkresolve.ErrNotConfigured) {
			return fmt.Errorf("%w: set resolver_url or %s", err, config.EnvResolverURL)
		}

		return fmt.Errorf("resolving %s: %w", args[0], err)
	}

	if !download {
		if flagJSON {
			return printJSON(os.Stdout, map[string]string{"stream_link": link})
		}

		fmt.Println(link)

		return nil
	}

	statusf("Resolved to %s\n", link)

	return submitAndWatch(cmd, link, !noWait)
}

// submitAndWatch submits url as a remote download into the configured
// download_dir (already overridden by --dst) and, if wait is set, follows it.
func submitAndWatch(cmd *cobra.Command, url string, wait bool) error {
	ctx, app := commandSession(cmd)

	return app.Run(ctx, func(ctx context.Context) error {
		if err := app.Monitor.Submit(ctx, url, ""); err != nil {
			return err
		}

		statusf("Submitted to %s\n", app.Config.DownloadDir)

		if !wait {
			return nil
		}

		return watchDownload(ctx, app, url, categoryFlag(cmd))
	})
}

// commandSession builds a logged-in session under a signal-aware context.
func commandSession(cmd *cobra.Command) (context.Context, *AppSession) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}

	ctx := shutdownContext(parent, buildLogger())

	return ctx, newAppSession(ctx)
}

func categoryFlag(cmd *cobra.Command) string {
	if category, _ := cmd.Flags().GetString("category"); category != "" {
		return category
	}

	return resolvedCfg.TaskCategory
}

// watchDownload follows one download and prints its outcome.
func watchDownload(ctx context.Context, app *AppSession, url, category string) error {
	renderer := newProgressRenderer()

	sum, err := app.Monitor.AwaitCompletion(ctx, url, category, renderer.Update)
	renderer.Finish()

	if err != nil {
		return describeMonitorError(err, category)
	}

	if flagJSON {
		return writeJSONLine(os.Stdout, summaryJSON{
			Done:      true,
			Name:      sum.Name,
			Size:      sum.Size,
			TotalSize: sum.TotalSize,
			Progress:  sum.Progress,
			Scans:     sum.Scans,
		})
	}

	fmt.Printf("Download complete: %s (%s)\n", sum.Name, sum.Size)

	return nil
}

// describeMonitorError adds a hint to the terminal monitor outcomes.
func describeMonitorError(err error, category string) error {
	switch {
	case errors.Is(err, remotedl.ErrTaskNotFound):
		return fmt.Errorf("%w in category %q (was it submitted, or is it in another category?)", err, category)
	case errors.Is(err, remotedl.ErrTaskVanished):
		return fmt.Errorf("%w; it may have finished and been archived", err)
	case errors.Is(err, context.Canceled):
		return errors.New("interrupted")
	default:
		return err
	}
}
