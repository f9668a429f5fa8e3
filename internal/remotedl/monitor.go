// Package remotedl submits remote-download jobs and follows them through
// the workflow task list until they finish.
//
// The backend returns no job handle on submission, so a job is identified
// purely by its source URL: the first task whose recorded source string
// equals the submitted URL is the job.
package remotedl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tonimelisma/cloudreve-go/internal/cloudreve"
)

// Defaults for Options fields left zero.
const (
	DefaultInterval = 5 * time.Second
	DefaultCategory = "downloading"
)

// completeTolerance is how close to 100 a percentage must be to count as done.
const completeTolerance = 1e-9

// Sentinel errors returned by AwaitCompletion.
var (
	ErrTaskNotFound = errors.New("remotedl: task not found")
	ErrTaskVanished = errors.New("remotedl: task left the task list before completing")
	ErrTaskPending  = errors.New("remotedl: task never reported download details")
)

// TaskFailedError is returned when the backend marks the task as failed or
// canceled.
type TaskFailedError struct {
	Status string
	Reason string
}

func (e *TaskFailedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("remotedl: task %s", e.Status)
	}

	return fmt.Sprintf("remotedl: task %s: %s", e.Status, e.Reason)
}

// ScanFailedError is returned when too many consecutive scans fail.
type ScanFailedError struct {
	Attempts int
	Err      error // last scan error
}

func (e *ScanFailedError) Error() string {
	return fmt.Sprintf("remotedl: %d consecutive scans failed: %v", e.Attempts, e.Err)
}

func (e *ScanFailedError) Unwrap() error {
	return e.Err
}

// TaskClient is the slice of the API client the Monitor needs.
type TaskClient interface {
	CreateDownload(ctx context.Context, dst string, src []string) error
	ListTasks(ctx context.Context, category string) ([]cloudreve.Task, error)
}

// Options configures a Monitor.
type Options struct {
	Interval        time.Duration // wait before every scan; 0 means DefaultInterval
	MaxPendingScans int           // scans without download details before giving up; 0 is unbounded
	MaxScanFailures int           // consecutive failed scans before giving up; 0 is unbounded
	DefaultDst      string        // used by Submit when dst is empty
	Logger          *slog.Logger
}

// Snapshot is the state of a download as of one scan.
type Snapshot struct {
	Scan       int
	Pending    bool // task registered, details not yet populated
	Name       string
	Size       string // human-readable total size
	TotalSize  int64
	Downloaded int64
	Speed      int64   // bytes per second
	Percent    float64 // rounded to two decimals
	Progress   string  // "100" once complete, else Percent with two decimals
}

// Done reports whether the snapshot represents a finished download.
func (s Snapshot) Done() bool {
	return !s.Pending && s.Progress == "100"
}

// Summary describes a completed download.
type Summary struct {
	Name      string
	Size      string
	TotalSize int64
	Progress  string
	Scans     int
}

// Stats counts monitor activity across calls.
type Stats struct {
	Scans    int64
	Failures int64
}

// Monitor submits remote downloads and polls for their completion. Scans
// within one AwaitCompletion call never overlap.
type Monitor struct {
	client TaskClient
	opts   Options
	logger *slog.Logger

	// sleepFunc waits between scans. Defaults to timeSleep.
	sleepFunc func(ctx context.Context, d time.Duration) error

	scans    atomic.Int64
	failures atomic.Int64
}

// NewMonitor creates a Monitor.
func NewMonitor(client TaskClient, opts Options) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Monitor{
		client:    client,
		opts:      opts,
		logger:    logger,
		sleepFunc: timeSleep,
	}
}

// Stats returns a snapshot of the monitor's counters.
func (m *Monitor) Stats() Stats {
	return Stats{Scans: m.scans.Load(), Failures: m.failures.Load()}
}

// Submit posts a remote-download job for sourceURL into dst.
func (m *Monitor) Submit(ctx context.Context, sourceURL, dst string) error {
	if dst == "" {
		dst = m.opts.DefaultDst
	}

	if dst == "" {
		return errors.New("remotedl: no destination folder")
	}

	if err := m.client.CreateDownload(ctx, dst, []string{sourceURL}); err != nil {
		return fmt.Errorf("remotedl: submitting %s: %w", sourceURL, err)
	}

	return nil
}

// AwaitCompletion polls the task list of category until the task for
// sourceURL finishes. report, if non-nil, receives one Snapshot per
// successful scan, including scans where nothing changed.
func (m *Monitor) AwaitCompletion(
	ctx context.Context, sourceURL, category string, report func(Snapshot),
) (*Summary, error) {
	if category == "" {
		category = DefaultCategory
	}

	logger := m.logger.With(
		slog.String("watch_id", uuid.NewString()),
		slog.String("category", category),
	)

	logger.Info("watching remote download", slog.Duration("interval", m.opts.Interval))

	var (
		seen     bool
		pending  int
		failures int
	)

	for scan := 1; ; scan++ {
		if err := m.sleepFunc(ctx, m.opts.Interval); err != nil {
			return nil, err
		}

		m.scans.Add(1)

		tasks, err := m.client.ListTasks(ctx, category)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			m.failures.Add(1)
			failures++

			logger.Warn("task scan failed, retrying",
				slog.Int("scan", scan),
				slog.Int("consecutive_failures", failures),
				slog.String("error", err.Error()),
			)

			if m.opts.MaxScanFailures > 0 && failures >= m.opts.MaxScanFailures {
				return nil, &ScanFailedError{Attempts: failures, Err: err}
			}

			continue
		}

		failures = 0

		task := findTask(tasks, sourceURL)
		if task == nil {
			if seen {
				logger.Warn("task disappeared from list", slog.Int("scan", scan))

				return nil, ErrTaskVanished
			}

			logger.Warn("no task matches source", slog.Int("scan", scan), slog.Int("tasks", len(tasks)))

			return nil, ErrTaskNotFound
		}

		seen = true

		if task.Status == cloudreve.TaskStatusError || task.Status == cloudreve.TaskStatusCanceled {
			logger.Warn("task failed",
				slog.String("status", task.Status),
				slog.String("reason", task.Error),
			)

			return nil, &TaskFailedError{Status: task.Status, Reason: task.Error}
		}

		if task.Download == nil {
			pending++

			logger.Debug("task registered, waiting for download details",
				slog.Int("scan", scan),
				slog.Int("pending_scans", pending),
			)

			if report != nil {
				report(Snapshot{Scan: scan, Pending: true})
			}

			if m.opts.MaxPendingScans > 0 && pending >= m.opts.MaxPendingScans {
				return nil, ErrTaskPending
			}

			continue
		}

		snap := snapshot(scan, task.Download)

		logger.Debug("download progress",
			slog.Int("scan", scan),
			slog.String("name", snap.Name),
			slog.String("progress", snap.Progress),
		)

		if report != nil {
			report(snap)
		}

		if snap.Done() {
			logger.Info("remote download complete",
				slog.String("name", snap.Name),
				slog.String("size", snap.Size),
				slog.Int("scans", scan),
			)

			return &Summary{
				Name:      snap.Name,
				Size:      snap.Size,
				TotalSize: snap.TotalSize,
				Progress:  snap.Progress,
				Scans:     scan,
			}, nil
		}
	}
}

// findTask returns the first task whose source equals sourceURL.
func findTask(tasks []cloudreve.Task, sourceURL string) *cloudreve.Task {
	for i := range tasks {
		if tasks[i].Source == sourceURL {
			return &tasks[i]
		}
	}

	return nil
}

func snapshot(scan int, d *cloudreve.DownloadDetail) Snapshot {
	raw := FileProgress(d) * 100 //nolint:mnd // fraction to percent

	snap := Snapshot{
		Scan:       scan,
		Name:       d.Name,
		Size:       FormatSize(d.TotalSize),
		TotalSize:  d.TotalSize,
		Downloaded: d.Downloaded,
		Speed:      d.Speed,
		Percent:    math.Round(raw*100) / 100, //nolint:mnd // two decimals
	}

	if math.Abs(raw-100) < completeTolerance {
		snap.Percent = 100
		snap.Progress = "100"
	} else {
		snap.Progress = fmt.Sprintf("%.2f", raw)
	}

	return snap
}

// FileProgress returns the progress fraction of the file named like the
// download itself. The first match wins; no match is 0.
func FileProgress(d *cloudreve.DownloadDetail) float64 {
	for _, f := range d.Files {
		if f.Name == d.Name {
			return f.Progress
		}
	}

	return 0
}

// FormatSize renders a byte count as binary megabytes with two decimals.
func FormatSize(b int64) string {
	return fmt.Sprintf("%.2f MB", float64(b)/1024/1024)
}

func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
