package main

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/tonimelisma/cloudreve-go/internal/remotedl"
)

// barScale is the bar's resolution: percent with two decimals.
const barScale = 100 * 100

// progressRenderer presents monitor snapshots.
type progressRenderer interface {
	Update(s remotedl.Snapshot)
	Finish()
}

// newProgressRenderer picks the renderer for the current output mode: JSON
// lines with --json, a progress bar on an interactive stderr, and one text
// line per snapshot otherwise. --quiet renders nothing.
func newProgressRenderer() progressRenderer {
	switch {
	case flagJSON:
		return &jsonRenderer{w: os.Stdout}
	case flagQuiet:
		return nopRenderer{}
	case isTerminal(os.Stderr):
		return &barRenderer{w: os.Stderr}
	default:
		return &lineRenderer{w: os.Stderr}
	}
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()

	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// barRenderer draws a single progress bar, created on the first detailed
// snapshot so its description can carry the file name and size.
type barRenderer struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

func (r *barRenderer) Update(s remotedl.Snapshot) {
	if s.Pending {
		if r.bar == nil {
			fmt.Fprintf(r.w, "\rwaiting for the server to start the task (scan %d)", s.Scan)
		}

		return
	}

	if r.bar == nil {
		r.bar = progressbar.NewOptions(barScale,
			progressbar.OptionSetWriter(r.w),
			progressbar.OptionSetDescription(fmt.Sprintf("%s (%s)", s.Name, s.Size)),
			progressbar.OptionSetWidth(40), //nolint:mnd // columns
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprint(r.w, "\n")
			}),
			progressbar.OptionSetRenderBlankState(true),
		)
	}

	_ = r.bar.Set(int(math.Round(s.Percent * 100))) //nolint:mnd // percent to bar units
}

func (r *barRenderer) Finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

// lineRenderer prints one line per snapshot, for logs and pipes.
type lineRenderer struct {
	w io.Writer
}

func (r *lineRenderer) Update(s remotedl.Snapshot) {
	if s.Pending {
		fmt.Fprintf(r.w, "[scan %d] waiting for task details\n", s.Scan)

		return
	}

	fmt.Fprintf(r.w, "[scan %d] %s  %s  %s%%  %s/s\n",
		s.Scan, s.Name, s.Size, s.Progress, formatSize(s.Speed))
}

func (r *lineRenderer) Finish() {}

// jsonRenderer writes one JSON object per snapshot.
type jsonRenderer struct {
	w io.Writer
}

// snapshotJSON is the JSON schema of one progress line.
type snapshotJSON struct {
	Scan       int     `json:"scan"`
	Pending    bool    `json:"pending"`
	Name       string  `json:"name,omitempty"`
	Size       string  `json:"size,omitempty"`
	TotalBytes int64   `json:"total_bytes,omitempty"`
	Downloaded int64   `json:"downloaded_bytes,omitempty"`
	Speed      int64   `json:"speed_bytes_per_second,omitempty"`
	Percent    float64 `json:"percent"`
	Progress   string  `json:"progress,omitempty"`
}

func (r *jsonRenderer) Update(s remotedl.Snapshot) {
	_ = writeJSONLine(r.w, snapshotJSON{
		Scan:       s.Scan,
		Pending:    s.Pending,
		Name:       s.Name,
		Size:       s.Size,
		TotalBytes: s.TotalSize,
		Downloaded: s.Downloaded,
		Speed:      s.Speed,
		Percent:    s.Percent,
		Progress:   s.Progress,
	})
}

func (r *jsonRenderer) Finish() {}

type nopRenderer struct{}

func (nopRenderer) Update(remotedl.Snapshot) {}
func (nopRenderer) Finish()                  {}
