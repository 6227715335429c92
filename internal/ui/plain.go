package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/mwaldron/vclone/internal/event"
	"github.com/mwaldron/vclone/internal/stats"
)

// Presenter prints transfer progress and lifecycle lines for one copy.
// It is a passive observer: it reads the collector and drains the event
// stream, and has no effect on the transfer itself.
type Presenter struct {
	W     io.Writer
	Stats *stats.Collector
	Quiet bool
}

// Run drains events until the channel closes, printing a progress line
// once per second. The one-second cadence also feeds the collector's
// throughput ring, which percent/ETA derive from.
func (p *Presenter) Run(events <-chan event.Event) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			p.handleEvent(ev)
		case <-ticker.C:
			if p.Stats == nil {
				continue
			}
			p.Stats.Tick()
			p.printProgress()
		}
	}
}

func (p *Presenter) handleEvent(ev event.Event) {
	if p.Quiet {
		return
	}
	switch ev.Type {
	case event.SnapshotCreated:
		fmt.Fprintf(p.W, "snapshot created for %s\n", ev.Path)
	case event.SnapshotRemoved:
		fmt.Fprintln(p.W, "snapshot removed")
	case event.TransferStarted:
		fmt.Fprintf(p.W, "copying %s (%s)\n", ev.Path, stats.FormatBytes(ev.Total))
	case event.TransferFailed:
		errMsg := "error"
		if ev.Error != nil {
			errMsg = ev.Error.Error()
		}
		fmt.Fprintf(p.W, "failed: %s\n", errMsg)
	case event.TransferCompleted, event.TransferProgress:
		// Completion is summarized by the caller; progress by the ticker.
	}
}

func (p *Presenter) printProgress() {
	if p.Quiet {
		return
	}
	snap := p.Stats.Snapshot()
	if snap.BytesTotal <= 0 {
		return
	}
	fmt.Fprintf(p.W, "progress: %.0f%% %s/%s %s eta %s\n",
		p.Stats.Percent(),
		stats.FormatBytes(snap.BytesCopied), stats.FormatBytes(snap.BytesTotal),
		FormatRate(p.Stats.RollingSpeed(10)),
		FormatETA(p.Stats.ETA()),
	)
}

// Summary returns the one-line completion summary, or an empty string
// when no collector was attached.
func (p *Presenter) Summary() string {
	if p.Stats == nil {
		return ""
	}
	snap := p.Stats.Snapshot()
	rate := float64(0)
	if secs := snap.Elapsed.Seconds(); secs > 0 {
		rate = float64(snap.BytesCopied) / secs
	}
	return fmt.Sprintf("%s copied (%s sparse) in %s (%s)",
		stats.FormatBytes(snap.BytesCopied),
		stats.FormatBytes(snap.SparseBytes),
		snap.Elapsed.Round(time.Millisecond),
		FormatRate(rate),
	)
}
