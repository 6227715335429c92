package ui

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mwaldron/vclone/internal/event"
	"github.com/mwaldron/vclone/internal/stats"
)

func runPresenter(p *Presenter, evs ...event.Event) {
	ch := make(chan event.Event, len(evs))
	for _, ev := range evs {
		ch <- ev
	}
	close(ch)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.Run(ch)
	}()
	wg.Wait()
}

func TestPresenterLifecycleLines(t *testing.T) {
	var buf bytes.Buffer
	p := &Presenter{W: &buf, Stats: stats.NewCollector()}

	runPresenter(p,
		event.Event{Type: event.SnapshotCreated, Path: "/data/db.raw"},
		event.Event{Type: event.TransferStarted, Path: "/data/db.raw", Total: 1024},
		event.Event{Type: event.TransferCompleted, Path: "/data/db.raw"},
		event.Event{Type: event.SnapshotRemoved},
	)

	out := buf.String()
	assert.Contains(t, out, "snapshot created for /data/db.raw")
	assert.Contains(t, out, "copying /data/db.raw (1.0 KiB)")
	assert.Contains(t, out, "snapshot removed")
}

func TestPresenterFailureLine(t *testing.T) {
	var buf bytes.Buffer
	p := &Presenter{W: &buf, Stats: stats.NewCollector()}

	runPresenter(p, event.Event{Type: event.TransferFailed, Error: errors.New("device gone")})
	assert.Contains(t, buf.String(), "failed: device gone")
}

func TestPresenterQuiet(t *testing.T) {
	var buf bytes.Buffer
	p := &Presenter{W: &buf, Stats: stats.NewCollector(), Quiet: true}

	runPresenter(p,
		event.Event{Type: event.TransferStarted, Path: "x", Total: 10},
		event.Event{Type: event.TransferFailed, Error: errors.New("boom")},
	)
	assert.Empty(t, buf.String())
}

func TestPresenterWithoutCollector(t *testing.T) {
	var buf bytes.Buffer
	p := &Presenter{W: &buf}

	ch := make(chan event.Event)
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ch)
	}()

	// Hold the channel open past one ticker fire.
	time.Sleep(1100 * time.Millisecond)
	ch <- event.Event{Type: event.TransferStarted, Path: "x", Total: 10}
	close(ch)
	<-done

	assert.Contains(t, buf.String(), "copying x")
	assert.Empty(t, p.Summary())
}

func TestPresenterSummary(t *testing.T) {
	c := stats.NewCollector()
	c.SetTotal(2048)
	c.AddCopied(2048)
	c.AddSparse(1024)

	p := &Presenter{Stats: c}
	s := p.Summary()
	assert.Contains(t, s, "2.0 KiB copied")
	assert.Contains(t, s, "1.0 KiB sparse")
}
