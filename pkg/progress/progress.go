package progress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mirandadam/hsync/pkg/events"
	"github.com/mirandadam/hsync/pkg/metrics"
	"github.com/mirandadam/hsync/pkg/units"
)

// renderInterval is how often the status line refreshes
const renderInterval = time.Second

// Renderer subscribes to the event broker and keeps a live status line
// on stdout: scan counts during the scan phase; current file,
// instantaneous bandwidth, per-file ETA, backlog ETA and session /
// lifetime byte totals during the transfer phase.
type Renderer struct {
	broker *events.Broker
	out    io.Writer

	mu sync.Mutex
	// scan phase
	srcFiles, srcBytes   int64
	destFiles, destBytes int64
	// transfer phase
	currentFile  string
	currentSize  int64
	currentDone  int64
	sessionBytes int64
	windowBytes  int64 // bytes since the last render tick
	backlogBytes int64
	lifetime     int64
	rate         float64 // smoothed bytes/sec

	stopCh   chan struct{}
	stopOnce sync.Once
	doneCh   chan struct{}
}

// New creates a renderer. lifetimeBytes is the catalog's cumulative
// counter at startup; backlogBytes the pending total for the ETA
// denominator.
func New(broker *events.Broker, lifetimeBytes, backlogBytes int64) *Renderer {
	return &Renderer{
		broker:       broker,
		out:          os.Stdout,
		lifetime:     lifetimeBytes,
		backlogBytes: backlogBytes,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Start begins rendering in the background
func (r *Renderer) Start() {
	go r.run()
}

// SetBacklog refreshes the ETA denominator after a scan phase
func (r *Renderer) SetBacklog(bytes int64) {
	r.mu.Lock()
	r.backlogBytes = bytes
	r.mu.Unlock()
}

// Stop ends rendering and prints a final summary line
func (r *Renderer) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	<-r.doneCh
}

func (r *Renderer) run() {
	defer close(r.doneCh)

	sub := r.broker.Subscribe()
	defer r.broker.Unsubscribe(sub)

	ticker := time.NewTicker(renderInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-sub:
			if !ok {
				return
			}
			r.absorb(ev)
		case <-ticker.C:
			r.render()
		case <-r.stopCh:
			r.render()
			fmt.Fprintln(r.out)
			r.summary()
			return
		}
	}
}

func (r *Renderer) absorb(ev *events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.Type {
	case events.EventScanSourceProgress:
		r.srcFiles, r.srcBytes = ev.Files, ev.Bytes
	case events.EventScanDestProgress:
		r.destFiles, r.destBytes = ev.Files, ev.Bytes
	case events.EventFileStarted:
		r.currentFile = ev.Path
		r.currentSize = ev.Bytes
		r.currentDone = 0
	case events.EventBlockWritten:
		r.currentDone += ev.Bytes
		r.sessionBytes += ev.Bytes
		r.windowBytes += ev.Bytes
		r.lifetime += ev.Bytes
		r.backlogBytes -= ev.Bytes
		if r.backlogBytes < 0 {
			r.backlogBytes = 0
		}
	case events.EventFileCompleted:
		r.currentFile = ""
	}
}

func (r *Renderer) render() {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Exponential smoothing keeps the ETA stable over bursty mounts
	instant := float64(r.windowBytes) / renderInterval.Seconds()
	r.windowBytes = 0
	if r.rate == 0 {
		r.rate = instant
	} else {
		r.rate = 0.7*r.rate + 0.3*instant
	}
	metrics.PendingBytes.Set(float64(r.backlogBytes))

	if r.currentFile == "" && r.sessionBytes == 0 {
		// Scan phase
		fmt.Fprintf(r.out, "\rscanning: source %d files (%s), destination %d files (%s)   ",
			r.srcFiles, units.FormatBytes(r.srcBytes),
			r.destFiles, units.FormatBytes(r.destBytes))
		return
	}

	name := filepath.Base(r.currentFile)
	if name == "." {
		name = "-"
	}
	fmt.Fprintf(r.out, "\r%-30.30s %12s  file ETA %-8s  backlog %s ETA %-8s  copied %s (lifetime %s)   ",
		name,
		units.FormatRate(instant),
		eta(r.currentSize-r.currentDone, r.rate),
		units.FormatBytes(r.backlogBytes),
		eta(r.backlogBytes, r.rate),
		units.FormatBytes(r.sessionBytes),
		units.FormatBytes(r.lifetime))
}

func (r *Renderer) summary() {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "session: %s copied, lifetime total %s\n",
		units.FormatBytes(r.sessionBytes), units.FormatBytes(r.lifetime))
}

func eta(remaining int64, rate float64) string {
	if remaining <= 0 {
		return "done"
	}
	if rate <= 0 {
		return "--"
	}
	d := time.Duration(float64(remaining)/rate) * time.Second
	if d > 99*time.Hour {
		return ">99h"
	}
	return d.Truncate(time.Second).String()
}
