package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Scan metrics
	SourceFilesScanned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hsync_source_files_scanned_total",
			Help: "Total number of source files visited by the scanner",
		},
	)

	DestFilesScanned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hsync_dest_files_scanned_total",
			Help: "Total number of destination files visited by the scanner",
		},
	)

	PendingFiles = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hsync_pending_files",
			Help: "Number of files in the backlog",
		},
	)

	PendingBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hsync_pending_bytes",
			Help: "Total bytes remaining in the backlog",
		},
	)

	// Transfer metrics
	BytesCopied = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hsync_bytes_copied_total",
			Help: "Total payload bytes written to the destination this session",
		},
	)

	FilesSynced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hsync_files_synced_total",
			Help: "Total files completed and marked synced this session",
		},
	)

	FilesFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hsync_files_failed_total",
			Help: "Total files that failed transfer and remain pending",
		},
	)

	FilesSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hsync_files_skipped_total",
			Help: "Total files skipped because the destination already matched",
		},
	)

	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hsync_queue_depth_blocks",
			Help: "Blocks currently buffered between the reader and the writer",
		},
	)

	FileTransferDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hsync_file_transfer_duration_seconds",
			Help:    "Time from first block read to synced commit, per file",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		},
	)

	GovernorWaitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hsync_governor_wait_duration_seconds",
			Help:    "Time spent waiting for bandwidth tokens per request",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Sweeper metrics
	ExtrasDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hsync_extras_deleted_total",
			Help: "Destination-only files deleted by the mirror sweeper",
		},
	)

	SweepSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hsync_sweep_skipped_total",
			Help: "Sweep candidates kept because the live check found the source or failed",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(SourceFilesScanned)
	prometheus.MustRegister(DestFilesScanned)
	prometheus.MustRegister(PendingFiles)
	prometheus.MustRegister(PendingBytes)
	prometheus.MustRegister(BytesCopied)
	prometheus.MustRegister(FilesSynced)
	prometheus.MustRegister(FilesFailed)
	prometheus.MustRegister(FilesSkipped)
	prometheus.MustRegister(QueueDepth)
	prometheus.MustRegister(FileTransferDuration)
	prometheus.MustRegister(GovernorWaitDuration)
	prometheus.MustRegister(ExtrasDeleted)
	prometheus.MustRegister(SweepSkipped)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics on addr in the background. Exporting is
// optional; an empty addr disables it.
func Serve(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	go func() {
		// Exporter failure never takes down a transfer
		_ = http.ListenAndServe(addr, mux)
	}()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
