package transfer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/mirandadam/hsync/pkg/audit"
	"github.com/mirandadam/hsync/pkg/catalog"
	"github.com/mirandadam/hsync/pkg/events"
	"github.com/mirandadam/hsync/pkg/governor"
	"github.com/mirandadam/hsync/pkg/log"
	"github.com/mirandadam/hsync/pkg/metrics"
	"github.com/mirandadam/hsync/pkg/queue"
	"github.com/mirandadam/hsync/pkg/types"
)

var (
	// ErrProtocol reports a block sequence a correct single reader
	// cannot have produced.
	ErrProtocol = errors.New("block protocol violation")

	// ErrCatalog marks a catalog commit failure, which is fatal: the
	// engine cannot trust its own resume state past this point.
	ErrCatalog = errors.New("catalog failure")
)

// WriterConfig holds consumer configuration
type WriterConfig struct {
	Catalog  catalog.Store
	Queue    *queue.Queue
	Governor *governor.Governor
	Pool     *queue.BufferPool
	Broker   *events.Broker
	Audit    *audit.Log
}

// Writer is the consumer side of the transfer phase. Per destination
// file it moves idle → open (offset 0) → writing → finalizing
// (is_last) → idle. Finalizing closes the file, applies source
// timestamps, commits the synced status with the hash, and emits the
// audit record.
type Writer struct {
	cfg    WriterConfig
	logger zerolog.Logger

	// current open destination, nil while idle
	f        *os.File
	dest     string
	written  int64
	timer    *metrics.Timer
	skipDest string // blocks for this dest are dropped after a write error
}

// NewWriter creates a writer
func NewWriter(cfg WriterConfig) *Writer {
	return &Writer{
		cfg:    cfg,
		logger: log.WithComponent("writer"),
	}
}

// Run consumes blocks until the queue is closed and drained. A block
// with a nonzero offset arriving while idle aborts the writer: with a
// single producer that can only mean lost or reordered blocks.
func (w *Writer) Run(ctx context.Context) types.PhaseOutcome {
	var out types.PhaseOutcome
	defer w.abandon()

	// Cancellation reaches the writer through the reader closing the
	// queue, so blocks already published are still written.
	ctx = context.WithoutCancel(ctx)

	for {
		block, ok := w.cfg.Queue.Consume(ctx)
		if !ok {
			return out
		}
		metrics.QueueDepth.Set(float64(w.cfg.Queue.Len()))

		if err := w.handle(ctx, block, &out); err != nil {
			if errors.Is(err, ErrProtocol) || errors.Is(err, ErrCatalog) || errors.Is(err, context.Canceled) {
				out.Err = err
				return out
			}
			// Per-file write failure: drop the rest of this file's
			// blocks and keep the row pending for the next run.
			out.FilesFailed++
			metrics.FilesFailed.Inc()
			w.logger.Error().Err(err).Str("dest", block.DestPath).Msg("File write failed")
			if w.cfg.Audit != nil {
				w.cfg.Audit.Failure(block.SourcePath, block.DestPath, err)
			}
			w.skipDest = block.DestPath
			w.abandon()
		}
	}
}

func (w *Writer) handle(ctx context.Context, block *types.Block, out *types.PhaseOutcome) error {
	defer w.cfg.Pool.Put(block.Buf)

	if block.DestPath == w.skipDest && block.Offset != 0 {
		return nil // remainder of a failed file
	}

	if block.Offset == 0 {
		if w.f != nil {
			// The reader abandoned the previous file mid-stream (read
			// error); drop the partial destination and move on.
			w.logger.Warn().Str("dest", w.dest).Msg("Abandoning incomplete destination file")
			w.abandon()
		}
		w.skipDest = ""
		if err := w.open(block); err != nil {
			return err
		}
	} else if w.f == nil || block.DestPath != w.dest {
		return fmt.Errorf("%w: offset %d for %s while %s is open",
			ErrProtocol, block.Offset, block.DestPath, w.dest)
	} else if block.Offset != w.written {
		return fmt.Errorf("%w: offset %d for %s, expected %d",
			ErrProtocol, block.Offset, block.DestPath, w.written)
	}

	if len(block.Buf) > 0 {
		gt := metrics.NewTimer()
		if err := w.cfg.Governor.WaitN(ctx, len(block.Buf)); err != nil {
			return err
		}
		gt.ObserveDuration(metrics.GovernorWaitDuration)

		if _, err := w.f.WriteAt(block.Buf, block.Offset); err != nil {
			return fmt.Errorf("write at offset %d: %w", block.Offset, err)
		}
		w.written = block.Offset + int64(len(block.Buf))
		out.Bytes += int64(len(block.Buf))
		metrics.BytesCopied.Add(float64(len(block.Buf)))

		if w.cfg.Broker != nil {
			w.cfg.Broker.Publish(&events.Event{
				Type:  events.EventBlockWritten,
				Path:  block.SourcePath,
				Bytes: int64(len(block.Buf)),
			})
		}
	}

	if block.IsLast {
		return w.finalize(block, out)
	}
	return nil
}

// open creates the destination file, truncating any existing content
func (w *Writer) open(block *types.Block) error {
	if err := os.MkdirAll(filepath.Dir(block.DestPath), 0755); err != nil {
		return fmt.Errorf("failed to create parent directories: %w", err)
	}
	f, err := os.OpenFile(block.DestPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}
	w.f = f
	w.dest = block.DestPath
	w.written = 0
	w.timer = metrics.NewTimer()
	return nil
}

// finalize closes the file, applies timestamps, and commits synced
// status atomically with the hash
func (w *Writer) finalize(block *types.Block, out *types.PhaseOutcome) error {
	f := w.f
	w.f = nil
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close destination: %w", err)
	}

	// Timestamp failures are warnings: the payload is already correct.
	atime := block.Atime
	if atime == 0 {
		atime = block.Mtime
	}
	if err := applyTimes(block.DestPath, atime, block.Mtime, block.Ctime); err != nil {
		w.logger.Warn().Err(err).Str("dest", block.DestPath).Msg("Failed to apply timestamps")
	}

	if err := w.cfg.Catalog.MarkSynced(block.SourcePath, block.FileHash); err != nil {
		return fmt.Errorf("%w: commit for %s: %v", ErrCatalog, block.SourcePath, err)
	}

	out.FilesOK++
	metrics.FilesSynced.Inc()
	if w.timer != nil {
		w.timer.ObserveDuration(metrics.FileTransferDuration)
	}
	if w.cfg.Audit != nil {
		w.cfg.Audit.Success(block.SourcePath, block.DestPath, block.FileHash)
	}
	if w.cfg.Broker != nil {
		w.cfg.Broker.Publish(&events.Event{
			Type:  events.EventFileCompleted,
			Path:  block.SourcePath,
			Bytes: w.written,
		})
	}

	w.logger.Debug().
		Str("dest", block.DestPath).
		Str("hash", block.FileHash).
		Int64("bytes", w.written).
		Msg("File finalized")

	w.dest = ""
	w.written = 0
	w.timer = nil
	return nil
}

// abandon closes any half-written destination without finalizing it.
// The catalog row stays pending, so the next run rewrites the file
// from offset 0.
func (w *Writer) abandon() {
	if w.f == nil {
		return
	}
	w.f.Close()
	w.f = nil
	w.dest = ""
	w.written = 0
	w.timer = nil
}
