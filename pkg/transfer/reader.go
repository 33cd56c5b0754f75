package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/mirandadam/hsync/pkg/audit"
	"github.com/mirandadam/hsync/pkg/catalog"
	"github.com/mirandadam/hsync/pkg/events"
	"github.com/mirandadam/hsync/pkg/governor"
	"github.com/mirandadam/hsync/pkg/hasher"
	"github.com/mirandadam/hsync/pkg/log"
	"github.com/mirandadam/hsync/pkg/metrics"
	"github.com/mirandadam/hsync/pkg/queue"
	"github.com/mirandadam/hsync/pkg/types"
)

// DefaultBlockSize is the default block buffer size (5 MiB)
const DefaultBlockSize = 5 << 20

// ReaderConfig holds producer configuration
type ReaderConfig struct {
	Catalog   catalog.Store
	Queue     *queue.Queue
	Governor  *governor.Governor
	Pool      *queue.BufferPool
	Broker    *events.Broker
	Audit     *audit.Log
	Algorithm hasher.Algorithm
	BlockSize int
}

// Reader is the producer side of the transfer phase. It drains the
// backlog in catalog order, reads each file block-wise under the
// governor, hashes incrementally, and publishes blocks. It never
// consults the live filesystem to decide what to transfer.
type Reader struct {
	cfg    ReaderConfig
	logger zerolog.Logger
}

// NewReader creates a reader
func NewReader(cfg ReaderConfig) *Reader {
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = DefaultBlockSize
	}
	return &Reader{
		cfg:    cfg,
		logger: log.WithComponent("reader"),
	}
}

// Run drains the backlog. It returns after the last pending file has
// been published, or once ctx is cancelled; either way it closes the
// queue so the writer can drain and stop.
func (r *Reader) Run(ctx context.Context) types.PhaseOutcome {
	defer r.cfg.Queue.Close()

	var out types.PhaseOutcome

	it := r.cfg.Catalog.PendingIterator()
	for {
		if ctx.Err() != nil {
			break
		}
		rec, err := it.Next()
		if err != nil {
			out.Err = fmt.Errorf("backlog iteration failed: %w", err)
			return out
		}
		if rec == nil {
			break
		}

		n, err := r.produceFile(ctx, rec)
		out.Bytes += n
		switch {
		case err == nil:
			out.FilesOK++
		case errors.Is(err, context.Canceled), errors.Is(err, queue.ErrClosed):
			// Cooperative shutdown: the file restarts from offset 0
			// on the next run.
			return out
		default:
			out.FilesFailed++
			metrics.FilesFailed.Inc()
			r.logger.Error().Err(err).Str("source", rec.SourcePath).Msg("File read failed")
			if r.cfg.Audit != nil {
				r.cfg.Audit.Failure(rec.SourcePath, rec.DestPath, err)
			}
		}
	}
	return out
}

// produceFile publishes one file as a sequence of blocks. The final
// block carries the digest; empty files still produce exactly one
// zero-length final block so the writer creates and finalizes them.
func (r *Reader) produceFile(ctx context.Context, rec *types.FileRecord) (int64, error) {
	f, err := os.Open(rec.SourcePath)
	if err != nil {
		return 0, fmt.Errorf("failed to open source: %w", err)
	}
	defer f.Close()

	h, err := hasher.New(r.cfg.Algorithm)
	if err != nil {
		return 0, err
	}

	if r.cfg.Broker != nil {
		r.cfg.Broker.Publish(&events.Event{
			Type:  events.EventFileStarted,
			Path:  rec.SourcePath,
			Bytes: rec.Size,
		})
	}

	var offset int64
	for {
		if err := r.cfg.Governor.WaitN(ctx, r.cfg.BlockSize); err != nil {
			return offset, err
		}

		buf := r.cfg.Pool.Get()
		n, err := io.ReadFull(f, buf)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			r.cfg.Pool.Put(buf)
			return offset, fmt.Errorf("read at offset %d: %w", offset, err)
		}
		last := err == io.EOF || err == io.ErrUnexpectedEOF

		if n > 0 {
			h.Update(buf[:n])
		}

		block := &types.Block{
			SourcePath: rec.SourcePath,
			DestPath:   rec.DestPath,
			Buf:        buf[:n],
			Offset:     offset,
			Mtime:      rec.Mtime,
			Atime:      rec.Atime,
			Ctime:      rec.Ctime,
			Perm:       rec.Perm,
			IsLast:     last,
		}
		if last {
			block.FileHash = h.Finalize()
		}

		if err := r.cfg.Queue.Publish(ctx, block); err != nil {
			r.cfg.Pool.Put(buf)
			return offset, err
		}
		offset += int64(n)

		if last {
			return offset, nil
		}
	}
}
