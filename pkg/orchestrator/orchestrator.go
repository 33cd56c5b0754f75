package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mirandadam/hsync/pkg/audit"
	"github.com/mirandadam/hsync/pkg/catalog"
	"github.com/mirandadam/hsync/pkg/events"
	"github.com/mirandadam/hsync/pkg/governor"
	"github.com/mirandadam/hsync/pkg/hasher"
	"github.com/mirandadam/hsync/pkg/log"
	"github.com/mirandadam/hsync/pkg/metrics"
	"github.com/mirandadam/hsync/pkg/progress"
	"github.com/mirandadam/hsync/pkg/queue"
	"github.com/mirandadam/hsync/pkg/scanner"
	"github.com/mirandadam/hsync/pkg/sweeper"
	"github.com/mirandadam/hsync/pkg/transfer"
	"github.com/mirandadam/hsync/pkg/types"
)

// ErrInterrupted reports a cooperative shutdown before the run drained
var ErrInterrupted = errors.New("interrupted")

// Config holds one run's parameters
type Config struct {
	SourceRoot    string
	DestRoot      string
	DBPath        string
	LogPath       string
	BWLimit       int64 // bytes/sec, 0 = unlimited
	Algorithm     hasher.Algorithm
	BlockSize     int
	QueueCapacity int
	DeleteExtras  bool
	Rescan        bool
	MetricsAddr   string
	Quiet         bool // suppress the live status line (tests)
}

// Orchestrator wires the engine together and drives the phases:
// scan (or resume), transfer, and optionally sweep.
type Orchestrator struct {
	cfg    Config
	logger zerolog.Logger
}

// New creates an orchestrator
func New(cfg Config) *Orchestrator {
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = transfer.DefaultBlockSize
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = queue.DefaultCapacity
	}
	return &Orchestrator{
		cfg:    cfg,
		logger: log.WithComponent("orchestrator"),
	}
}

// Run executes one hsync run. It returns nil on success,
// ErrInterrupted on cooperative shutdown, and the underlying error on
// a fatal condition.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.validate(); err != nil {
		return err
	}

	cat, err := catalog.Open(o.cfg.DBPath)
	if err != nil {
		return err
	}
	defer cat.Close()

	auditLog, err := audit.Open(o.cfg.LogPath)
	if err != nil {
		return err
	}
	defer auditLog.Close()

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	metrics.Serve(o.cfg.MetricsAddr)
	o.logger.Info().Str("session", auditLog.Session()).Msg("Run started")

	var renderer *progress.Renderer
	if !o.cfg.Quiet {
		lifetime, err := cat.LifetimeBytes()
		if err != nil {
			return err
		}
		backlog, err := cat.BytesPending()
		if err != nil {
			return err
		}
		renderer = progress.New(broker, lifetime, backlog)
		renderer.Start()
		defer renderer.Stop()
	}

	// Scan or resume
	pending, err := cat.CountPending()
	if err != nil {
		return err
	}
	if o.cfg.Rescan || pending == 0 {
		if o.cfg.Rescan {
			fmt.Println("Rescan requested: refreshing catalog from both shares")
		} else {
			fmt.Println("Backlog empty: running fresh scan")
		}
		if err := o.scanPhase(ctx, cat, broker, auditLog); err != nil {
			return err
		}
		if renderer != nil {
			backlog, err := cat.BytesPending()
			if err != nil {
				return err
			}
			renderer.SetBacklog(backlog)
		}
	} else {
		fmt.Printf("Resuming: %d files pending, no scan needed\n", pending)
	}

	if ctx.Err() != nil {
		return ErrInterrupted
	}

	// Transfer
	if err := o.transferPhase(ctx, cat, broker, auditLog); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ErrInterrupted
	}

	// Mirror cleanup
	if o.cfg.DeleteExtras {
		sw := sweeper.New(sweeper.Config{
			SourceRoot: o.cfg.SourceRoot,
			DestRoot:   o.cfg.DestRoot,
			Catalog:    cat,
			Broker:     broker,
			Audit:      auditLog,
		})
		if out := sw.Run(ctx); out.Err != nil {
			return out.Err
		}
		if ctx.Err() != nil {
			return ErrInterrupted
		}
	}

	o.logger.Info().Msg("Run finished")
	return nil
}

// validate fails fast on configuration errors, before any phase runs
func (o *Orchestrator) validate() error {
	info, err := os.Stat(o.cfg.SourceRoot)
	if err != nil {
		return fmt.Errorf("source root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source root %s is not a directory", o.cfg.SourceRoot)
	}
	if o.cfg.DestRoot == "" {
		return fmt.Errorf("destination root is required")
	}
	if err := os.MkdirAll(o.cfg.DestRoot, 0755); err != nil {
		return fmt.Errorf("destination root: %w", err)
	}
	if _, err := hasher.New(o.cfg.Algorithm); err != nil {
		return err
	}
	return nil
}

// scanPhase runs both walkers concurrently. They share no state; the
// group exists only to join them and surface a fatal error.
func (o *Orchestrator) scanPhase(ctx context.Context, cat *catalog.Catalog, broker *events.Broker, auditLog *audit.Log) error {
	s := scanner.New(scanner.Config{
		SourceRoot: o.cfg.SourceRoot,
		DestRoot:   o.cfg.DestRoot,
		Catalog:    cat,
		Broker:     broker,
		Audit:      auditLog,
	})

	var eg errgroup.Group
	eg.Go(func() error {
		out := s.ScanSource(ctx)
		return out.Err
	})
	eg.Go(func() error {
		out := s.ScanDest(ctx)
		return out.Err
	})
	if err := eg.Wait(); err != nil {
		return fmt.Errorf("scan phase: %w", err)
	}

	n, err := cat.CountPending()
	if err != nil {
		return err
	}
	b, err := cat.BytesPending()
	if err != nil {
		return err
	}
	metrics.PendingFiles.Set(float64(n))
	metrics.PendingBytes.Set(float64(b))
	return nil
}

// transferPhase launches the reader and writer against a fresh queue
// and blocks until both finish
func (o *Orchestrator) transferPhase(ctx context.Context, cat *catalog.Catalog, broker *events.Broker, auditLog *audit.Log) error {
	q := queue.New(o.cfg.QueueCapacity)
	pool := queue.NewBufferPool(o.cfg.BlockSize)

	// Two buckets of the same rate, so neither direction exceeds the
	// link budget and the full-duplex stream is not charged twice.
	reader := transfer.NewReader(transfer.ReaderConfig{
		Catalog:   cat,
		Queue:     q,
		Governor:  governor.New(o.cfg.BWLimit),
		Pool:      pool,
		Broker:    broker,
		Audit:     auditLog,
		Algorithm: o.cfg.Algorithm,
		BlockSize: o.cfg.BlockSize,
	})
	writer := transfer.NewWriter(transfer.WriterConfig{
		Catalog:  cat,
		Queue:    q,
		Governor: governor.New(o.cfg.BWLimit),
		Pool:     pool,
		Broker:   broker,
		Audit:    auditLog,
	})

	// The writer's fatal errors cancel the reader through the group
	// context; the reader closing the queue stops the writer normally.
	eg, gctx := errgroup.WithContext(ctx)
	var readerOut, writerOut types.PhaseOutcome
	eg.Go(func() error {
		readerOut = reader.Run(gctx)
		return readerOut.Err
	})
	eg.Go(func() error {
		writerOut = writer.Run(gctx)
		return writerOut.Err
	})
	if err := eg.Wait(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("transfer phase: %w", err)
	}

	o.logger.Info().
		Int64("files_synced", writerOut.FilesOK).
		Int64("files_failed", readerOut.FilesFailed+writerOut.FilesFailed).
		Int64("bytes", writerOut.Bytes).
		Msg("Transfer phase finished")
	return nil
}
