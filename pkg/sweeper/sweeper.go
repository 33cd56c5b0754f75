package sweeper

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/mirandadam/hsync/pkg/audit"
	"github.com/mirandadam/hsync/pkg/catalog"
	"github.com/mirandadam/hsync/pkg/events"
	"github.com/mirandadam/hsync/pkg/log"
	"github.com/mirandadam/hsync/pkg/metrics"
	"github.com/mirandadam/hsync/pkg/types"
)

// Config holds sweeper configuration
type Config struct {
	SourceRoot string
	DestRoot   string
	Catalog    catalog.Store
	Broker     *events.Broker
	Audit      *audit.Log
}

// Sweeper deletes destination files that no longer exist at the
// source. It runs only after the transfer phase has drained, and it
// never trusts the catalog alone: every candidate is re-checked with a
// live stat against the source immediately before deletion, so a file
// created after the scan survives.
type Sweeper struct {
	cfg    Config
	logger zerolog.Logger
}

// New creates a sweeper
func New(cfg Config) *Sweeper {
	return &Sweeper{
		cfg:    cfg,
		logger: log.WithComponent("sweeper"),
	}
}

// Run walks the destination inventory and removes extras
func (s *Sweeper) Run(ctx context.Context) types.PhaseOutcome {
	var out types.PhaseOutcome
	var stale []string

	err := s.cfg.Catalog.DestEntriesIn("", func(e *types.DestEntry) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		sourcePath := filepath.Join(s.cfg.SourceRoot, e.RelPath)
		destPath := filepath.Join(s.cfg.DestRoot, e.RelPath)

		// Live check: only a confirmed missing source permits deletion.
		// The catalog is not consulted for classification because a
		// stale row may outlive the source file it described.
		// Any stat error other than not-exist keeps the file.
		if _, err := os.Lstat(sourcePath); err == nil {
			s.logger.Debug().Str("source", sourcePath).Msg("Source exists, keeping destination file")
			out.FilesSkip++
			metrics.SweepSkipped.Inc()
			return nil
		} else if !os.IsNotExist(err) {
			s.logger.Warn().Err(err).Str("source", sourcePath).Msg("Live check failed, keeping destination file")
			out.FilesSkip++
			metrics.SweepSkipped.Inc()
			s.publish(events.EventSweepSkipped, destPath, err)
			return nil
		}

		if err := os.Remove(destPath); err != nil {
			if os.IsNotExist(err) {
				return nil // already gone
			}
			s.logger.Error().Err(err).Str("dest", destPath).Msg("Failed to delete extra file")
			out.FilesFailed++
			return nil
		}

		out.Deleted++
		out.Bytes += e.Size
		metrics.ExtrasDeleted.Inc()
		s.logger.Info().Str("dest", destPath).Msg("Deleted destination-only file")
		if s.cfg.Audit != nil {
			s.cfg.Audit.Delete(destPath)
		}
		s.publish(events.EventSweepDeleted, destPath, nil)

		// Drop the stale catalog row if one exists from an earlier run
		stale = append(stale, sourcePath)
		return nil
	})

	// Rows are dropped after the inventory walk has closed its read
	// transaction: a bbolt write transaction opened inside it can
	// deadlock when the file is remapped.
	for _, p := range stale {
		if derr := s.cfg.Catalog.DeleteRecord(p); derr != nil && err == nil {
			err = fmt.Errorf("failed to drop stale record %s: %w", p, derr)
		}
	}

	if err != nil && ctx.Err() == nil {
		out.Err = fmt.Errorf("sweep failed: %w", err)
	}
	s.logger.Info().
		Int64("deleted", out.Deleted).
		Int64("kept", out.FilesSkip).
		Msg("Mirror sweep finished")
	return out
}

func (s *Sweeper) publish(t events.EventType, path string, err error) {
	if s.cfg.Broker == nil {
		return
	}
	ev := &events.Event{Type: t, Path: path}
	if err != nil {
		ev.Error = err.Error()
	}
	s.cfg.Broker.Publish(ev)
}
