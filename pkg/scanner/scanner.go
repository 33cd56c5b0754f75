package scanner

import (
	"context"
	"fmt"
	"io/fs"
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

// progressEvery is how many files pass between progress events
const progressEvery = 250

// Config holds scanner configuration
type Config struct {
	SourceRoot string
	DestRoot   string
	Catalog    catalog.Store
	Broker     *events.Broker
	Audit      *audit.Log
}

// Scanner walks the source and destination trees. The two walks are
// independent: they share no state and impose no ordering on each
// other. The source walk populates the backlog; the destination walk
// only feeds the mirror sweeper.
type Scanner struct {
	cfg    Config
	logger zerolog.Logger
}

// New creates a scanner
func New(cfg Config) *Scanner {
	return &Scanner{
		cfg:    cfg,
		logger: log.WithComponent("scanner"),
	}
}

// ScanSource walks the source root, resolving each regular file
// against the destination and upserting the result into the catalog.
// A file is already synced iff the destination exists with equal mtime
// and size; everything else joins the backlog.
func (s *Scanner) ScanSource(ctx context.Context) types.PhaseOutcome {
	var out types.PhaseOutcome
	var visited, bytes int64

	err := filepath.WalkDir(s.cfg.SourceRoot, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			// A subtree we cannot read is logged and skipped, not fatal
			s.logger.Error().Err(err).Str("path", path).Msg("Source walk error")
			out.FilesFailed++
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			s.skipSpecial(path, d)
			out.FilesSkip++
			return nil
		}

		info, err := d.Info()
		if err != nil {
			s.logger.Error().Err(err).Str("path", path).Msg("Failed to stat source file")
			out.FilesFailed++
			return nil
		}

		rel, err := filepath.Rel(s.cfg.SourceRoot, path)
		if err != nil {
			return fmt.Errorf("failed to relativize %s: %w", path, err)
		}
		destPath := filepath.Join(s.cfg.DestRoot, rel)

		atime, ctime := statTimes(info)
		rec := &types.FileRecord{
			SourcePath: path,
			DestPath:   destPath,
			Mtime:      info.ModTime().UnixNano(),
			Atime:      atime,
			Ctime:      ctime,
			Perm:       info.Mode(),
			Size:       info.Size(),
		}

		needsTransfer := s.resolve(rec)
		if err := s.cfg.Catalog.UpsertScanned(rec, needsTransfer); err != nil {
			return fmt.Errorf("catalog upsert for %s: %w", path, err)
		}

		if needsTransfer {
			out.FilesOK++
		} else {
			out.FilesSkip++
			metrics.FilesSkipped.Inc()
			s.auditSkip(rec)
		}

		visited++
		bytes += info.Size()
		metrics.SourceFilesScanned.Inc()
		if visited%progressEvery == 0 {
			s.publishProgress(events.EventScanSourceProgress, visited, bytes)
		}
		return nil
	})

	s.publishProgress(events.EventScanSourceProgress, visited, bytes)
	out.Bytes = bytes
	if err != nil && ctx.Err() == nil {
		out.Err = fmt.Errorf("source scan failed: %w", err)
	}
	s.logger.Info().
		Int64("files", visited).
		Int64("pending", out.FilesOK).
		Int64("bytes", bytes).
		Msg("Source scan finished")
	return out
}

// resolve decides pending vs synced for one source file
func (s *Scanner) resolve(rec *types.FileRecord) bool {
	info, err := os.Stat(rec.DestPath)
	if err != nil {
		return true // missing or unreadable destination: transfer
	}
	if !info.Mode().IsRegular() {
		return true
	}
	return info.ModTime().UnixNano() != rec.Mtime || info.Size() != rec.Size
}

// auditSkip records an already-synced file, retaining any hash the
// catalog kept for it
func (s *Scanner) auditSkip(rec *types.FileRecord) {
	if s.cfg.Audit == nil {
		return
	}
	hash := ""
	if stored, err := s.cfg.Catalog.GetRecord(rec.SourcePath); err == nil {
		hash = stored.Hash
	}
	s.cfg.Audit.Skip(rec.SourcePath, rec.DestPath, hash, "destination up to date")
}

func (s *Scanner) skipSpecial(path string, d fs.DirEntry) {
	s.logger.Warn().
		Str("path", path).
		Str("mode", d.Type().String()).
		Msg("Skipping non-regular file")
	if s.cfg.Audit != nil {
		s.cfg.Audit.Skip(path, "", "", "not a regular file")
	}
}

// ScanDest walks the destination root and records every regular file
// in the catalog's destination inventory. It makes no transfer
// decisions; the inventory exists so the sweeper can classify files
// that have no source counterpart.
func (s *Scanner) ScanDest(ctx context.Context) types.PhaseOutcome {
	var out types.PhaseOutcome
	var visited, bytes int64

	if err := s.cfg.Catalog.ClearDestEntries(); err != nil {
		out.Err = fmt.Errorf("failed to reset destination inventory: %w", err)
		return out
	}

	err := filepath.WalkDir(s.cfg.DestRoot, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			if os.IsNotExist(err) && path == s.cfg.DestRoot {
				// Destination root will be created by the writer
				return fs.SkipAll
			}
			s.logger.Error().Err(err).Str("path", path).Msg("Destination walk error")
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			s.logger.Error().Err(err).Str("path", path).Msg("Failed to stat destination file")
			return nil
		}

		rel, err := filepath.Rel(s.cfg.DestRoot, path)
		if err != nil {
			return fmt.Errorf("failed to relativize %s: %w", path, err)
		}
		if err := s.cfg.Catalog.PutDestEntry(&types.DestEntry{RelPath: rel, Size: info.Size()}); err != nil {
			return fmt.Errorf("catalog dest entry for %s: %w", path, err)
		}

		visited++
		bytes += info.Size()
		metrics.DestFilesScanned.Inc()
		if visited%progressEvery == 0 {
			s.publishProgress(events.EventScanDestProgress, visited, bytes)
		}
		return nil
	})

	s.publishProgress(events.EventScanDestProgress, visited, bytes)
	out.FilesOK = visited
	out.Bytes = bytes
	if err != nil && ctx.Err() == nil {
		out.Err = fmt.Errorf("destination scan failed: %w", err)
	}
	s.logger.Info().
		Int64("files", visited).
		Int64("bytes", bytes).
		Msg("Destination scan finished")
	return out
}

func (s *Scanner) publishProgress(t events.EventType, files, bytes int64) {
	if s.cfg.Broker == nil {
		return
	}
	s.cfg.Broker.Publish(&events.Event{Type: t, Files: files, Bytes: bytes})
}
