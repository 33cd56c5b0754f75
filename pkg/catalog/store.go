package catalog

import (
	"github.com/mirandadam/hsync/pkg/types"
)

// Store defines the interface for durable per-file sync state.
// Implemented by the BoltDB-backed Catalog.
type Store interface {
	// Records
	UpsertScanned(rec *types.FileRecord, needsTransfer bool) error
	GetRecord(sourcePath string) (*types.FileRecord, error)
	MarkSynced(sourcePath, hash string) error
	DeleteRecord(sourcePath string) error

	// Backlog
	PendingIterator() *PendingIterator
	CountPending() (int64, error)
	BytesPending() (int64, error)

	// Destination inventory (sweeper input)
	PutDestEntry(e *types.DestEntry) error
	ClearDestEntries() error
	DestEntriesIn(prefix string, fn func(*types.DestEntry) error) error

	// Lifetime accounting
	LifetimeBytes() (int64, error)

	// Utility
	Close() error
}
