/*
Package catalog provides BoltDB-backed persistence for hsync's per-file
sync state.

The catalog is the contract between the scanner, the reader and the
writer: the scanner creates and refreshes rows, the reader drains the
pending rows (the backlog), and the writer promotes rows to synced. It
is also what makes a multi-week run resumable — on restart, the backlog
is exactly the set of files never acknowledged synced, with no rescan
required.

# Architecture

	┌──────────────────── CATALOG (bbolt) ─────────────────────┐
	│                                                           │
	│  ┌────────────────────────────────────────────┐           │
	│  │              Bucket Structure              │           │
	│  │  ┌──────────────────────────────────────┐  │           │
	│  │  │ files        FileRecord by source    │  │           │
	│  │  │              path (JSON)             │  │           │
	│  │  │ dest_entries DestEntry by relative   │  │           │
	│  │  │              path (sweeper input)    │  │           │
	│  │  │ meta         lifetime_bytes counter  │  │           │
	│  │  └──────────────────────────────────────┘  │           │
	│  └────────────────────┬───────────────────────┘           │
	│                       │                                   │
	│  ┌────────────────────▼───────────────────────┐           │
	│  │         Transaction Management             │           │
	│  │  - One write tx per state transition       │           │
	│  │  - Commit + fsync before observable        │           │
	│  │  - MarkSynced: status + hash + lifetime    │           │
	│  │    counter in a single tx                  │           │
	│  └────────────────────────────────────────────┘           │
	└───────────────────────────────────────────────────────────┘

# Backlog iteration

PendingIterator yields pending rows in stable source-path order using
short batched read transactions, so the writer's MarkSynced commits are
never blocked behind the reader's multi-hour drain. Keys advance
monotonically: a row yielded once is never yielded again within one
iteration, and a row synced before its batch is fetched is skipped.

# Hash preservation

UpsertScanned keeps a previously stored hash only while the stored
(size, mtime) pair matches the incoming scan; any change clears it.
Rescans therefore retain audit value for unchanged files without
claiming stale digests for changed ones.
*/
package catalog
