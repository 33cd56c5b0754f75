/*
Package types defines the shared data model for hsync's transfer engine.

The two central types are FileRecord, the durable per-file row stored in
the catalog, and Block, the in-flight unit of data on the bounded queue
between the reader and the writer.

# FileRecord lifecycle

	scanner ──▶ pending ──▶ reader ──▶ writer ──▶ synced
	              ▲                                  │
	              └────────── next scan ◀────────────┘

Records are created or refreshed only by the scanner, which marks each
one pending, or synced when the destination already matches. After a
transfer, the writer promotes the row to synced together with the file
hash. The sweeper may delete rows for files that no longer exist at
the source.

# Block ownership

A Block's buffer is owned by exactly one side at a time: the reader
fills it, ownership transfers on publish, and the writer returns it to
the pool after the write completes. Blocks for one file are strictly
ordered by offset, with exactly one IsLast block carrying the digest.
*/
package types
