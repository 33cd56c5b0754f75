/*
Package transfer implements the streaming path between the source and
destination shares: a producer (Reader) and a consumer (Writer) joined
by a bounded queue, so reads and writes overlap instead of alternating.
Over buffered network mounts this is what keeps the link full-duplex —
the writer flushes block N while the reader fetches block N+1.

# Data flow

	backlog ──▶ Reader ──▶ [governor] ──▶ Queue ──▶ [governor] ──▶ Writer
	 (catalog)    │                                                  │
	              └─ hash incrementally              mtime/atime ────┤
	                                                 MarkSynced ─────┤
	                                                 audit record ───┘

The reader's source of truth is the catalog backlog, never a live
directory walk; that is what makes restarts cheap. Each side asks its
governor for tokens before every I/O chunk, so neither direction of
the link exceeds the configured rate.

# Failure containment

A per-file read or write error leaves that row pending, emits a
failure audit record, and moves on. Only three things stop the phase:
queue protocol violations (impossible block sequences), catalog commit
failures, and cancellation. Interrupted files are rewritten from
offset 0 on the next run; there is no mid-file resume.
*/
package transfer
