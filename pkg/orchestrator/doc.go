/*
Package orchestrator wires the engine together and drives a run.

Startup decision tree:

 1. Open the catalog (created on first run).
 2. If --rescan was given or the backlog is empty, run the scan phase:
    both walkers concurrently. Otherwise resume straight into transfer
    — the backlog in the catalog is trusted as-is, which is what makes
    restarting a multi-week migration cheap.
 3. Run the transfer phase: reader and writer against the bounded
    queue, joined before moving on.
 4. With --delete-extras, run the mirror sweeper.

Phases return structured outcomes rather than panicking across
boundaries. Per-file failures stay inside their phase; only catalog
and configuration errors (and a queue protocol violation) abort the
run. Cancellation is cooperative: the reader stops publishing, the
writer drains, interrupted files stay pending and restart from offset
zero next time.
*/
package orchestrator
