/*
Package events provides an in-memory event broker for hsync's progress
reporting.

Phases (scanner, reader/writer, sweeper) publish events; the console
renderer subscribes. Prometheus metrics are updated by the phases
directly, not through the broker. Delivery is asynchronous and lossy
by design: publishing never blocks the transfer path, and a
subscriber that cannot keep up misses intermediate progress events
rather than stalling I/O.

	Scanner ─┐
	Reader  ─┼─▶ Broker ─ broadcast ──▶ progress renderer (stdout)
	Writer  ─┤
	Sweeper ─┘

Terminal per-file outcomes (success, failure, skip, delete) are also
written durably to the audit log by the phases themselves; the broker
is for live reporting only and carries no persistence guarantees.
*/
package events
