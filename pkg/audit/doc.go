// Package audit writes the append-only audit trail: one JSON line per
// terminal file event (success, failure, skip, delete). The trail is
// the durable record of what a multi-week migration actually did;
// every line carries the run's session id so overlapping runs against
// the same log file stay distinguishable.
package audit
