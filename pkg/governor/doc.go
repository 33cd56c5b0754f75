/*
Package governor provides the token-bucket bandwidth limiter.

Both the reader and the writer ask their governor for tokens before
every I/O chunk; the call suspends the goroutine until the budget
allows it. The bucket holds one second of budget, so short bursts are
absorbed while any one-second window stays at or under the configured
rate. The orchestrator gives each direction its own bucket at the same
rate, so a full-duplex transfer uses the link budget once per
direction instead of being charged twice against a shared bucket.
*/
package governor
