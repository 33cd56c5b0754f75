/*
Package metrics exposes Prometheus instrumentation for hsync.

A migration that runs for weeks needs external observability beyond the
console: these metrics let an operator graph throughput, backlog
drain-down and failure counts over the whole run. The exporter is
opt-in via --metrics-addr and serves only /metrics.

Counters are per-session; the durable lifetime byte count lives in the
catalog, not here.
*/
package metrics
