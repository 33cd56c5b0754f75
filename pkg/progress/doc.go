// Package progress renders the live console status line from the
// event stream: scan counts during the scan phase, then current file,
// instantaneous bandwidth, per-file and backlog ETAs, and session /
// lifetime byte totals during transfer. The displayed bandwidth is the
// last interval's instantaneous rate; the ETAs use an exponentially
// smoothed rate so they do not whipsaw on bursty network mounts.
package progress
