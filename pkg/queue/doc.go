/*
Package queue provides the bounded FIFO connecting the reader and the
writer, plus the shared block buffer pool.

Capacity is counted in blocks, so the worst-case buffered payload is
capacity × block size (100 MiB at the defaults). Publish suspends
while full and Consume while empty; that back-pressure is what bounds
memory when the destination mount is slower than the source.

Shutdown is cooperative: Close makes further Publish calls fail while
Consume keeps draining what was already published, then reports end of
stream. Nothing in flight is dropped.
*/
package queue
