package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/mirandadam/hsync/pkg/types"
)

// ErrClosed is returned by Publish after the queue has been closed
var ErrClosed = errors.New("queue closed")

// DefaultCapacity is the default number of in-flight blocks
const DefaultCapacity = 20

// Queue is a bounded FIFO of blocks decoupling the reader from the
// writer. Publish blocks while full, Consume blocks while empty. After
// Close, Publish fails immediately and Consume drains what remains
// before reporting end of stream.
//
// Ordering holds with a single producer: blocks of one file arrive in
// strictly increasing offset with the IsLast block final.
type Queue struct {
	ch        chan *types.Block
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a queue with the given capacity (slots, not bytes)
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{
		ch:   make(chan *types.Block, capacity),
		done: make(chan struct{}),
	}
}

// Publish enqueues a block, suspending while the queue is full.
// Ownership of the block transfers to the consumer on success.
func (q *Queue) Publish(ctx context.Context, b *types.Block) error {
	select {
	case <-q.done:
		return ErrClosed
	default:
	}
	select {
	case q.ch <- b:
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume dequeues the next block, suspending while the queue is
// empty. ok is false once the queue is closed and fully drained, or
// when ctx is cancelled.
func (q *Queue) Consume(ctx context.Context) (b *types.Block, ok bool) {
	select {
	case b = <-q.ch:
		return b, true
	case <-q.done:
		// Closed; hand out whatever was already published.
		select {
		case b = <-q.ch:
			return b, true
		default:
			return nil, false
		}
	case <-ctx.Done():
		return nil, false
	}
}

// Close stops the queue. Safe to call more than once. Blocks already
// published remain consumable.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}

// Len returns the number of blocks currently queued
func (q *Queue) Len() int {
	return len(q.ch)
}
