package events

import (
	"sync"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	EventScanSourceProgress EventType = "scan.source.progress"
	EventScanDestProgress   EventType = "scan.dest.progress"
	EventScanDone           EventType = "scan.done"
	EventFileStarted        EventType = "transfer.file.started"
	EventBlockWritten       EventType = "transfer.block.written"
	EventFileCompleted      EventType = "transfer.file.completed"
	EventFileFailed         EventType = "transfer.file.failed"
	EventFileSkipped        EventType = "transfer.file.skipped"
	EventSweepDeleted       EventType = "sweep.deleted"
	EventSweepSkipped       EventType = "sweep.skipped"
)

// Event is one progress notification from a phase
type Event struct {
	Type      EventType
	Timestamp time.Time

	// Path is the source path for transfer events, the destination
	// path for sweep events.
	Path string

	// Files and Bytes are running totals for progress events, and the
	// per-file figures for file-scoped events.
	Files int64
	Bytes int64

	// Size is the total size of the file a block event belongs to
	Size int64

	Error string
}

// Subscriber is a channel that receives events
type Subscriber chan *Event

// Broker manages event subscriptions and distribution. Publishing
// never blocks a phase: a subscriber that falls behind misses events
// rather than stalling the transfer path.
type Broker struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
	eventCh     chan *Event
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// NewBroker creates a new event broker
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *Event, 100),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's event distribution loop
func (b *Broker) Start() {
	go b.run()
}

// Stop stops the broker
func (b *Broker) Stop() {
	b.stopOnce.Do(func() { close(b.stopCh) })
}

// Subscribe creates a new subscription and returns a channel
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 50)
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes a subscription
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subscribers[sub] {
		delete(b.subscribers, sub)
		close(sub)
	}
}

// Publish publishes an event to all subscribers
func (b *Broker) Publish(event *Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber buffer full, skip
		}
	}
}
