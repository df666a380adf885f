package nodetracer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// EventKind identifies which lifecycle callback produced an Event.
type EventKind string

const (
	EventNodeStarted    EventKind = "node_started"
	EventNodeCompleted  EventKind = "node_completed"
	EventNodeFailed     EventKind = "node_failed"
	EventTraceCompleted EventKind = "trace_completed"
)

// Event is one buffered lifecycle notification. Node is a snapshot for
// node events; Trace is set only for EventTraceCompleted.
type Event struct {
	Kind    EventKind
	TraceID string
	Node    Node
	Trace   *TraceGraph
}

// Collector is a Hook that buffers lifecycle events for batch export.
// Delivery into the buffer goes through a bounded channel so a slow
// consumer exerts backpressure by dropping, never by stalling the
// traced program. Safe for concurrent use by multiple goroutines.
//
//nolint:govet // Field alignment optimized for readability over memory
type Collector struct {
	NullHook

	events       []Event
	eventsCh     chan Event
	stopCh       chan struct{}
	done         chan struct{}
	droppedCount atomic.Int64
	name         string
	mu           sync.Mutex
	closed       atomic.Bool
	syncMode     bool // Bypass channel for deterministic tests.
}

// NewCollector creates a collector with the specified name and channel
// buffer size.
func NewCollector(name string, bufferSize int) *Collector {
	c := &Collector{
		name:     name,
		events:   make([]Event, 0, 8),
		eventsCh: make(chan Event, bufferSize),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	go c.run()
	return c
}

func (c *Collector) OnNodeStarted(_ context.Context, node Node) {
	c.collect(Event{Kind: EventNodeStarted, TraceID: node.TraceID, Node: node})
}

func (c *Collector) OnNodeCompleted(_ context.Context, node Node) {
	c.collect(Event{Kind: EventNodeCompleted, TraceID: node.TraceID, Node: node})
}

func (c *Collector) OnNodeFailed(_ context.Context, node Node) {
	c.collect(Event{Kind: EventNodeFailed, TraceID: node.TraceID, Node: node})
}

func (c *Collector) OnTraceCompleted(_ context.Context, trace *TraceGraph) {
	c.collect(Event{Kind: EventTraceCompleted, TraceID: trace.TraceID(), Trace: trace})
}

// run receives events off the channel into the buffer.
func (c *Collector) run() {
	defer close(c.done)
	for {
		select {
		case <-c.stopCh:
			// Drain remaining events before shutdown.
			for {
				select {
				case ev := <-c.eventsCh:
					c.buffer(ev)
				default:
					return
				}
			}
		case ev := <-c.eventsCh:
			c.buffer(ev)
		}
	}
}

// collect queues an event with backpressure protection: a full channel
// drops the event and increments the drop counter.
func (c *Collector) collect(ev Event) {
	if c.syncMode {
		if c.closed.Load() {
			c.droppedCount.Add(1)
			return
		}
		c.buffer(ev)
		return
	}

	select {
	case c.eventsCh <- ev:
	default:
		c.droppedCount.Add(1)
	}
}

func (c *Collector) buffer(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

// Export returns the buffered events and clears the buffer. The
// returned slice is safe to retain.
func (c *Collector) Export() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.events) == 0 {
		return nil
	}
	out := make([]Event, len(c.events))
	copy(out, c.events)

	// Shrink only a very oversized buffer to avoid allocation churn.
	if cap(c.events) > 256 && len(c.events) < cap(c.events)/8 {
		c.events = make([]Event, 0, cap(c.events)/4)
	} else {
		c.events = c.events[:0]
	}
	return out
}

// Count returns the number of buffered events.
func (c *Collector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

// DroppedCount returns the number of events dropped to backpressure.
func (c *Collector) DroppedCount() int64 {
	return c.droppedCount.Load()
}

// SetSyncMode routes events straight into the buffer, eliminating the
// channel for deterministic tests.
func (c *Collector) SetSyncMode(sync bool) {
	c.syncMode = sync
}

// Reset clears the buffer and the drop counter.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = c.events[:0]
	c.droppedCount.Store(0)
}

// Close shuts down the collector's goroutine, draining queued events.
func (c *Collector) Close() {
	if c.closed.Swap(true) {
		return
	}
	close(c.stopCh)
	select {
	case <-c.done:
	case <-time.After(100 * time.Millisecond):
		// Timed out waiting for drain; events already buffered remain
		// exportable.
	}
}
