package nodetracer

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCollectorBuffersLifecycle(t *testing.T) {
	collector := NewCollector("test", 100)
	defer collector.Close()
	collector.SetSyncMode(true)

	tracer := newTestTracer(t, WithHooks(collector))

	err := tracer.Trace(context.Background(), "run", func(ctx context.Context, _ *Span) error {
		return tracer.Span(ctx, "step", "tool_call", func(context.Context, *Span) error {
			return nil
		})
	})
	if err != nil {
		t.Fatalf("Trace failed: %v", err)
	}

	events := collector.Export()
	wantKinds := []EventKind{
		EventNodeStarted,    // run
		EventNodeStarted,    // step
		EventNodeCompleted,  // step
		EventNodeCompleted,  // run
		EventTraceCompleted, // run
	}
	if len(events) != len(wantKinds) {
		t.Fatalf("Expected %d events, got %d", len(wantKinds), len(events))
	}
	for i, ev := range events {
		if ev.Kind != wantKinds[i] {
			t.Errorf("Event %d: expected %s, got %s", i, wantKinds[i], ev.Kind)
		}
	}
	if events[4].Trace == nil {
		t.Error("Expected trace on the trace_completed event")
	}
	if events[1].Node.Name != "step" {
		t.Errorf("Expected step node snapshot, got %s", events[1].Node.Name)
	}
}

func TestCollectorFailureEvents(t *testing.T) {
	collector := NewCollector("test", 100)
	defer collector.Close()
	collector.SetSyncMode(true)

	tracer := newTestTracer(t, WithHooks(collector))
	_ = tracer.Trace(context.Background(), "run", func(context.Context, *Span) error {
		return errors.New("boom")
	})

	var failed int
	for _, ev := range collector.Export() {
		if ev.Kind == EventNodeFailed {
			failed++
			if ev.Node.Error != "boom" {
				t.Errorf("Expected error on failed-node snapshot, got %q", ev.Node.Error)
			}
		}
	}
	if failed != 1 {
		t.Errorf("Expected 1 failed event, got %d", failed)
	}
}

func TestCollectorExportClearsBuffer(t *testing.T) {
	collector := NewCollector("test", 10)
	defer collector.Close()
	collector.SetSyncMode(true)

	collector.collect(Event{Kind: EventNodeStarted, TraceID: "t1"})
	collector.collect(Event{Kind: EventNodeCompleted, TraceID: "t1"})

	if collector.Count() != 2 {
		t.Errorf("Expected 2 buffered events, got %d", collector.Count())
	}
	if got := collector.Export(); len(got) != 2 {
		t.Errorf("Expected 2 exported events, got %d", len(got))
	}
	if collector.Count() != 0 {
		t.Errorf("Expected empty buffer after export, got %d", collector.Count())
	}
	if collector.Export() != nil {
		t.Error("Expected nil export from empty buffer")
	}
}

func TestCollectorDropsWhenFull(t *testing.T) {
	// Buffer of 1 with no draining goroutine progress guaranteed: stop
	// the drain first so the channel genuinely fills.
	collector := NewCollector("test", 1)
	collector.Close()

	for i := 0; i < 5; i++ {
		collector.collect(Event{Kind: EventNodeStarted, TraceID: "t1"})
	}
	if collector.DroppedCount() < 4 {
		t.Errorf("Expected at least 4 drops, got %d", collector.DroppedCount())
	}
}

func TestCollectorAsyncDelivery(t *testing.T) {
	collector := NewCollector("test", 100)
	defer collector.Close()

	tracer := newTestTracer(t, WithHooks(collector))
	err := tracer.Trace(context.Background(), "run", func(context.Context, *Span) error {
		return nil
	})
	if err != nil {
		t.Fatalf("Trace failed: %v", err)
	}

	// Events travel through the channel; wait for the drain goroutine.
	deadline := time.After(2 * time.Second)
	for collector.Count() < 3 {
		select {
		case <-deadline:
			t.Fatalf("Timed out: %d events buffered", collector.Count())
		case <-time.After(5 * time.Millisecond):
		}
	}
	if collector.DroppedCount() != 0 {
		t.Errorf("Expected no drops, got %d", collector.DroppedCount())
	}
}

func TestCollectorReset(t *testing.T) {
	collector := NewCollector("test", 10)
	defer collector.Close()
	collector.SetSyncMode(true)

	collector.collect(Event{Kind: EventNodeStarted, TraceID: "t1"})
	collector.Reset()

	if collector.Count() != 0 {
		t.Errorf("Expected empty buffer after reset, got %d", collector.Count())
	}
	if collector.DroppedCount() != 0 {
		t.Errorf("Expected zero drops after reset, got %d", collector.DroppedCount())
	}
}

func TestCollectorCloseIdempotent(t *testing.T) {
	collector := NewCollector("test", 10)
	collector.Close()
	collector.Close()
}
