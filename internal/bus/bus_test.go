package bus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ahouse2/co-counsel-nexus-sub001/internal/core"
	"github.com/ahouse2/co-counsel-nexus-sub001/internal/logging"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestBus_PublishOrderPreserved(t *testing.T) {
	b := New(logging.NewNop(), WithPollInterval(10*time.Millisecond))

	var mu sync.Mutex
	var seen []core.EventType

	record := func(_ context.Context, ev core.SystemEvent) error {
		mu.Lock()
		seen = append(seen, ev.Type)
		mu.Unlock()
		return nil
	}
	b.Subscribe(core.EventDocumentIngested, record)
	b.Subscribe(core.EventGraphUpdated, record)
	b.Subscribe(core.EventResearchCompleted, record)

	// Publish while stopped: events queue until Start.
	b.Publish(core.NewSystemEvent(core.EventDocumentIngested, "case-1", "test", nil))
	b.Publish(core.NewSystemEvent(core.EventGraphUpdated, "case-1", "test", nil))
	b.Publish(core.NewSystemEvent(core.EventResearchCompleted, "case-1", "test", nil))

	b.Start(context.Background())
	defer b.Stop()

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 3
	})

	mu.Lock()
	defer mu.Unlock()
	want := []core.EventType{core.EventDocumentIngested, core.EventGraphUpdated, core.EventResearchCompleted}
	for i, w := range want {
		if seen[i] != w {
			t.Errorf("event %d = %s, want %s", i, seen[i], w)
		}
	}
}

func TestBus_HandlersRunInRegistrationOrder(t *testing.T) {
	b := New(logging.NewNop())

	var mu sync.Mutex
	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		b.Subscribe(core.EventHotDocumentFlagged, func(_ context.Context, _ core.SystemEvent) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		})
	}

	b.Start(context.Background())
	defer b.Stop()

	b.Publish(core.NewSystemEvent(core.EventHotDocumentFlagged, "case-1", "test", nil))

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 3
	})

	mu.Lock()
	defer mu.Unlock()
	for i, got := range order {
		if got != i+1 {
			t.Errorf("handler position %d = %d, want %d", i, got, i+1)
		}
	}
}

func TestBus_HandlerFailureDoesNotStopOthers(t *testing.T) {
	b := New(logging.NewNop())

	var mu sync.Mutex
	var calls []string

	b.Subscribe(core.EventContradictionDetected, func(_ context.Context, _ core.SystemEvent) error {
		mu.Lock()
		calls = append(calls, "failing")
		mu.Unlock()
		return errors.New("boom")
	})
	b.Subscribe(core.EventContradictionDetected, func(_ context.Context, _ core.SystemEvent) error {
		panic("handler panic")
	})
	b.Subscribe(core.EventContradictionDetected, func(_ context.Context, _ core.SystemEvent) error {
		mu.Lock()
		calls = append(calls, "surviving")
		mu.Unlock()
		return nil
	})

	b.Start(context.Background())
	defer b.Stop()

	b.Publish(core.NewSystemEvent(core.EventContradictionDetected, "case-1", "test", nil))
	// A later event must still dispatch.
	b.Publish(core.NewSystemEvent(core.EventContradictionDetected, "case-1", "test", nil))

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(calls) == 4
	})

	entries := b.ActivityLog(0)
	var handlerErrors int
	for _, e := range entries {
		if e.Kind == core.ActivityHandlerError {
			handlerErrors++
		}
	}
	if handlerErrors != 4 {
		t.Errorf("handler error entries = %d, want 4 (two failures per event)", handlerErrors)
	}
}

func TestBus_StartStopIdempotent(t *testing.T) {
	b := New(logging.NewNop(), WithPollInterval(10*time.Millisecond))

	b.Start(context.Background())
	b.Start(context.Background())
	if !b.Running() {
		t.Fatal("bus should be running")
	}

	b.Stop()
	b.Stop()
	if b.Running() {
		t.Fatal("bus should be stopped")
	}

	// Restart works.
	b.Start(context.Background())
	if !b.Running() {
		t.Fatal("bus should be running after restart")
	}
	b.Stop()
}

func TestBus_StopDiscardsQueuedEvents(t *testing.T) {
	b := New(logging.NewNop(), WithPollInterval(10*time.Millisecond))

	var mu sync.Mutex
	var handled int
	b.Subscribe(core.EventDocumentIngested, func(_ context.Context, _ core.SystemEvent) error {
		mu.Lock()
		handled++
		mu.Unlock()
		return nil
	})

	b.Publish(core.NewSystemEvent(core.EventDocumentIngested, "case-1", "test", nil))
	b.Stop() // no-op on a stopped bus, queue untouched
	if b.QueueLen() != 1 {
		t.Fatalf("queue len = %d, want 1", b.QueueLen())
	}

	b.Start(context.Background())
	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return handled == 1
	})
	b.Stop()

	// Events published after stop stay queued and are never dispatched.
	b.Publish(core.NewSystemEvent(core.EventDocumentIngested, "case-1", "test", nil))
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if handled != 1 {
		t.Errorf("handled = %d, want 1", handled)
	}
}

func TestBus_NoHandlersForType(t *testing.T) {
	b := New(logging.NewNop(), WithPollInterval(10*time.Millisecond))
	b.Start(context.Background())
	defer b.Stop()

	// Must not panic or wedge the consumer.
	b.Publish(core.NewSystemEvent(core.EventGraphUpdated, "case-1", "test", nil))

	waitFor(t, time.Second, func() bool { return b.QueueLen() == 0 })
}
