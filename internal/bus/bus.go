// Package bus provides the process-wide event bus that triggers the
// multi-stage analysis pipelines. Events are dispatched strictly in publish
// order by a single background consumer; one handler's failure never stops
// the remaining handlers or the next event.
package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ahouse2/co-counsel-nexus-sub001/internal/core"
	"github.com/ahouse2/co-counsel-nexus-sub001/internal/logging"
)

// Handler processes one event. A non-nil error is recorded in the activity
// log and never propagates past the dispatch loop.
type Handler func(ctx context.Context, ev core.SystemEvent) error

// DefaultPollInterval bounds how long the consumer waits before re-checking
// for a stop signal.
const DefaultPollInterval = 100 * time.Millisecond

// DefaultActivityCapacity is the size of the bounded activity log.
const DefaultActivityCapacity = 500

type registration struct {
	id      int
	handler Handler
}

// Bus is the orchestrator's event bus. Construct one at the composition
// root and pass it explicitly; there is no package-level instance.
type Bus struct {
	mu       sync.Mutex
	handlers map[core.EventType][]registration
	nextID   int
	queue    []core.SystemEvent
	running  bool
	stop     chan struct{}
	wake     chan struct{}
	wg       sync.WaitGroup

	pollInterval time.Duration
	activity     *core.Ring[core.ActivityEntry]
	logger       *logging.Logger
}

// Option configures the bus.
type Option func(*Bus)

// WithPollInterval overrides the consumer's stop-check interval.
func WithPollInterval(d time.Duration) Option {
	return func(b *Bus) {
		if d > 0 {
			b.pollInterval = d
		}
	}
}

// WithActivityCapacity overrides the activity log size.
func WithActivityCapacity(n int) Option {
	return func(b *Bus) {
		b.activity = core.NewRing[core.ActivityEntry](n)
	}
}

// New creates a stopped bus.
func New(logger *logging.Logger, opts ...Option) *Bus {
	if logger == nil {
		logger = logging.NewNop()
	}
	b := &Bus{
		handlers:     make(map[core.EventType][]registration),
		queue:        make([]core.SystemEvent, 0),
		wake:         make(chan struct{}, 1),
		pollInterval: DefaultPollInterval,
		activity:     core.NewRing[core.ActivityEntry](DefaultActivityCapacity),
		logger:       logger.With("component", "bus"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers one more handler for an event type. Handlers for the
// same type run sequentially in registration order.
func (b *Bus) Subscribe(eventType core.EventType, handler Handler) {
	if handler == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.handlers[eventType] = append(b.handlers[eventType], registration{id: b.nextID, handler: handler})
}

// Publish enqueues an event and returns immediately. It never blocks and is
// legal while the bus is stopped: events simply queue until Start.
func (b *Bus) Publish(ev core.SystemEvent) {
	b.mu.Lock()
	b.queue = append(b.queue, ev)
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// QueueLen returns the number of events waiting for dispatch.
func (b *Bus) QueueLen() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Start launches the single background consumer. Calling Start on a running
// bus is a no-op. The context is the base context handed to handlers.
func (b *Bus) Start(ctx context.Context) {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return
	}
	b.running = true
	b.stop = make(chan struct{})
	stop := b.stop
	b.mu.Unlock()

	b.logger.Info("event bus started")
	b.activity.Append(core.NewActivityEntry("bus", core.ActivityLifecycle, "started", ""))

	b.wg.Add(1)
	go b.consume(ctx, stop)
}

// Stop signals the consumer to exit and waits for in-flight dispatch to
// finish. Events still queued are discarded, not requeued. Calling Stop on
// a stopped bus is a no-op.
func (b *Bus) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.running = false
	close(b.stop)
	b.mu.Unlock()

	b.wg.Wait()

	b.logger.Info("event bus stopped")
	b.activity.Append(core.NewActivityEntry("bus", core.ActivityLifecycle, "stopped", ""))
}

// Running reports whether the consumer is active.
func (b *Bus) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// ActivityLog returns up to limit recent activity entries, oldest first.
func (b *Bus) ActivityLog(limit int) []core.ActivityEntry {
	return b.activity.Snapshot(limit)
}

// RecordActivity appends an entry to the activity log. Used by components
// that share the bus's observability surface (pipeline, gateways).
func (b *Bus) RecordActivity(entry core.ActivityEntry) {
	b.activity.Append(entry)
}

// consume is the single dispatch loop. The stop signal is observed within
// one poll interval even when no events arrive.
func (b *Bus) consume(ctx context.Context, stop <-chan struct{}) {
	defer b.wg.Done()

	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	for {
		ev, ok := b.dequeue()
		if ok {
			// Check for stop *before* starting the next event so that
			// in-flight work drains but queued work does not.
			select {
			case <-stop:
				return
			default:
			}
			b.dispatch(ctx, ev)
			continue
		}

		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-b.wake:
		case <-ticker.C:
		}
	}
}

func (b *Bus) dequeue() (core.SystemEvent, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.queue) == 0 {
		return core.SystemEvent{}, false
	}
	ev := b.queue[0]
	b.queue = b.queue[1:]
	return ev, true
}

// dispatch invokes every handler registered for the event's type,
// sequentially, in registration order, each inside its own failure
// boundary.
func (b *Bus) dispatch(ctx context.Context, ev core.SystemEvent) {
	b.mu.Lock()
	regs := make([]registration, len(b.handlers[ev.Type]))
	copy(regs, b.handlers[ev.Type])
	b.mu.Unlock()

	b.logger.Debug("dispatching event",
		"event_id", ev.ID,
		"event_type", ev.Type,
		"case_id", ev.CaseID,
		"handlers", len(regs),
	)

	for _, reg := range regs {
		if err := b.runHandler(ctx, reg, ev); err != nil {
			b.logger.Error("handler failed",
				"event_type", ev.Type,
				"handler_id", reg.id,
				"error", err,
			)
			b.activity.Append(core.NewActivityEntry("bus", core.ActivityHandlerError, err.Error(), ev.CaseID).
				WithDetail("event_type", string(ev.Type)).
				WithDetail("handler_id", reg.id))
		}
	}
}

// runHandler is the per-handler failure boundary: panics become errors and
// nothing escapes the dispatch loop.
func (b *Bus) runHandler(ctx context.Context, reg registration, ev core.SystemEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = (&core.DomainError{
				Category: core.ErrCatHandler,
				Code:     core.CodeHandlerPanicked,
				Message:  fmt.Sprintf("handler %d panicked: %v", reg.id, r),
			}).WithDetail("event_type", string(ev.Type))
		}
	}()

	if herr := reg.handler(ctx, ev); herr != nil {
		return core.ErrHandler(string(ev.Type), herr.Error()).WithCause(herr)
	}
	return nil
}
