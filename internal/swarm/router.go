package swarm

import (
	"sync"

	"github.com/ahouse2/co-counsel-nexus-sub001/internal/core"
	"github.com/ahouse2/co-counsel-nexus-sub001/internal/logging"
)

// DefaultMessageLogCapacity bounds the router's message log.
const DefaultMessageLogCapacity = 500

// ActivityRecorder receives activity entries for the shared observability
// log. *bus.Bus satisfies it.
type ActivityRecorder interface {
	RecordActivity(entry core.ActivityEntry)
}

// Router delivers swarm messages: to the coordinator sink, to a single
// named gateway, or broadcast to every gateway except the sender. Delivery
// is best effort; a message for an unknown swarm is logged and dropped.
type Router struct {
	mu          sync.RWMutex
	gateways    map[string]*Gateway
	coordinator *Coordinator
	messages    *core.Ring[core.SwarmMessage]
	activity    ActivityRecorder
	logger      *logging.Logger
}

// RouterOption configures the router.
type RouterOption func(*Router)

// WithMessageLogCapacity overrides the message log size.
func WithMessageLogCapacity(n int) RouterOption {
	return func(r *Router) {
		r.messages = core.NewRing[core.SwarmMessage](n)
	}
}

// WithActivityRecorder attaches the shared activity log.
func WithActivityRecorder(rec ActivityRecorder) RouterOption {
	return func(r *Router) {
		r.activity = rec
	}
}

// NewRouter creates a router with its own coordinator sink.
func NewRouter(logger *logging.Logger, opts ...RouterOption) *Router {
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &Router{
		gateways:    make(map[string]*Gateway),
		coordinator: NewCoordinator(DefaultReportCapacity),
		messages:    core.NewRing[core.SwarmMessage](DefaultMessageLogCapacity),
		logger:      logger.With("component", "router"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register makes a gateway reachable under its swarm name. A second
// registration for the same name replaces the first.
func (r *Router) Register(g *Gateway) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateways[g.Name()] = g
}

// Coordinator returns the coordinator sink.
func (r *Router) Coordinator() *Coordinator {
	return r.coordinator
}

// Gateways returns the registered swarm names, unordered.
func (r *Router) Gateways() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.gateways))
	for name := range r.gateways {
		names = append(names, name)
	}
	return names
}

// Route delivers one message. Every routed message lands in the message
// log regardless of delivery outcome. Route never returns an error to the
// sender: an unknown destination is a logged warning and a drop.
func (r *Router) Route(msg core.SwarmMessage) {
	r.messages.Append(msg)

	switch {
	case msg.IsForCoordinator():
		r.coordinator.Receive(msg)

	case msg.IsBroadcast():
		r.mu.RLock()
		targets := make([]*Gateway, 0, len(r.gateways))
		for name, g := range r.gateways {
			if name != msg.FromSwarm {
				targets = append(targets, g)
			}
		}
		r.mu.RUnlock()
		for _, g := range targets {
			g.ReceiveMessage(msg)
		}

	default:
		r.mu.RLock()
		g, ok := r.gateways[msg.ToSwarm]
		r.mu.RUnlock()
		if !ok {
			delivErr := core.ErrDelivery(msg.ToSwarm)
			r.logger.Warn("message dropped",
				"message_id", msg.ID,
				"from_swarm", msg.FromSwarm,
				"to_swarm", msg.ToSwarm,
				"error", delivErr,
			)
			if r.activity != nil {
				r.activity.RecordActivity(core.NewActivityEntry("router", core.ActivityDeliveryError, delivErr.Error(), msg.CaseID).
					WithDetail("message_id", msg.ID).
					WithDetail("from_swarm", msg.FromSwarm))
			}
			return
		}
		g.ReceiveMessage(msg)
	}
}

// MessageLog returns up to limit routed messages, oldest first.
func (r *Router) MessageLog(limit int) []core.SwarmMessage {
	return r.messages.Snapshot(limit)
}
