package swarm

import (
	"context"
	"sync"

	"github.com/ahouse2/co-counsel-nexus-sub001/internal/core"
	"github.com/ahouse2/co-counsel-nexus-sub001/internal/logging"
	"golang.org/x/sync/errgroup"
)

// FullContext asks a gateway for every section of the case context bag.
const FullContext = "full"

// DefaultOutboundCapacity bounds a gateway's outbound history.
const DefaultOutboundCapacity = 100

// gatewayActivityCapacity bounds the recent-activity notes attached to
// coordinator reports.
const gatewayActivityCapacity = 20

// MessageCallback is invoked for each inbound message when registered.
type MessageCallback func(msg core.SwarmMessage)

// Gateway is the single object a worker swarm talks through: it reads
// external context, writes consensus results, and exchanges messages with
// other swarms. All of its failure modes are absorbed here; nothing raises
// to the swarm.
type Gateway struct {
	name     string
	router   *Router
	provider core.ContextProvider
	store    core.ResultStore
	logger   *logging.Logger

	mu       sync.Mutex
	inbound  []core.SwarmMessage
	callback MessageCallback

	outbound *core.Ring[core.SwarmMessage]
	recent   *core.Ring[string]
}

// NewGateway creates a gateway and registers it with the router.
func NewGateway(name string, router *Router, provider core.ContextProvider, store core.ResultStore, logger *logging.Logger) *Gateway {
	if logger == nil {
		logger = logging.NewNop()
	}
	g := &Gateway{
		name:     name,
		router:   router,
		provider: provider,
		store:    store,
		logger:   logger.WithSwarm(name),
		inbound:  make([]core.SwarmMessage, 0),
		outbound: core.NewRing[core.SwarmMessage](DefaultOutboundCapacity),
		recent:   core.NewRing[string](gatewayActivityCapacity),
	}
	router.Register(g)
	return g
}

// Name returns the swarm name this gateway serves.
func (g *Gateway) Name() string { return g.name }

// QueryContext assembles the case context bag for a swarm. contextType is
// either one section name or FullContext for all of them. Sections are
// fetched concurrently; a failed section is logged and skipped, and the
// partially filled bag built so far is returned. Never returns an error.
func (g *Gateway) QueryContext(ctx context.Context, caseID, contextType string) map[string]any {
	sections := core.ContextSections()
	if contextType != "" && contextType != FullContext {
		known := false
		for _, s := range sections {
			if s == contextType {
				sections = []string{contextType}
				known = true
				break
			}
		}
		if !known {
			g.logger.Warn("unknown context type requested",
				"swarm", g.name,
				"case_id", caseID,
				"context_type", contextType)
			sections = nil
		}
	}

	bag := map[string]any{
		"case_id":      caseID,
		"context_type": contextType,
	}
	if g.provider == nil {
		return bag
	}

	var mu sync.Mutex
	eg, qctx := errgroup.WithContext(ctx)
	for _, section := range sections {
		section := section
		eg.Go(func() error {
			records, err := g.provider.Query(qctx, caseID, section)
			if err != nil {
				provErr := core.ErrProvider(section, err)
				g.logger.Warn("context section query failed",
					"case_id", caseID,
					"section", section,
					"error", provErr,
				)
				g.note("context query failed: " + section)
				// Partial fill: the other sections still count.
				return nil
			}
			mu.Lock()
			bag[section] = records
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()

	return bag
}

// WriteConsensus persists an agreed result through the external store and
// reports whether the write succeeded. Storage failures are logged, never
// raised.
func (g *Gateway) WriteConsensus(ctx context.Context, result *core.ConsensusResult) bool {
	if g.store == nil || result == nil {
		return false
	}
	if err := g.store.Write(ctx, result); err != nil {
		storeErr := core.ErrStore(err)
		g.logger.Error("consensus write failed",
			"case_id", result.CaseID,
			"result_id", result.ID,
			"error", storeErr,
		)
		g.note("consensus write failed")
		return false
	}
	g.note("consensus written: " + result.ConsensusType)
	return true
}

// SendMessage constructs a message, records it in the outbound history, and
// hands it to the router. Delivery is fire-and-forget: the caller does not
// wait for the recipient to process anything.
func (g *Gateway) SendMessage(toSwarm string, msgType core.MessageType, content map[string]any, caseID string) core.SwarmMessage {
	msg := core.NewSwarmMessage(g.name, toSwarm, msgType, content, caseID)
	g.outbound.Append(msg)
	g.note("sent " + string(msgType) + " to " + displayTarget(toSwarm))
	g.router.Route(msg)
	return msg
}

// ReceiveMessage appends a message to the inbound queue and invokes the
// registered callback, if any. Called by the router.
func (g *Gateway) ReceiveMessage(msg core.SwarmMessage) {
	g.mu.Lock()
	g.inbound = append(g.inbound, msg)
	cb := g.callback
	g.mu.Unlock()

	if cb != nil {
		cb(msg)
	}
}

// PendingMessages returns and clears the inbound queue. Messages are
// delivered to the swarm exactly once; there is no re-delivery.
func (g *Gateway) PendingMessages() []core.SwarmMessage {
	g.mu.Lock()
	defer g.mu.Unlock()

	pending := g.inbound
	g.inbound = make([]core.SwarmMessage, 0)
	return pending
}

// PendingCount returns the inbound queue length without draining it.
func (g *Gateway) PendingCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.inbound)
}

// OnMessage registers a callback invoked for each inbound message.
func (g *Gateway) OnMessage(cb MessageCallback) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.callback = cb
}

// OutboundHistory returns up to limit sent messages, oldest first.
func (g *Gateway) OutboundHistory(limit int) []core.SwarmMessage {
	return g.outbound.Snapshot(limit)
}

// ReportToCoordinator sends a status report to the coordinator with the
// gateway's recent activity attached.
func (g *Gateway) ReportToCoordinator(status string, details map[string]any, caseID string) core.SwarmMessage {
	content := map[string]any{
		"status":          status,
		"recent_activity": g.recent.Snapshot(0),
	}
	for k, v := range details {
		content[k] = v
	}
	return g.SendMessage(core.CoordinatorName, core.MessageStatusReport, content, caseID)
}

func (g *Gateway) note(activity string) {
	g.recent.Append(activity)
}

func displayTarget(toSwarm string) string {
	if toSwarm == "" {
		return core.BroadcastName
	}
	return toSwarm
}
