package swarm

import "github.com/ahouse2/co-counsel-nexus-sub001/internal/core"

// DefaultReportCapacity bounds the coordinator's retained reports.
const DefaultReportCapacity = 200

// Coordinator is the logical sink for status reports from all gateways.
// It is not a worker: messages addressed to it are recorded for later
// retrieval and never forwarded.
type Coordinator struct {
	reports *core.Ring[core.SwarmMessage]
}

// NewCoordinator creates a coordinator retaining up to capacity reports.
func NewCoordinator(capacity int) *Coordinator {
	if capacity <= 0 {
		capacity = DefaultReportCapacity
	}
	return &Coordinator{reports: core.NewRing[core.SwarmMessage](capacity)}
}

// Receive records one message addressed to the coordinator.
func (c *Coordinator) Receive(msg core.SwarmMessage) {
	c.reports.Append(msg)
}

// Reports returns up to limit recorded messages, oldest first.
func (c *Coordinator) Reports(limit int) []core.SwarmMessage {
	return c.reports.Snapshot(limit)
}
