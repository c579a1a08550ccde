package core

import "context"

// Context section names a gateway assembles into a case context bag.
const (
	SectionEntities      = "entities"
	SectionRelationships = "relationships"
	SectionEvents        = "events"
	SectionDocuments     = "documents"
)

// ContextSections lists the sections queried for a full context bag.
func ContextSections() []string {
	return []string{SectionEntities, SectionRelationships, SectionEvents, SectionDocuments}
}

// ContextProvider answers case-context queries against the knowledge store.
// One call returns the records for a single section of the context bag.
type ContextProvider interface {
	Query(ctx context.Context, caseID, section string) ([]map[string]any, error)
}

// ResultStore persists agreed consensus results for later inspection.
type ResultStore interface {
	// Write persists one result.
	Write(ctx context.Context, result *ConsensusResult) error

	// Recent returns up to limit results for a case, newest first.
	// An empty caseID returns results across all cases.
	Recent(ctx context.Context, caseID string, limit int) ([]*ConsensusResult, error)
}

// SwarmInvoker is the pluggable unit every pipeline stage and consensus
// round ultimately calls: given a target and context, a swarm returns zero
// or more named outputs with a confidence value. What the swarm actually
// does with the target is its own business.
type SwarmInvoker interface {
	Name() string
	Invoke(ctx context.Context, target string, context map[string]any) ([]AgentOutput, error)
}

// TextSynthesizer produces free-form text from a prompt. Used only by the
// debate-and-refine and supervisor fallback paths; callers must treat the
// returned text as an opaque blob and parse it defensively.
type TextSynthesizer interface {
	Synthesize(ctx context.Context, prompt string) (string, error)
}

// SwarmInvokerFunc adapts a function to the SwarmInvoker interface.
type SwarmInvokerFunc struct {
	SwarmName string
	Fn        func(ctx context.Context, target string, context map[string]any) ([]AgentOutput, error)
}

// Name returns the swarm name.
func (f SwarmInvokerFunc) Name() string { return f.SwarmName }

// Invoke calls the wrapped function.
func (f SwarmInvokerFunc) Invoke(ctx context.Context, target string, context map[string]any) ([]AgentOutput, error) {
	return f.Fn(ctx, target, context)
}
