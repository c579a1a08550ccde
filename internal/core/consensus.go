package core

import (
	"time"

	"github.com/google/uuid"
)

// AgentOutput is one contributor's result for a single invocation. Produced
// by a swarm and never mutated afterwards.
type AgentOutput struct {
	AgentName  string  `json:"agent_name"`
	Output     any     `json:"output"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// ConsensusMethod selects how multiple agent outputs are reduced to one.
type ConsensusMethod string

const (
	MethodMajorityVote       ConsensusMethod = "majority_vote"
	MethodWeightedAverage    ConsensusMethod = "weighted_average"
	MethodDebateAndRefine    ConsensusMethod = "debate_and_refine"
	MethodSupervisorDecision ConsensusMethod = "supervisor_decision"
)

// Consensus types reported on results for the degenerate input cases.
const (
	ConsensusNone   = "none"   // zero outputs
	ConsensusSingle = "single" // one output, passed through
)

// ConsensusConfig controls how a swarm's outputs are combined.
type ConsensusConfig struct {
	Method          ConsensusMethod `json:"method"`
	MinAgreement    float64         `json:"min_agreement"`
	MaxIterations   int             `json:"max_iterations"`
	SupervisorAgent string          `json:"supervisor_agent,omitempty"`
	AllowDissent    bool            `json:"allow_dissent"`
}

// DefaultConsensusConfig returns the configuration used when a stage does
// not specify its own.
func DefaultConsensusConfig() ConsensusConfig {
	return ConsensusConfig{
		Method:        MethodMajorityVote,
		MinAgreement:  0.5,
		MaxIterations: 3,
		AllowDissent:  true,
	}
}

// ConsensusResult is the agreed outcome of one consensus round.
// Invariants: Confidence is in [0,1]; ParticipatingAgents and
// DissentingAgents are disjoint; with a single input the confidence equals
// that input's confidence and there is no dissent.
type ConsensusResult struct {
	ID                  string    `json:"id"`
	SwarmName           string    `json:"swarm_name"`
	CaseID              string    `json:"case_id"`
	ConsensusType       string    `json:"consensus_type"`
	FinalOutput         any       `json:"final_output"`
	Confidence          float64   `json:"confidence"`
	ParticipatingAgents []string  `json:"participating_agents"`
	DissentingAgents    []string  `json:"dissenting_agents"`
	Iterations          int       `json:"iterations"`
	Timestamp           time.Time `json:"timestamp"`
}

// NewConsensusResult creates a result shell with ID and timestamp filled.
func NewConsensusResult(swarmName, caseID, consensusType string) *ConsensusResult {
	return &ConsensusResult{
		ID:                  uuid.NewString(),
		SwarmName:           swarmName,
		CaseID:              caseID,
		ConsensusType:       consensusType,
		ParticipatingAgents: make([]string, 0),
		DissentingAgents:    make([]string, 0),
		Iterations:          1,
		Timestamp:           time.Now(),
	}
}

// ClampConfidence bounds a confidence value to [0,1].
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
