// Package consensus reduces multiple agent outputs into one agreed result.
package consensus

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ahouse2/co-counsel-nexus-sub001/internal/core"
	"github.com/ahouse2/co-counsel-nexus-sub001/internal/logging"
)

// Mechanism is the pure aggregation engine. The synthesizer is optional:
// without one, debate-and-refine and absent-supervisor rounds fall back to
// majority vote.
type Mechanism struct {
	synth  core.TextSynthesizer
	logger *logging.Logger
}

// New creates a mechanism. synth may be nil.
func New(synth core.TextSynthesizer, logger *logging.Logger) *Mechanism {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Mechanism{
		synth:  synth,
		logger: logger.With("component", "consensus"),
	}
}

// Reach turns a list of agent outputs into one result using the configured
// strategy. It never returns an error: degraded paths fall back to majority
// vote and the reason is logged.
func (m *Mechanism) Reach(ctx context.Context, swarmName, caseID string, outputs []core.AgentOutput, cfg core.ConsensusConfig) *core.ConsensusResult {
	switch len(outputs) {
	case 0:
		result := core.NewConsensusResult(swarmName, caseID, core.ConsensusNone)
		result.FinalOutput = nil
		result.Confidence = 0
		return result
	case 1:
		// Single-output passthrough: that agent's confidence is the result
		// confidence and there is no dissent.
		result := core.NewConsensusResult(swarmName, caseID, core.ConsensusSingle)
		result.FinalOutput = outputs[0].Output
		result.Confidence = core.ClampConfidence(outputs[0].Confidence)
		result.ParticipatingAgents = []string{outputs[0].AgentName}
		return result
	}

	var result *core.ConsensusResult
	switch cfg.Method {
	case core.MethodWeightedAverage:
		result = m.weightedAverage(swarmName, caseID, outputs)
	case core.MethodDebateAndRefine:
		result = m.debateAndRefine(ctx, swarmName, caseID, outputs, cfg)
	case core.MethodSupervisorDecision:
		result = m.supervisorDecision(ctx, swarmName, caseID, outputs, cfg)
	default:
		result = m.majorityVote(swarmName, caseID, outputs)
	}

	if result.Confidence < cfg.MinAgreement {
		m.logger.Warn("consensus below minimum agreement",
			"swarm", swarmName,
			"case_id", caseID,
			"confidence", result.Confidence,
			"min_agreement", cfg.MinAgreement,
		)
	}
	return result
}

// comparisonKey derives the value agents are voting on. Map outputs vote on
// their decision/result field when present; everything else votes on a
// stable stringification of the whole value.
func comparisonKey(output any) string {
	if m, ok := output.(map[string]any); ok {
		if v, present := m["decision"]; present {
			return fmt.Sprintf("%v", v)
		}
		if v, present := m["result"]; present {
			return fmt.Sprintf("%v", v)
		}
	}
	// json.Marshal sorts map keys, so this is deterministic.
	if data, err := json.Marshal(output); err == nil {
		return string(data)
	}
	return fmt.Sprintf("%v", output)
}

// majorityVote counts votes per comparison key. Ties break to the first key
// reaching the maximum count in input order.
func (m *Mechanism) majorityVote(swarmName, caseID string, outputs []core.AgentOutput) *core.ConsensusResult {
	counts := make(map[string]int)
	keys := make([]string, len(outputs))
	for i, out := range outputs {
		keys[i] = comparisonKey(out.Output)
		counts[keys[i]]++
	}

	maxVotes := 0
	for _, c := range counts {
		if c > maxVotes {
			maxVotes = c
		}
	}

	winningKey := ""
	var winningOutput any
	for i, out := range outputs {
		if counts[keys[i]] == maxVotes {
			winningKey = keys[i]
			winningOutput = out.Output
			break
		}
	}

	result := core.NewConsensusResult(swarmName, caseID, string(core.MethodMajorityVote))
	result.FinalOutput = winningOutput
	result.Confidence = core.ClampConfidence(float64(maxVotes) / float64(len(outputs)))
	for i, out := range outputs {
		if keys[i] == winningKey {
			result.ParticipatingAgents = append(result.ParticipatingAgents, out.AgentName)
		} else {
			result.DissentingAgents = append(result.DissentingAgents, out.AgentName)
		}
	}
	return result
}

// weightedAverage merges map outputs field by field. Numeric fields get the
// confidence-weighted sum; anything else takes the highest-weight
// contributor's value. This is merging, not voting, so no dissent is
// computed.
func (m *Mechanism) weightedAverage(swarmName, caseID string, outputs []core.AgentOutput) *core.ConsensusResult {
	result := core.NewConsensusResult(swarmName, caseID, string(core.MethodWeightedAverage))

	sumConf := 0.0
	for _, out := range outputs {
		sumConf += out.Confidence
		result.ParticipatingAgents = append(result.ParticipatingAgents, out.AgentName)
	}

	weights := make([]float64, len(outputs))
	for i, out := range outputs {
		if sumConf > 0 {
			weights[i] = out.Confidence / sumConf
		} else {
			weights[i] = 1.0 / float64(len(outputs))
		}
	}

	// Field order: first seen across outputs in input order.
	var fields []string
	seen := make(map[string]bool)
	for _, out := range outputs {
		mo, ok := out.Output.(map[string]any)
		if !ok {
			continue
		}
		for _, f := range sortedKeys(mo) {
			if !seen[f] {
				seen[f] = true
				fields = append(fields, f)
			}
		}
	}

	if len(fields) == 0 {
		// No map outputs to merge: take the highest-weight output whole.
		best := 0
		for i := range outputs {
			if weights[i] > weights[best] {
				best = i
			}
		}
		result.FinalOutput = outputs[best].Output
	} else {
		merged := make(map[string]any, len(fields))
		for _, field := range fields {
			merged[field] = m.mergeField(field, outputs, weights)
		}
		result.FinalOutput = merged
	}

	mean := 0.0
	for _, out := range outputs {
		mean += core.ClampConfidence(out.Confidence)
	}
	result.Confidence = core.ClampConfidence(mean / float64(len(outputs)))
	return result
}

// mergeField combines one field's values across contributing outputs.
// Weights are renormalized over the contributors so partial coverage still
// sums to 1.
func (m *Mechanism) mergeField(field string, outputs []core.AgentOutput, weights []float64) any {
	type contribution struct {
		value  any
		weight float64
	}

	var contribs []contribution
	allNumeric := true
	for i, out := range outputs {
		mo, ok := out.Output.(map[string]any)
		if !ok {
			continue
		}
		v, present := mo[field]
		if !present {
			continue
		}
		contribs = append(contribs, contribution{value: v, weight: weights[i]})
		if _, ok := toFloat(v); !ok {
			allNumeric = false
		}
	}
	if len(contribs) == 0 {
		return nil
	}

	if allNumeric {
		weightSum := 0.0
		for _, c := range contribs {
			weightSum += c.weight
		}
		total := 0.0
		for _, c := range contribs {
			f, _ := toFloat(c.value)
			w := c.weight
			if weightSum > 0 {
				w = c.weight / weightSum
			} else {
				w = 1.0 / float64(len(contribs))
			}
			total += f * w
		}
		return total
	}

	best := contribs[0]
	for _, c := range contribs[1:] {
		if c.weight > best.weight {
			best = c
		}
	}
	return best.value
}

// supervisorDecision makes the configured supervisor's output authoritative.
// Agents whose value differs from the supervisor's are dissenting. When no
// supervisor output is present, an external synthesis call acts as
// supervisor, with majority-vote fallback on failure.
func (m *Mechanism) supervisorDecision(ctx context.Context, swarmName, caseID string, outputs []core.AgentOutput, cfg core.ConsensusConfig) *core.ConsensusResult {
	var supervisor *core.AgentOutput
	for i := range outputs {
		if outputs[i].AgentName == cfg.SupervisorAgent {
			supervisor = &outputs[i]
			break
		}
	}

	if supervisor == nil {
		synthesized, err := m.synthesizeDecision(ctx, outputs, cfg, true)
		if err != nil {
			m.logger.Warn("supervisor synthesis failed, falling back to majority vote",
				"swarm", swarmName,
				"case_id", caseID,
				"error", err,
			)
			return m.majorityVote(swarmName, caseID, outputs)
		}
		result := core.NewConsensusResult(swarmName, caseID, string(core.MethodSupervisorDecision))
		result.FinalOutput = synthesized.Output
		result.Confidence = core.ClampConfidence(synthesized.Confidence)
		for _, out := range outputs {
			result.ParticipatingAgents = append(result.ParticipatingAgents, out.AgentName)
		}
		return result
	}

	result := core.NewConsensusResult(swarmName, caseID, string(core.MethodSupervisorDecision))
	result.FinalOutput = supervisor.Output
	result.Confidence = core.ClampConfidence(supervisor.Confidence)

	supervisorKey := comparisonKey(supervisor.Output)
	for _, out := range outputs {
		if out.AgentName == supervisor.AgentName || comparisonKey(out.Output) == supervisorKey {
			result.ParticipatingAgents = append(result.ParticipatingAgents, out.AgentName)
		} else {
			result.DissentingAgents = append(result.DissentingAgents, out.AgentName)
		}
	}
	return result
}

// debateAndRefine hands every output to the synthesizer and asks for one
// refined result. Any failure falls back to majority vote over the same
// inputs.
func (m *Mechanism) debateAndRefine(ctx context.Context, swarmName, caseID string, outputs []core.AgentOutput, cfg core.ConsensusConfig) *core.ConsensusResult {
	synthesized, err := m.synthesizeDecision(ctx, outputs, cfg, false)
	if err != nil {
		m.logger.Warn("debate synthesis failed, falling back to majority vote",
			"swarm", swarmName,
			"case_id", caseID,
			"error", err,
		)
		return m.majorityVote(swarmName, caseID, outputs)
	}

	result := core.NewConsensusResult(swarmName, caseID, string(core.MethodDebateAndRefine))
	result.FinalOutput = synthesized.Output
	result.Confidence = core.ClampConfidence(synthesized.Confidence)
	for _, out := range outputs {
		result.ParticipatingAgents = append(result.ParticipatingAgents, out.AgentName)
	}
	return result
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Deterministic field discovery regardless of map iteration order.
	sort.Strings(keys)
	return keys
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
