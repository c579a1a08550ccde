package consensus

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/ahouse2/co-counsel-nexus-sub001/internal/core"
	"github.com/ahouse2/co-counsel-nexus-sub001/internal/logging"
)

type synthFunc func(ctx context.Context, prompt string) (string, error)

func (f synthFunc) Synthesize(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func defaultCfg(method core.ConsensusMethod) core.ConsensusConfig {
	cfg := core.DefaultConsensusConfig()
	cfg.Method = method
	return cfg
}

func TestReach_ZeroOutputs(t *testing.T) {
	m := New(nil, logging.NewNop())

	result := m.Reach(context.Background(), "narrative", "case-1", nil, defaultCfg(core.MethodMajorityVote))

	if result.ConsensusType != core.ConsensusNone {
		t.Errorf("ConsensusType = %s, want %s", result.ConsensusType, core.ConsensusNone)
	}
	if result.FinalOutput != nil {
		t.Errorf("FinalOutput = %v, want nil", result.FinalOutput)
	}
	if result.Confidence != 0 {
		t.Errorf("Confidence = %v, want 0", result.Confidence)
	}
}

func TestReach_SingleOutputPassthrough(t *testing.T) {
	m := New(nil, logging.NewNop())
	output := map[string]any{"finding": "inconsistent timeline"}

	result := m.Reach(context.Background(), "narrative", "case-1", []core.AgentOutput{
		{AgentName: "A", Output: output, Confidence: 0.42},
	}, defaultCfg(core.MethodMajorityVote))

	if result.ConsensusType != core.ConsensusSingle {
		t.Errorf("ConsensusType = %s, want %s", result.ConsensusType, core.ConsensusSingle)
	}
	if result.Confidence != 0.42 {
		t.Errorf("Confidence = %v, want 0.42", result.Confidence)
	}
	if !reflect.DeepEqual(result.FinalOutput, output) {
		t.Errorf("FinalOutput = %v, want %v", result.FinalOutput, output)
	}
	if len(result.DissentingAgents) != 0 {
		t.Errorf("DissentingAgents = %v, want empty", result.DissentingAgents)
	}
}

func TestMajorityVote_WinnerAndDissent(t *testing.T) {
	m := New(nil, logging.NewNop())
	outputs := []core.AgentOutput{
		{AgentName: "A", Output: map[string]any{"decision": "X"}, Confidence: 1.0},
		{AgentName: "B", Output: map[string]any{"decision": "X"}, Confidence: 1.0},
		{AgentName: "C", Output: map[string]any{"decision": "Y"}, Confidence: 1.0},
	}

	result := m.Reach(context.Background(), "research", "case-1", outputs, defaultCfg(core.MethodMajorityVote))

	final, ok := result.FinalOutput.(map[string]any)
	if !ok || final["decision"] != "X" {
		t.Errorf("FinalOutput = %v, want decision X", result.FinalOutput)
	}
	if math.Abs(result.Confidence-2.0/3.0) > 1e-9 {
		t.Errorf("Confidence = %v, want 2/3", result.Confidence)
	}
	if !reflect.DeepEqual(result.DissentingAgents, []string{"C"}) {
		t.Errorf("DissentingAgents = %v, want [C]", result.DissentingAgents)
	}
	if !reflect.DeepEqual(result.ParticipatingAgents, []string{"A", "B"}) {
		t.Errorf("ParticipatingAgents = %v, want [A B]", result.ParticipatingAgents)
	}
}

func TestMajorityVote_TieBreaksToFirstInInputOrder(t *testing.T) {
	m := New(nil, logging.NewNop())
	outputs := []core.AgentOutput{
		{AgentName: "A", Output: map[string]any{"decision": "Y"}, Confidence: 1.0},
		{AgentName: "B", Output: map[string]any{"decision": "X"}, Confidence: 1.0},
	}

	for i := 0; i < 10; i++ {
		result := m.Reach(context.Background(), "research", "case-1", outputs, defaultCfg(core.MethodMajorityVote))
		final := result.FinalOutput.(map[string]any)
		if final["decision"] != "Y" {
			t.Fatalf("run %d: tie broke to %v, want Y (first in input order)", i, final["decision"])
		}
	}
}

func TestMajorityVote_AgentPartition(t *testing.T) {
	m := New(nil, logging.NewNop())
	outputs := []core.AgentOutput{
		{AgentName: "A", Output: "alpha", Confidence: 0.9},
		{AgentName: "B", Output: "beta", Confidence: 0.8},
		{AgentName: "C", Output: "alpha", Confidence: 0.7},
		{AgentName: "D", Output: "alpha", Confidence: 0.6},
	}

	result := m.Reach(context.Background(), "forensic", "case-1", outputs, defaultCfg(core.MethodMajorityVote))

	all := append(append([]string{}, result.ParticipatingAgents...), result.DissentingAgents...)
	if len(all) != len(outputs) {
		t.Fatalf("participating+dissenting = %d agents, want %d", len(all), len(outputs))
	}
	seen := make(map[string]bool)
	for _, name := range all {
		if seen[name] {
			t.Errorf("agent %s appears in both sets", name)
		}
		seen[name] = true
	}
	if result.Confidence < 0 || result.Confidence > 1 {
		t.Errorf("Confidence = %v, want in [0,1]", result.Confidence)
	}
}

func TestWeightedAverage_NumericMerge(t *testing.T) {
	m := New(nil, logging.NewNop())
	outputs := []core.AgentOutput{
		{AgentName: "A", Output: map[string]any{"score": 10.0}, Confidence: 0.8},
		{AgentName: "B", Output: map[string]any{"score": 0.0}, Confidence: 0.2},
	}

	result := m.Reach(context.Background(), "simulation", "case-1", outputs, defaultCfg(core.MethodWeightedAverage))

	merged := result.FinalOutput.(map[string]any)
	score := merged["score"].(float64)
	if math.Abs(score-8.0) > 1e-9 {
		t.Errorf("score = %v, want 8.0", score)
	}
	if math.Abs(result.Confidence-0.5) > 1e-9 {
		t.Errorf("Confidence = %v, want 0.5 (mean of inputs)", result.Confidence)
	}
	if len(result.DissentingAgents) != 0 {
		t.Errorf("weighted average computes no dissent, got %v", result.DissentingAgents)
	}
}

func TestWeightedAverage_ZeroConfidencesUseEqualWeights(t *testing.T) {
	m := New(nil, logging.NewNop())
	outputs := []core.AgentOutput{
		{AgentName: "A", Output: map[string]any{"score": 4.0}, Confidence: 0},
		{AgentName: "B", Output: map[string]any{"score": 8.0}, Confidence: 0},
	}

	result := m.Reach(context.Background(), "simulation", "case-1", outputs, defaultCfg(core.MethodWeightedAverage))

	merged := result.FinalOutput.(map[string]any)
	score := merged["score"].(float64)
	if math.Abs(score-6.0) > 1e-9 {
		t.Errorf("score = %v, want 6.0 (equal weights)", score)
	}
}

func TestWeightedAverage_NonNumericTakesHighestWeight(t *testing.T) {
	m := New(nil, logging.NewNop())
	outputs := []core.AgentOutput{
		{AgentName: "A", Output: map[string]any{"summary": "weak case", "score": 3.0}, Confidence: 0.3},
		{AgentName: "B", Output: map[string]any{"summary": "strong case", "score": 9.0}, Confidence: 0.7},
	}

	result := m.Reach(context.Background(), "simulation", "case-1", outputs, defaultCfg(core.MethodWeightedAverage))

	merged := result.FinalOutput.(map[string]any)
	if merged["summary"] != "strong case" {
		t.Errorf("summary = %v, want highest-weight contributor's value", merged["summary"])
	}
	score := merged["score"].(float64)
	want := 0.3*3.0 + 0.7*9.0
	if math.Abs(score-want) > 1e-9 {
		t.Errorf("score = %v, want %v", score, want)
	}
}

func TestReach_Idempotent(t *testing.T) {
	m := New(nil, logging.NewNop())
	outputs := []core.AgentOutput{
		{AgentName: "A", Output: map[string]any{"decision": "settle"}, Confidence: 0.9},
		{AgentName: "B", Output: map[string]any{"decision": "trial"}, Confidence: 0.9},
		{AgentName: "C", Output: map[string]any{"decision": "settle"}, Confidence: 0.9},
	}
	cfg := defaultCfg(core.MethodMajorityVote)

	first := m.Reach(context.Background(), "prep", "case-1", outputs, cfg)
	second := m.Reach(context.Background(), "prep", "case-1", outputs, cfg)

	if !reflect.DeepEqual(first.FinalOutput, second.FinalOutput) {
		t.Errorf("outputs differ across runs: %v vs %v", first.FinalOutput, second.FinalOutput)
	}
	if first.Confidence != second.Confidence {
		t.Errorf("confidence differs across runs: %v vs %v", first.Confidence, second.Confidence)
	}
	if !reflect.DeepEqual(first.DissentingAgents, second.DissentingAgents) {
		t.Errorf("dissent differs across runs: %v vs %v", first.DissentingAgents, second.DissentingAgents)
	}
}

func TestSupervisorDecision_SupervisorPresent(t *testing.T) {
	m := New(nil, logging.NewNop())
	outputs := []core.AgentOutput{
		{AgentName: "junior", Output: map[string]any{"decision": "dismiss"}, Confidence: 0.6},
		{AgentName: "lead", Output: map[string]any{"decision": "pursue"}, Confidence: 0.95},
		{AgentName: "second", Output: map[string]any{"decision": "pursue"}, Confidence: 0.7},
	}
	cfg := defaultCfg(core.MethodSupervisorDecision)
	cfg.SupervisorAgent = "lead"

	result := m.Reach(context.Background(), "drafting", "case-1", outputs, cfg)

	final := result.FinalOutput.(map[string]any)
	if final["decision"] != "pursue" {
		t.Errorf("FinalOutput = %v, want supervisor's verbatim", result.FinalOutput)
	}
	if result.Confidence != 0.95 {
		t.Errorf("Confidence = %v, want supervisor's 0.95", result.Confidence)
	}
	if !reflect.DeepEqual(result.DissentingAgents, []string{"junior"}) {
		t.Errorf("DissentingAgents = %v, want [junior]", result.DissentingAgents)
	}
}

func TestSupervisorDecision_AbsentSupervisorUsesSynthesis(t *testing.T) {
	synth := synthFunc(func(_ context.Context, _ string) (string, error) {
		return `Here is my decision: {"output": {"decision": "pursue"}, "confidence": 0.85}`, nil
	})
	m := New(synth, logging.NewNop())
	outputs := []core.AgentOutput{
		{AgentName: "A", Output: map[string]any{"decision": "dismiss"}, Confidence: 0.5},
		{AgentName: "B", Output: map[string]any{"decision": "pursue"}, Confidence: 0.5},
	}
	cfg := defaultCfg(core.MethodSupervisorDecision)
	cfg.SupervisorAgent = "lead" // not among the outputs

	result := m.Reach(context.Background(), "drafting", "case-1", outputs, cfg)

	if result.ConsensusType != string(core.MethodSupervisorDecision) {
		t.Errorf("ConsensusType = %s, want supervisor_decision", result.ConsensusType)
	}
	final := result.FinalOutput.(map[string]any)
	if final["decision"] != "pursue" {
		t.Errorf("FinalOutput = %v, want synthesized decision", result.FinalOutput)
	}
	if result.Confidence != 0.85 {
		t.Errorf("Confidence = %v, want 0.85", result.Confidence)
	}
}

func TestDebateAndRefine_Success(t *testing.T) {
	synth := synthFunc(func(_ context.Context, _ string) (string, error) {
		return `{"output": {"theory": "coerced signature"}, "confidence": 0.9, "reasoning": "both analyses converge"}`, nil
	})
	m := New(synth, logging.NewNop())
	outputs := []core.AgentOutput{
		{AgentName: "A", Output: map[string]any{"theory": "forged signature"}, Confidence: 0.6},
		{AgentName: "B", Output: map[string]any{"theory": "signed under duress"}, Confidence: 0.7},
	}

	result := m.Reach(context.Background(), "narrative", "case-1", outputs, defaultCfg(core.MethodDebateAndRefine))

	if result.ConsensusType != string(core.MethodDebateAndRefine) {
		t.Errorf("ConsensusType = %s, want debate_and_refine", result.ConsensusType)
	}
	final := result.FinalOutput.(map[string]any)
	if final["theory"] != "coerced signature" {
		t.Errorf("FinalOutput = %v, want synthesized theory", result.FinalOutput)
	}
}

func TestDebateAndRefine_FallsBackOnSynthError(t *testing.T) {
	synth := synthFunc(func(_ context.Context, _ string) (string, error) {
		return "", errors.New("backend unavailable")
	})
	m := New(synth, logging.NewNop())
	outputs := []core.AgentOutput{
		{AgentName: "A", Output: map[string]any{"decision": "X"}, Confidence: 1.0},
		{AgentName: "B", Output: map[string]any{"decision": "X"}, Confidence: 1.0},
		{AgentName: "C", Output: map[string]any{"decision": "Y"}, Confidence: 1.0},
	}

	result := m.Reach(context.Background(), "narrative", "case-1", outputs, defaultCfg(core.MethodDebateAndRefine))

	if result.ConsensusType != string(core.MethodMajorityVote) {
		t.Errorf("ConsensusType = %s, want majority_vote fallback", result.ConsensusType)
	}
	final := result.FinalOutput.(map[string]any)
	if final["decision"] != "X" {
		t.Errorf("FinalOutput = %v, want majority decision X", result.FinalOutput)
	}
}

func TestDebateAndRefine_FallsBackOnUnparseableResponse(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{name: "prose only", response: "I think they are all wrong."},
		{name: "truncated json", response: `{"output": {"decision":`},
		{name: "missing output field", response: `{"confidence": 0.9}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			synth := synthFunc(func(_ context.Context, _ string) (string, error) {
				return tt.response, nil
			})
			m := New(synth, logging.NewNop())
			outputs := []core.AgentOutput{
				{AgentName: "A", Output: "X", Confidence: 1.0},
				{AgentName: "B", Output: "Y", Confidence: 1.0},
				{AgentName: "C", Output: "X", Confidence: 1.0},
			}

			result := m.Reach(context.Background(), "narrative", "case-1", outputs, defaultCfg(core.MethodDebateAndRefine))

			if result.ConsensusType != string(core.MethodMajorityVote) {
				t.Errorf("ConsensusType = %s, want majority_vote fallback", result.ConsensusType)
			}
			if result.FinalOutput != "X" {
				t.Errorf("FinalOutput = %v, want X", result.FinalOutput)
			}
		})
	}
}

func TestDebateAndRefine_NoSynthesizerFallsBack(t *testing.T) {
	m := New(nil, logging.NewNop())
	outputs := []core.AgentOutput{
		{AgentName: "A", Output: "X", Confidence: 1.0},
		{AgentName: "B", Output: "X", Confidence: 1.0},
	}

	result := m.Reach(context.Background(), "narrative", "case-1", outputs, defaultCfg(core.MethodDebateAndRefine))

	if result.ConsensusType != string(core.MethodMajorityVote) {
		t.Errorf("ConsensusType = %s, want majority_vote fallback", result.ConsensusType)
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "bare object", in: `{"a": 1}`, want: `{"a": 1}`},
		{name: "fenced", in: "```json\n{\"a\": 1}\n```", want: `{"a": 1}`},
		{name: "prose around", in: `Sure! {"a": {"b": 2}} hope that helps`, want: `{"a": {"b": 2}}`},
		{name: "braces in strings", in: `{"a": "{not nested}"}`, want: `{"a": "{not nested}"}`},
		{name: "no object", in: "no json here", want: ""},
		{name: "unbalanced", in: `{"a": 1`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSONObject(tt.in); got != tt.want {
				t.Errorf("extractJSONObject(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
