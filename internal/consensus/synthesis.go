package consensus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ahouse2/co-counsel-nexus-sub001/internal/core"
)

// synthesizedDecision is the shape the synthesizer is asked to return.
type synthesizedDecision struct {
	Output     any     `json:"output"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// synthesizeDecision asks the external synthesizer to produce one combined
// result from all outputs. The response is an opaque blob that must be
// parsed defensively; every failure mode surfaces as a ConsensusParseError
// so the caller can fall back to majority vote.
func (m *Mechanism) synthesizeDecision(ctx context.Context, outputs []core.AgentOutput, cfg core.ConsensusConfig, asSupervisor bool) (*synthesizedDecision, error) {
	if m.synth == nil {
		return nil, core.ErrConsensusParse("no synthesizer configured")
	}

	prompt := buildSynthesisPrompt(outputs, cfg, asSupervisor)

	text, err := m.synth.Synthesize(ctx, prompt)
	if err != nil {
		return nil, core.ErrConsensusParse("synthesis call failed").WithCause(err)
	}

	decision, err := parseDecision(text)
	if err != nil {
		return nil, err
	}
	return decision, nil
}

func buildSynthesisPrompt(outputs []core.AgentOutput, cfg core.ConsensusConfig, asSupervisor bool) string {
	var sb strings.Builder
	if asSupervisor {
		fmt.Fprintf(&sb, "You are acting as the supervising agent %q for a group of analysts.\n", cfg.SupervisorAgent)
		sb.WriteString("Review their findings and issue the authoritative decision.\n\n")
	} else {
		sb.WriteString("Several analysts produced conflicting findings. Debate their positions and refine them into one synthesized result.\n\n")
	}

	for i, out := range outputs {
		fmt.Fprintf(&sb, "Analyst %d (%s, confidence %.2f):\n", i+1, out.AgentName, out.Confidence)
		if data, err := json.Marshal(out.Output); err == nil {
			sb.Write(data)
			sb.WriteString("\n")
		} else {
			fmt.Fprintf(&sb, "%v\n", out.Output)
		}
		if out.Reasoning != "" {
			fmt.Fprintf(&sb, "Reasoning: %s\n", out.Reasoning)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Respond with a single JSON object of the form ")
	sb.WriteString(`{"output": <combined result>, "confidence": <0..1>, "reasoning": "<short justification>"}`)
	sb.WriteString(" and nothing else.\n")
	return sb.String()
}

// parseDecision extracts the decision object from free-form synthesizer
// text. Models wrap JSON in prose and code fences often enough that the
// parser scans for the outermost object instead of trusting the whole body.
func parseDecision(text string) (*synthesizedDecision, error) {
	raw := extractJSONObject(text)
	if raw == "" {
		return nil, core.ErrConsensusParse("no JSON object in synthesizer response").
			WithDetail("response_prefix", prefix(text, 120))
	}

	var decision synthesizedDecision
	if err := json.Unmarshal([]byte(raw), &decision); err != nil {
		return nil, core.ErrConsensusParse("synthesizer response is not the expected shape").WithCause(err)
	}
	if decision.Output == nil {
		return nil, core.ErrConsensusParse("synthesizer response has no output field")
	}
	decision.Confidence = core.ClampConfidence(decision.Confidence)
	return &decision, nil
}

// extractJSONObject returns the first balanced top-level JSON object in s,
// or "".
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
