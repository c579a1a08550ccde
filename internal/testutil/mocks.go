// Package testutil provides shared fakes for the coordination core's ports.
package testutil

import (
	"context"
	"sync"

	"github.com/ahouse2/co-counsel-nexus-sub001/internal/core"
)

// MockProvider is a ContextProvider returning canned records per section.
type MockProvider struct {
	mu       sync.Mutex
	Records  map[string][]map[string]any
	FailWith map[string]error
	Calls    []string
}

// Query implements core.ContextProvider.
func (p *MockProvider) Query(_ context.Context, caseID, section string) ([]map[string]any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Calls = append(p.Calls, section)
	if err, ok := p.FailWith[section]; ok {
		return nil, err
	}
	if records, ok := p.Records[section]; ok {
		return records, nil
	}
	return []map[string]any{{"section": section, "case_id": caseID}}, nil
}

// MockStore is an in-memory ResultStore.
type MockStore struct {
	mu      sync.Mutex
	Results []*core.ConsensusResult
	Err     error
}

// Write implements core.ResultStore.
func (s *MockStore) Write(_ context.Context, result *core.ConsensusResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return s.Err
	}
	s.Results = append(s.Results, result)
	return nil
}

// Recent implements core.ResultStore.
func (s *MockStore) Recent(_ context.Context, caseID string, limit int) ([]*core.ConsensusResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}
	var out []*core.ConsensusResult
	for i := len(s.Results) - 1; i >= 0; i-- {
		if caseID != "" && s.Results[i].CaseID != caseID {
			continue
		}
		out = append(out, s.Results[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Written returns a snapshot of stored results.
func (s *MockStore) Written() []*core.ConsensusResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*core.ConsensusResult(nil), s.Results...)
}

// MockSynthesizer is a TextSynthesizer returning a fixed response.
type MockSynthesizer struct {
	Response string
	Err      error
	Prompts  []string
	mu       sync.Mutex
}

// Synthesize implements core.TextSynthesizer.
func (m *MockSynthesizer) Synthesize(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.Prompts = append(m.Prompts, prompt)
	m.mu.Unlock()

	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

// StaticInvoker is a SwarmInvoker returning fixed outputs or an error.
type StaticInvoker struct {
	Swarm   string
	Outputs []core.AgentOutput
	Err     error
	mu      sync.Mutex
	Invoked int
}

// Name implements core.SwarmInvoker.
func (i *StaticInvoker) Name() string { return i.Swarm }

// Invoke implements core.SwarmInvoker.
func (i *StaticInvoker) Invoke(_ context.Context, _ string, _ map[string]any) ([]core.AgentOutput, error) {
	i.mu.Lock()
	i.Invoked++
	i.mu.Unlock()

	if i.Err != nil {
		return nil, i.Err
	}
	return i.Outputs, nil
}

// InvokeCount returns how many times Invoke ran.
func (i *StaticInvoker) InvokeCount() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.Invoked
}
