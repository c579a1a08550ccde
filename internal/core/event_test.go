package core

import "testing"

func TestNewSystemEvent(t *testing.T) {
	ev := NewSystemEvent(EventDocumentIngested, "case-1", "ingestion", map[string]any{"doc": "a.pdf"})

	if ev.ID == "" {
		t.Error("event ID not assigned")
	}
	if ev.Timestamp.IsZero() {
		t.Error("timestamp not assigned")
	}
	if ev.Type != EventDocumentIngested || ev.CaseID != "case-1" || ev.Source != "ingestion" {
		t.Errorf("fields = %+v", ev)
	}

	other := NewSystemEvent(EventDocumentIngested, "case-1", "ingestion", nil)
	if other.ID == ev.ID {
		t.Error("event IDs should be unique")
	}
}

func TestEventTypeValid(t *testing.T) {
	for _, known := range KnownEventTypes() {
		if !known.Valid() {
			t.Errorf("%s should be valid", known)
		}
	}
	if EventType("made_up").Valid() {
		t.Error("unknown type reported valid")
	}
	if EventType("").Valid() {
		t.Error("empty type reported valid")
	}
}

func TestSwarmMessageTargets(t *testing.T) {
	broadcast := NewSwarmMessage("research", BroadcastName, MessageAlert, nil, "case-1")
	if !broadcast.IsBroadcast() {
		t.Error("broadcast name should mark broadcast")
	}

	implicit := NewSwarmMessage("research", "", MessageAlert, nil, "case-1")
	if !implicit.IsBroadcast() {
		t.Error("empty target should mark broadcast")
	}

	coord := NewSwarmMessage("research", CoordinatorName, MessageStatusReport, nil, "case-1")
	if !coord.IsForCoordinator() || coord.IsBroadcast() {
		t.Error("coordinator target misclassified")
	}

	named := NewSwarmMessage("research", "drafting", MessageRequest, nil, "case-1")
	if named.IsBroadcast() || named.IsForCoordinator() {
		t.Error("named target misclassified")
	}
}

func TestClampConfidence(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.42, 0.42},
		{1, 1},
		{3.7, 1},
	}
	for _, tt := range tests {
		if got := ClampConfidence(tt.in); got != tt.want {
			t.Errorf("ClampConfidence(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewConsensusResult(t *testing.T) {
	r := NewConsensusResult("research", "case-1", string(MethodMajorityVote))
	if r.ID == "" || r.Timestamp.IsZero() {
		t.Error("identity fields not assigned")
	}
	if r.SwarmName != "research" || r.CaseID != "case-1" || r.ConsensusType != "majority_vote" {
		t.Errorf("fields = %+v", r)
	}
}
