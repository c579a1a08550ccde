package core

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies a kind of system event. The set is closed: adding a
// new kind of event means adding a constant here and registering handlers
// for it, never matching on free-form strings.
type EventType string

const (
	EventDocumentIngested       EventType = "document_ingested"
	EventBatchIngestionComplete EventType = "batch_ingestion_complete"
	EventResearchCompleted      EventType = "research_completed"
	EventGraphUpdated           EventType = "graph_updated"
	EventContradictionDetected  EventType = "contradiction_detected"
	EventHotDocumentFlagged     EventType = "hot_document_flagged"
	EventPipelineCompleted      EventType = "pipeline_completed"
)

// KnownEventTypes lists every event type the bus dispatches.
func KnownEventTypes() []EventType {
	return []EventType{
		EventDocumentIngested,
		EventBatchIngestionComplete,
		EventResearchCompleted,
		EventGraphUpdated,
		EventContradictionDetected,
		EventHotDocumentFlagged,
		EventPipelineCompleted,
	}
}

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	for _, known := range KnownEventTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// SystemEvent is a single occurrence published on the bus. Events are
// immutable once published: they pass through the queue by value and are
// discarded after dispatch, not persisted.
type SystemEvent struct {
	ID        string         `json:"event_id"`
	Type      EventType      `json:"event_type"`
	Timestamp time.Time      `json:"timestamp"`
	CaseID    string         `json:"case_id"`
	Source    string         `json:"source"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// NewSystemEvent creates an event with a fresh ID and timestamp.
func NewSystemEvent(eventType EventType, caseID, source string, payload map[string]any) SystemEvent {
	return SystemEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		CaseID:    caseID,
		Source:    source,
		Payload:   payload,
	}
}
