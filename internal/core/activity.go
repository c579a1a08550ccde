package core

import "time"

// ActivityKind labels the kind of event an activity entry records.
type ActivityKind string

const (
	ActivityDispatch      ActivityKind = "dispatch"
	ActivityHandlerError  ActivityKind = "handler_error"
	ActivityStageError    ActivityKind = "stage_error"
	ActivityDeliveryError ActivityKind = "delivery_error"
	ActivityProviderError ActivityKind = "provider_error"
	ActivityStoreError    ActivityKind = "store_error"
	ActivityParseError    ActivityKind = "parse_error"
	ActivityPipeline      ActivityKind = "pipeline"
	ActivityMessage       ActivityKind = "message"
	ActivityLifecycle     ActivityKind = "lifecycle"
)

// ActivityEntry is one line in the bounded in-process activity log.
type ActivityEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Source    string         `json:"source"`
	Kind      ActivityKind   `json:"kind"`
	Message   string         `json:"message"`
	CaseID    string         `json:"case_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// NewActivityEntry creates a timestamped entry.
func NewActivityEntry(source string, kind ActivityKind, message, caseID string) ActivityEntry {
	return ActivityEntry{
		Timestamp: time.Now(),
		Source:    source,
		Kind:      kind,
		Message:   message,
		CaseID:    caseID,
	}
}

// WithDetail attaches a key/value to the entry and returns it.
func (e ActivityEntry) WithDetail(key string, value any) ActivityEntry {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	e.Details = details
	return e
}
