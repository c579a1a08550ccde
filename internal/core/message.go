package core

import (
	"time"

	"github.com/google/uuid"
)

// MessageType classifies inter-swarm messages.
type MessageType string

const (
	MessageInfo         MessageType = "info"
	MessageRequest      MessageType = "request"
	MessageResponse     MessageType = "response"
	MessageAlert        MessageType = "alert"
	MessageConsensus    MessageType = "consensus"
	MessageStatusReport MessageType = "status_report"
)

// Reserved destination names understood by the router.
const (
	// CoordinatorName routes a message to the coordinator sink.
	CoordinatorName = "coordinator"
	// BroadcastName routes a message to every gateway except the sender.
	// An empty ToSwarm means the same thing.
	BroadcastName = "broadcast"
)

// SwarmMessage is one unit of communication between swarms. It is owned by
// the router while in flight and by the receiving gateway's inbound queue
// afterwards; neither mutates it.
type SwarmMessage struct {
	ID           string         `json:"id"`
	FromSwarm    string         `json:"from_swarm"`
	ToSwarm      string         `json:"to_swarm"`
	Type         MessageType    `json:"message_type"`
	Content      map[string]any `json:"content,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
	CaseID       string         `json:"case_id"`
	InResponseTo string         `json:"in_response_to,omitempty"`
}

// NewSwarmMessage creates a message with a fresh ID and timestamp.
func NewSwarmMessage(from, to string, msgType MessageType, content map[string]any, caseID string) SwarmMessage {
	return SwarmMessage{
		ID:        uuid.NewString(),
		FromSwarm: from,
		ToSwarm:   to,
		Type:      msgType,
		Content:   content,
		Timestamp: time.Now(),
		CaseID:    caseID,
	}
}

// IsBroadcast reports whether the message targets every swarm but the sender.
func (m SwarmMessage) IsBroadcast() bool {
	return m.ToSwarm == "" || m.ToSwarm == BroadcastName
}

// IsForCoordinator reports whether the message targets the coordinator sink.
func (m SwarmMessage) IsForCoordinator() bool {
	return m.ToSwarm == CoordinatorName
}
