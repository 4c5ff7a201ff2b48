package nats

import (
	"time"

	"github.com/google/uuid"
)

// FetchTimeout is the default timeout for batch fetching messages from consumers.
const FetchTimeout = 2 * time.Second

// Stream names.
const (
	StreamEvents = "LEARNLY_EVENTS"
)

// Subject constants.
const (
	SubjectAuditEvent    = "learnly.events.audit"
	SubjectDecisionEvent = "learnly.events.decision"
)

// Audit event types.
const (
	EventToolExecuted        = "tool_executed"
	EventDecisionRecorded    = "decision_recorded"
	EventConversationCleared = "conversation_cleared"
)

// AuditEvent is published for compliance/audit logging of agent activity.
type AuditEvent struct {
	UserID       string    `json:"user_id"`
	EventType    string    `json:"event_type"`
	Severity     string    `json:"severity"` // info, warn, error
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	Details      string    `json:"details"`
	Timestamp    time.Time `json:"timestamp"`
}

// DecisionEvent is published when the agent records a workflow decision
// point, so downstream services can react to confirmed user choices.
type DecisionEvent struct {
	ID        uuid.UUID      `json:"id"`
	UserID    string         `json:"user_id"`
	Label     string         `json:"label"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
