package agent

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Turn roles. RoleTool marks a tool-result turn answering a specific
// tool call requested by the preceding assistant turn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// DecisionPrefix marks system turns that record a decision point rather
// than conversational content. Decision turns never enter the model
// context window.
const DecisionPrefix = "DECISION: "

// ToolCallRequest is one tool invocation requested by the model.
// Arguments carries the model's serialized parameters verbatim; parsing
// and validation happen in the Executor.
type ToolCallRequest struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Turn is a single message in a conversation. Assistant turns that defer
// to tools carry ToolCalls; tool-result turns carry ToolCallRef pointing
// back at the request they answer. Turns are immutable once created.
type Turn struct {
	Role        string            `json:"role"`
	Content     string            `json:"content"`
	ToolCalls   []ToolCallRequest `json:"tool_calls,omitempty"`
	ToolCallRef string            `json:"tool_call_ref,omitempty"`
}

// Invocation is the audit record of one executed (or failed) tool call.
// Exactly one of Result and Error is set.
type Invocation struct {
	ID              uuid.UUID      `json:"id"`
	ToolName        string         `json:"tool_name"`
	Parameters      map[string]any `json:"parameters"`
	Result          any            `json:"result,omitempty"`
	Error           string         `json:"error,omitempty"`
	ExecutionTimeMs int64          `json:"execution_time_ms"`
	Timestamp       time.Time      `json:"timestamp"`
}

// Payload returns the JSON-serializable value fed back to the model as
// the tool-result turn content: the raw result on success, or an
// {"error": ...} object on failure.
func (inv Invocation) Payload() any {
	if inv.Error != "" {
		return map[string]string{"error": inv.Error}
	}
	return inv.Result
}

// Stats aggregates per-user conversation counters for observability.
type Stats struct {
	MessageCount       int64      `json:"message_count"`
	ToolCallCount      int64      `json:"tool_call_count"`
	LastActivity       *time.Time `json:"last_activity,omitempty"`
	AvgToolExecutionMs float64    `json:"avg_tool_execution_ms"`
}
