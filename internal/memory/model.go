package memory

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TurnRecord is a row in the conversation_turns table. Turns are
// append-only: nothing in the system updates a turn after insert.
type TurnRecord struct {
	ID          uuid.UUID       `json:"id"`
	UserID      string          `json:"user_id"`
	Role        string          `json:"role"`
	Content     string          `json:"content"`
	ToolCalls   json.RawMessage `json:"tool_calls,omitempty"`
	ToolCallRef string          `json:"tool_call_ref,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// InvocationRecord is a row in the tool_invocations table, the audit
// trail of every tool execution attempt.
type InvocationRecord struct {
	ID              uuid.UUID       `json:"id"`
	UserID          string          `json:"user_id"`
	ToolName        string          `json:"tool_name"`
	Parameters      json.RawMessage `json:"parameters"`
	Result          json.RawMessage `json:"result,omitempty"`
	Error           string          `json:"error,omitempty"`
	ExecutionTimeMs int64           `json:"execution_time_ms"`
	CreatedAt       time.Time       `json:"created_at"`
}
