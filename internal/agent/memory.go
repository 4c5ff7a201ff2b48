package agent

import "context"

// Memory is the conversation persistence capability the reasoning loop
// depends on. Implementations own all persisted turns, decision points
// and invocation records for a user; the loop owns only the transient
// in-flight turn list of the current chat call.
//
// Every write is best-effort from the loop's perspective: implementations
// log and swallow storage faults so a memory outage degrades to "no
// history" instead of aborting an in-progress reasoning turn.
type Memory interface {
	// AppendTurn persists a turn. Best-effort.
	AppendTurn(ctx context.Context, userID string, turn Turn)

	// RecentHistory returns up to limit most recent plain user/assistant
	// turns in chronological order (oldest first). Decision markers and
	// tool-protocol turns are excluded. Returns nil on storage faults.
	RecentHistory(ctx context.Context, userID string, limit int) []Turn

	// RecordToolCall persists an invocation record, success or failure.
	// Best-effort.
	RecordToolCall(ctx context.Context, userID string, inv Invocation)

	// RecordDecisionPoint persists a named workflow marker. Best-effort.
	RecordDecisionPoint(ctx context.Context, userID, label string, data map[string]any)

	// Clear deletes all turns and invocation records for a user.
	Clear(ctx context.Context, userID string) error

	// Stats returns aggregate conversation counters for a user.
	Stats(ctx context.Context, userID string) (Stats, error)
}

// Completion is the provider-neutral result of one model request:
// either final text, or a list of requested tool calls (with optional
// accompanying text).
type Completion struct {
	Text      string
	ToolCalls []ToolCallRequest
}

// CompletionService abstracts the language-model provider. Adapters
// translate Turn and Tool to the provider wire format at this boundary,
// keeping the reasoning loop protocol-agnostic.
type CompletionService interface {
	Complete(ctx context.Context, systemPrompt string, turns []Turn, tools []*Tool) (*Completion, error)
}
