package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/learnly-platform/learnly/internal/metrics"
)

const (
	// DefaultMaxIterations bounds the number of model requests a single
	// chat turn may make before falling back to an apology.
	DefaultMaxIterations = 5

	// DefaultHistoryWindow is how many recent turns are replayed into the
	// model context at the start of each chat turn.
	DefaultHistoryWindow = 6
)

// Engine drives the tool-calling reasoning loop: it replays recent
// history, asks the model for a completion, executes any requested
// tools, feeds results back, and repeats until the model produces final
// text or the iteration budget runs out.
type Engine struct {
	registry      *Registry
	executor      *Executor
	memory        Memory
	llm           CompletionService
	systemPrompt  string
	maxIterations int
	historyWindow int
}

// Response is the outcome of one chat turn. Turns carries the full
// in-flight sequence of this call — replayed history, the user message,
// tool protocol turns and the final answer — for callers that need the
// raw exchange.
type Response struct {
	Message     string       `json:"message"`
	ToolCalls   []Invocation `json:"tool_calls,omitempty"`
	Turns       []Turn       `json:"turns,omitempty"`
	Iterations  int          `json:"iterations"`
	TotalTimeMs int64        `json:"total_time_ms"`
}

// NewEngine wires a reasoning loop. Non-positive limits fall back to
// package defaults.
func NewEngine(registry *Registry, executor *Executor, memory Memory, llm CompletionService, systemPrompt string, maxIterations, historyWindow int) *Engine {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	if historyWindow <= 0 {
		historyWindow = DefaultHistoryWindow
	}
	return &Engine{
		registry:      registry,
		executor:      executor,
		memory:        memory,
		llm:           llm,
		systemPrompt:  systemPrompt,
		maxIterations: maxIterations,
		historyWindow: historyWindow,
	}
}

// Chat processes one user message to completion. Tool failures and
// model faults are absorbed into the loop: the only errors Chat returns
// are context cancellation surfaced through the final state. When the
// iteration budget is exhausted without a final answer, the response
// carries the fallback message.
func (e *Engine) Chat(ctx context.Context, userID, message string) (*Response, error) {
	start := time.Now()
	slog.Info("agent: chat started", "user_id", userID)

	// Working context: persisted recent history plus the new message.
	// History is read before the new turn is persisted so the message
	// enters the context exactly once. Tool-protocol turns from previous
	// chat calls never re-enter here; RecentHistory returns plain
	// user/assistant turns only.
	userTurn := Turn{Role: RoleUser, Content: message}
	turns := append(e.memory.RecentHistory(ctx, userID, e.historyWindow), userTurn)
	e.memory.AppendTurn(ctx, userID, userTurn)

	resp := &Response{}
	tools := e.registry.List()
	answered := false

	for resp.Iterations < e.maxIterations {
		resp.Iterations++

		completion, err := e.llm.Complete(ctx, e.systemPrompt, turns, tools)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Error("agent: completion failed", "user_id", userID, "iteration", resp.Iterations, "error", err)
			continue
		}

		if len(completion.ToolCalls) == 0 {
			resp.Message = completion.Text
			answered = true
			finalTurn := Turn{Role: RoleAssistant, Content: completion.Text}
			turns = append(turns, finalTurn)
			e.memory.AppendTurn(ctx, userID, finalTurn)
			break
		}

		assistantTurn := Turn{
			Role:      RoleAssistant,
			Content:   completion.Text,
			ToolCalls: completion.ToolCalls,
		}
		turns = append(turns, assistantTurn)
		e.memory.AppendTurn(ctx, userID, assistantTurn)

		invocations := e.executeAll(ctx, userID, completion.ToolCalls)
		for i, inv := range invocations {
			resultTurn := Turn{
				Role:        RoleTool,
				Content:     marshalPayload(inv.Payload()),
				ToolCallRef: completion.ToolCalls[i].ID,
			}
			turns = append(turns, resultTurn)
			e.memory.AppendTurn(ctx, userID, resultTurn)
			resp.ToolCalls = append(resp.ToolCalls, inv)
		}
	}

	if !answered {
		slog.Warn("agent: iteration budget exhausted", "user_id", userID, "iterations", resp.Iterations)
		resp.Message = FallbackMessage
		fallbackTurn := Turn{Role: RoleAssistant, Content: FallbackMessage}
		turns = append(turns, fallbackTurn)
		e.memory.AppendTurn(ctx, userID, fallbackTurn)
	}

	resp.Turns = turns
	resp.TotalTimeMs = time.Since(start).Milliseconds()
	metrics.ChatRequestsTotal.WithLabelValues(chatStatus(answered)).Inc()
	metrics.ChatDuration.Observe(time.Since(start).Seconds())
	metrics.ChatIterations.Observe(float64(resp.Iterations))
	slog.Info("agent: chat completed",
		"user_id", userID,
		"iterations", resp.Iterations,
		"tool_calls", len(resp.ToolCalls),
		"duration_ms", resp.TotalTimeMs)
	return resp, nil
}

// executeAll runs sibling tool calls from one assistant turn
// concurrently and returns invocations in request order, so result
// turns can be appended in exact correlation with the request list.
func (e *Engine) executeAll(ctx context.Context, userID string, calls []ToolCallRequest) []Invocation {
	invocations := make([]Invocation, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call ToolCallRequest) {
			defer wg.Done()
			invocations[i] = e.executor.Execute(ctx, userID, call)
		}(i, call)
	}
	wg.Wait()
	return invocations
}

// Reset deletes all conversation state for a user.
func (e *Engine) Reset(ctx context.Context, userID string) error {
	return e.memory.Clear(ctx, userID)
}

// History returns up to limit recent plain conversation turns.
func (e *Engine) History(ctx context.Context, userID string, limit int) []Turn {
	return e.memory.RecentHistory(ctx, userID, limit)
}

// Stats returns aggregate conversation counters for a user.
func (e *Engine) Stats(ctx context.Context, userID string) (Stats, error) {
	return e.memory.Stats(ctx, userID)
}

func marshalPayload(payload any) string {
	b, err := json.Marshal(payload)
	if err != nil {
		return `{"error":"unserializable tool result"}`
	}
	return string(b)
}

func chatStatus(answered bool) string {
	if answered {
		return "answered"
	}
	return "fallback"
}
