package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/learnly-platform/learnly/internal/metrics"
)

// Executor resolves tool-call requests against the registry and runs
// them under a per-tool timeout. Every execution, success or failure,
// is recorded to Memory before the invocation is returned.
type Executor struct {
	registry       *Registry
	memory         Memory
	defaultTimeout time.Duration
}

// NewExecutor creates a tool executor.
func NewExecutor(registry *Registry, memory Memory, defaultTimeout time.Duration) *Executor {
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultToolTimeout
	}
	return &Executor{
		registry:       registry,
		memory:         memory,
		defaultTimeout: defaultTimeout,
	}
}

// Execute runs one requested tool call. Failures are classified
// (unknown tool, invalid parameters, timeout, executor error) and
// returned inside the Invocation rather than as an error, so the
// reasoning loop can feed them back to the model and continue.
//
// A timed-out executor is abandoned, not killed: its goroutine keeps
// running until the tool returns. Tools must be safe to abandon.
func (e *Executor) Execute(ctx context.Context, userID string, call ToolCallRequest) Invocation {
	start := time.Now()
	inv := Invocation{
		ID:        uuid.New(),
		ToolName:  call.Name,
		Timestamp: start.UTC(),
	}

	finish := func(status string) Invocation {
		inv.ExecutionTimeMs = time.Since(start).Milliseconds()
		e.memory.RecordToolCall(ctx, userID, inv)
		metrics.ToolExecutionsTotal.WithLabelValues(call.Name, status).Inc()
		metrics.ToolExecutionDuration.WithLabelValues(call.Name).Observe(time.Since(start).Seconds())
		return inv
	}

	tool, ok := e.registry.Get(call.Name)
	if !ok {
		slog.Warn("agent: unknown tool requested", "tool", call.Name, "user_id", userID)
		inv.Error = fmt.Sprintf("%s: %s", ErrUnknownTool, call.Name)
		return finish("unknown_tool")
	}

	params, err := parseParameters(call.Arguments)
	if err != nil {
		slog.Warn("agent: unparseable tool arguments", "tool", call.Name, "error", err)
		inv.Error = fmt.Sprintf("%s: %s", ErrInvalidParameters, err)
		return finish("invalid_parameters")
	}
	if missing := missingRequired(tool.Parameters, params); len(missing) > 0 {
		inv.Error = fmt.Sprintf("%s: missing required fields: %s", ErrInvalidParameters, strings.Join(missing, ", "))
		return finish("invalid_parameters")
	}

	// Merge caller identity so tools always have user context without
	// the model supplying it.
	params["user_id"] = userID
	inv.Parameters = params

	timeout := tool.Timeout
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		result any
		err    error
	}
	outCh := make(chan outcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				outCh <- outcome{err: fmt.Errorf("tool panicked: %v", rec)}
			}
		}()
		result, err := tool.Execute(tctx, params)
		outCh <- outcome{result: result, err: err}
	}()

	select {
	case out := <-outCh:
		if out.err != nil {
			slog.Warn("agent: tool failed", "tool", call.Name, "error", out.err)
			inv.Error = out.err.Error()
			return finish("error")
		}
		inv.Result = out.result
		slog.Debug("agent: tool completed", "tool", call.Name, "duration_ms", time.Since(start).Milliseconds())
		return finish("ok")
	case <-tctx.Done():
		slog.Warn("agent: tool timed out", "tool", call.Name, "timeout", timeout)
		inv.Error = ErrToolTimeout.Error()
		return finish("timeout")
	}
}

func parseParameters(raw json.RawMessage) (map[string]any, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return map[string]any{}, nil
	}
	var params map[string]any
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, err
	}
	if params == nil {
		params = map[string]any{}
	}
	return params, nil
}

// missingRequired checks the "required" list of a JSON-schema parameter
// object against the parsed arguments. The caller-identity field is
// never required from the model — the executor injects it.
func missingRequired(schema, params map[string]any) []string {
	var required []string
	switch req := schema["required"].(type) {
	case []string:
		required = req
	case []any:
		for _, v := range req {
			if s, ok := v.(string); ok {
				required = append(required, s)
			}
		}
	}

	var missing []string
	for _, field := range required {
		if field == "user_id" {
			continue
		}
		if _, ok := params[field]; !ok {
			missing = append(missing, field)
		}
	}
	return missing
}
