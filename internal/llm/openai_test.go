package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnly-platform/learnly/internal/agent"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIClient_FinalText(t *testing.T) {
	var captured chatRequest
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "Hello there!"}, "finish_reason": "stop"},
			},
		})
	})

	client := NewOpenAIClient(Config{BaseURL: srv.URL, APIKey: "test-key", Model: "gpt-4o-mini"})
	completion, err := client.Complete(context.Background(), "Be helpful.", []agent.Turn{
		{Role: agent.RoleUser, Content: "hi"},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "Hello there!", completion.Text)
	assert.Empty(t, completion.ToolCalls)

	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "Be helpful.", captured.Messages[0].Content)
	assert.Equal(t, "user", captured.Messages[1].Role)
	assert.Empty(t, captured.ToolChoice)
	assert.InDelta(t, defaultTemperature, captured.Temperature, 0.0001)
	assert.Equal(t, defaultMaxTokens, captured.MaxTokens)
}

func TestOpenAIClient_ToolCallsDecoded(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{
					"message": map[string]any{
						"role": "assistant",
						"tool_calls": []map[string]any{
							{
								"id":   "call_abc",
								"type": "function",
								"function": map[string]any{
									"name":      "search_topics",
									"arguments": `{"query":"recursion"}`,
								},
							},
						},
					},
					"finish_reason": "tool_calls",
				},
			},
		})
	})

	client := NewOpenAIClient(Config{BaseURL: srv.URL, Model: "gpt-4o-mini"})
	completion, err := client.Complete(context.Background(), "", nil, nil)
	require.NoError(t, err)

	require.Len(t, completion.ToolCalls, 1)
	call := completion.ToolCalls[0]
	assert.Equal(t, "call_abc", call.ID)
	assert.Equal(t, "search_topics", call.Name)
	assert.JSONEq(t, `{"query":"recursion"}`, string(call.Arguments))
}

func TestOpenAIClient_ToolDefinitionsAttached(t *testing.T) {
	var captured chatRequest
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "ok"}},
			},
		})
	})

	client := NewOpenAIClient(Config{BaseURL: srv.URL, Model: "gpt-4o-mini"})
	tools := []*agent.Tool{
		{
			Name:        "detect_granularity",
			Description: "Classifies a learning request.",
			Parameters:  map[string]any{"type": "object"},
		},
	}
	_, err := client.Complete(context.Background(), "", nil, tools)
	require.NoError(t, err)

	assert.Equal(t, "auto", captured.ToolChoice)
	require.Len(t, captured.Tools, 1)
	assert.Equal(t, "function", captured.Tools[0].Type)
	assert.Equal(t, "detect_granularity", captured.Tools[0].Function.Name)
}

func TestOpenAIClient_ToolProtocolTurnsRoundTrip(t *testing.T) {
	var captured chatRequest
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "done"}},
			},
		})
	})

	client := NewOpenAIClient(Config{BaseURL: srv.URL, Model: "gpt-4o-mini"})
	turns := []agent.Turn{
		{Role: agent.RoleUser, Content: "teach me recursion"},
		{
			Role: agent.RoleAssistant,
			ToolCalls: []agent.ToolCallRequest{
				{ID: "call_1", Name: "search_topics", Arguments: []byte(`{"query":"recursion"}`)},
			},
		},
		{Role: agent.RoleTool, Content: `{"topics":[]}`, ToolCallRef: "call_1"},
	}
	_, err := client.Complete(context.Background(), "", turns, nil)
	require.NoError(t, err)

	require.Len(t, captured.Messages, 3)
	assert.Len(t, captured.Messages[1].ToolCalls, 1)
	assert.Equal(t, "call_1", captured.Messages[1].ToolCalls[0].ID)
	assert.Equal(t, `{"query":"recursion"}`, captured.Messages[1].ToolCalls[0].Function.Arguments)
	assert.Equal(t, "tool", captured.Messages[2].Role)
	assert.Equal(t, "call_1", captured.Messages[2].ToolCallID)
}

func TestOpenAIClient_HTTPError(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	})

	client := NewOpenAIClient(Config{BaseURL: srv.URL, Model: "gpt-4o-mini"})
	_, err := client.Complete(context.Background(), "", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestOpenAIClient_NoChoices(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	})

	client := NewOpenAIClient(Config{BaseURL: srv.URL, Model: "gpt-4o-mini"})
	_, err := client.Complete(context.Background(), "", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}
