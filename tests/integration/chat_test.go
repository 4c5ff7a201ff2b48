//go:build integration

package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnly-platform/learnly/internal/agent"
)

func TestChat_FinalTextFirstIteration(t *testing.T) {
	env := SetupTestEnv(t)
	userID := fmt.Sprintf("chat-user-%d", uniqueID())

	env.LLM.Enqueue(&agent.Completion{Text: "Hello! How can I help you learn today?"})

	resp := DoRequest(t, env, "POST", "/api/v1/agent/chat", map[string]string{
		"user_id": userID,
		"message": "hi",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := ParseResponse(t, resp)
	data := result["data"].(map[string]any)
	assert.Equal(t, "Hello! How can I help you learn today?", data["message"])
	assert.Equal(t, float64(1), data["iterations"])
}

func TestChat_ToolCallThenAnswer(t *testing.T) {
	env := SetupTestEnv(t)
	userID := fmt.Sprintf("chat-tool-%d", uniqueID())

	args, _ := json.Marshal(map[string]any{"input": "machine learning"})
	env.LLM.Enqueue(
		&agent.Completion{ToolCalls: []agent.ToolCallRequest{
			{ID: "call_1", Name: "detect_granularity", Arguments: args},
		}},
		&agent.Completion{Text: "That looks like a topic-level request."},
	)

	resp := DoRequest(t, env, "POST", "/api/v1/agent/chat", map[string]string{
		"user_id": userID,
		"message": "machine learning",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := ParseResponse(t, resp)
	data := result["data"].(map[string]any)
	assert.Equal(t, "That looks like a topic-level request.", data["message"])
	assert.Equal(t, float64(2), data["iterations"])

	toolCalls := data["tool_calls"].([]any)
	require.Len(t, toolCalls, 1)
	first := toolCalls[0].(map[string]any)
	assert.Equal(t, "detect_granularity", first["tool_name"])
	assert.Empty(t, first["error"])
}

func TestChat_HistoryContainsPlainTurnsOnly(t *testing.T) {
	env := SetupTestEnv(t)
	userID := fmt.Sprintf("chat-hist-%d", uniqueID())

	args, _ := json.Marshal(map[string]any{"input": "algebra"})
	env.LLM.Enqueue(
		&agent.Completion{ToolCalls: []agent.ToolCallRequest{
			{ID: "call_h1", Name: "detect_granularity", Arguments: args},
		}},
		&agent.Completion{Text: "Algebra is a topic."},
	)

	resp := DoRequest(t, env, "POST", "/api/v1/agent/chat", map[string]string{
		"user_id": userID,
		"message": "algebra",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ParseResponse(t, resp)

	resp = DoRequest(t, env, "GET", "/api/v1/agent/history?user_id="+userID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := ParseResponse(t, resp)
	turns := result["data"].([]any)
	require.Len(t, turns, 2)

	first := turns[0].(map[string]any)
	assert.Equal(t, "user", first["role"])
	assert.Equal(t, "algebra", first["content"])

	second := turns[1].(map[string]any)
	assert.Equal(t, "assistant", second["role"])
	assert.Equal(t, "Algebra is a topic.", second["content"])
}

func TestChat_ResetIsIdempotent(t *testing.T) {
	env := SetupTestEnv(t)
	userID := fmt.Sprintf("chat-reset-%d", uniqueID())

	env.LLM.Enqueue(&agent.Completion{Text: "Sure."})
	resp := DoRequest(t, env, "POST", "/api/v1/agent/chat", map[string]string{
		"user_id": userID,
		"message": "remember this",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ParseResponse(t, resp)

	resp = DoRequest(t, env, "DELETE", "/api/v1/agent/reset?user_id="+userID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ParseResponse(t, resp)

	// Second reset on already-empty state still succeeds
	resp = DoRequest(t, env, "DELETE", "/api/v1/agent/reset?user_id="+userID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ParseResponse(t, resp)

	resp = DoRequest(t, env, "GET", "/api/v1/agent/history?user_id="+userID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := ParseResponse(t, resp)
	assert.Empty(t, result["data"])
}

func TestChat_StatsCountTurnsAndTools(t *testing.T) {
	env := SetupTestEnv(t)
	userID := fmt.Sprintf("chat-stats-%d", uniqueID())

	args, _ := json.Marshal(map[string]any{"input": "biology"})
	env.LLM.Enqueue(
		&agent.Completion{ToolCalls: []agent.ToolCallRequest{
			{ID: "call_s1", Name: "detect_granularity", Arguments: args},
		}},
		&agent.Completion{Text: "Biology it is."},
	)

	resp := DoRequest(t, env, "POST", "/api/v1/agent/chat", map[string]string{
		"user_id": userID,
		"message": "biology",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ParseResponse(t, resp)

	resp = DoRequest(t, env, "GET", "/api/v1/agent/stats?user_id="+userID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := ParseResponse(t, resp)
	data := result["data"].(map[string]any)
	// user + assistant(tool_calls) + tool result + final assistant
	assert.Equal(t, float64(4), data["message_count"])
	assert.Equal(t, float64(1), data["tool_call_count"])
	assert.NotEmpty(t, data["last_activity"])
}

func TestChat_ValidationErrors(t *testing.T) {
	env := SetupTestEnv(t)

	resp := DoRequest(t, env, "POST", "/api/v1/agent/chat", map[string]string{
		"message": "no user",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	ParseResponse(t, resp)

	resp = DoRequest(t, env, "POST", "/api/v1/agent/chat", map[string]string{
		"user_id": "someone",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	ParseResponse(t, resp)

	resp = DoRequest(t, env, "GET", "/api/v1/agent/history", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	ParseResponse(t, resp)
}
