// Package llm adapts the reasoning loop's provider-neutral completion
// contract to OpenAI-compatible chat completion APIs.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/learnly-platform/learnly/internal/agent"
)

const (
	defaultTemperature = 0.3
	defaultMaxTokens   = 2000
	defaultTimeout     = 60 * time.Second
)

// Config holds provider connection settings.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// OpenAIClient implements agent.CompletionService against any
// OpenAI-compatible /v1/chat/completions endpoint.
type OpenAIClient struct {
	cfg        Config
	httpClient *http.Client
}

// NewOpenAIClient creates a completion client. Zero-value tuning fields
// fall back to package defaults.
func NewOpenAIClient(cfg Config) *OpenAIClient {
	if cfg.Temperature == 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &OpenAIClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Wire types. Tool-call arguments travel as a JSON-encoded string on
// this protocol; the neutral types carry them as raw JSON.

type wireMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type wireToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type wireTool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Parameters  map[string]any `json:"parameters"`
	} `json:"function"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Tools       []wireTool    `json:"tools,omitempty"`
	ToolChoice  string        `json:"tool_choice,omitempty"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message      wireMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends one chat completion request. Tool definitions are
// attached with tool_choice "auto": the model decides each round
// whether to answer directly or defer to tools.
func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt string, turns []agent.Turn, tools []*agent.Tool) (*agent.Completion, error) {
	req := chatRequest{
		Model:       c.cfg.Model,
		Messages:    buildMessages(systemPrompt, turns),
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}
	if len(tools) > 0 {
		req.Tools = buildTools(tools)
		req.ToolChoice = "auto"
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("completion API error %d: %s", resp.StatusCode, string(raw))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if chatResp.Error != nil {
		return nil, fmt.Errorf("completion API error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("completion API returned no choices")
	}

	msg := chatResp.Choices[0].Message
	completion := &agent.Completion{Text: msg.Content}
	for _, tc := range msg.ToolCalls {
		completion.ToolCalls = append(completion.ToolCalls, agent.ToolCallRequest{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	return completion, nil
}

func buildMessages(systemPrompt string, turns []agent.Turn) []wireMessage {
	messages := make([]wireMessage, 0, len(turns)+1)
	if systemPrompt != "" {
		messages = append(messages, wireMessage{Role: "system", Content: systemPrompt})
	}
	for _, turn := range turns {
		msg := wireMessage{
			Role:       turn.Role,
			Content:    turn.Content,
			ToolCallID: turn.ToolCallRef,
		}
		for _, call := range turn.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, wireToolCall{
				ID:   call.ID,
				Type: "function",
				Function: wireFunction{
					Name:      call.Name,
					Arguments: string(call.Arguments),
				},
			})
		}
		messages = append(messages, msg)
	}
	return messages
}

func buildTools(tools []*agent.Tool) []wireTool {
	out := make([]wireTool, len(tools))
	for i, t := range tools {
		out[i].Type = "function"
		out[i].Function.Name = t.Name
		out[i].Function.Description = t.Description
		out[i].Function.Parameters = t.Parameters
	}
	return out
}
