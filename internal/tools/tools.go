// Package tools defines the capability tools the agent may invoke:
// library search, request classification, progress lookup, content
// generation signals and workflow decision logging.
package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/learnly-platform/learnly/internal/agent"
	"github.com/learnly-platform/learnly/internal/topics"
)

// SearchTopics searches the content library for existing learning
// material matching the user's request.
func SearchTopics(repo topics.Repository) *agent.Tool {
	return &agent.Tool{
		Name:        "search_topics",
		Description: "Search for existing learning content in our library. Use when user mentions a specific topic to see if we have content available.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": `The topic to search for (e.g., "quantum physics", "leadership")`,
				},
				"limit": map[string]any{
					"type":        "number",
					"description": "Maximum number of results to return (default: 5)",
				},
			},
			"required": []string{"query"},
		},
		Timeout: 5 * time.Second,
		Execute: func(ctx context.Context, params map[string]any) (any, error) {
			query := stringParam(params, "query")
			limit := intParam(params, "limit", 5)

			matches, err := repo.Search(ctx, query, limit)
			if err != nil {
				return nil, fmt.Errorf("searching library: %w", err)
			}

			var exact *topics.SearchMatch
			var fuzzy []topics.SearchMatch
			for i, m := range matches {
				if m.Confidence == 1.0 && exact == nil {
					exact = &matches[i]
				} else {
					fuzzy = append(fuzzy, m)
				}
			}

			message := "No existing content found for this topic"
			if exact != nil {
				message = fmt.Sprintf("Found exact match: %q", exact.Title)
			} else if len(matches) > 0 {
				message = fmt.Sprintf("Found %d similar topic(s)", len(matches))
			}

			return map[string]any{
				"found":         len(matches) > 0,
				"exact_match":   exact,
				"fuzzy_matches": fuzzy,
				"message":       message,
			}, nil
		},
	}
}

// DetectGranularityTool classifies a learning request by scope.
func DetectGranularityTool() *agent.Tool {
	return &agent.Tool{
		Name:        "detect_granularity",
		Description: `Classify user input as SUBJECT (broad domain like "physics"), TOPIC (focused skill like "quantum mechanics"), or MODULE (specific framework like "Schrödinger equation"). Use this to understand the scope of what the user wants to learn.`,
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"input": map[string]any{
					"type":        "string",
					"description": "The user's learning request to classify",
				},
			},
			"required": []string{"input"},
		},
		Timeout: 2 * time.Second,
		Execute: func(_ context.Context, params map[string]any) (any, error) {
			input := stringParam(params, "input")
			granularity := DetectGranularity(input)

			guidance := map[string]string{
				GranularitySubject: "User provided a broad domain. Guide them to choose a specific topic within this subject.",
				GranularityTopic:   "User provided a focused skill/concept. Search for existing content or generate new modules.",
				GranularityModule:  "User provided a very specific request. Consider aggregating to parent topic level or creating focused content.",
			}
			nextAction := map[string]string{
				GranularitySubject: "Ask user to specify a topic within this subject",
				GranularityTopic:   "Search for existing content or generate new content",
				GranularityModule:  "Create focused module content",
			}

			return map[string]any{
				"granularity": granularity,
				"input":       input,
				"guidance":    guidance[granularity],
				"next_action": nextAction[granularity],
			}, nil
		},
	}
}

// GetUserProgress looks up the user's active modules and recent
// learning activity.
func GetUserProgress(repo topics.Repository) *agent.Tool {
	return &agent.Tool{
		Name:        "get_user_progress",
		Description: "Get the user's current learning progress, including active topics and modules. Use this to understand what they're already learning before suggesting new content.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
			"required":   []string{},
		},
		Timeout: 5 * time.Second,
		Execute: func(ctx context.Context, params map[string]any) (any, error) {
			userID := stringParam(params, "user_id")
			summary, err := repo.Progress(ctx, userID)
			if err != nil {
				return nil, fmt.Errorf("loading progress: %w", err)
			}

			message := "User has no active learning content"
			if summary.HasActiveContent {
				message = fmt.Sprintf("User is working through %d module(s)", len(summary.ActiveModules))
			}

			return map[string]any{
				"has_active_content": summary.HasActiveContent,
				"active_modules":     summary.ActiveModules,
				"recent_activity":    summary.RecentActivity,
				"message":            message,
			}, nil
		},
	}
}

// GenerateContent signals the content generation workflow to start for
// a confirmed topic. The tool itself only emits the signal; generation
// happens downstream.
func GenerateContent() *agent.Tool {
	return &agent.Tool{
		Name:        "generate_content",
		Description: `Generate new learning content for a topic. ONLY use this after user has confirmed they want to learn this specific topic. Do NOT use for meta-requests like "learn something new".`,
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"topic": map[string]any{
					"type":        "string",
					"description": "The confirmed topic to generate content for",
				},
				"granularity": map[string]any{
					"type":        "string",
					"description": "The scope level: subject, topic, or module",
					"enum":        []string{GranularitySubject, GranularityTopic, GranularityModule},
				},
			},
			"required": []string{"topic"},
		},
		Timeout: 1 * time.Second,
		Execute: func(_ context.Context, params map[string]any) (any, error) {
			topic := stringParam(params, "topic")
			granularity := stringParam(params, "granularity")
			if granularity == "" {
				granularity = GranularityTopic
			}

			return map[string]any{
				"action":      "START_GENERATION",
				"topic":       topic,
				"user_id":     stringParam(params, "user_id"),
				"granularity": granularity,
				"message":     fmt.Sprintf("Content generation initiated for: %s", topic),
			}, nil
		},
	}
}

// ConfirmWithUser lets the agent surface a clarifying question. The
// question is incorporated into the agent's next response.
func ConfirmWithUser() *agent.Tool {
	return &agent.Tool{
		Name:        "confirm_with_user",
		Description: "Ask the user a clarifying question. Use sparingly - only when you genuinely need more information to proceed. Most questions should be handled naturally in your response.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"question": map[string]any{
					"type":        "string",
					"description": "The question to ask the user",
				},
				"context": map[string]any{
					"type":        "string",
					"description": "Brief context for why you're asking",
				},
			},
			"required": []string{"question"},
		},
		Timeout: 1 * time.Second,
		Execute: func(_ context.Context, params map[string]any) (any, error) {
			questionContext := stringParam(params, "context")
			if questionContext == "" {
				questionContext = "Clarification needed"
			}
			return map[string]any{
				"action":   "ASK_QUESTION",
				"question": stringParam(params, "question"),
				"context":  questionContext,
			}, nil
		},
	}
}

// StoreDecision logs a workflow decision point to conversation memory.
func StoreDecision(mem agent.Memory) *agent.Tool {
	return &agent.Tool{
		Name:        "store_decision",
		Description: `Log an important decision point in the conversation workflow. Use this to track key moments like topic selection, granularity detection, or user corrections.`,
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"decision": map[string]any{
					"type":        "string",
					"description": `The decision being made (e.g., "user_confirmed_topic", "granularity_detected")`,
				},
				"data": map[string]any{
					"type":        "object",
					"description": "Additional data about the decision",
				},
			},
			"required": []string{"decision"},
		},
		Timeout: 3 * time.Second,
		Execute: func(ctx context.Context, params map[string]any) (any, error) {
			decision := stringParam(params, "decision")
			data, _ := params["data"].(map[string]any)

			mem.RecordDecisionPoint(ctx, stringParam(params, "user_id"), decision, data)
			return map[string]any{
				"stored":   true,
				"decision": decision,
			}, nil
		},
	}
}

// RegisterAll registers the default capability tools.
func RegisterAll(reg *agent.Registry, repo topics.Repository, mem agent.Memory) {
	reg.Register(SearchTopics(repo))
	reg.Register(DetectGranularityTool())
	reg.Register(GetUserProgress(repo))
	reg.Register(GenerateContent())
	reg.Register(ConfirmWithUser())
	reg.Register(StoreDecision(mem))
	slog.Info("registered default capability tools", "count", reg.Len())
}

func stringParam(params map[string]any, key string) string {
	v, _ := params[key].(string)
	return v
}

func intParam(params map[string]any, key string, fallback int) int {
	switch v := params[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}
