package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	// DB password
	if c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1–65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1–65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1–65535, got %d", c.Redis.Port))
	}

	// Reasoning loop bounds
	if c.Agent.MaxIterations < 1 || c.Agent.MaxIterations > 20 {
		errs = append(errs, fmt.Sprintf("AGENT_MAX_ITERATIONS must be 1–20, got %d", c.Agent.MaxIterations))
	}
	if c.Agent.HistoryWindow < 1 || c.Agent.HistoryWindow > 100 {
		errs = append(errs, fmt.Sprintf("AGENT_HISTORY_WINDOW must be 1–100, got %d", c.Agent.HistoryWindow))
	}
	if c.Agent.RetentionDays < 1 {
		errs = append(errs, fmt.Sprintf("AGENT_RETENTION_DAYS must be positive, got %d", c.Agent.RetentionDays))
	}
	if c.Agent.ToolTimeout <= 0 {
		errs = append(errs, "AGENT_TOOL_TIMEOUT must be positive")
	}

	// LLM connection
	if c.LLM.BaseURL == "" {
		errs = append(errs, "LLM_BASE_URL is required")
	}
	if c.LLM.Model == "" {
		errs = append(errs, "LLM_MODEL is required")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Sprintf("LLM_TEMPERATURE must be 0–2, got %v", c.LLM.Temperature))
	}

	// API key: warn only, local model endpoints don't need one
	if c.LLM.APIKey == "" {
		slog.Warn("LLM_API_KEY is empty — completion requests are unauthenticated")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
