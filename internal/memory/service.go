package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/learnly-platform/learnly/internal/agent"
	"github.com/learnly-platform/learnly/internal/metrics"
	"github.com/learnly-platform/learnly/internal/nats"
)

// EventPublisher is the slice of the event bus the memory store needs.
type EventPublisher interface {
	PublishAuditEvent(ctx context.Context, event nats.AuditEvent) error
	PublishDecisionEvent(ctx context.Context, event nats.DecisionEvent) error
}

// Store implements agent.Memory over Postgres with a Redis recent-turn
// cache and an audit event stream.
//
// Writes are best-effort: a storage fault is logged, counted and
// swallowed, so a memory outage degrades the conversation to "no
// history" instead of failing the chat turn. Clear and Stats are the
// exceptions: they serve explicit API requests and report their errors.
type Store struct {
	repo          Repository
	cache         *TurnCache
	publisher     EventPublisher
	retentionDays int
}

// NewStore creates a conversation store. cache and publisher may be nil.
func NewStore(repo Repository, cache *TurnCache, publisher EventPublisher, retentionDays int) *Store {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	return &Store{
		repo:          repo,
		cache:         cache,
		publisher:     publisher,
		retentionDays: retentionDays,
	}
}

func (s *Store) AppendTurn(ctx context.Context, userID string, turn agent.Turn) {
	rec := &TurnRecord{
		UserID:      userID,
		Role:        turn.Role,
		Content:     turn.Content,
		ToolCallRef: turn.ToolCallRef,
	}
	if len(turn.ToolCalls) > 0 {
		data, err := json.Marshal(turn.ToolCalls)
		if err != nil {
			slog.Warn("memory: failed to marshal tool calls", "user_id", userID, "error", err)
			metrics.MemoryWriteFailuresTotal.WithLabelValues("turn").Inc()
			return
		}
		rec.ToolCalls = data
	}

	if err := s.repo.InsertTurn(ctx, rec); err != nil {
		slog.Warn("memory: failed to append turn", "user_id", userID, "role", turn.Role, "error", err)
		metrics.MemoryWriteFailuresTotal.WithLabelValues("turn").Inc()
		return
	}

	if s.cache != nil && isPlainTurn(turn) {
		if err := s.cache.Append(ctx, userID, turn); err != nil {
			slog.Warn("memory: failed to cache turn", "user_id", userID, "error", err)
		}
	}
}

func (s *Store) RecentHistory(ctx context.Context, userID string, limit int) []agent.Turn {
	if limit <= 0 {
		return nil
	}

	// The cache only retains its bounded window. Fewer entries than
	// requested may mean the window was trimmed, so wider reads go to
	// the repository.
	if s.cache != nil {
		turns, err := s.cache.Recent(ctx, userID, limit)
		if err != nil {
			slog.Warn("memory: recent-turn cache read failed", "user_id", userID, "error", err)
		} else if len(turns) >= limit {
			return turns
		}
	}

	records, err := s.repo.RecentPlainTurns(ctx, userID, limit)
	if err != nil {
		slog.Warn("memory: failed to load history", "user_id", userID, "error", err)
		return nil
	}

	turns := make([]agent.Turn, len(records))
	for i, rec := range records {
		turns[i] = agent.Turn{Role: rec.Role, Content: rec.Content}
	}
	return turns
}

func (s *Store) RecordToolCall(ctx context.Context, userID string, inv agent.Invocation) {
	rec := &InvocationRecord{
		ID:              inv.ID,
		UserID:          userID,
		ToolName:        inv.ToolName,
		Error:           inv.Error,
		ExecutionTimeMs: inv.ExecutionTimeMs,
		CreatedAt:       inv.Timestamp,
	}
	if inv.Parameters != nil {
		if data, err := json.Marshal(inv.Parameters); err == nil {
			rec.Parameters = data
		}
	}
	if inv.Result != nil {
		if data, err := json.Marshal(inv.Result); err == nil {
			rec.Result = data
		}
	}

	if err := s.repo.InsertInvocation(ctx, rec); err != nil {
		slog.Warn("memory: failed to record invocation", "user_id", userID, "tool", inv.ToolName, "error", err)
		metrics.MemoryWriteFailuresTotal.WithLabelValues("invocation").Inc()
	}

	if s.publisher != nil {
		severity := "info"
		if inv.Error != "" {
			severity = "warn"
		}
		event := nats.AuditEvent{
			UserID:       userID,
			EventType:    nats.EventToolExecuted,
			Severity:     severity,
			ResourceType: "tool",
			ResourceID:   inv.ToolName,
			Details:      fmt.Sprintf("execution_time_ms=%d error=%q", inv.ExecutionTimeMs, inv.Error),
			Timestamp:    time.Now().UTC(),
		}
		if err := s.publisher.PublishAuditEvent(ctx, event); err != nil {
			slog.Warn("memory: failed to publish tool audit event", "user_id", userID, "error", err)
		}
	}
}

func (s *Store) RecordDecisionPoint(ctx context.Context, userID, label string, data map[string]any) {
	payload, err := json.Marshal(data)
	if err != nil {
		slog.Warn("memory: failed to marshal decision data", "user_id", userID, "label", label, "error", err)
		metrics.MemoryWriteFailuresTotal.WithLabelValues("decision").Inc()
		return
	}

	rec := &TurnRecord{
		UserID:  userID,
		Role:    agent.RoleSystem,
		Content: fmt.Sprintf("%s%s %s", agent.DecisionPrefix, label, payload),
	}
	if err := s.repo.InsertTurn(ctx, rec); err != nil {
		slog.Warn("memory: failed to record decision point", "user_id", userID, "label", label, "error", err)
		metrics.MemoryWriteFailuresTotal.WithLabelValues("decision").Inc()
		return
	}

	if s.publisher != nil {
		event := nats.DecisionEvent{
			ID:        uuid.New(),
			UserID:    userID,
			Label:     label,
			Data:      data,
			Timestamp: time.Now().UTC(),
		}
		if err := s.publisher.PublishDecisionEvent(ctx, event); err != nil {
			slog.Warn("memory: failed to publish decision event", "user_id", userID, "error", err)
		}
	}
}

func (s *Store) Clear(ctx context.Context, userID string) error {
	if s.cache != nil {
		if err := s.cache.Clear(ctx, userID); err != nil {
			slog.Warn("memory: failed to clear cached turns", "user_id", userID, "error", err)
		}
	}
	if err := s.repo.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("clearing conversation: %w", err)
	}

	if s.publisher != nil {
		event := nats.AuditEvent{
			UserID:       userID,
			EventType:    nats.EventConversationCleared,
			Severity:     "info",
			ResourceType: "conversation",
			ResourceID:   userID,
			Timestamp:    time.Now().UTC(),
		}
		if err := s.publisher.PublishAuditEvent(ctx, event); err != nil {
			slog.Warn("memory: failed to publish clear audit event", "user_id", userID, "error", err)
		}
	}
	return nil
}

func (s *Store) Stats(ctx context.Context, userID string) (agent.Stats, error) {
	return s.repo.Stats(ctx, userID)
}

// SweepExpired deletes turns and invocation records older than the
// retention window, returning the number of turns removed. A positive
// retentionDays overrides the configured default.
func (s *Store) SweepExpired(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		retentionDays = s.retentionDays
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	swept, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if swept > 0 {
		metrics.TurnsSweptTotal.Add(float64(swept))
		slog.Info("memory: retention sweep removed expired turns", "count", swept, "cutoff", cutoff)
	}
	return swept, nil
}

// isPlainTurn reports whether a turn belongs in the replayable history
// window: plain user/assistant content with no tool protocol attached.
func isPlainTurn(turn agent.Turn) bool {
	if turn.Role != agent.RoleUser && turn.Role != agent.RoleAssistant {
		return false
	}
	return len(turn.ToolCalls) == 0 && turn.ToolCallRef == ""
}
