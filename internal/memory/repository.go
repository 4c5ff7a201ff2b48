package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/learnly-platform/learnly/internal/agent"
)

// Repository defines conversation persistence operations.
type Repository interface {
	InsertTurn(ctx context.Context, rec *TurnRecord) error
	RecentPlainTurns(ctx context.Context, userID string, limit int) ([]TurnRecord, error)
	InsertInvocation(ctx context.Context, rec *InvocationRecord) error
	DeleteByUser(ctx context.Context, userID string) error
	Stats(ctx context.Context, userID string) (agent.Stats, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// PostgresRepository implements Repository using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new conversation repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) InsertTurn(ctx context.Context, rec *TurnRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	var toolCalls any
	if len(rec.ToolCalls) > 0 {
		toolCalls = rec.ToolCalls
	}
	var toolCallRef any
	if rec.ToolCallRef != "" {
		toolCallRef = rec.ToolCallRef
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO conversation_turns (id, user_id, role, content, tool_calls, tool_call_ref, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.UserID, rec.Role, rec.Content, toolCalls, toolCallRef, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting turn: %w", err)
	}
	return nil
}

// RecentPlainTurns returns the last `limit` plain conversational turns
// in chronological order. Tool-protocol rows (assistant turns carrying
// tool calls, tool-result turns) and system markers are excluded so the
// window replayed into the model context never contains dangling
// tool-call references.
func (r *PostgresRepository) RecentPlainTurns(ctx context.Context, userID string, limit int) ([]TurnRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, role, content, created_at
		 FROM conversation_turns
		 WHERE user_id = $1
		   AND role IN ('user', 'assistant')
		   AND tool_calls IS NULL
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying recent turns: %w", err)
	}
	defer rows.Close()

	var turns []TurnRecord
	for rows.Next() {
		var t TurnRecord
		if err := rows.Scan(&t.ID, &t.UserID, &t.Role, &t.Content, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Query is newest-first; callers want chronological order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func (r *PostgresRepository) InsertInvocation(ctx context.Context, rec *InvocationRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	params := rec.Parameters
	if len(params) == 0 {
		params = []byte(`{}`)
	}
	var result any
	if len(rec.Result) > 0 {
		result = rec.Result
	}
	var execErr any
	if rec.Error != "" {
		execErr = rec.Error
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO tool_invocations (id, user_id, tool_name, parameters, result, error, execution_time_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.UserID, rec.ToolName, params, result, execErr, rec.ExecutionTimeMs, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting invocation: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning clear transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM conversation_turns WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("deleting turns: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM tool_invocations WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("deleting invocations: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *PostgresRepository) Stats(ctx context.Context, userID string) (agent.Stats, error) {
	var stats agent.Stats
	var lastActivity *time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*), MAX(created_at)
		 FROM conversation_turns
		 WHERE user_id = $1`,
		userID,
	).Scan(&stats.MessageCount, &lastActivity)
	if err != nil {
		return agent.Stats{}, fmt.Errorf("counting turns: %w", err)
	}
	stats.LastActivity = lastActivity

	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(AVG(execution_time_ms), 0)
		 FROM tool_invocations
		 WHERE user_id = $1`,
		userID,
	).Scan(&stats.ToolCallCount, &stats.AvgToolExecutionMs)
	if err != nil {
		return agent.Stats{}, fmt.Errorf("aggregating invocations: %w", err)
	}
	return stats, nil
}

// DeleteOlderThan removes turns and invocation records created before
// the cutoff, returning the number of turns removed.
func (r *PostgresRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM conversation_turns WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweeping turns: %w", err)
	}
	if _, err := r.pool.Exec(ctx, `DELETE FROM tool_invocations WHERE created_at < $1`, cutoff); err != nil {
		return 0, fmt.Errorf("sweeping invocations: %w", err)
	}
	return tag.RowsAffected(), nil
}
