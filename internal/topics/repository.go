package topics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// recentActivityWindow bounds how far back an attempt still counts as
// recent for progress summaries.
const recentActivityWindow = 7 * 24 * time.Hour

// Repository defines the library and progress reads the capability
// tools depend on.
type Repository interface {
	Search(ctx context.Context, query string, limit int) ([]SearchMatch, error)
	Progress(ctx context.Context, userID string) (*ProgressSummary, error)
}

// PostgresRepository implements Repository using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new topics repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Search returns library topics matching the query, exact title matches
// first. Confidence is 1.0 for an exact title match, 0.8 for a title
// substring match and 0.5 for a description-only match.
func (r *PostgresRepository) Search(ctx context.Context, query string, limit int) ([]SearchMatch, error) {
	if limit <= 0 {
		limit = 5
	}
	pattern := "%" + strings.TrimSpace(query) + "%"

	rows, err := r.pool.Query(ctx,
		`SELECT id, title, description,
		        CASE
		          WHEN LOWER(title) = LOWER($1) THEN 1.0
		          WHEN title ILIKE $2 THEN 0.8
		          ELSE 0.5
		        END AS confidence
		 FROM topics
		 WHERE title ILIKE $2 OR description ILIKE $2
		 ORDER BY confidence DESC, title
		 LIMIT $3`,
		strings.TrimSpace(query), pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("searching topics: %w", err)
	}
	defer rows.Close()

	var matches []SearchMatch
	for rows.Next() {
		var m SearchMatch
		if err := rows.Scan(&m.TopicID, &m.Title, &m.Description, &m.Confidence); err != nil {
			return nil, fmt.Errorf("scanning topic match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// Progress summarizes a user's active modules and recent activity from
// the attempts table.
func (r *PostgresRepository) Progress(ctx context.Context, userID string) (*ProgressSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT t.id, t.title, a.status, COALESCE(a.score, 0)
		 FROM attempts a
		 JOIN topics t ON t.id = a.topic_id
		 WHERE a.user_id = $1 AND a.status IN ('active', 'in_progress')
		 ORDER BY a.updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying active attempts: %w", err)
	}
	defer rows.Close()

	summary := &ProgressSummary{}
	for rows.Next() {
		var m ActiveModule
		if err := rows.Scan(&m.TopicID, &m.Title, &m.Status, &m.Score); err != nil {
			return nil, fmt.Errorf("scanning attempt: %w", err)
		}
		summary.ActiveModules = append(summary.ActiveModules, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	summary.HasActiveContent = len(summary.ActiveModules) > 0

	var lastAttempt *time.Time
	err = r.pool.QueryRow(ctx,
		`SELECT MAX(updated_at) FROM attempts WHERE user_id = $1`,
		userID,
	).Scan(&lastAttempt)
	if err != nil {
		return nil, fmt.Errorf("querying last attempt: %w", err)
	}
	if lastAttempt != nil {
		summary.RecentActivity = time.Since(*lastAttempt) < recentActivityWindow
	}
	return summary, nil
}
