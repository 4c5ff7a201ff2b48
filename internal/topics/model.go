package topics

import (
	"time"

	"github.com/google/uuid"
)

// Topic is a row in the topics table: one piece of learning content in
// the library.
type Topic struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// SearchMatch is a topic returned by a library search, scored by how
// closely the title matches the query. Confidence 1.0 is an exact title
// match.
type SearchMatch struct {
	TopicID     uuid.UUID `json:"topic_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Confidence  float64   `json:"confidence"`
}

// ActiveModule is a topic a user is currently working through.
type ActiveModule struct {
	TopicID uuid.UUID `json:"topic_id"`
	Title   string    `json:"title"`
	Status  string    `json:"status"`
	Score   float64   `json:"score"`
}

// ProgressSummary describes a user's learning state.
type ProgressSummary struct {
	HasActiveContent bool           `json:"has_active_content"`
	ActiveModules    []ActiveModule `json:"active_modules"`
	RecentActivity   bool           `json:"recent_activity"`
}
