package audit

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inats "github.com/learnly-platform/learnly/internal/nats"
)

func TestAuditEventDeserialization(t *testing.T) {
	event := inats.AuditEvent{
		UserID:       "user-42",
		EventType:    inats.EventToolExecuted,
		Severity:     "info",
		ResourceType: "tool",
		ResourceID:   "search_topics",
		Details:      `execution_time_ms=42 error=""`,
		Timestamp:    time.Now().UTC(),
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded inats.AuditEvent
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "user-42", decoded.UserID)
	assert.Equal(t, inats.EventToolExecuted, decoded.EventType)
	assert.Equal(t, "info", decoded.Severity)
	assert.Equal(t, "tool", decoded.ResourceType)
	assert.Equal(t, "search_topics", decoded.ResourceID)
}

func TestAuditEventToLog(t *testing.T) {
	event := inats.AuditEvent{
		UserID:       "user-42",
		EventType:    inats.EventConversationCleared,
		Severity:     "info",
		ResourceType: "conversation",
		ResourceID:   "user-42",
		Details:      "history reset via API",
		Timestamp:    time.Now().UTC(),
	}

	log := convertEventToLog(event)

	assert.Equal(t, "user-42", log.UserID)
	assert.Equal(t, inats.EventConversationCleared, log.EventType)
	assert.Equal(t, "info", log.Severity)
	assert.Equal(t, "conversation", log.ResourceType)
	assert.Equal(t, "user-42", log.ResourceID)

	var details map[string]string
	require.NoError(t, json.Unmarshal(log.Details, &details))
	assert.Equal(t, "history reset via API", details["message"])
}

func TestAuditEventToLog_EmptyDetails(t *testing.T) {
	event := inats.AuditEvent{
		UserID:    "user-1",
		EventType: "system_event",
		Severity:  "info",
		Timestamp: time.Now().UTC(),
	}

	log := convertEventToLog(event)
	var details map[string]string
	require.NoError(t, json.Unmarshal(log.Details, &details))
	assert.Equal(t, "", details["message"])
}

// convertEventToLog mirrors the consumer's conversion logic for testing.
func convertEventToLog(event inats.AuditEvent) *AuditLog {
	log := &AuditLog{
		ID:           uuid.New(),
		UserID:       event.UserID,
		EventType:    event.EventType,
		Severity:     event.Severity,
		ResourceType: event.ResourceType,
		ResourceID:   event.ResourceID,
		CreatedAt:    event.Timestamp,
	}

	detailsMap := map[string]string{"message": event.Details}
	if data, err := json.Marshal(detailsMap); err == nil {
		log.Details = data
	}

	return log
}
