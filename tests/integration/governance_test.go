//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnly-platform/learnly/internal/governance/audit"
)

func insertAuditLog(t *testing.T, env *TestEnv, userID, eventType, severity string, createdAt time.Time) {
	t.Helper()
	err := env.AuditRepo.Insert(context.Background(), &audit.AuditLog{
		UserID:       userID,
		EventType:    eventType,
		Severity:     severity,
		ResourceType: "tool",
		ResourceID:   "search_topics",
		Details:      json.RawMessage(`{"execution_time_ms":10}`),
		CreatedAt:    createdAt,
	})
	require.NoError(t, err)
}

func TestGovernance_AuditLogs_Empty(t *testing.T) {
	env := SetupTestEnv(t)
	userID := fmt.Sprintf("audit-empty-%d", uniqueID())

	resp := DoRequest(t, env, "GET", "/api/v1/governance/audit?user_id="+userID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := ParseResponse(t, resp)
	assert.Equal(t, float64(0), result["total_count"])
}

func TestGovernance_AuditLogs_MissingUserID(t *testing.T) {
	env := SetupTestEnv(t)

	resp := DoRequest(t, env, "GET", "/api/v1/governance/audit", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	ParseResponse(t, resp)
}

func TestGovernance_AuditLogs_FilterAndPaginate(t *testing.T) {
	env := SetupTestEnv(t)
	ctx := context.Background()
	userID := fmt.Sprintf("audit-filter-%d", uniqueID())

	now := time.Now().UTC()
	insertAuditLog(t, env, userID, "tool_executed", "info", now.Add(-3*time.Hour))
	insertAuditLog(t, env, userID, "tool_executed", "warn", now.Add(-2*time.Hour))
	insertAuditLog(t, env, userID, "decision_recorded", "info", now.Add(-time.Hour))

	// All entries, newest first
	logs, total, err := env.AuditRepo.ListByUser(ctx, userID, audit.DefaultListParams())
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, logs, 3)
	assert.Equal(t, "decision_recorded", logs[0].EventType)

	// Filter by event type
	params := audit.DefaultListParams()
	params.EventType = "tool_executed"
	logs, total, err = env.AuditRepo.ListByUser(ctx, userID, params)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	// Filter by severity
	params = audit.DefaultListParams()
	params.Severity = "warn"
	logs, total, err = env.AuditRepo.ListByUser(ctx, userID, params)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, "warn", logs[0].Severity)

	// Pagination
	params = audit.DefaultListParams()
	params.PageSize = 2
	logs, total, err = env.AuditRepo.ListByUser(ctx, userID, params)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, logs, 2)

	params.Page = 2
	logs, _, err = env.AuditRepo.ListByUser(ctx, userID, params)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestGovernance_AuditLogs_UserIsolation(t *testing.T) {
	env := SetupTestEnv(t)
	userA := fmt.Sprintf("audit-a-%d", uniqueID())
	userB := fmt.Sprintf("audit-b-%d", uniqueID())

	insertAuditLog(t, env, userA, "tool_executed", "info", time.Now().UTC())

	resp := DoRequest(t, env, "GET", "/api/v1/governance/audit?user_id="+userB, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := ParseResponse(t, resp)
	assert.Equal(t, float64(0), result["total_count"])

	resp = DoRequest(t, env, "GET", "/api/v1/governance/audit?user_id="+userA, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result = ParseResponse(t, resp)
	assert.Equal(t, float64(1), result["total_count"])
}
