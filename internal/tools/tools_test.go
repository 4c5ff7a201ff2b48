package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnly-platform/learnly/internal/agent"
	"github.com/learnly-platform/learnly/internal/topics"
)

type fakeTopicsRepo struct {
	matches  []topics.SearchMatch
	progress *topics.ProgressSummary
	err      error

	lastQuery string
	lastLimit int
	lastUser  string
}

func (f *fakeTopicsRepo) Search(_ context.Context, query string, limit int) ([]topics.SearchMatch, error) {
	f.lastQuery = query
	f.lastLimit = limit
	return f.matches, f.err
}

func (f *fakeTopicsRepo) Progress(_ context.Context, userID string) (*topics.ProgressSummary, error) {
	f.lastUser = userID
	return f.progress, f.err
}

type fakeDecisionMemory struct {
	agent.Memory

	userID string
	label  string
	data   map[string]any
}

func (f *fakeDecisionMemory) RecordDecisionPoint(_ context.Context, userID, label string, data map[string]any) {
	f.userID = userID
	f.label = label
	f.data = data
}

func TestSearchTopics_ExactMatch(t *testing.T) {
	id := uuid.New()
	repo := &fakeTopicsRepo{matches: []topics.SearchMatch{
		{TopicID: id, Title: "Leadership", Description: "Leading teams", Confidence: 1.0},
		{TopicID: uuid.New(), Title: "Leadership Styles", Confidence: 0.8},
	}}
	tool := SearchTopics(repo)

	result, err := tool.Execute(context.Background(), map[string]any{
		"query":   "leadership",
		"limit":   float64(3),
		"user_id": "user-1",
	})
	require.NoError(t, err)

	out := result.(map[string]any)
	assert.Equal(t, true, out["found"])
	exact := out["exact_match"].(*topics.SearchMatch)
	assert.Equal(t, id, exact.TopicID)
	fuzzy := out["fuzzy_matches"].([]topics.SearchMatch)
	require.Len(t, fuzzy, 1)
	assert.Contains(t, out["message"], "exact match")
	assert.Equal(t, "leadership", repo.lastQuery)
	assert.Equal(t, 3, repo.lastLimit)
}

func TestSearchTopics_NoResults(t *testing.T) {
	tool := SearchTopics(&fakeTopicsRepo{})

	result, err := tool.Execute(context.Background(), map[string]any{"query": "underwater basket weaving"})
	require.NoError(t, err)

	out := result.(map[string]any)
	assert.Equal(t, false, out["found"])
	assert.Contains(t, out["message"], "No existing content")
}

func TestSearchTopics_RepositoryError(t *testing.T) {
	tool := SearchTopics(&fakeTopicsRepo{err: errors.New("db down")})

	_, err := tool.Execute(context.Background(), map[string]any{"query": "leadership"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestDetectGranularityTool(t *testing.T) {
	tool := DetectGranularityTool()

	result, err := tool.Execute(context.Background(), map[string]any{"input": "leadership"})
	require.NoError(t, err)

	out := result.(map[string]any)
	assert.Equal(t, GranularitySubject, out["granularity"])
	assert.Contains(t, out["next_action"], "specify a topic")
}

func TestGetUserProgress(t *testing.T) {
	repo := &fakeTopicsRepo{progress: &topics.ProgressSummary{
		HasActiveContent: true,
		ActiveModules:    []topics.ActiveModule{{Title: "Recursion", Status: "active"}},
		RecentActivity:   true,
	}}
	tool := GetUserProgress(repo)

	result, err := tool.Execute(context.Background(), map[string]any{"user_id": "user-9"})
	require.NoError(t, err)

	out := result.(map[string]any)
	assert.Equal(t, true, out["has_active_content"])
	assert.Contains(t, out["message"], "1 module(s)")
	assert.Equal(t, "user-9", repo.lastUser)
}

func TestGenerateContent_StartSignal(t *testing.T) {
	tool := GenerateContent()

	result, err := tool.Execute(context.Background(), map[string]any{
		"topic":   "effective delegation",
		"user_id": "user-1",
	})
	require.NoError(t, err)

	out := result.(map[string]any)
	assert.Equal(t, "START_GENERATION", out["action"])
	assert.Equal(t, "effective delegation", out["topic"])
	assert.Equal(t, "user-1", out["user_id"])
	assert.Equal(t, GranularityTopic, out["granularity"])
}

func TestConfirmWithUser_DefaultContext(t *testing.T) {
	tool := ConfirmWithUser()

	result, err := tool.Execute(context.Background(), map[string]any{
		"question": "Which area of physics interests you?",
	})
	require.NoError(t, err)

	out := result.(map[string]any)
	assert.Equal(t, "ASK_QUESTION", out["action"])
	assert.Equal(t, "Which area of physics interests you?", out["question"])
	assert.Equal(t, "Clarification needed", out["context"])
}

func TestStoreDecision_DelegatesToMemory(t *testing.T) {
	mem := &fakeDecisionMemory{}
	tool := StoreDecision(mem)

	result, err := tool.Execute(context.Background(), map[string]any{
		"decision": "user_confirmed_topic",
		"data":     map[string]any{"topic": "recursion"},
		"user_id":  "user-1",
	})
	require.NoError(t, err)

	out := result.(map[string]any)
	assert.Equal(t, true, out["stored"])
	assert.Equal(t, "user-1", mem.userID)
	assert.Equal(t, "user_confirmed_topic", mem.label)
	assert.Equal(t, "recursion", mem.data["topic"])
}

func TestRegisterAll(t *testing.T) {
	reg := agent.NewRegistry()
	RegisterAll(reg, &fakeTopicsRepo{}, &fakeDecisionMemory{})

	assert.Equal(t, 6, reg.Len())
	for _, name := range []string{
		"search_topics", "detect_granularity", "get_user_progress",
		"generate_content", "confirm_with_user", "store_decision",
	} {
		_, ok := reg.Get(name)
		assert.True(t, ok, "missing tool %s", name)
	}
}
