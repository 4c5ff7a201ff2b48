//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/learnly-platform/learnly/internal/agent"
	"github.com/learnly-platform/learnly/internal/api"
	"github.com/learnly-platform/learnly/internal/chat"
	"github.com/learnly-platform/learnly/internal/governance"
	"github.com/learnly-platform/learnly/internal/governance/audit"
	"github.com/learnly-platform/learnly/internal/memory"
	"github.com/learnly-platform/learnly/internal/tools"
	"github.com/learnly-platform/learnly/internal/topics"
)

type TestEnv struct {
	Pool        *pgxpool.Pool
	RedisClient *redis.Client
	Server      *httptest.Server
	Store       *memory.Store
	AuditRepo   *audit.Repository
	TopicsRepo  *topics.PostgresRepository
	LLM         *scriptedLLM
}

var testEnv *TestEnv

// scriptedLLM is a CompletionService fed from a queue of canned
// completions, so HTTP-level tests can drive the reasoning loop without
// a model endpoint.
type scriptedLLM struct {
	mu    sync.Mutex
	queue []*agent.Completion
}

func (s *scriptedLLM) Complete(ctx context.Context, systemPrompt string, turns []agent.Turn, tls []*agent.Tool) (*agent.Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return &agent.Completion{Text: "All done."}, nil
	}
	next := s.queue[0]
	s.queue = s.queue[1:]
	return next, nil
}

func (s *scriptedLLM) Enqueue(completions ...*agent.Completion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, completions...)
}

func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	if testEnv != nil {
		return testEnv
	}

	ctx := context.Background()

	// Start PostgreSQL container
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "learnly_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() { pgContainer.Terminate(ctx) })

	pgHost, _ := pgContainer.Host(ctx)
	pgPort, _ := pgContainer.MappedPort(ctx, "5432")

	// Start Redis container
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting redis container: %v", err)
	}
	t.Cleanup(func() { redisContainer.Terminate(ctx) })

	redisHost, _ := redisContainer.Host(ctx)
	redisPort, _ := redisContainer.MappedPort(ctx, "6379")

	// Connect to PostgreSQL
	dsn := fmt.Sprintf("postgres://test:test@%s:%s/learnly_test?sslmode=disable", pgHost, pgPort.Port())
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connecting to postgres: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	// Run migrations
	migrationsPath := getMigrationsPath()
	m, err := migrate.New(
		fmt.Sprintf("file://%s", migrationsPath),
		dsn,
	)
	if err != nil {
		t.Fatalf("creating migrator: %v", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("running migrations: %v", err)
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", redisHost, redisPort.Port()),
	})
	t.Cleanup(func() { redisClient.Close() })

	// Conversation memory, no event bus
	convRepo := memory.NewPostgresRepository(pool)
	turnCache := memory.NewTurnCache(redisClient, 20, time.Hour)
	store := memory.NewStore(convRepo, turnCache, nil, 30)

	// Tools + reasoning loop over a scripted model
	topicsRepo := topics.NewPostgresRepository(pool)
	registry := agent.NewRegistry()
	tools.RegisterAll(registry, topicsRepo, store)

	llm := &scriptedLLM{}
	executor := agent.NewExecutor(registry, store, 10*time.Second)
	engine := agent.NewEngine(registry, executor, store, llm, "You are a learning assistant.", 5, 6)

	chatHandler := chat.NewHandler(engine)

	auditRepo := audit.NewRepository(pool)
	govHandler := governance.NewHandler(auditRepo)

	router := api.NewRouter(pool, nil, api.RouterConfig{}, api.HandlerSet{
		Chat:    chatHandler.Chat,
		History: chatHandler.History,
		Reset:   chatHandler.Reset,
		Stats:   chatHandler.Stats,

		ListAuditLogs: govHandler.ListAuditLogs,

		RedisHealthy: func() bool {
			return redisClient.Ping(context.Background()).Err() == nil
		},
	})

	server := httptest.NewServer(router)
	t.Cleanup(func() { server.Close() })

	testEnv = &TestEnv{
		Pool:        pool,
		RedisClient: redisClient,
		Server:      server,
		Store:       store,
		AuditRepo:   auditRepo,
		TopicsRepo:  topicsRepo,
		LLM:         llm,
	}

	return testEnv
}

func getMigrationsPath() string {
	// Try relative paths from test directory
	paths := []string{
		"../../migrations",
		"../../../migrations",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	log.Fatal("migrations directory not found")
	return ""
}

// Helper functions

func DoRequest(t *testing.T, env *TestEnv, method, path string, body any) *http.Response {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, env.Server.URL+path, bodyReader)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("doing request: %v", err)
	}
	return resp
}

func ParseResponse(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("parsing response: %v", err)
	}
	return result
}

var _uniqueCounter int64

func uniqueID() int64 {
	_uniqueCounter++
	return _uniqueCounter
}
