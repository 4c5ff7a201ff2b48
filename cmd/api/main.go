package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/learnly-platform/learnly/internal/agent"
	"github.com/learnly-platform/learnly/internal/api"
	"github.com/learnly-platform/learnly/internal/chat"
	"github.com/learnly-platform/learnly/internal/config"
	"github.com/learnly-platform/learnly/internal/database"
	"github.com/learnly-platform/learnly/internal/governance"
	"github.com/learnly-platform/learnly/internal/governance/audit"
	"github.com/learnly-platform/learnly/internal/llm"
	"github.com/learnly-platform/learnly/internal/memory"
	"github.com/learnly-platform/learnly/internal/middleware"
	inats "github.com/learnly-platform/learnly/internal/nats"
	iredis "github.com/learnly-platform/learnly/internal/redis"
	"github.com/learnly-platform/learnly/internal/server"
	"github.com/learnly-platform/learnly/internal/tools"
	"github.com/learnly-platform/learnly/internal/topics"
)

const defaultSystemPrompt = `You are a learning assistant for a professional learning platform.
Help users find and start learning content. Use the available tools to
search the library, classify requests, check progress and record decisions.
Confirm with the user before generating new content.`

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.RunMigrations(cfg.DB.DSN(), "migrations"); err != nil {
		slog.Error("applying migrations", "error", err)
		os.Exit(1)
	}

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// NATS JetStream
	natsClient, err := inats.NewClient(ctx, cfg.NATS)
	if err != nil {
		slog.Error("connecting to NATS", "error", err)
		os.Exit(1)
	}
	defer natsClient.Close()
	publisher := inats.NewPublisher(natsClient.JetStream())

	// Conversation memory
	convRepo := memory.NewPostgresRepository(pool)
	turnCache := memory.NewTurnCache(redisClient, cfg.Agent.CacheMaxTurns, cfg.Agent.CacheTTL)
	store := memory.NewStore(convRepo, turnCache, publisher, cfg.Agent.RetentionDays)

	// Tool registry
	registry := agent.NewRegistry()
	topicsRepo := topics.NewPostgresRepository(pool)
	tools.RegisterAll(registry, topicsRepo, store)

	// Reasoning loop
	completions := llm.NewOpenAIClient(llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
	})
	executor := agent.NewExecutor(registry, store, cfg.Agent.ToolTimeout)
	systemPrompt := cfg.Agent.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	engine := agent.NewEngine(registry, executor, store, completions, systemPrompt,
		cfg.Agent.MaxIterations, cfg.Agent.HistoryWindow)

	// Audit pipeline
	auditRepo := audit.NewRepository(pool)
	consumerMgr := inats.NewConsumerManager(natsClient.JetStream())
	auditConsumer := audit.NewConsumer(auditRepo, consumerMgr)
	go func() {
		if err := auditConsumer.Start(ctx); err != nil {
			slog.Error("audit consumer stopped", "error", err)
		}
	}()

	// Retention sweeper
	go runSweeper(ctx, store, cfg.Agent.SweepInterval)

	// Handlers
	chatHandler := chat.NewHandler(engine)
	govHandler := governance.NewHandler(auditRepo)

	// Router
	routerCfg := api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
	}
	if cfg.RateLimit.Enabled {
		rl := middleware.NewRateLimiter(redisClient, cfg.RateLimit.Limit, int(cfg.RateLimit.Window.Seconds()))
		routerCfg.AgentRateLimiter = rl.Middleware
	}

	router := api.NewRouter(pool, natsClient, routerCfg, api.HandlerSet{
		Chat:    chatHandler.Chat,
		History: chatHandler.History,
		Reset:   chatHandler.Reset,
		Stats:   chatHandler.Stats,

		ListAuditLogs: govHandler.ListAuditLogs,

		RedisHealthy: func() bool {
			return redisClient.Ping(context.Background()).Err() == nil
		},
	})

	// Start server
	srv := server.New(cfg.Server, router)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// runSweeper periodically removes conversation turns past the
// retention window.
func runSweeper(ctx context.Context, store *memory.Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := store.SweepExpired(ctx, 0); err != nil {
				slog.Error("retention sweep failed", "error", err)
			}
		}
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
