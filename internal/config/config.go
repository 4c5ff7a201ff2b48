package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Redis     RedisConfig
	NATS      NATSConfig
	Agent     AgentConfig
	LLM       LLMConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type NATSConfig struct {
	URL string
}

// AgentConfig tunes the reasoning loop and conversation memory.
type AgentConfig struct {
	MaxIterations int
	HistoryWindow int
	ToolTimeout   time.Duration
	RetentionDays int
	SweepInterval time.Duration
	CacheTTL      time.Duration
	CacheMaxTurns int
	SystemPrompt  string
}

// LLMConfig points the completion adapter at an OpenAI-compatible API.
type LLMConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

type RateLimitConfig struct {
	Enabled bool
	Limit   int
	Window  time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: k.String("server.host"),
			Port: k.Int("server.port"),
		},
		DB: DBConfig{
			Host:     k.String("db.host"),
			Port:     k.Int("db.port"),
			User:     k.String("db.user"),
			Password: k.String("db.password"),
			Name:     k.String("db.name"),
			SSLMode:  k.String("db.sslmode"),
			MaxConns: int32(k.Int("db.max.conns")),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		NATS: NATSConfig{
			URL: k.String("nats.url"),
		},
		Agent: AgentConfig{
			MaxIterations: k.Int("agent.max.iterations"),
			HistoryWindow: k.Int("agent.history.window"),
			RetentionDays: k.Int("agent.retention.days"),
			CacheMaxTurns: k.Int("agent.cache.max.turns"),
			SystemPrompt:  k.String("agent.system.prompt"),
		},
		LLM: LLMConfig{
			BaseURL:     k.String("llm.base.url"),
			APIKey:      k.String("llm.api.key"),
			Model:       k.String("llm.model"),
			Temperature: k.Float64("llm.temperature"),
			MaxTokens:   k.Int("llm.max.tokens"),
		},
		RateLimit: RateLimitConfig{
			Enabled: k.Bool("ratelimit.enabled"),
			Limit:   k.Int("ratelimit.limit"),
		},
		CORS: CORSConfig{
			AllowedOrigins: k.Strings("cors.allowed.origins"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	// Apply defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "learnly"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "learnly"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 25
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.NATS.URL == "" {
		cfg.NATS.URL = "nats://localhost:4222"
	}
	if cfg.Agent.MaxIterations == 0 {
		cfg.Agent.MaxIterations = 5
	}
	if cfg.Agent.HistoryWindow == 0 {
		cfg.Agent.HistoryWindow = 6
	}
	if cfg.Agent.RetentionDays == 0 {
		cfg.Agent.RetentionDays = 30
	}
	if cfg.Agent.CacheMaxTurns == 0 {
		cfg.Agent.CacheMaxTurns = 20
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.openai.com"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o-mini"
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.3
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 2000
	}
	if cfg.RateLimit.Limit == 0 {
		cfg.RateLimit.Limit = 30
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"*"}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "debug"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	// Parse durations
	cfg.Agent.ToolTimeout, err = parseDuration(k.String("agent.tool.timeout"), "10s")
	if err != nil {
		return nil, fmt.Errorf("parsing agent tool timeout: %w", err)
	}
	cfg.Agent.SweepInterval, err = parseDuration(k.String("agent.sweep.interval"), "24h")
	if err != nil {
		return nil, fmt.Errorf("parsing agent sweep interval: %w", err)
	}
	cfg.Agent.CacheTTL, err = parseDuration(k.String("agent.cache.ttl"), "1h")
	if err != nil {
		return nil, fmt.Errorf("parsing agent cache ttl: %w", err)
	}
	cfg.LLM.Timeout, err = parseDuration(k.String("llm.timeout"), "60s")
	if err != nil {
		return nil, fmt.Errorf("parsing llm timeout: %w", err)
	}
	cfg.RateLimit.Window, err = parseDuration(k.String("ratelimit.window"), "1m")
	if err != nil {
		return nil, fmt.Errorf("parsing rate limit window: %w", err)
	}

	return cfg, nil
}

func parseDuration(value, fallback string) (time.Duration, error) {
	if value == "" {
		value = fallback
	}
	return time.ParseDuration(value)
}
