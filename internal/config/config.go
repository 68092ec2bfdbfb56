package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"survey-assistant-be/internal/pkg/logger"
	"survey-assistant-be/internal/tracer"
	"survey-assistant-be/pkg/database"
	"survey-assistant-be/pkg/embedding"
	"survey-assistant-be/pkg/memory"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Ai       AIConfig
	Memory   MemoryConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	LogLevel           string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	PersistTopic       string // in-process topic carrying durable writes
	OtelEnabled        bool
	OtelEndpoint       string
	OtelSampleRatio    float64
}

type DatabaseConfig struct {
	Connection      string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	SlowThreshold   time.Duration
	LogLevel        string
}

type APIKeys struct {
	GoogleGemini string
	Jina         string
}

type AIConfig struct {
	EmbeddingProvider  string // "gemini", "ollama", "jina" or "mock"
	OllamaBaseURL      string
	OllamaModel        string
	EmbeddingDims      int
	EmbeddingTimeout   time.Duration
	EmbeddingRateLimit float64 // requests per second, 0 disables
	EmbeddingBurst     int
	EmbeddingMemo      int64
}

type MemoryConfig struct {
	CacheTTL            time.Duration
	CacheSoftCap        int
	CacheFloor          int
	CacheHardCap        int
	InclusionThreshold  float64
	AcceptanceThreshold float64
	MaxCandidates       int

	MaxMessages    int
	MaxPatterns    int
	MaxComplexity  int
	ContextBudget  int
	PlanningBudget int
	SessionIdleTTL time.Duration
	MaxSessions    int

	FlushInterval  time.Duration
	StoreTimeout   time.Duration
	PersistWorkers int
	TokenEstimator string // "chars" or "tiktoken"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			LogLevel:           getEnv("LOG_LEVEL", "debug"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			PersistTopic:       getEnv("MEMORY_PERSIST_TOPIC_NAME", "MEMORY_PERSIST"),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
			OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			OtelSampleRatio:    getEnvAsFloat("OTEL_SAMPLE_RATIO", 1.0),
		},
		Database: DatabaseConfig{
			Connection:      getEnv("DB_CONNECTION_STRING", ""),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 50),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour),
			SlowThreshold:   getEnvAsDuration("DB_SLOW_THRESHOLD", 200*time.Millisecond),
			LogLevel:        getEnv("DB_LOG_LEVEL", "warn"),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			Jina:         getEnv("JINA_API_KEY", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider:  strings.ToLower(getEnv("EMBEDDING_PROVIDER", "gemini")),
			OllamaBaseURL:      getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:        getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			EmbeddingDims:      getEnvAsInt("EMBEDDING_DIMENSIONS", 1536),
			EmbeddingTimeout:   getEnvAsDuration("EMBEDDING_TIMEOUT", 10*time.Second),
			EmbeddingRateLimit: getEnvAsFloat("EMBEDDING_RATE_LIMIT", 0),
			EmbeddingBurst:     getEnvAsInt("EMBEDDING_BURST", 10),
			EmbeddingMemo:      int64(getEnvAsInt("EMBEDDING_MEMO_ENTRIES", 2048)),
		},
		Memory: loadMemory(),
	}
}

func loadMemory() MemoryConfig {
	return MemoryConfig{
		CacheTTL:            getEnvAsDuration("MEMORY_CACHE_TTL", 24*time.Hour),
		CacheSoftCap:        getEnvAsInt("MEMORY_CACHE_SOFT_CAP", 500),
		CacheFloor:          getEnvAsInt("MEMORY_CACHE_FLOOR", 400),
		CacheHardCap:        getEnvAsInt("MEMORY_CACHE_HARD_CAP", 600),
		InclusionThreshold:  getEnvAsFloat("MEMORY_INCLUSION_THRESHOLD", 0.70),
		AcceptanceThreshold: getEnvAsFloat("MEMORY_ACCEPTANCE_THRESHOLD", 0.85),
		MaxCandidates:       getEnvAsInt("MEMORY_MAX_CANDIDATES", 5),
		MaxMessages:         getEnvAsInt("MEMORY_MAX_MESSAGES", 10),
		MaxPatterns:         getEnvAsInt("MEMORY_MAX_PATTERNS", 50),
		MaxComplexity:       getEnvAsInt("MEMORY_MAX_COMPLEXITY_HISTORY", 20),
		ContextBudget:       getEnvAsInt("MEMORY_CONTEXT_BUDGET", 8000),
		PlanningBudget:      getEnvAsInt("MEMORY_PLANNING_BUDGET", 4000),
		SessionIdleTTL:      getEnvAsDuration("MEMORY_SESSION_IDLE_TTL", time.Hour),
		MaxSessions:         getEnvAsInt("MEMORY_MAX_SESSIONS", 10000),
		FlushInterval:       getEnvAsDuration("MEMORY_FLUSH_INTERVAL", 5*time.Minute),
		StoreTimeout:        getEnvAsDuration("MEMORY_STORE_TIMEOUT", 3*time.Second),
		PersistWorkers:      getEnvAsInt("MEMORY_PERSIST_WORKERS", 16),
		TokenEstimator:      getEnv("MEMORY_TOKEN_ESTIMATOR", "chars"),
	}
}

// ToManagerConfig overlays the environment values on the library defaults.
func (c MemoryConfig) ToManagerConfig(dimensions int) memory.Config {
	cfg := memory.DefaultConfig()
	cfg.Dimensions = dimensions

	cfg.Cache.TTL = c.CacheTTL
	cfg.Cache.SoftCap = c.CacheSoftCap
	cfg.Cache.Floor = c.CacheFloor
	cfg.Cache.HardCap = c.CacheHardCap
	cfg.Cache.InclusionThreshold = c.InclusionThreshold
	cfg.Cache.AcceptanceThreshold = c.AcceptanceThreshold
	cfg.Cache.MaxCandidates = c.MaxCandidates

	cfg.Session.MaxMessages = c.MaxMessages
	cfg.Session.MaxPatterns = c.MaxPatterns
	cfg.Session.MaxComplexity = c.MaxComplexity
	cfg.Session.ContextBudget = c.ContextBudget
	cfg.Session.IdleTTL = c.SessionIdleTTL
	cfg.Session.MaxSessions = c.MaxSessions

	cfg.PlanningBudget = c.PlanningBudget
	cfg.FlushInterval = c.FlushInterval
	cfg.StoreTimeout = c.StoreTimeout
	cfg.PersistWorkers = c.PersistWorkers
	return cfg
}

func (c AIConfig) ToGuardConfig() embedding.GuardConfig {
	guard := embedding.DefaultGuardConfig()
	guard.Dimensions = c.EmbeddingDims
	guard.Timeout = c.EmbeddingTimeout
	guard.RequestsPerSecond = c.EmbeddingRateLimit
	guard.Burst = c.EmbeddingBurst
	guard.MemoEntries = c.EmbeddingMemo
	return guard
}

func (c AppConfig) LoggerOptions() logger.Options {
	return logger.Options{
		FilePath:   c.LogFilePath,
		Production: c.Environment == "production",
		Console:    true,
		Level:      c.LogLevel,
	}
}

func (c AppConfig) TracerOptions() tracer.Options {
	return tracer.Options{
		Enabled:     c.OtelEnabled,
		Endpoint:    c.OtelEndpoint,
		ServiceName: "survey-assistant-memory",
		SampleRatio: c.OtelSampleRatio,
	}
}

func (c DatabaseConfig) Options() database.Options {
	return database.Options{
		MaxIdleConns:    c.MaxIdleConns,
		MaxOpenConns:    c.MaxOpenConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		SlowThreshold:   c.SlowThreshold,
		LogLevel:        c.LogLevel,
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("90s", "24h").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
