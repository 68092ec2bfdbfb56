package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MEMORY_CACHE_TTL", "")
	cfg := Load()

	assert.Equal(t, 24*time.Hour, cfg.Memory.CacheTTL)
	assert.Equal(t, 500, cfg.Memory.CacheSoftCap)
	assert.Equal(t, 400, cfg.Memory.CacheFloor)
	assert.Equal(t, 0.85, cfg.Memory.AcceptanceThreshold)
	assert.Equal(t, 8000, cfg.Memory.ContextBudget)
	assert.Equal(t, 4000, cfg.Memory.PlanningBudget)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("MEMORY_CACHE_TTL", "2h")
	t.Setenv("MEMORY_ACCEPTANCE_THRESHOLD", "0.9")
	t.Setenv("MEMORY_MAX_MESSAGES", "25")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("EMBEDDING_PROVIDER", "Jina")

	cfg := Load()
	assert.Equal(t, 2*time.Hour, cfg.Memory.CacheTTL)
	assert.Equal(t, 0.9, cfg.Memory.AcceptanceThreshold)
	assert.Equal(t, 25, cfg.Memory.MaxMessages)
	assert.True(t, cfg.App.OtelEnabled)
	assert.Equal(t, "jina", cfg.Ai.EmbeddingProvider)
}

func TestEnvHelpers_FallBackOnGarbage(t *testing.T) {
	tests := []struct {
		name  string
		value string
		check func(t *testing.T)
	}{
		{"int", "ten", func(t *testing.T) { assert.Equal(t, 7, getEnvAsInt("CFG_TEST_VALUE", 7)) }},
		{"float", "high", func(t *testing.T) { assert.Equal(t, 0.5, getEnvAsFloat("CFG_TEST_VALUE", 0.5)) }},
		{"duration", "10", func(t *testing.T) { assert.Equal(t, time.Second, getEnvAsDuration("CFG_TEST_VALUE", time.Second)) }},
		{"bool", "maybe", func(t *testing.T) { assert.True(t, getEnvAsBool("CFG_TEST_VALUE", true)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CFG_TEST_VALUE", tt.value)
			tt.check(t)
		})
	}
}

func TestToManagerConfig(t *testing.T) {
	mc := loadMemory()
	mc.CacheSoftCap = 50
	mc.CacheFloor = 40
	mc.CacheHardCap = 60
	mc.MaxSessions = 3

	cfg := mc.ToManagerConfig(768)
	assert.Equal(t, 768, cfg.Dimensions)
	assert.Equal(t, 50, cfg.Cache.SoftCap)
	assert.Equal(t, 40, cfg.Cache.Floor)
	assert.Equal(t, 60, cfg.Cache.HardCap)
	assert.Equal(t, 3, cfg.Session.MaxSessions)
	assert.Equal(t, 0.70, cfg.Cache.InclusionThreshold)
	assert.Equal(t, 4000, cfg.PlanningBudget)
	// Unexposed knobs keep the library default.
	assert.Equal(t, 3, cfg.Cache.LazyEmbedBudget)
}

func TestToGuardConfig(t *testing.T) {
	ai := AIConfig{EmbeddingDims: 768, EmbeddingTimeout: time.Second, EmbeddingRateLimit: 5, EmbeddingBurst: 2, EmbeddingMemo: 10}
	guard := ai.ToGuardConfig()
	assert.Equal(t, 768, guard.Dimensions)
	assert.Equal(t, 5.0, guard.RequestsPerSecond)
	assert.Equal(t, int64(10), guard.MemoEntries)
	assert.Equal(t, 8000, guard.MaxChars)
}

func TestDatabaseOptions(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "20")
	t.Setenv("DB_SLOW_THRESHOLD", "1s")
	t.Setenv("DB_LOG_LEVEL", "info")

	opts := Load().Database.Options()
	assert.Equal(t, 20, opts.MaxOpenConns)
	assert.Equal(t, 10, opts.MaxIdleConns)
	assert.Equal(t, time.Hour, opts.ConnMaxLifetime)
	assert.Equal(t, time.Second, opts.SlowThreshold)
	assert.Equal(t, "info", opts.LogLevel)
}

func TestAppOptions(t *testing.T) {
	app := AppConfig{
		Environment:     "production",
		LogFilePath:     "memory.log",
		LogLevel:        "warn",
		OtelEnabled:     true,
		OtelEndpoint:    "jaeger:4318",
		OtelSampleRatio: 0.5,
	}

	lo := app.LoggerOptions()
	assert.True(t, lo.Production)
	assert.True(t, lo.Console)
	assert.Equal(t, "memory.log", lo.FilePath)
	assert.Equal(t, "warn", lo.Level)

	to := app.TracerOptions()
	assert.True(t, to.Enabled)
	assert.Equal(t, "jaeger:4318", to.Endpoint)
	assert.Equal(t, "survey-assistant-memory", to.ServiceName)
	assert.InDelta(t, 0.5, to.SampleRatio, 1e-9)
}
