package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_NAME", "tmdb")

	cfg := Load()

	if !strings.Contains(cfg.DatabaseURL, "@db.internal:5432/tmdb?") {
		t.Errorf("unexpected database url: %s", cfg.DatabaseURL)
	}
	if cfg.Search.OversamplingFactor != 20 {
		t.Errorf("expected oversampling 20, got %d", cfg.Search.OversamplingFactor)
	}
	if cfg.Search.PromptMaxLength != 64 || cfg.Search.LimitMin != 1 || cfg.Search.LimitMax != 10 {
		t.Errorf("unexpected search bounds: %+v", cfg.Search)
	}
	if !cfg.VectorIndexAutoCreate {
		t.Error("index autocreate should default to true")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SEARCH_OVERSAMPLING", "40")
	t.Setenv("QUERY_CACHE_TTL", "90s")
	t.Setenv("VECTOR_INDEX_AUTOCREATE", "false")
	t.Setenv("SEARCH_LIMIT_MAX", "not-a-number")

	cfg := Load()

	if cfg.Search.OversamplingFactor != 40 {
		t.Errorf("expected oversampling 40, got %d", cfg.Search.OversamplingFactor)
	}
	if cfg.Search.QueryCacheTTL != 90*time.Second {
		t.Errorf("expected 90s ttl, got %v", cfg.Search.QueryCacheTTL)
	}
	if cfg.VectorIndexAutoCreate {
		t.Error("autocreate override ignored")
	}
	if cfg.Search.LimitMax != 10 {
		t.Errorf("bad integer should fall back to default, got %d", cfg.Search.LimitMax)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"index name with quote", func(c *Config) { c.VectorIndexName = `idx"; drop table movies` }},
		{"empty index name", func(c *Config) { c.VectorIndexName = "" }},
		{"unknown provider", func(c *Config) { c.EmbeddingProvider = "bert" }},
		{"openai without key", func(c *Config) { c.EmbeddingProvider = "openai"; c.OpenAIKey = "" }},
		{"ef_search ceiling", func(c *Config) { c.Search.OversamplingFactor = 200 }},
		{"empty limit range", func(c *Config) { c.Search.LimitMax = 0 }},
		{"zero batch", func(c *Config) { c.IngestBatchSize = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
		})
	}
}
