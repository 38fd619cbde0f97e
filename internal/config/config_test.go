package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Provider != ProviderOpenAI {
		t.Errorf("expected default provider %q, got %q", ProviderOpenAI, cfg.Provider)
	}
	if cfg.MaxChunksToRetrieve != 5 {
		t.Errorf("expected default max_chunks_to_retrieve 5, got %d", cfg.MaxChunksToRetrieve)
	}
	if cfg.ShortTermMemorySize != 10 {
		t.Errorf("expected default short_term_memory_size 10, got %d", cfg.ShortTermMemorySize)
	}
	if cfg.ChunkSize != 1000 || cfg.ChunkOverlap != 200 {
		t.Errorf("expected default chunking 1000/200, got %d/%d", cfg.ChunkSize, cfg.ChunkOverlap)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.oporichita.yml")

	original := DefaultConfig()
	original.Provider = ProviderOllama
	original.Model = "llama3"
	original.TokenBudget = 4096
	original.MaxChunksToRetrieve = 8
	original.AccessBoostCap = 0.05

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Provider != original.Provider {
		t.Errorf("provider: got %q, want %q", loaded.Provider, original.Provider)
	}
	if loaded.Model != original.Model {
		t.Errorf("model: got %q, want %q", loaded.Model, original.Model)
	}
	if loaded.TokenBudget != original.TokenBudget {
		t.Errorf("token_budget: got %d, want %d", loaded.TokenBudget, original.TokenBudget)
	}
	if loaded.MaxChunksToRetrieve != original.MaxChunksToRetrieve {
		t.Errorf("max_chunks_to_retrieve: got %d, want %d", loaded.MaxChunksToRetrieve, original.MaxChunksToRetrieve)
	}
	if loaded.AccessBoostCap != original.AccessBoostCap {
		t.Errorf("access_boost_cap: got %f, want %f", loaded.AccessBoostCap, original.AccessBoostCap)
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nonexistent.yml")

	// Loading a missing file should return defaults, not an error.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if cfg.Provider != ProviderOpenAI {
		t.Errorf("expected default provider, got %q", cfg.Provider)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yml")

	cfg := DefaultConfig()
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	os.Setenv("OPORICHITA_PROVIDER", "ollama")
	defer os.Unsetenv("OPORICHITA_PROVIDER")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Provider != ProviderOllama {
		t.Errorf("env override failed: got %q, want %q", loaded.Provider, ProviderOllama)
	}
}

func TestValidateValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig should be valid, got: %v", err)
	}
}

func TestValidateInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty provider", func(c *Config) { c.Provider = "" }},
		{"unknown provider", func(c *Config) { c.Provider = "anthropic" }},
		{"empty model", func(c *Config) { c.Model = "" }},
		{"empty corpus path", func(c *Config) { c.CorpusPath = "" }},
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
		{"zero chunk size", func(c *Config) { c.ChunkSize = 0 }},
		{"overlap >= chunk size", func(c *Config) { c.ChunkOverlap = c.ChunkSize }},
		{"zero k", func(c *Config) { c.MaxChunksToRetrieve = 0 }},
		{"zero memory size", func(c *Config) { c.ShortTermMemorySize = 0 }},
		{"recent turns beyond memory", func(c *Config) { c.RecentTurnsInContext = c.ShortTermMemorySize + 1 }},
		{"zero token budget", func(c *Config) { c.TokenBudget = 0 }},
		{"boost cap above one", func(c *Config) { c.AccessBoostCap = 1.5 }},
		{"negative lookup distance", func(c *Config) { c.LookupMaxDistance = -1 }},
		{"zero generation timeout", func(c *Config) { c.GenerationTimeoutSeconds = 0 }},
		{"negative rpm", func(c *Config) { c.RequestsPerMinute = -1 }},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}

func TestAPIKeyEnvVar(t *testing.T) {
	if got := APIKeyEnvVar(ProviderOpenAI); got != "OPENAI_API_KEY" {
		t.Errorf("APIKeyEnvVar(openai) = %q", got)
	}
	if got := APIKeyEnvVar(ProviderOllama); got != "" {
		t.Errorf("APIKeyEnvVar(ollama) = %q, want empty", got)
	}
}
