package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/tanvirhossain/oporichita/internal/config"
	"github.com/tanvirhossain/oporichita/internal/embeddings"
	"github.com/tanvirhossain/oporichita/internal/kb"
	"github.com/tanvirhossain/oporichita/internal/llm"
	"github.com/tanvirhossain/oporichita/internal/memory"
	"github.com/tanvirhossain/oporichita/internal/progress"
	"github.com/tanvirhossain/oporichita/internal/session"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `oporichita init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// createEmbedderFromConfig creates an embeddings.Embedder based on config.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	provider := cfg.EmbeddingProvider
	if provider == "" {
		provider = cfg.Provider
	}

	switch provider {
	case config.ProviderOpenAI:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for OpenAI embeddings")
		}
		return embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(cfg.EmbeddingModel)), nil
	case config.ProviderOllama:
		model := cfg.EmbeddingModel
		if model == "" {
			model = "nomic-embed-text"
		}
		return embeddings.NewOllamaEmbedder(model, 768, os.Getenv("OLLAMA_HOST")), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", provider)
	}
}

// createProviderFromConfig creates an LLM provider based on config settings.
func createProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	return llm.NewProvider(cfg.Provider, cfg.Model)
}

func kbDir(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, "kb")
}

func statsPath(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, "stats.db")
}

// openIndex restores the persisted index if present, otherwise builds it
// from the corpus source and persists it for next time. Building embeds
// every chunk, so it shows a progress bar.
func openIndex(ctx context.Context, cfg *config.Config, embedder embeddings.Embedder) (*kb.Index, error) {
	dir := kbDir(cfg)
	if idx, err := kb.Open(dir, embedder); err == nil {
		return idx, nil
	}

	reporter := progress.NewReporter("Embedding corpus")
	var started bool
	idx, err := kb.Load(ctx, cfg.CorpusPath, embedder, func(done, total int) {
		if !started {
			reporter.Start(total)
			started = true
		}
		reporter.Update(done, "")
	})
	if started {
		reporter.Finish()
	}
	if err != nil {
		return nil, err
	}

	if err := idx.Persist(dir); err != nil {
		return nil, fmt.Errorf("persisting index: %w", err)
	}
	return idx, nil
}

// openStats opens the long-term statistics store. Persistence failures are
// logged and the stats continue in memory.
func openStats(cfg *config.Config) *memory.LongTermStats {
	stats, err := memory.OpenLongTermStats(statsPath(cfg))
	if err != nil {
		logrus.WithError(err).Warn("long-term stats persistence unavailable, continuing in memory")
	}
	return stats
}

// buildEngine wires the full answer pipeline from configuration.
func buildEngine(ctx context.Context, cfg *config.Config) (*session.Engine, error) {
	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	provider, err := createProviderFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}

	idx, err := openIndex(ctx, cfg, embedder)
	if err != nil {
		return nil, fmt.Errorf("opening knowledge base: %w", err)
	}

	return session.NewEngine(*cfg, idx, openStats(cfg), embedder, provider)
}
