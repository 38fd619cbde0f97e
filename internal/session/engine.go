// Package session orchestrates the answer pipeline. An Engine owns the
// process-wide collaborators; each Session owns its own conversation memory
// and walks one query at a time through normalization, retrieval, context
// assembly and generation.
package session

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/tanvirhossain/oporichita/internal/assembler"
	"github.com/tanvirhossain/oporichita/internal/config"
	"github.com/tanvirhossain/oporichita/internal/embeddings"
	"github.com/tanvirhossain/oporichita/internal/kb"
	"github.com/tanvirhossain/oporichita/internal/llm"
	"github.com/tanvirhossain/oporichita/internal/memory"
	"github.com/tanvirhossain/oporichita/internal/retriever"
)

var log = logrus.WithField("component", "session")

// Engine wires the shared collaborators of the answer pipeline. It is safe
// for concurrent use: sessions serialize their own queries, and the shared
// state (long-term stats, knowledge base) is internally synchronized or
// immutable.
type Engine struct {
	cfg       config.Config
	index     *kb.Index
	stats     *memory.LongTermStats
	retriever *retriever.Retriever
	assembler *assembler.Assembler
	provider  llm.Provider
}

// NewEngine builds an Engine from loaded collaborators. The provider is
// wrapped with the configured requests-per-minute limit.
func NewEngine(cfg config.Config, index *kb.Index, stats *memory.LongTermStats, embedder embeddings.Embedder, provider llm.Provider) (*Engine, error) {
	asm, err := assembler.New(cfg.TokenBudget, cfg.RecentTurnsInContext)
	if err != nil {
		return nil, err
	}

	if cfg.RequestsPerMinute > 0 {
		provider = llm.NewRateLimitedProvider(provider, cfg.RequestsPerMinute)
	}

	return &Engine{
		cfg:   cfg,
		index: index,
		stats: stats,
		retriever: retriever.New(index, embedder, stats, retriever.Options{
			K:                 cfg.MaxChunksToRetrieve,
			BoostCap:          cfg.AccessBoostCap,
			LookupMaxDistance: cfg.LookupMaxDistance,
		}),
		assembler: asm,
		provider:  provider,
	}, nil
}

// Shutdown flushes long-term statistics. Safe to call once at process exit.
func (e *Engine) Shutdown(ctx context.Context) error {
	return e.stats.Close(ctx)
}

// Report is the stats surface exposed for CLIs and the HTTP API.
type Report struct {
	LongTermTotalAccesses int64                  `json:"long_term_total_accesses"`
	TopAccessedChunks     []memory.KeyCount      `json:"top_accessed_chunks"`
	TopQueryPatterns      []memory.KeyCount      `json:"top_query_patterns"`
	KnowledgeBase         map[kb.ContentType]int `json:"knowledge_base"`
}

// Report summarizes long-term usage and the knowledge-base composition.
func (e *Engine) Report() Report {
	return Report{
		LongTermTotalAccesses: e.stats.TotalAccesses(),
		TopAccessedChunks:     e.stats.TopAccessed(10),
		TopQueryPatterns:      e.stats.TopPatterns(10),
		KnowledgeBase:         e.index.Stats(),
	}
}
