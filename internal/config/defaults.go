package config

// DefaultConfig returns a Config with sensible defaults. The chunking and
// memory values match the corpus this system ships with: one short story
// segmented around a thousand characters per chunk, ten remembered turns.
func DefaultConfig() *Config {
	return &Config{
		Provider:          ProviderOpenAI,
		Model:             "gpt-4o-mini",
		EmbeddingProvider: ProviderOpenAI,
		EmbeddingModel:    "text-embedding-3-small",

		CorpusPath: "corpus/aparichita.json",
		DataDir:    "data",

		ChunkSize:           1000,
		ChunkOverlap:        200,
		MaxChunksToRetrieve: 5,

		ShortTermMemorySize:  10,
		RecentTurnsInContext: 3,
		TokenBudget:          2048,

		AccessBoostCap:    0.10,
		LookupMaxDistance: 2,

		GenerationTimeoutSeconds: 30,
		RequestsPerMinute:        60,
	}
}
