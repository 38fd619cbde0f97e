package config

// ProviderType identifies an LLM or embedding provider.
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderOllama ProviderType = "ollama"
)

// Config is the top-level oporichita configuration, corresponding to .oporichita.yml.
// All values are read once at session start and treated as immutable afterwards.
type Config struct {
	Provider          ProviderType `yaml:"provider" koanf:"provider"`
	Model             string       `yaml:"model" koanf:"model"`
	EmbeddingProvider ProviderType `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel    string       `yaml:"embedding_model" koanf:"embedding_model"`

	// CorpusPath points at the knowledge-base JSON produced by `oporichita ingest`.
	CorpusPath string `yaml:"corpus_path" koanf:"corpus_path"`
	// DataDir holds the persisted vector store and the long-term stats database.
	DataDir string `yaml:"data_dir" koanf:"data_dir"`

	ChunkSize           int `yaml:"chunk_size" koanf:"chunk_size"`
	ChunkOverlap        int `yaml:"chunk_overlap" koanf:"chunk_overlap"`
	MaxChunksToRetrieve int `yaml:"max_chunks_to_retrieve" koanf:"max_chunks_to_retrieve"`

	ShortTermMemorySize  int `yaml:"short_term_memory_size" koanf:"short_term_memory_size"`
	RecentTurnsInContext int `yaml:"recent_turns_in_context" koanf:"recent_turns_in_context"`
	TokenBudget          int `yaml:"token_budget" koanf:"token_budget"`

	// AccessBoostCap limits the long-term popularity boost to this fraction
	// of a chunk's base similarity score.
	AccessBoostCap float64 `yaml:"access_boost_cap" koanf:"access_boost_cap"`
	// LookupMaxDistance is the Levenshtein threshold for direct key lookups.
	LookupMaxDistance int `yaml:"lookup_max_distance" koanf:"lookup_max_distance"`

	GenerationTimeoutSeconds int `yaml:"generation_timeout_seconds" koanf:"generation_timeout_seconds"`
	RequestsPerMinute        int `yaml:"requests_per_minute" koanf:"requests_per_minute"`
}
