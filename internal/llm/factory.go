package llm

import (
	"fmt"
	"os"

	"github.com/tanvirhossain/oporichita/internal/config"
)

// NewProvider creates an LLM provider from configuration. OpenAI requires
// OPENAI_API_KEY in the environment; Ollama reads OLLAMA_HOST and falls back
// to the local default.
func NewProvider(providerType config.ProviderType, model string) (Provider, error) {
	switch providerType {
	case config.ProviderOpenAI:
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		return NewOpenAIProvider(apiKey, model), nil

	case config.ProviderOllama:
		host := os.Getenv("OLLAMA_HOST")
		if host == "" {
			host = "http://localhost:11434"
		}
		return NewOllamaProvider(host, model), nil

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}
