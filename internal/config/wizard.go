package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and saves the result
// to .oporichita.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to oporichita! Let's configure the question answering system.")
	fmt.Println()

	cfg := DefaultConfig()

	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"openai", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)
	cfg.EmbeddingProvider = cfg.Provider

	if cfg.Provider == ProviderOllama {
		cfg.Model = "llama3"
		cfg.EmbeddingModel = "nomic-embed-text"
	}

	modelPrompt := promptui.Prompt{
		Label:   "Generation model",
		Default: cfg.Model,
	}
	if cfg.Model, err = modelPrompt.Run(); err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	corpusPrompt := promptui.Prompt{
		Label:   "Corpus file",
		Default: cfg.CorpusPath,
	}
	if cfg.CorpusPath, err = corpusPrompt.Run(); err != nil {
		return nil, fmt.Errorf("corpus path: %w", err)
	}
	cfg.CorpusPath = strings.TrimSpace(cfg.CorpusPath)

	dataPrompt := promptui.Prompt{
		Label:   "Data directory (vector store and stats)",
		Default: cfg.DataDir,
	}
	if cfg.DataDir, err = dataPrompt.Run(); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if envVar := APIKeyEnvVar(cfg.Provider); envVar != "" && os.Getenv(envVar) == "" {
		fmt.Printf("\nNote: Set %s in your environment before asking questions.\n", envVar)
	}

	configPath := ".oporichita.yml"
	if err := cfg.Save(configPath); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", configPath)
	return cfg, nil
}
