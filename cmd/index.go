package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tanvirhossain/oporichita/internal/kb"
	"github.com/tanvirhossain/oporichita/internal/progress"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Embed the corpus into the local vector store",
	Long: `Loads the corpus file, embeds every chunk through the configured
embedding provider, and persists the vector store so later commands start
without re-embedding. Run this again after changing the corpus.`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
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
		return fmt.Errorf("building index: %w", err)
	}

	if err := idx.Persist(kbDir(cfg)); err != nil {
		return fmt.Errorf("persisting index: %w", err)
	}

	fmt.Printf("Indexed %d chunks:\n", idx.Count())
	for _, ct := range kb.ContentTypes {
		if n := idx.Stats()[ct]; n > 0 {
			fmt.Printf("  %-12s %d\n", ct, n)
		}
	}
	fmt.Printf("Vector store written to %s\n", kbDir(cfg))
	return nil
}
