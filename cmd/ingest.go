package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tanvirhossain/oporichita/internal/kb"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [source.json]",
	Short: "Segment a source document into the retrievable corpus",
	Long: `Reads a structured source document (story sections, character notes,
question/answer pairs, word meanings) and segments it into the corpus file
the knowledge base loads. Story text is split at sentence boundaries with
overlap so no passage loses its surroundings.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().String("out", "", "output corpus path (defaults to corpus_path from config)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = cfg.CorpusPath
	}

	n, err := kb.Ingest(args[0], out, cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return fmt.Errorf("ingesting %s: %w", args[0], err)
	}

	fmt.Printf("Wrote %d corpus records to %s\n", n, out)
	fmt.Println("Run `oporichita index` to embed them into the vector store.")
	return nil
}
