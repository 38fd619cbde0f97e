package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question about the story",
	Long: `Answers one Bengali or English question and exits. For a
conversation with memory across questions, use ` + "`oporichita chat`" + `.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().Bool("json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	engine, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer engine.Shutdown(context.Background())

	answer := engine.NewSession().Ask(ctx, args[0])

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	}

	fmt.Println(answer.Text)
	if answer.Degraded {
		fmt.Fprintf(os.Stderr, "\n[degraded answer: %s]\n", answer.Kind)
	} else if len(answer.ChunkIDs) > 0 {
		fmt.Fprintf(os.Stderr, "\n[sources: %s]\n", strings.Join(answer.ChunkIDs, ", "))
	}
	return nil
}
