package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tanvirhossain/oporichita/internal/memory"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show long-term usage statistics",
	Long: `Prints the accumulated long-term statistics: how often each corpus
chunk has been retrieved and which question patterns recur. These counters
bias retrieval toward frequently consulted passages.`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	stats, err := memory.OpenLongTermStats(statsPath(cfg))
	if err != nil {
		return fmt.Errorf("opening stats: %w", err)
	}
	defer stats.Close(context.Background())

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			TotalAccesses int64             `json:"total_accesses"`
			TopChunks     []memory.KeyCount `json:"top_chunks"`
			TopPatterns   []memory.KeyCount `json:"top_patterns"`
		}{stats.TotalAccesses(), stats.TopAccessed(10), stats.TopPatterns(10)})
	}

	fmt.Printf("Total chunk accesses: %d\n\n", stats.TotalAccesses())

	fmt.Println("Most retrieved chunks:")
	for i, kc := range stats.TopAccessed(10) {
		fmt.Printf("  %2d. %-20s %d\n", i+1, kc.Key, kc.Count)
	}

	fmt.Println("\nMost frequent question patterns:")
	for i, kc := range stats.TopPatterns(10) {
		fmt.Printf("  %2d. %-40s %d\n", i+1, kc.Key, kc.Count)
	}
	return nil
}
