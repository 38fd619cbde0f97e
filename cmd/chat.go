package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation about the story",
	Long: `Opens a conversational prompt. The session remembers the last ten
exchanges, so follow-up questions like "তার বয়স কত?" resolve against what
was just discussed. Type "exit", "quit" or press Ctrl-D to leave.`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	engine, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer engine.Shutdown(context.Background())

	sess := engine.NewSession()
	fmt.Println("অপরিচিতা প্রশ্নোত্তর। প্রশ্ন লিখুন (exit দিয়ে বের হন)।")
	fmt.Println()

	for {
		prompt := promptui.Prompt{Label: "প্রশ্ন"}
		query, err := prompt.Run()
		if err != nil {
			// Ctrl-C / Ctrl-D end the conversation.
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				break
			}
			return err
		}

		switch strings.ToLower(strings.TrimSpace(query)) {
		case "exit", "quit":
			return nil
		case "stats":
			r := sess.Report()
			fmt.Printf("\nturns: %d, total accesses: %d\n", r.ShortTermTurnCount, r.LongTermTotalAccesses)
			for _, kc := range r.TopQueryPatterns {
				fmt.Printf("  %-40s %d\n", kc.Key, kc.Count)
			}
			fmt.Println()
			continue
		case "":
			continue
		}

		answer := sess.Ask(ctx, query)
		fmt.Println()
		fmt.Println(answer.Text)
		if answer.Degraded {
			fmt.Printf("[%s]\n", answer.Kind)
		}
		fmt.Println()
	}
	return nil
}
