// Package cmd implements the oporichita command line interface.
package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "oporichita",
	Short: "Bilingual question answering over Tagore's short story অপরিচিতা",
	Long: `Oporichita answers Bengali and English questions about Rabindranath
Tagore's short story "অপরিচিতা" using retrieval-augmented generation: the
story, its characters, word meanings and study questions are embedded into
a local vector store, and every answer is grounded in retrieved passages.
Conversations carry short-term memory, and long-term usage statistics bias
retrieval toward frequently consulted passages.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		} else {
			logrus.SetLevel(logrus.WarnLevel)
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".oporichita.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
