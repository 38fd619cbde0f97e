package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tanvirhossain/oporichita/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Configure oporichita with an interactive wizard",
	Long:  `Runs an interactive wizard to pick providers and paths, and writes a .oporichita.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
