package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "hobbot",
	Short: "Persistent platform memory for hobbot",
	Long:  "Hobbot memory keeps a confidence-weighted knowledge store that learns from each engagement cycle and serves budgeted context for generation. Single Go binary.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(knowledgeCmd)
	rootCmd.AddCommand(maintainCmd)
	rootCmd.AddCommand(reflectCmd)
}
