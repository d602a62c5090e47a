package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amishk599/dealscan/internal/ai"
)

var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version info",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("dealscan %s (prompt %s)\n", version, ai.PromptVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
