package main

import (
	"fmt"

	"github.com/loopkit/loopkit"
	"github.com/spf13/cobra"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of loopctl",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("loopctl version %s\n", loopkit.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
