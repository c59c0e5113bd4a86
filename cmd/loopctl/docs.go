package main

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/loopkit/loopkit/internal/presentation/tui"
)

//go:embed guide.md
var guideMarkdown string

// docsCmd represents the docs command
var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Show the loopkit guide",
	Long:  `Renders the built-in loopkit guide. On a terminal it is styled with glamour; otherwise the raw Markdown is printed.`,
	Run: func(cmd *cobra.Command, args []string) {
		plain, _ := cmd.Flags().GetBool("plain")

		if plain || !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Print(guideMarkdown)
			return
		}

		tui.PrintBanner()
		width, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil {
			width = 0
		}
		render := tui.NewRenderer(width)
		out, err := render(guideMarkdown)
		if err != nil {
			// Fall back to the raw source rather than failing.
			fmt.Print(guideMarkdown)
			return
		}
		fmt.Print(out)
	},
}

func init() {
	rootCmd.AddCommand(docsCmd)
	docsCmd.Flags().Bool("plain", false, "Print the raw Markdown without styling")
}
