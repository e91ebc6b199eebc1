package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for clickgrab.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clickgrab",
		Short: "Extract clipboard payloads from fake-CAPTCHA lure pages",
		Long: `clickgrab analyzes fake-CAPTCHA ("ClickFix") lure pages.

It pulls tagged URLs from the URLhaus feed, downloads each page, finds the
JavaScript that writes to the clipboard, reconstructs the command the victim
is told to paste, and aggregates everything into a daily report. Runs are
archived so that each report can point out patterns not seen the day before.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewAnalyzeCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
