package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/clickgrab/internal/config"
	"github.com/nao1215/clickgrab/internal/database"
	"github.com/nao1215/clickgrab/internal/model"
)

// NewHistoryCmd creates the history command and its subcommands.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show archived runs",
		Long: `History prints an overview of all archived runs: totals across runs,
the latest run's headline numbers, and one row per run, newest first.

Examples:
  # Overview as text
  clickgrab history

  # Overview as Markdown
  clickgrab history --format markdown

  # Full report of one run
  clickgrab history show 2025-03-14

  # Remove runs older than a date
  clickgrab history prune --before 2025-01-01`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.PersistentFlags().StringP("format", "f", config.DefaultFormat,
		"Output format: text, json, markdown or csv")
	cmd.PersistentFlags().String("db-dir", config.XDGDataDir(),
		"Directory of the run archive")

	cmd.AddCommand(newHistoryShowCmd())
	cmd.AddCommand(newHistoryPruneCmd())
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show DATE",
		Short: "Print the archived report of one run",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryShowCmd,
	}
}

func newHistoryPruneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete archived runs dated before a day",
		Args:  cobra.NoArgs,
		RunE:  runHistoryPruneCmd,
	}
	cmd.Flags().String("before", "", "Delete runs dated before this day (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("before") //nolint:errcheck // flag is defined above
	return cmd
}

// openArchive opens the existing archive named by the --db-dir flag.
func openArchive(cmd *cobra.Command) (*database.ArchiveDB, error) {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(dbDir, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func historyFormat(cmd *cobra.Command) (string, error) {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return "", err
	}
	if !config.ValidFormat(format) {
		return "", fmt.Errorf("%w: %q", config.ErrInvalidFormat, format)
	}
	return format, nil
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	format, err := historyFormat(cmd)
	if err != nil {
		return err
	}
	db, err := openArchive(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.ListRuns(cmd.Context())
	if err != nil {
		return err
	}

	w, err := newReportWriter(format, cmd.OutOrStdout(), getVerboseFlag(cmd))
	if err != nil {
		return err
	}
	if _, err := w.WriteOverview(model.NewOverview(runs)); err != nil {
		return fmt.Errorf("failed to write overview: %w", err)
	}
	return nil
}

func runHistoryShowCmd(cmd *cobra.Command, args []string) error {
	format, err := historyFormat(cmd)
	if err != nil {
		return err
	}
	runDate, err := parseDate(args[0])
	if err != nil {
		return err
	}
	db, err := openArchive(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	rep, err := db.GetReport(cmd.Context(), runDate)
	if err != nil {
		return err
	}

	w, err := newReportWriter(format, cmd.OutOrStdout(), getVerboseFlag(cmd))
	if err != nil {
		return err
	}
	if _, err := w.WriteReport(rep); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func runHistoryPruneCmd(cmd *cobra.Command, _ []string) error {
	before, err := cmd.Flags().GetString("before")
	if err != nil {
		return err
	}
	cutoff, err := parseDate(before)
	if err != nil {
		return err
	}
	db, err := openArchive(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := db.DeleteRunsBefore(cmd.Context(), cutoff)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d run(s) dated before %s\n", n, cutoff.Format(model.DateLayout))
	return nil
}
