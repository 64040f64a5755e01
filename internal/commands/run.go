package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cyderes/dog-ratings-pipeline/internal/config"
	"github.com/cyderes/dog-ratings-pipeline/internal/ingestion"
	"github.com/cyderes/dog-ratings-pipeline/internal/report"
	"github.com/cyderes/dog-ratings-pipeline/internal/storage"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once and write the master table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			result, err := runPipeline(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			printRunSummary(cmd.OutOrStdout(), cfg, result)
			if quiet {
				return nil
			}
			return report.WriteText(cmd.OutOrStdout(), result.Report)
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "skip printing the report")
	return cmd
}

// runPipeline opens the configured store, runs once and closes the store.
func runPipeline(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*ingestion.RunResult, error) {
	store, err := storage.NewStorage(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	defer store.Close()

	return ingestion.NewService(cfg, store, logger).Run(ctx)
}

func printRunSummary(w io.Writer, cfg *config.Config, result *ingestion.RunResult) {
	bold := color.New(color.Bold)
	_, _ = bold.Fprintf(w, "Run %s ", result.RunID)
	fmt.Fprintln(w, color.GreenString("succeeded"))

	ps := result.Tables.PostStats
	fmt.Fprintf(w, "  Archive rows:     %d (%d reshares, %d denylisted, %d corrected)\n",
		ps.Input, ps.Reshares, ps.Denylisted, ps.Corrected)
	fmt.Fprintf(w, "  Image rows:       %d (%d duplicate images)\n",
		result.Tables.ImageStats.Input, result.Tables.ImageStats.DuplicateURLs)
	fmt.Fprintf(w, "  Metrics rows:     %d\n", len(result.Tables.Metrics))
	fmt.Fprintf(w, "  Master records:   %d -> %s\n", len(result.Tables.Records), cfg.Output.CSVPath)
	if cfg.Output.ParquetPath != "" {
		fmt.Fprintf(w, "  Parquet copy:     %s\n", cfg.Output.ParquetPath)
	}
	if ps.MultiStage > 0 {
		fmt.Fprintln(w, color.YellowString("  %d posts carried more than one life stage", ps.MultiStage))
	}
}
