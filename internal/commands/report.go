package commands

import (
	"github.com/spf13/cobra"

	"github.com/cyderes/dog-ratings-pipeline/internal/output"
	"github.com/cyderes/dog-ratings-pipeline/internal/report"
)

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	var input, jsonPath string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print statistics for an existing master table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			if input == "" {
				input = cfg.Output.CSVPath
			}
			if jsonPath == "" {
				jsonPath = cfg.Output.ReportPath
			}

			records, err := output.ReadCSVFile(input)
			if err != nil {
				return err
			}
			rep, err := report.Build(records, cfg.Report.MinBreedCount)
			if err != nil {
				return err
			}
			logger.WithField("records", len(records)).Debug("Master table loaded")

			if jsonPath != "" {
				if err := report.WriteJSONFile(jsonPath, rep); err != nil {
					return err
				}
				logger.WithField("path", jsonPath).Info("Report written")
			}
			return report.WriteText(cmd.OutOrStdout(), rep)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "master table CSV (defaults to the configured output)")
	cmd.Flags().StringVar(&jsonPath, "json", "", "also write the report as JSON to this path")
	return cmd
}
