package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cyderes/dog-ratings-pipeline/internal/commands"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "dogratings",
		Short: "Clean and merge the dog-ratings archive, image predictions and engagement metrics",
		Long: `dogratings reads the post archive CSV, the image prediction TSV and the
engagement metrics JSON lines, cleans each of them, left-joins them on tweet id
and writes the master table, with descriptive statistics on the result.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String(commands.ConfigFlag, "", "path to a YAML config file")

	root.AddCommand(
		commands.NewRunCmd(),
		commands.NewReportCmd(),
		commands.NewServeCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
