package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yourusername/oscar-odds/internal/dataset"
	"github.com/yourusername/oscar-odds/internal/report"
)

var (
	summaryDir string
	summaryCSV string
)

func init() {
	summaryCmd.Flags().StringVarP(&summaryDir, "dir", "d", "", "Stage output directory, e.g. output/bafta")
	summaryCmd.Flags().StringVar(&summaryCSV, "csv", "", "Also write the summary to this CSV file")
	_ = summaryCmd.MarkFlagRequired("dir")
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the predicted winner of every category in a stage directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		dists, err := dataset.ReadStage(summaryDir)
		if err != nil {
			return err
		}
		if len(dists) == 0 {
			return fmt.Errorf("no stage files found in %s", summaryDir)
		}
		rows, err := report.Summarize(dists)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), report.GenerateSummaryTable(rows))
		if summaryCSV != "" {
			return report.WriteSummaryCSV(rows, summaryCSV)
		}
		return nil
	},
}
