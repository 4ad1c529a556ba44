package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yourusername/oscar-odds/internal/report"
)

var (
	blendOutDir string
	blendTopN   int
	blendQuiet  bool
)

func init() {
	blendCmd.Flags().StringVarP(&blendOutDir, "out", "o", "", "Output directory (defaults to pipeline.output_dir)")
	blendCmd.Flags().IntVar(&blendTopN, "top", 0, "Candidates shown per category (defaults to pipeline.top_n)")
	blendCmd.Flags().BoolVarP(&blendQuiet, "quiet", "q", false, "Only print the summary table")
}

var blendCmd = &cobra.Command{
	Use:   "blend",
	Short: "Run every configured stage and write stage-tagged predictions",
	RunE: func(cmd *cobra.Command, args []string) error {
		outDir := cfg.Pipeline.OutputDir
		if blendOutDir != "" {
			outDir = blendOutDir
		}
		topN := cfg.Pipeline.TopN
		if blendTopN > 0 {
			topN = blendTopN
		}

		scorer, err := newScorer(cfg, appLog)
		if err != nil {
			return err
		}
		rep, err := runOnce(cmd.Context(), cfg, appLog, scorer, outDir)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		final := rep.Final()
		if final == nil {
			return nil
		}
		if !blendQuiet {
			fmt.Fprintln(out, report.GenerateConsoleReport(final.Stage, final.Distributions, topN))
		}
		rows, err := report.Summarize(final.Distributions)
		if err != nil {
			return err
		}
		fmt.Fprint(out, report.GenerateSummaryTable(rows))
		if len(final.Skipped) > 0 {
			fmt.Fprintf(out, "\n%d categories skipped, see log for details\n", len(final.Skipped))
		}
		return nil
	},
}
