package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yourusername/oscar-odds/internal/blend"
	"github.com/yourusername/oscar-odds/internal/features"
	"github.com/yourusername/oscar-odds/internal/pipeline"
)

var (
	featuresCandidates string
	featuresPrecursors string
	featuresStages     []string
)

func init() {
	featuresCmd.Flags().StringVar(&featuresCandidates, "candidates", "", "Candidates table (defaults to data.candidates)")
	featuresCmd.Flags().StringVar(&featuresPrecursors, "precursors", "", "Precursor table (defaults to data.precursors)")
	featuresCmd.Flags().StringSliceVar(&featuresStages, "stages", nil, "Stages whose results count (defaults to pipeline.stages)")
}

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Print the engineered features of every nominee",
	RunE: func(cmd *cobra.Command, args []string) error {
		candidates := firstNonEmpty(featuresCandidates, cfg.Data.Candidates)
		precursors := firstNonEmpty(featuresPrecursors, cfg.Data.Precursors)
		stages := featuresStages
		if len(stages) == 0 {
			stages = cfg.Pipeline.Stages
		}

		loader := newLoader(cfg, appLog)
		base, err := loader.LoadCandidates(cmd.Context(), candidates)
		if err != nil {
			return err
		}
		signals := map[string]blend.SignalSet{}
		matcher, err := cfg.Matcher()
		if err != nil {
			return err
		}
		if precursors != "" {
			table, err := loader.LoadPrecursors(cmd.Context(), precursors)
			if err != nil {
				return err
			}
			if signals, err = pipeline.CollectSignals(base, table, stages, matcher, blend.NewBlender()); err != nil {
				return err
			}
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "category\tcandidate\t%s\n", strings.Join(features.Names, "\t"))
		for _, id := range base.Categories() {
			vectors, err := features.Build(base.Candidates(id), signals[id])
			if err != nil {
				appLog.WithError(err).WithField("category", id).Warn("Skipping category")
				continue
			}
			for _, v := range vectors {
				values := v.Values()
				cells := make([]string, len(values))
				for i, x := range values {
					cells[i] = fmt.Sprintf("%.4g", x)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", id, v.CandidateID, strings.Join(cells, "\t"))
			}
		}
		return w.Flush()
	},
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
