package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/oscar-odds/internal/blend"
	"github.com/yourusername/oscar-odds/internal/config"
	"github.com/yourusername/oscar-odds/internal/logger"
	"github.com/yourusername/oscar-odds/internal/ml"
)

var (
	trainHistory string
	trainOut     string
	trainHoldout int
)

func init() {
	trainCmd.Flags().StringVar(&trainHistory, "history", "", "Past ceremonies table (defaults to data.history)")
	trainCmd.Flags().StringVarP(&trainOut, "out", "o", "", "Model output path (defaults to model.path)")
	trainCmd.Flags().IntVar(&trainHoldout, "holdout", -1, "Latest ceremonies held out for evaluation (defaults to model.train.holdout_years)")
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Fit the base probability model on past ceremonies",
	RunE: func(cmd *cobra.Command, args []string) error {
		history := firstNonEmpty(trainHistory, cfg.Data.History)
		out := firstNonEmpty(trainOut, cfg.Model.Path)
		if history == "" || out == "" {
			return fmt.Errorf("both a history table and a model output path are required")
		}
		if trainHoldout >= 0 {
			cfg.Model.Train.HoldoutYears = trainHoldout
		}
		_, err := trainModel(cmd.Context(), cfg, appLog, history, out, cmd.OutOrStdout())
		return err
	},
}

// trainModel evaluates a model fitted without the held-out ceremonies, then
// fits the saved model on the full history. The returned metrics are nil
// when nothing was held out.
func trainModel(ctx context.Context, c *config.Config, log *logrus.Logger, historyPath, out string, w io.Writer) (*ml.Metrics, error) {
	categories, err := newLoader(c, log).LoadHistory(ctx, historyPath)
	if err != nil {
		return nil, err
	}
	modelLog := logger.NewModelLogger(log)

	var evaluated *ml.Metrics
	train, test := ml.SplitByYear(categories, c.Model.Train.HoldoutYears)
	if len(train) > 0 && len(test) > 0 {
		candidate, err := ml.TrainFromHistory(train, c.Model.Version, c.Model.Train)
		if err != nil {
			return nil, fmt.Errorf("failed to fit evaluation model: %w", err)
		}
		table, err := c.BoostTable()
		if err != nil {
			return nil, err
		}
		m, err := ml.Evaluate(candidate, test, blend.NewBlender(blend.WithBoostTable(table)))
		if err != nil {
			return nil, err
		}
		modelLog.LogModelEvaluated(candidate.Version, m.Years, m.Categories, m.Accuracy, m.AUC, m.WinnerHitRate, m.BlendedHitRate)
		printEvaluation(w, m)
		evaluated = &m
	} else if c.Model.Train.HoldoutYears > 0 {
		log.WithField("holdout_years", c.Model.Train.HoldoutYears).Warn("Not enough ceremonies to hold any out, skipping evaluation")
	}

	samples, err := ml.SamplesFromHistory(categories)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	model, err := ml.TrainFromHistory(categories, c.Model.Version, c.Model.Train)
	if err != nil {
		return nil, err
	}
	modelLog.LogModelTrained(model.Version, len(categories), len(samples), time.Since(start), map[string]interface{}{
		"iterations":    c.Model.Train.Iterations,
		"learning_rate": c.Model.Train.LearningRate,
		"l2":            c.Model.Train.L2,
	})
	printImportance(w, model)

	if err := model.Save(out); err != nil {
		return nil, err
	}
	modelLog.LogModelSaved(model.Version, out)
	return evaluated, nil
}

func printEvaluation(w io.Writer, m ml.Metrics) {
	fmt.Fprintf(w, "Held-out ceremonies %v: %d categories, %d nominees\n", m.Years, m.Categories, m.Candidates)
	fmt.Fprintf(w, "  accuracy        %.3f\n", m.Accuracy)
	fmt.Fprintf(w, "  roc auc         %.3f\n", m.AUC)
	fmt.Fprintf(w, "  winners (model) %d (%.1f%%)\n", m.WinnersCorrect, 100*m.WinnerHitRate)
	fmt.Fprintf(w, "  winners (blend) %d (%.1f%%)\n\n", m.BlendedWinnersCorrect, 100*m.BlendedHitRate)
}

func printImportance(w io.Writer, model *ml.LogisticModel) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "feature\tweight")
	for _, f := range model.FeatureImportance() {
		fmt.Fprintf(tw, "%s\t%+.4f\n", f.Name, f.Weight)
	}
	_ = tw.Flush()
}
