package ml

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/oscar-odds/internal/blend"
	"github.com/yourusername/oscar-odds/internal/features"
	"github.com/yourusername/oscar-odds/internal/models"
)

// Metrics summarizes how a model does on ceremonies it was not trained on
type Metrics struct {
	Years      []int
	Categories int
	Candidates int
	// Accuracy is the share of nominees whose p >= 0.5 call matches the outcome
	Accuracy float64
	// AUC is the ROC area over all nominees; zero when only one class is present
	AUC float64
	// WinnersCorrect counts categories whose top-scored nominee won
	WinnersCorrect int
	WinnerHitRate  float64
	// BlendedWinnersCorrect counts categories whose leader after precursor
	// boosts won; only set when Evaluate is given a blender
	BlendedWinnersCorrect int
	BlendedHitRate        float64
}

// FeatureWeight is one standardized model coefficient
type FeatureWeight struct {
	Name   string
	Weight float64
}

// SplitByYear holds out the latest holdoutYears ceremonies. Categories
// keep their input order within each side.
func SplitByYear(history []Category, holdoutYears int) (train, test []Category) {
	if holdoutYears <= 0 {
		return history, nil
	}
	var years []int
	for _, c := range history {
		if !slices.Contains(years, c.Year) {
			years = append(years, c.Year)
		}
	}
	slices.Sort(years)
	if holdoutYears >= len(years) {
		return nil, history
	}
	cutoff := years[len(years)-holdoutYears]
	for _, c := range history {
		if c.Year >= cutoff {
			test = append(test, c)
		} else {
			train = append(train, c)
		}
	}
	return train, test
}

// Evaluate scores every held-out category with the model. When blender is
// non-nil each category is also blended with its precursor signals on top
// of the model's priors, measuring the full two-tier prediction.
func Evaluate(model *LogisticModel, history []Category, blender *blend.Blender) (Metrics, error) {
	var m Metrics
	var scores []float64
	var labels []bool
	correct := 0
	decided := 0

	for _, cat := range history {
		if !slices.Contains(m.Years, cat.Year) {
			m.Years = append(m.Years, cat.Year)
		}
		vectors, err := features.Build(cat.Candidates, nil)
		if err != nil {
			return m, err
		}

		priors := make([]models.Candidate, len(cat.Candidates))
		best, bestP := "", -1.0
		for i, c := range cat.Candidates {
			p, err := model.Predict(vectors[i].NominationValues())
			if err != nil {
				return m, fmt.Errorf("candidate %s: %w", c.CandidateID, err)
			}
			won := cat.Winners[c.CandidateID]
			scores = append(scores, p)
			labels = append(labels, won)
			if (p >= 0.5) == won {
				correct++
			}
			if p > bestP {
				best, bestP = c.CandidateID, p
			}
			priors[i] = c.WithBaseProbability(p)
		}

		m.Categories++
		m.Candidates += len(cat.Candidates)
		if len(cat.Winners) == 0 {
			continue
		}
		decided++
		if cat.Winners[best] {
			m.WinnersCorrect++
		}

		if blender != nil {
			dist, err := blender.Blend(priors, cat.Signals)
			if err != nil {
				return m, err
			}
			if cat.Winners[dist.Entries[0].Candidate.CandidateID] {
				m.BlendedWinnersCorrect++
			}
		}
	}

	slices.Sort(m.Years)
	if m.Candidates > 0 {
		m.Accuracy = float64(correct) / float64(m.Candidates)
	}
	if decided > 0 {
		m.WinnerHitRate = float64(m.WinnersCorrect) / float64(decided)
		m.BlendedHitRate = float64(m.BlendedWinnersCorrect) / float64(decided)
	}
	m.AUC = rocAUC(scores, labels)
	return m, nil
}

func rocAUC(scores []float64, labels []bool) float64 {
	positives := 0
	for _, l := range labels {
		if l {
			positives++
		}
	}
	if positives == 0 || positives == len(labels) {
		return 0
	}
	y := slices.Clone(scores)
	classes := slices.Clone(labels)
	stat.SortWeightedLabeled(y, classes, nil)
	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)
	auc := integrate.Trapezoidal(fpr, tpr)
	if math.IsNaN(auc) {
		return 0
	}
	return auc
}

// FeatureImportance returns the coefficients ordered by magnitude. Features
// are standardized before fitting, so magnitudes are comparable.
func (m *LogisticModel) FeatureImportance() []FeatureWeight {
	out := make([]FeatureWeight, 0, len(m.FeatureNames))
	for i, name := range m.FeatureNames {
		if i+1 >= len(m.Weights) {
			break
		}
		out = append(out, FeatureWeight{Name: name, Weight: m.Weights[i+1]})
	}
	slices.SortStableFunc(out, func(a, b FeatureWeight) int {
		return cmp.Compare(math.Abs(b.Weight), math.Abs(a.Weight))
	})
	return out
}
