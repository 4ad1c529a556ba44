package ml

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/oscar-odds/internal/blend"
	"github.com/yourusername/oscar-odds/internal/features"
	"github.com/yourusername/oscar-odds/internal/metrics"
	"github.com/yourusername/oscar-odds/internal/models"
)

// Category is one historical category with its known outcome
type Category struct {
	Year       int
	Candidates []models.Candidate
	Signals    blend.SignalSet
	Winners    map[string]bool
}

// SamplesFromHistory turns historical categories into labelled rows of
// nomination features. Precursor signals are left out: they are applied as
// boosts after scoring and would otherwise count twice.
func SamplesFromHistory(history []Category) ([]Sample, error) {
	var samples []Sample
	for _, cat := range history {
		vectors, err := features.Build(cat.Candidates, nil)
		if err != nil {
			return nil, err
		}
		for _, v := range vectors {
			label := 0.0
			if cat.Winners[v.CandidateID] {
				label = 1.0
			}
			samples = append(samples, Sample{Features: v.NominationValues(), Label: label})
		}
	}
	return samples, nil
}

// TrainFromHistory builds samples from history and fits a model on them
func TrainFromHistory(history []Category, version string, cfg TrainConfig) (*LogisticModel, error) {
	samples, err := SamplesFromHistory(history)
	if err != nil {
		return nil, fmt.Errorf("failed to build training samples: %w", err)
	}
	return Train(samples, features.NominationNames, version, cfg)
}

// Scorer fills missing base probabilities from a trained model
type Scorer struct {
	model  *LogisticModel
	cache  *PredictionCache
	logger *logrus.Entry
}

// NewScorer creates a scorer; cache may be nil
func NewScorer(model *LogisticModel, cache *PredictionCache, logger *logrus.Logger) *Scorer {
	return &Scorer{
		model:  model,
		cache:  cache,
		logger: logger.WithField("component", "ml"),
	}
}

// ScoreCategory returns the model probability for every candidate, in input order
func (s *Scorer) ScoreCategory(candidates []models.Candidate) ([]float64, error) {
	vectors, err := features.Build(candidates, nil)
	if err != nil {
		return nil, err
	}

	probs := make([]float64, len(candidates))
	for i, c := range candidates {
		values := vectors[i].NominationValues()
		key := CacheKey{
			CategoryID:   c.CategoryID,
			CandidateID:  c.CandidateID,
			ModelVersion: s.model.Version,
			Features:     EncodeFeatures(values),
		}
		if s.cache != nil {
			if p, ok := s.cache.Get(key); ok {
				metrics.RecordModelPrediction(true)
				probs[i] = p
				continue
			}
		}

		p, err := s.model.Predict(values)
		if err != nil {
			return nil, fmt.Errorf("candidate %s: %w", c.CandidateID, err)
		}
		metrics.RecordModelPrediction(false)
		if s.cache != nil {
			s.cache.Set(key, p)
		}
		probs[i] = p
	}

	s.logger.WithFields(logrus.Fields{
		"category":      candidates[0].CategoryID,
		"candidates":    len(candidates),
		"model_version": s.model.Version,
	}).Debug("Scored category")
	return probs, nil
}

// FillBaseProbabilities returns a copy of candidates where every candidate
// without a base probability carries the model's score for it.
func (s *Scorer) FillBaseProbabilities(candidates []models.Candidate) ([]models.Candidate, error) {
	out := make([]models.Candidate, len(candidates))
	copy(out, candidates)

	missing := false
	for _, c := range candidates {
		if !c.HasBaseProbability() {
			missing = true
			break
		}
	}
	if !missing {
		return out, nil
	}

	probs, err := s.ScoreCategory(candidates)
	if err != nil {
		return nil, err
	}
	for i := range out {
		if !out[i].HasBaseProbability() {
			out[i] = out[i].WithBaseProbability(probs[i])
		}
	}
	return out, nil
}
