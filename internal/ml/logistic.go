package ml

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Sample is one labelled training row
type Sample struct {
	Features []float64
	Label    float64
}

// TrainConfig controls gradient descent
type TrainConfig struct {
	Iterations   int     `mapstructure:"iterations" validate:"gt=0"`
	LearningRate float64 `mapstructure:"learning_rate" validate:"gt=0"`
	MinSamples   int     `mapstructure:"min_samples" validate:"gt=0"`
	L2           float64 `mapstructure:"l2" validate:"gte=0"`
	// HoldoutYears is how many of the latest ceremonies are held out for evaluation
	HoldoutYears int `mapstructure:"holdout_years" validate:"gte=0"`
}

// DefaultTrainConfig returns the settings used for the shipped model
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Iterations:   400,
		LearningRate: 0.15,
		MinSamples:   20,
		L2:           0.001,
		HoldoutYears: 1,
	}
}

// LogisticModel is a standardized-feature logistic regression. Weights[0]
// is the intercept.
type LogisticModel struct {
	Version      string    `json:"version"`
	FeatureNames []string  `json:"feature_names"`
	Weights      []float64 `json:"weights"`
	Means        []float64 `json:"means"`
	Scales       []float64 `json:"scales"`
}

// Train fits a logistic regression with batch gradient descent from zero weights
func Train(samples []Sample, featureNames []string, version string, cfg TrainConfig) (*LogisticModel, error) {
	if len(samples) < cfg.MinSamples || len(samples) == 0 {
		return nil, fmt.Errorf("%w: have %d samples, need %d", ErrInsufficientData, len(samples), cfg.MinSamples)
	}
	width := len(samples[0].Features)
	if width != len(featureNames) {
		return nil, fmt.Errorf("%w: samples have %d features, names have %d", ErrFeatureMismatch, width, len(featureNames))
	}

	positives := 0.0
	for _, s := range samples {
		if len(s.Features) != width {
			return nil, fmt.Errorf("%w: expected %d features, got %d", ErrFeatureMismatch, width, len(s.Features))
		}
		positives += s.Label
	}
	if positives == 0 || positives == float64(len(samples)) {
		return nil, ErrSingleClass
	}

	m := &LogisticModel{
		Version:      version,
		FeatureNames: append([]string(nil), featureNames...),
		Means:        make([]float64, width),
		Scales:       make([]float64, width),
		Weights:      make([]float64, width+1),
	}

	column := make([]float64, len(samples))
	for j := 0; j < width; j++ {
		for i, s := range samples {
			column[i] = s.Features[j]
		}
		mean, std := stat.MeanStdDev(column, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		m.Means[j] = mean
		m.Scales[j] = std
	}

	rows := make([][]float64, len(samples))
	for i, s := range samples {
		rows[i] = m.design(s.Features)
	}

	n := float64(len(samples))
	grad := make([]float64, width+1)
	for iter := 0; iter < cfg.Iterations; iter++ {
		for k := range grad {
			grad[k] = 0
		}
		for i, x := range rows {
			residual := sigmoid(floats.Dot(m.Weights, x)) - samples[i].Label
			floats.AddScaled(grad, residual/n, x)
		}
		for k := 1; k < len(grad); k++ {
			grad[k] += cfg.L2 * m.Weights[k]
		}
		floats.AddScaled(m.Weights, -cfg.LearningRate, grad)
	}
	return m, nil
}

// Predict returns the win probability for one feature vector
func (m *LogisticModel) Predict(features []float64) (float64, error) {
	if m == nil || len(m.Weights) == 0 {
		return 0, ErrModelNotTrained
	}
	if len(features) != len(m.Means) {
		return 0, fmt.Errorf("%w: expected %d features, got %d", ErrFeatureMismatch, len(m.Means), len(features))
	}
	return sigmoid(floats.Dot(m.Weights, m.design(features))), nil
}

// design standardizes features and prepends the intercept term
func (m *LogisticModel) design(features []float64) []float64 {
	x := make([]float64, len(features)+1)
	x[0] = 1
	for j, v := range features {
		x[j+1] = (v - m.Means[j]) / m.Scales[j]
	}
	return x
}

// Save writes the model as JSON
func (m *LogisticModel) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadModel reads a model written by Save
func LoadModel(path string) (*LogisticModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model: %w", err)
	}
	var m LogisticModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	if len(m.Weights) != len(m.Means)+1 || len(m.Means) != len(m.Scales) {
		return nil, fmt.Errorf("%w: model %s has inconsistent shapes", ErrFeatureMismatch, path)
	}
	return &m, nil
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}
