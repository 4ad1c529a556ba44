// Package ml provides the logistic base-probability model and its prediction cache.
package ml

import "errors"

var (
	// ErrInsufficientData indicates too few historical rows to train
	ErrInsufficientData = errors.New("insufficient training data")

	// ErrModelNotTrained indicates a prediction was requested from an empty model
	ErrModelNotTrained = errors.New("model not trained")

	// ErrFeatureMismatch indicates a feature vector of the wrong width
	ErrFeatureMismatch = errors.New("feature vector size mismatch")

	// ErrSingleClass indicates training labels are all winners or all losers
	ErrSingleClass = errors.New("training labels contain a single class")
)
