package blend

import (
	"fmt"

	"github.com/yourusername/oscar-odds/internal/models"
)

// BoostTable maps a boost tier to its multiplicative factor
type BoostTable map[models.BoostTier]float64

// DefaultBoostTable returns the historical precursor factors
func DefaultBoostTable() BoostTable {
	return BoostTable{
		models.TierDrama:      1.8,
		models.TierMusical:    1.3,
		models.TierSupporting: 1.5,
		models.TierDirector:   1.6,
		models.TierScore:      1.7,
		models.TierUngrouped:  1.0,
	}
}

// Factor returns the factor for tier. The ungrouped tier is a no-op unless overridden.
func (t BoostTable) Factor(tier models.BoostTier) (float64, error) {
	if f, ok := t[tier]; ok {
		return f, nil
	}
	if tier == models.TierUngrouped {
		return 1.0, nil
	}
	return 0, fmt.Errorf("%w: %q", models.ErrUnknownTier, tier)
}

// Validate checks that every factor is a positive finite number
func (t BoostTable) Validate() error {
	for tier, f := range t {
		if !(f > 0) || f > 1e6 {
			return fmt.Errorf("boost factor for tier %q must be positive, got %v", tier, f)
		}
	}
	return nil
}

// Clone returns an independent copy of the table
func (t BoostTable) Clone() BoostTable {
	out := make(BoostTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// SentimentBoost maps a continuous sentiment score in [-1, 1] to a factor.
// Scores above VeryPositive get VeryPositiveFactor, scores above Positive get
// PositiveFactor, anything else is left unchanged.
type SentimentBoost struct {
	VeryPositive       float64 `mapstructure:"very_positive_threshold"`
	VeryPositiveFactor float64 `mapstructure:"very_positive_factor"`
	Positive           float64 `mapstructure:"positive_threshold"`
	PositiveFactor     float64 `mapstructure:"positive_factor"`
}

// DefaultSentimentBoost returns the 0.5 / 0.2 thresholds with 1.3x / 1.15x factors
func DefaultSentimentBoost() SentimentBoost {
	return SentimentBoost{
		VeryPositive:       0.5,
		VeryPositiveFactor: 1.3,
		Positive:           0.2,
		PositiveFactor:     1.15,
	}
}

// Factor returns the boost for score v
func (s SentimentBoost) Factor(v float64) float64 {
	switch {
	case v > s.VeryPositive:
		return s.VeryPositiveFactor
	case v > s.Positive:
		return s.PositiveFactor
	default:
		return 1.0
	}
}

// Validate checks threshold ordering and factor signs
func (s SentimentBoost) Validate() error {
	if s.Positive > s.VeryPositive {
		return fmt.Errorf("positive threshold %v exceeds very positive threshold %v", s.Positive, s.VeryPositive)
	}
	if !(s.PositiveFactor > 0) || !(s.VeryPositiveFactor > 0) {
		return fmt.Errorf("sentiment factors must be positive")
	}
	return nil
}
