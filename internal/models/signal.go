package models

import "strings"

// BoostTier names a class of precursor signal with a fixed multiplicative factor
type BoostTier string

const (
	TierDrama      BoostTier = "drama"
	TierMusical    BoostTier = "musical"
	TierSupporting BoostTier = "supporting"
	TierDirector   BoostTier = "director"
	TierScore      BoostTier = "score"
	// TierUngrouped is a plain won flag with no tier; its factor is 1.0
	TierUngrouped BoostTier = ""
)

// AllTiers lists the named tiers in table order
var AllTiers = []BoostTier{TierDrama, TierMusical, TierSupporting, TierDirector, TierScore}

// ParseBoostTier parses a tier name; "none" and "" both map to the ungrouped tier
func ParseBoostTier(s string) (BoostTier, error) {
	switch t := BoostTier(strings.ToLower(strings.TrimSpace(s))); t {
	case TierDrama, TierMusical, TierSupporting, TierDirector, TierScore, TierUngrouped:
		return t, nil
	case "none", "ungrouped":
		return TierUngrouped, nil
	default:
		return "", ErrUnknownTier
	}
}

// PrecursorSignal records whether a candidate won a named precursor award
type PrecursorSignal struct {
	SignalName string    `json:"signal_name" yaml:"signal" validate:"required"`
	Won        bool      `json:"won" yaml:"won"`
	Tier       BoostTier `json:"boost_tier" yaml:"tier"`
}

// Applies reports whether the signal contributes a boost
func (s PrecursorSignal) Applies() bool {
	return s.Won
}
