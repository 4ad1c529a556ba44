// Package features derives the engineered per-category features used to
// score nominees: nomination share, rank and precursor win summaries.
package features

import (
	"fmt"
	"strings"

	"github.com/yourusername/oscar-odds/internal/blend"
	"github.com/yourusername/oscar-odds/internal/models"
)

// NominationNames lists the features known before any precursor is awarded.
// The base probability model is trained and scored on these only, so
// precursor wins reach the final distribution once, as boosts.
var NominationNames = []string{
	"total_nominations",
	"nomination_share",
	"nom_ratio",
	"is_top_nominated",
	"nom_rank",
}

// Names lists the full feature vector layout in order
var Names = append(append([]string(nil), NominationNames...),
	"won_gg_drama",
	"won_gg_musical",
	"won_bafta",
	"won_sag_cast",
	"total_precursor_wins",
	"has_precursor_win",
	"precursor_sweep",
)

// Vector holds one candidate's engineered features
type Vector struct {
	CandidateID        string  `json:"candidate_id"`
	TotalNominations   int     `json:"total_nominations"`
	NominationShare    float64 `json:"nomination_share"`
	NomRatio           float64 `json:"nom_ratio"`
	IsTopNominated     bool    `json:"is_top_nominated"`
	NomRank            int     `json:"nom_rank"`
	WonGGDrama         bool    `json:"won_gg_drama"`
	WonGGMusical       bool    `json:"won_gg_musical"`
	WonBAFTA           bool    `json:"won_bafta"`
	WonSAGCast         bool    `json:"won_sag_cast"`
	TotalPrecursorWins int     `json:"total_precursor_wins"`
	HasPrecursorWin    bool    `json:"has_precursor_win"`
	PrecursorSweep     bool    `json:"precursor_sweep"`
}

// NominationValues returns the nomination features in NominationNames order
func (v Vector) NominationValues() []float64 {
	return []float64{
		float64(v.TotalNominations),
		v.NominationShare,
		v.NomRatio,
		boolFloat(v.IsTopNominated),
		float64(v.NomRank),
	}
}

// Values returns the vector as floats in Names order
func (v Vector) Values() []float64 {
	return append(v.NominationValues(),
		boolFloat(v.WonGGDrama),
		boolFloat(v.WonGGMusical),
		boolFloat(v.WonBAFTA),
		boolFloat(v.WonSAGCast),
		float64(v.TotalPrecursorWins),
		boolFloat(v.HasPrecursorWin),
		boolFloat(v.PrecursorSweep),
	)
}

// Build computes feature vectors for one category, in candidate order.
// Signals are classified into precursor families by signal name.
func Build(candidates []models.Candidate, signals blend.SignalSet) ([]Vector, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates", models.ErrInvalidInput)
	}

	total, top := 0, 0
	for _, c := range candidates {
		if c.RawNominationCount < 0 {
			return nil, fmt.Errorf("%w: candidate %s has negative nomination count", models.ErrInvalidInput, c.CandidateID)
		}
		total += c.RawNominationCount
		if c.RawNominationCount > top {
			top = c.RawNominationCount
		}
	}

	vectors := make([]Vector, len(candidates))
	for i, c := range candidates {
		v := Vector{
			CandidateID:      c.CandidateID,
			TotalNominations: c.RawNominationCount,
			IsTopNominated:   c.RawNominationCount == top,
			NomRank:          minRank(candidates, c.RawNominationCount),
		}
		if total > 0 {
			v.NominationShare = float64(c.RawNominationCount) / float64(total)
			v.NomRatio = v.NominationShare
		}

		for _, s := range signals[c.CandidateID] {
			if !s.Won {
				continue
			}
			v.TotalPrecursorWins++
			switch Classify(s) {
			case FamilyGGDrama:
				v.WonGGDrama = true
			case FamilyGGMusical:
				v.WonGGMusical = true
			case FamilyBAFTA:
				v.WonBAFTA = true
			case FamilySAGCast:
				v.WonSAGCast = true
			}
		}
		v.HasPrecursorWin = v.TotalPrecursorWins > 0
		v.PrecursorSweep = (v.WonGGDrama || v.WonGGMusical) && v.WonBAFTA && v.WonSAGCast
		vectors[i] = v
	}
	return vectors, nil
}

// minRank ranks descending with ties sharing the lowest rank (1, 2, 2, 4)
func minRank(candidates []models.Candidate, noms int) int {
	rank := 1
	for _, c := range candidates {
		if c.RawNominationCount > noms {
			rank++
		}
	}
	return rank
}

// Family groups precursor signals for feature engineering
type Family string

const (
	FamilyGGDrama   Family = "gg_drama"
	FamilyGGMusical Family = "gg_musical"
	FamilyBAFTA     Family = "bafta"
	FamilySAGCast   Family = "sag_cast"
	FamilyOther     Family = "other"
)

// Classify maps a signal to its precursor family by the tokens of its name.
// Golden Globe signals are split by tier, so a musical/comedy win is not
// counted as drama. Only the SAG cast (ensemble) award counts as the guild
// leg of a sweep; other guild awards fall under FamilyOther.
func Classify(s models.PrecursorSignal) Family {
	tokens := strings.FieldsFunc(strings.ToLower(s.SignalName), func(r rune) bool {
		return r == '_' || r == '-' || r == ' ' || r == '.'
	})
	if len(tokens) == 0 {
		return FamilyOther
	}
	switch {
	case tokens[0] == "gg" || (tokens[0] == "golden" && len(tokens) > 1 && strings.HasPrefix(tokens[1], "globe")):
		if s.Tier == models.TierMusical {
			return FamilyGGMusical
		}
		return FamilyGGDrama
	case tokens[0] == "bafta":
		return FamilyBAFTA
	case tokens[0] == "sag" && (hasToken(tokens, "cast") || hasToken(tokens, "ensemble")):
		return FamilySAGCast
	default:
		return FamilyOther
	}
}

func hasToken(tokens []string, want string) bool {
	for _, t := range tokens {
		if t == want {
			return true
		}
	}
	return false
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
