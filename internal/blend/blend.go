// Package blend turns nominee priors and precursor-award results into a
// renormalized win probability distribution for one award category.
package blend

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"

	"github.com/yourusername/oscar-odds/internal/models"
)

// SignalSet holds the precursor signals attached to each candidate id
type SignalSet map[string][]models.PrecursorSignal

// Clone returns a copy whose per-candidate slices can be appended to independently
func (s SignalSet) Clone() SignalSet {
	out := make(SignalSet, len(s))
	for id, signals := range s {
		out[id] = slices.Clone(signals)
	}
	return out
}

// Count returns the total number of attached signals
func (s SignalSet) Count() int {
	n := 0
	for _, signals := range s {
		n += len(signals)
	}
	return n
}

// Blender applies a boost table, and optionally sentiment, to category priors
type Blender struct {
	table     BoostTable
	sentiment *SentimentBoost
	events    EventSink
	runID     uuid.UUID
}

// Option configures a Blender
type Option func(*Blender)

// WithBoostTable replaces the default boost table
func WithBoostTable(table BoostTable) Option {
	return func(b *Blender) {
		b.table = table.Clone()
	}
}

// WithSentiment enables the sentiment pass for candidates that carry a score
func WithSentiment(s SentimentBoost) Option {
	return func(b *Blender) {
		b.sentiment = &s
	}
}

// WithEventSink routes unmatched and ambiguous signal events to sink
func WithEventSink(sink EventSink) Option {
	return func(b *Blender) {
		if sink != nil {
			b.events = sink
		}
	}
}

// WithRunID stamps every distribution produced by the blender
func WithRunID(id uuid.UUID) Option {
	return func(b *Blender) {
		b.runID = id
	}
}

// NewBlender creates a blender with the default boost table and no sentiment pass
func NewBlender(opts ...Option) *Blender {
	b := &Blender{
		table:  DefaultBoostTable(),
		events: NopEventSink{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Blend blends candidates with the default blender
func Blend(candidates []models.Candidate, signals SignalSet) (*models.CategoryDistribution, error) {
	return NewBlender().Blend(candidates, signals)
}

// Blend computes the category distribution. Inputs are never modified.
func (b *Blender) Blend(candidates []models.Candidate, signals SignalSet) (*models.CategoryDistribution, error) {
	categoryID, err := validateCandidates(candidates)
	if err != nil {
		return nil, err
	}

	priors, err := Priors(candidates)
	if err != nil {
		return nil, err
	}

	b.reportOrphans(categoryID, candidates, signals)

	entries := make([]models.Entry, len(candidates))
	weights := make([]float64, len(candidates))
	for i, c := range candidates {
		entry := models.Entry{
			Candidate:       c,
			InputIndex:      i,
			BaseProbability: priors[i],
			SentimentFactor: 1.0,
		}

		factor, applied, err := b.signalFactor(signals[c.CandidateID])
		if err != nil {
			return nil, fmt.Errorf("category %s candidate %s: %w", categoryID, c.CandidateID, err)
		}
		entry.AppliedBoosts = applied

		if b.sentiment != nil && c.Sentiment != nil {
			entry.SentimentFactor = b.sentiment.Factor(*c.Sentiment)
			factor *= entry.SentimentFactor
		}

		entry.WorkingWeight = priors[i] * factor
		weights[i] = entry.WorkingWeight
		entries[i] = entry
	}

	total := floats.Sum(weights)
	if total == 0 {
		return nil, fmt.Errorf("category %s: %w", categoryID, models.ErrDivisionByZero)
	}
	if math.IsInf(total, 0) || math.IsNaN(total) {
		return nil, fmt.Errorf("category %s: working weights are not finite: %w", categoryID, models.ErrInvalidInput)
	}
	for i := range entries {
		entries[i].FinalProbability = entries[i].WorkingWeight / total
	}

	slices.SortStableFunc(entries, func(a, b models.Entry) int {
		return cmp.Compare(b.FinalProbability, a.FinalProbability)
	})

	return &models.CategoryDistribution{
		RunID:      b.runID,
		CategoryID: categoryID,
		Entries:    entries,
	}, nil
}

// signalFactor multiplies the factors of every won signal. The product is
// taken over factors sorted ascending so the result does not depend on the
// order signals were attached in, down to the last bit.
func (b *Blender) signalFactor(signals []models.PrecursorSignal) (float64, []string, error) {
	var factors []float64
	var applied []string
	for _, s := range signals {
		if !s.Applies() {
			continue
		}
		f, err := b.table.Factor(s.Tier)
		if err != nil {
			return 0, nil, err
		}
		factors = append(factors, f)
		applied = append(applied, s.SignalName)
	}
	sort.Float64s(factors)
	sort.Strings(applied)

	product := 1.0
	for _, f := range factors {
		product *= f
	}
	return product, applied, nil
}

func (b *Blender) reportOrphans(categoryID string, candidates []models.Candidate, signals SignalSet) {
	known := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		known[c.CandidateID] = struct{}{}
	}
	ids := make([]string, 0, len(signals))
	for id := range signals {
		if _, ok := known[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		for _, s := range signals[id] {
			b.events.UnmatchedSignal(categoryID, id, s)
		}
	}
}

// Priors returns each candidate's starting probability: its base probability
// when supplied, otherwise its share of the category's nominations.
func Priors(candidates []models.Candidate) ([]float64, error) {
	total := 0
	missing := 0
	for _, c := range candidates {
		total += c.RawNominationCount
		if !c.HasBaseProbability() {
			missing++
		}
	}
	if missing > 0 && total == 0 {
		return nil, fmt.Errorf("%w: all nomination counts are zero and %d of %d candidates lack a base probability",
			models.ErrInvalidInput, missing, len(candidates))
	}

	priors := make([]float64, len(candidates))
	for i, c := range candidates {
		if c.HasBaseProbability() {
			priors[i] = *c.BaseProbability
			continue
		}
		priors[i] = float64(c.RawNominationCount) / float64(total)
	}
	return priors, nil
}

func validateCandidates(candidates []models.Candidate) (string, error) {
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates", models.ErrInvalidInput)
	}
	categoryID := candidates[0].CategoryID
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if c.CategoryID != categoryID {
			return "", fmt.Errorf("%w: candidate %s belongs to %q, expected %q",
				models.ErrInvalidInput, c.CandidateID, c.CategoryID, categoryID)
		}
		if _, ok := seen[c.CandidateID]; ok {
			return "", fmt.Errorf("%w: %w: %q in %s", models.ErrInvalidInput, models.ErrDuplicateCandidate, c.CandidateID, categoryID)
		}
		seen[c.CandidateID] = struct{}{}
		if c.RawNominationCount < 0 {
			return "", fmt.Errorf("%w: candidate %s has negative nomination count %d",
				models.ErrInvalidInput, c.CandidateID, c.RawNominationCount)
		}
		if c.BaseProbability != nil {
			p := *c.BaseProbability
			if math.IsNaN(p) || p < 0 || p > 1 {
				return "", fmt.Errorf("%w: candidate %s base probability %v outside [0,1]",
					models.ErrInvalidInput, c.CandidateID, p)
			}
		}
		if c.Sentiment != nil {
			v := *c.Sentiment
			if math.IsNaN(v) || v < -1 || v > 1 {
				return "", fmt.Errorf("%w: candidate %s sentiment %v outside [-1,1]",
					models.ErrInvalidInput, c.CandidateID, v)
			}
		}
	}
	return categoryID, nil
}
