package models

import "github.com/google/uuid"

// Entry is a candidate's row in a blended category distribution
type Entry struct {
	Candidate        Candidate `json:"candidate"`
	InputIndex       int       `json:"input_index"`
	BaseProbability  float64   `json:"base_probability"`
	WorkingWeight    float64   `json:"working_weight"`
	FinalProbability float64   `json:"final_probability"`
	AppliedBoosts    []string  `json:"applied_boosts,omitempty"`
	SentimentFactor  float64   `json:"sentiment_factor"`
}

// Boosted reports whether any precursor boost was applied to the entry
func (e *Entry) Boosted() bool {
	return len(e.AppliedBoosts) > 0
}

// HasBoost reports whether the named signal was applied to the entry
func (e *Entry) HasBoost(signalName string) bool {
	for _, name := range e.AppliedBoosts {
		if name == signalName {
			return true
		}
	}
	return false
}

// CategoryDistribution is the blended, renormalized and ranked set of candidates in one category
type CategoryDistribution struct {
	RunID      uuid.UUID `json:"run_id"`
	CategoryID string    `json:"category_id"`
	Entries    []Entry   `json:"entries"`
}

// Top returns the highest ranked entry, or nil for an empty distribution
func (d *CategoryDistribution) Top() *Entry {
	if d == nil || len(d.Entries) == 0 {
		return nil
	}
	return &d.Entries[0]
}

// Probabilities returns final probabilities in ranked order
func (d *CategoryDistribution) Probabilities() []float64 {
	out := make([]float64, len(d.Entries))
	for i := range d.Entries {
		out[i] = d.Entries[i].FinalProbability
	}
	return out
}

// Lookup returns the entry for a candidate id
func (d *CategoryDistribution) Lookup(candidateID string) (*Entry, bool) {
	for i := range d.Entries {
		if d.Entries[i].Candidate.CandidateID == candidateID {
			return &d.Entries[i], true
		}
	}
	return nil, false
}

// SignalNames returns every applied signal name in first-seen order
func (d *CategoryDistribution) SignalNames() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, e := range d.Entries {
		for _, name := range e.AppliedBoosts {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	return names
}
