package blend

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/yourusername/oscar-odds/internal/models"
)

// MatchMode selects how a signal's target name is compared to candidates
type MatchMode string

const (
	// MatchExact compares normalized keys for equality
	MatchExact MatchMode = "exact"
	// MatchSubstring accepts any candidate whose normalized key contains the target.
	// "Anna" matches both "Anna" and "Anna Marie", so multiple hits fail unless
	// AllowMultiMatch is set.
	MatchSubstring MatchMode = "substring"
)

// ParseMatchMode parses a match mode name
func ParseMatchMode(s string) (MatchMode, error) {
	switch m := MatchMode(strings.ToLower(strings.TrimSpace(s))); m {
	case MatchExact, MatchSubstring:
		return m, nil
	case "":
		return MatchExact, nil
	default:
		return "", fmt.Errorf("unknown match mode %q", s)
	}
}

// Matcher resolves a winner name to candidates within a category
type Matcher struct {
	Mode MatchMode
	// AllowMultiMatch boosts every hit instead of failing on an ambiguous match
	AllowMultiMatch bool
	// MatchFilm also compares against a person nominee's film title
	MatchFilm bool
}

// ExactMatcher returns the default matcher
func ExactMatcher() Matcher {
	return Matcher{Mode: MatchExact}
}

// NormalizeKey applies compatibility decomposition, strips diacritics, folds
// case and collapses whitespace, so "Ludwig Göransson" and "ludwig  goransson"
// share a key.
func NormalizeKey(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return strings.Join(strings.Fields(cases.Fold().String(stripped)), " ")
}

func (m Matcher) keys(c models.Candidate) []string {
	keys := []string{NormalizeKey(c.CandidateID), NormalizeKey(c.Nominee.DisplayName())}
	if m.MatchFilm && c.Nominee.IsPerson() {
		keys = append(keys, NormalizeKey(c.Nominee.Film))
	}
	return keys
}

// Match returns the indices of the candidates that target resolves to
func (m Matcher) Match(candidates []models.Candidate, target string) []int {
	want := NormalizeKey(target)
	if want == "" {
		return nil
	}
	var hits []int
	for i, c := range candidates {
		for _, key := range m.keys(c) {
			if key == "" {
				continue
			}
			if key == want || (m.Mode == MatchSubstring && strings.Contains(key, want)) {
				hits = append(hits, i)
				break
			}
		}
	}
	return hits
}

// AttachResult describes where a signal landed
type AttachResult struct {
	Target    string
	Matched   []string
	Ambiguous bool
}

// Unmatched reports whether no candidate received the signal
func (r AttachResult) Unmatched() bool {
	return len(r.Matched) == 0
}

// AttachSignal returns a copy of signals with signal attached to every
// candidate matching target. The input set is not modified. A signal that
// matches nobody is reported as an event, not an error. Attaching a signal
// name a candidate already holds is a no-op, so replaying a stage cannot
// compound its boost, except that a win replaces a held loss of that name.
func (b *Blender) AttachSignal(signals SignalSet, candidates []models.Candidate, matcher Matcher, target string, signal models.PrecursorSignal) (SignalSet, AttachResult, error) {
	result := AttachResult{Target: target}
	categoryID := ""
	if len(candidates) > 0 {
		categoryID = candidates[0].CategoryID
	}

	if _, err := b.table.Factor(signal.Tier); err != nil {
		return signals, result, err
	}

	hits := matcher.Match(candidates, target)
	if len(hits) == 0 {
		b.events.UnmatchedSignal(categoryID, target, signal)
		return signals, result, nil
	}

	ids := make([]string, len(hits))
	for i, idx := range hits {
		ids[i] = candidates[idx].CandidateID
	}
	if len(hits) > 1 {
		result.Ambiguous = true
		if !matcher.AllowMultiMatch {
			return signals, result, fmt.Errorf("%w: %q matched %s in %s",
				models.ErrAmbiguousMatch, target, strings.Join(ids, ", "), categoryID)
		}
		b.events.AmbiguousMatch(categoryID, target, signal, ids)
	}

	out := signals.Clone()
	for _, id := range ids {
		i := indexOf(out[id], signal.SignalName)
		switch {
		case i < 0:
			out[id] = append(out[id], signal)
		case signal.Won && !out[id][i].Won:
			out[id][i] = signal
		}
	}
	result.Matched = ids
	return out, result, nil
}

func indexOf(signals []models.PrecursorSignal, name string) int {
	for i, s := range signals {
		if s.SignalName == name {
			return i
		}
	}
	return -1
}
