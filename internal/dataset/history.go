package dataset

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yourusername/oscar-odds/internal/blend"
	"github.com/yourusername/oscar-odds/internal/ml"
	"github.com/yourusername/oscar-odds/internal/models"
)

// readHistory parses past ceremonies for model training. Each row is one
// nominee; the signals column lists won precursors as "name:tier" pairs
// separated by semicolons and the winner column is 1 for the award winner.
func readHistory(r io.Reader, name string) ([]ml.Category, error) {
	t, err := readTable(r, name, "year", "category", "nominations", "winner")
	if err != nil {
		return nil, err
	}

	type key struct{ year, category string }
	var order []key
	groups := make(map[key]*ml.Category)

	for i, row := range t.rows {
		line := i + 2
		k := key{year: t.get(row, "year"), category: t.get(row, "category")}
		cat, ok := groups[k]
		if !ok {
			year, err := strconv.Atoi(k.year)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: invalid year: %w", name, line, err)
			}
			cat = &ml.Category{Year: year, Signals: blend.SignalSet{}, Winners: map[string]bool{}}
			groups[k] = cat
			order = append(order, k)
		}

		noms, err := strconv.Atoi(t.get(row, "nominations"))
		if err != nil {
			return nil, fmt.Errorf("%s line %d: invalid nominations: %w", name, line, err)
		}
		nominee := models.NewNominee(t.get(row, "nominee"), t.get(row, "film"))
		c := models.Candidate{
			CategoryID:         k.year + "/" + k.category,
			CandidateID:        t.get(row, "candidate_id"),
			Nominee:            nominee,
			RawNominationCount: noms,
		}
		if c.CandidateID == "" {
			c.CandidateID = DeriveCandidateID(nominee)
		}
		if err := validate.Struct(c); err != nil {
			return nil, fmt.Errorf("%s line %d: %w: %v", name, line, models.ErrInvalidInput, err)
		}

		signals, err := parseSignalList(t.get(row, "signals"))
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", name, line, err)
		}
		if len(signals) > 0 {
			cat.Signals[c.CandidateID] = signals
		}

		switch t.get(row, "winner") {
		case "1", "true", "yes":
			cat.Winners[c.CandidateID] = true
		}
		cat.Candidates = append(cat.Candidates, c)
	}

	history := make([]ml.Category, 0, len(order))
	for _, k := range order {
		history = append(history, *groups[k])
	}
	return history, nil
}

func parseSignalList(s string) ([]models.PrecursorSignal, error) {
	if s == "" {
		return nil, nil
	}
	var out []models.PrecursorSignal
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, tierName, _ := strings.Cut(part, ":")
		tier, err := models.ParseBoostTier(tierName)
		if err != nil {
			return nil, fmt.Errorf("signal %s: %w: %q", name, err, tierName)
		}
		out = append(out, models.PrecursorSignal{SignalName: strings.TrimSpace(name), Won: true, Tier: tier})
	}
	return out, nil
}
