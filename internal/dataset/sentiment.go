package dataset

import (
	"fmt"
	"io"
	"strconv"

	"github.com/yourusername/oscar-odds/internal/blend"
	"github.com/yourusername/oscar-odds/internal/models"
)

// SentimentScore is a compound sentiment score in [-1, 1] for one nominee
// of a sentiment category.
type SentimentScore struct {
	Category string  `validate:"required"`
	Target   string  `validate:"required"`
	Score    float64 `validate:"gte=-1,lte=1"`
}

func readSentiment(r io.Reader, name string) ([]SentimentScore, error) {
	t, err := readTable(r, name, "category", "score")
	if err != nil {
		return nil, err
	}

	var targetCol string
	for _, col := range []string{"candidate_id", "film", "nominee"} {
		if t.has(col) {
			targetCol = col
			break
		}
	}
	if targetCol == "" {
		return nil, fmt.Errorf("%s: %w \"candidate_id\", \"film\" or \"nominee\"", name, ErrMissingColumn)
	}

	scores := make([]SentimentScore, 0, len(t.rows))
	for i, row := range t.rows {
		v, err := strconv.ParseFloat(t.get(row, "score"), 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: invalid score: %w", name, i+2, err)
		}
		s := SentimentScore{Category: t.get(row, "category"), Target: t.get(row, targetCol), Score: v}
		if err := validate.Struct(s); err != nil {
			return nil, fmt.Errorf("%s line %d: %w: %v", name, i+2, models.ErrInvalidInput, err)
		}
		scores = append(scores, s)
	}
	return scores, nil
}

// ApplySentiment returns a snapshot whose candidates carry the matching
// sentiment scores, plus the scores that matched no candidate. categoryMap
// maps award categories to sentiment categories; unmapped categories use
// their own id. A score applies to every nominee of the film it names.
func ApplySentiment(snap *Snapshot, scores []SentimentScore, categoryMap map[string]string) (*Snapshot, []SentimentScore) {
	matcher := blend.Matcher{Mode: blend.MatchExact, AllowMultiMatch: true, MatchFilm: true}
	used := make([]bool, len(scores))

	out := snap
	for _, categoryID := range snap.Categories() {
		sentimentCategory := categoryID
		if mapped, ok := categoryMap[categoryID]; ok {
			sentimentCategory = mapped
		}

		candidates := snap.Candidates(categoryID)
		changed := false
		for i, s := range scores {
			if s.Category != sentimentCategory {
				continue
			}
			for _, idx := range matcher.Match(candidates, s.Target) {
				candidates[idx].Sentiment = models.Float(s.Score)
				changed = true
				used[i] = true
			}
		}
		if changed {
			out = out.WithCategory(categoryID, candidates)
		}
	}

	var unmatched []SentimentScore
	for i, s := range scores {
		if !used[i] {
			unmatched = append(unmatched, s)
		}
	}
	return out, unmatched
}
