// Package report renders blended distributions for the terminal and for
// spreadsheets.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"

	"github.com/yourusername/oscar-odds/internal/models"
)

// Stats summarizes the shape of one category distribution
type Stats struct {
	Max     float64
	Median  float64
	StdDev  float64
	Entropy float64
	// Margin is the gap between the two leading candidates
	Margin float64
}

// DistributionStats computes shape statistics over final probabilities
func DistributionStats(dist *models.CategoryDistribution) (Stats, error) {
	data := stats.Float64Data(dist.Probabilities())

	var s Stats
	var err error
	if s.Max, err = stats.Max(data); err != nil {
		return s, err
	}
	if s.Median, err = stats.Median(data); err != nil {
		return s, err
	}
	if s.StdDev, err = stats.StandardDeviation(data); err != nil {
		return s, err
	}
	if s.Entropy, err = stats.Entropy(data); err != nil {
		return s, err
	}
	if len(data) > 1 {
		s.Margin = data[0] - data[1]
	} else {
		s.Margin = data[0]
	}
	return s, nil
}

// SummaryRow is the predicted winner of one category
type SummaryRow struct {
	Category    string
	Winner      string
	Film        string
	Probability float64
	Boosted     bool
	Stats       Stats
}

// Summarize returns one row per category, ordered by category id
func Summarize(dists []*models.CategoryDistribution) ([]SummaryRow, error) {
	rows := make([]SummaryRow, 0, len(dists))
	for _, dist := range dists {
		top := dist.Top()
		if top == nil {
			continue
		}
		st, err := DistributionStats(dist)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", dist.CategoryID, err)
		}
		rows = append(rows, SummaryRow{
			Category:    dist.CategoryID,
			Winner:      top.Candidate.Nominee.DisplayName(),
			Film:        top.Candidate.Nominee.Film,
			Probability: top.FinalProbability,
			Boosted:     top.Boosted(),
			Stats:       st,
		})
	}
	slices.SortFunc(rows, func(a, b SummaryRow) int { return strings.Compare(a.Category, b.Category) })
	return rows, nil
}

// GenerateConsoleReport formats the top candidates of every category
func GenerateConsoleReport(stage string, dists []*models.CategoryDistribution, topN int) string {
	var builder strings.Builder
	title := fmt.Sprintf("Predictions after %s", stage)
	builder.WriteString(title + "\n")
	builder.WriteString(strings.Repeat("=", len(title)) + "\n")

	for _, dist := range dists {
		builder.WriteString(fmt.Sprintf("\n%s\n", dist.CategoryID))
		n := len(dist.Entries)
		if topN > 0 && topN < n {
			n = topN
		}
		for i, e := range dist.Entries[:n] {
			line := fmt.Sprintf("  %d. %-32s %6.1f%%", i+1, e.Candidate.Nominee.String(), e.FinalProbability*100)
			if e.Boosted() {
				line += fmt.Sprintf("  [%s]", strings.Join(e.AppliedBoosts, ", "))
			}
			builder.WriteString(line + "\n")
		}
	}
	return builder.String()
}

// GenerateSummaryTable formats summary rows as an aligned table
func GenerateSummaryTable(rows []SummaryRow) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("%-36s %-32s %8s %8s %8s\n", "CATEGORY", "PREDICTED WINNER", "PROB", "MARGIN", "BOOSTED"))
	for _, r := range rows {
		boosted := "no"
		if r.Boosted {
			boosted = "yes"
		}
		builder.WriteString(fmt.Sprintf("%-36s %-32s %7.1f%% %7.1f%% %8s\n",
			r.Category, r.Winner, r.Probability*100, r.Stats.Margin*100, boosted))
	}
	return builder.String()
}

// WriteSummaryCSV exports summary rows for spreadsheets
func WriteSummaryCSV(rows []SummaryRow, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	_ = w.Write([]string{"category", "predicted_winner", "film", "probability", "boosted", "margin", "entropy", "std_dev"})
	for _, r := range rows {
		_ = w.Write([]string{
			r.Category,
			r.Winner,
			r.Film,
			fixed(r.Probability),
			strconv.FormatBool(r.Boosted),
			fixed(r.Stats.Margin),
			fixed(r.Stats.Entropy),
			fixed(r.Stats.StdDev),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func fixed(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(4)
}
