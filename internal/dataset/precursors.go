package dataset

import (
	"fmt"
	"io"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/yourusername/oscar-odds/internal/models"
)

// PrecursorResult is one row of a precursor award table: the winner of one
// precursor award, to be matched against the nominees of an award category.
type PrecursorResult struct {
	Stage    string `yaml:"stage" validate:"required"`
	Signal   string `yaml:"signal" validate:"required"`
	Category string `yaml:"category" validate:"required"`
	Winner   string `yaml:"winner" validate:"required"`
	Tier     string `yaml:"tier"`
	Won      *bool  `yaml:"won"`
}

// PrecursorSignal converts the row into a signal. Won defaults to true.
func (r PrecursorResult) PrecursorSignal() (models.PrecursorSignal, error) {
	tier, err := models.ParseBoostTier(r.Tier)
	if err != nil {
		return models.PrecursorSignal{}, fmt.Errorf("signal %s: %w: %q", r.Signal, err, r.Tier)
	}
	won := true
	if r.Won != nil {
		won = *r.Won
	}
	return models.PrecursorSignal{SignalName: r.Signal, Won: won, Tier: tier}, nil
}

// PrecursorTable holds one ceremony's precursor results
type PrecursorTable struct {
	Ceremony int               `yaml:"ceremony"`
	Results  []PrecursorResult `yaml:"results" validate:"dive"`
}

// ForStage returns the results of one stage in file order
func (t *PrecursorTable) ForStage(stage string) []PrecursorResult {
	var out []PrecursorResult
	for _, r := range t.Results {
		if r.Stage == stage {
			out = append(out, r)
		}
	}
	return out
}

// Stages returns the distinct stage names in first-seen order
func (t *PrecursorTable) Stages() []string {
	var stages []string
	for _, r := range t.Results {
		if !slices.Contains(stages, r.Stage) {
			stages = append(stages, r.Stage)
		}
	}
	return stages
}

func readPrecursors(r io.Reader, name string) (*PrecursorTable, error) {
	var table PrecursorTable
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&table); err != nil {
		if err == io.EOF {
			return &table, nil
		}
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	if err := validate.Struct(table); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", name, models.ErrInvalidInput, err)
	}
	for _, res := range table.Results {
		if _, err := res.PrecursorSignal(); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	return &table, nil
}
