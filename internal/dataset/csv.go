package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/yourusername/oscar-odds/internal/blend"
	"github.com/yourusername/oscar-odds/internal/models"
)

// ErrMissingColumn is returned when a table lacks a required header
var ErrMissingColumn = errors.New("missing required column")

// probabilityPlaces is the fixed precision of probabilities written to disk
const probabilityPlaces = 6

var candidateColumns = []string{"category", "candidate_id", "nominee", "film", "nominations", "base_probability", "sentiment"}

var columnAliases = map[string]string{
	"total_nominations":    "nominations",
	"raw_nomination_count": "nominations",
	"avg_vader":            "score",
	"vader":                "score",
	"award":                "category",
}

var validate = validator.New()

type csvTable struct {
	name   string
	header map[string]int
	rows   [][]string
}

func readTable(r io.Reader, name string, required ...string) (*csvTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: empty table: %w", name, ErrMissingColumn)
	}

	t := &csvTable{name: name, header: make(map[string]int), rows: records[1:]}
	for i, h := range records[0] {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if alias, ok := columnAliases[key]; ok {
			key = alias
		}
		if _, dup := t.header[key]; !dup {
			t.header[key] = i
		}
	}
	for _, col := range required {
		if _, ok := t.header[col]; !ok {
			return nil, fmt.Errorf("%s: %w %q", name, ErrMissingColumn, col)
		}
	}
	return t, nil
}

func (t *csvTable) has(col string) bool {
	_, ok := t.header[col]
	return ok
}

func (t *csvTable) get(row []string, col string) string {
	i, ok := t.header[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// optionalFloat parses an empty cell as nil
func optionalFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func formatProbability(p float64) string {
	return decimal.NewFromFloat(p).StringFixed(probabilityPlaces)
}

func formatOptional(p *float64) string {
	if p == nil {
		return ""
	}
	return formatProbability(*p)
}

// DeriveCandidateID builds an id from a nominee when the table has none
func DeriveCandidateID(n models.Nominee) string {
	return strings.ReplaceAll(blend.NormalizeKey(n.DisplayName()), " ", "-")
}

func readCandidates(r io.Reader, name string) ([]models.Candidate, error) {
	t, err := readTable(r, name, "category", "nominations")
	if err != nil {
		return nil, err
	}
	if !t.has("nominee") && !t.has("film") {
		return nil, fmt.Errorf("%s: %w \"nominee\" or \"film\"", name, ErrMissingColumn)
	}

	candidates := make([]models.Candidate, 0, len(t.rows))
	for i, row := range t.rows {
		line := i + 2
		nominee := models.NewNominee(t.get(row, "nominee"), t.get(row, "film"))
		if nominee.DisplayName() == "" {
			return nil, fmt.Errorf("%s line %d: nominee and film are both empty: %w", name, line, models.ErrInvalidInput)
		}

		noms, err := strconv.Atoi(t.get(row, "nominations"))
		if err != nil {
			return nil, fmt.Errorf("%s line %d: invalid nominations: %w", name, line, err)
		}

		c := models.Candidate{
			CategoryID:         t.get(row, "category"),
			CandidateID:        t.get(row, "candidate_id"),
			Nominee:            nominee,
			RawNominationCount: noms,
		}
		if c.CandidateID == "" {
			c.CandidateID = DeriveCandidateID(nominee)
		}
		if c.BaseProbability, err = optionalFloat(t.get(row, "base_probability")); err != nil {
			return nil, fmt.Errorf("%s line %d: invalid base_probability: %w", name, line, err)
		}
		if c.Sentiment, err = optionalFloat(t.get(row, "sentiment")); err != nil {
			return nil, fmt.Errorf("%s line %d: invalid sentiment: %w", name, line, err)
		}
		if err := validate.Struct(c); err != nil {
			return nil, fmt.Errorf("%s line %d: %w: %v", name, line, models.ErrInvalidInput, err)
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

func writeCandidates(w io.Writer, candidates []models.Candidate) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(candidateColumns); err != nil {
		return err
	}
	for _, c := range candidates {
		record := []string{
			c.CategoryID,
			c.CandidateID,
			c.Nominee.DisplayName(),
			c.Nominee.Film,
			strconv.Itoa(c.RawNominationCount),
			formatOptional(c.BaseProbability),
			formatOptional(c.Sentiment),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
