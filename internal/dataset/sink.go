package dataset

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/yourusername/oscar-odds/internal/models"
)

const (
	// BaseStage is the reserved directory holding the base snapshot
	BaseStage        = "base"
	baseFileName     = "candidates.csv"
	manifestFileName = "manifest.yaml"
	workbookFileName = "predictions.xlsx"
)

var (
	// ErrBaseSnapshotChanged is returned when an output directory already
	// holds a different base snapshot
	ErrBaseSnapshotChanged = errors.New("output directory holds a different base snapshot")
	// ErrReservedStage is returned when a stage would write over the base snapshot
	ErrReservedStage = errors.New("stage name is reserved")
)

var distributionColumns = []string{"category", "candidate_id", "nominee", "film", "base_probability", "final_probability"}

// Manifest records what a run wrote
type Manifest struct {
	RunID      string              `yaml:"run_id"`
	CreatedAt  time.Time           `yaml:"created_at"`
	BaseSHA256 string              `yaml:"base_sha256"`
	Stages     []string            `yaml:"stages"`
	Outputs    map[string][]string `yaml:"outputs"`
	Skipped    map[string][]string `yaml:"skipped,omitempty"`
}

// Sink writes stage-tagged outputs under one root directory. WriteStage
// and Skip are safe for concurrent use.
type Sink struct {
	root     string
	workbook bool

	mu       sync.Mutex
	manifest Manifest
	rows     map[string]map[string][][]interface{}
}

// NewSink creates a sink rooted at root
func NewSink(root string, runID uuid.UUID, stages []string, writeWorkbook bool) *Sink {
	return &Sink{
		root:     root,
		workbook: writeWorkbook,
		manifest: Manifest{
			RunID:     runID.String(),
			CreatedAt: time.Now().UTC(),
			Stages:    slices.Clone(stages),
			Outputs:   make(map[string][]string),
			Skipped:   make(map[string][]string),
		},
		rows: make(map[string]map[string][][]interface{}),
	}
}

// WriteBase writes the base snapshot once. Writing an identical snapshot
// again is a no-op; a different snapshot is refused.
func (s *Sink) WriteBase(snap *Snapshot) (string, error) {
	data, err := snap.Encode()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	path := filepath.Join(s.root, BaseStage, baseFileName)
	existing, err := os.ReadFile(path)
	switch {
	case err == nil:
		prev := sha256.Sum256(existing)
		if hex.EncodeToString(prev[:]) != hash {
			return "", fmt.Errorf("%s: %w", path, ErrBaseSnapshotChanged)
		}
	case errors.Is(err, os.ErrNotExist):
		if err := writeFileExclusive(path, data); err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	s.mu.Lock()
	s.manifest.BaseSHA256 = hash
	s.mu.Unlock()
	return path, nil
}

// WriteStage writes one category's distribution for a stage
func (s *Sink) WriteStage(stage string, dist *models.CategoryDistribution) (string, error) {
	if stage == BaseStage {
		return "", fmt.Errorf("%q: %w", stage, ErrReservedStage)
	}
	if err := checkPathElement(stage); err != nil {
		return "", err
	}
	if err := checkPathElement(dist.CategoryID); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := writeDistribution(&buf, dist); err != nil {
		return "", err
	}
	path := filepath.Join(s.root, stage, dist.CategoryID+".csv")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.manifest.Outputs[stage] = append(s.manifest.Outputs[stage], path)
	if s.workbook {
		if s.rows[stage] == nil {
			s.rows[stage] = make(map[string][][]interface{})
		}
		s.rows[stage][dist.CategoryID] = workbookRows(dist)
	}
	return path, nil
}

// Skip records a category that produced no output for a stage
func (s *Sink) Skip(stage, categoryID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manifest.Skipped[stage] = append(s.manifest.Skipped[stage], categoryID)
}

// Manifest returns a copy of the manifest as written so far
func (s *Sink) Manifest() Manifest {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.manifest
	m.Stages = slices.Clone(m.Stages)
	m.Outputs = make(map[string][]string, len(s.manifest.Outputs))
	for k, v := range s.manifest.Outputs {
		paths := slices.Clone(v)
		slices.Sort(paths)
		m.Outputs[k] = paths
	}
	m.Skipped = make(map[string][]string, len(s.manifest.Skipped))
	for k, v := range s.manifest.Skipped {
		ids := slices.Clone(v)
		slices.Sort(ids)
		m.Skipped[k] = ids
	}
	return m
}

// Close writes the manifest and, when enabled, the workbook. It returns
// the paths written.
func (s *Sink) Close() ([]string, error) {
	manifest := s.Manifest()
	data, err := yaml.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return nil, err
	}
	manifestPath := filepath.Join(s.root, manifestFileName)
	if err := os.WriteFile(manifestPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}
	written := []string{manifestPath}

	if s.workbook {
		path := filepath.Join(s.root, workbookFileName)
		if err := s.writeWorkbook(path, manifest.Stages); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func (s *Sink) writeWorkbook(path string, stages []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := excelize.NewFile()
	defer f.Close()

	header := []interface{}{"category", "candidate_id", "nominee", "film", "base_probability", "final_probability", "boosts"}
	created := 0
	for _, stage := range stages {
		byCategory, ok := s.rows[stage]
		if !ok {
			continue
		}
		idx, err := f.NewSheet(stage)
		if err != nil {
			return fmt.Errorf("failed to add sheet %s: %w", stage, err)
		}
		if created == 0 {
			f.SetActiveSheet(idx)
		}
		created++

		if err := f.SetSheetRow(stage, "A1", &header); err != nil {
			return err
		}
		categories := make([]string, 0, len(byCategory))
		for id := range byCategory {
			categories = append(categories, id)
		}
		slices.Sort(categories)

		rowIdx := 2
		for _, id := range categories {
			for _, row := range byCategory[id] {
				cell, _ := excelize.CoordinatesToCellName(1, rowIdx)
				if err := f.SetSheetRow(stage, cell, &row); err != nil {
					return err
				}
				rowIdx++
			}
		}
	}
	if created > 0 {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return err
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func workbookRows(dist *models.CategoryDistribution) [][]interface{} {
	rows := make([][]interface{}, 0, len(dist.Entries))
	for _, e := range dist.Entries {
		rows = append(rows, []interface{}{
			dist.CategoryID,
			e.Candidate.CandidateID,
			e.Candidate.Nominee.DisplayName(),
			e.Candidate.Nominee.Film,
			e.BaseProbability,
			e.FinalProbability,
			strings.Join(e.AppliedBoosts, ";"),
		})
	}
	return rows
}

func writeDistribution(w io.Writer, dist *models.CategoryDistribution) error {
	signals := dist.SignalNames()
	cw := csv.NewWriter(w)
	if err := cw.Write(append(slices.Clone(distributionColumns), signals...)); err != nil {
		return err
	}
	for _, e := range dist.Entries {
		record := []string{
			dist.CategoryID,
			e.Candidate.CandidateID,
			e.Candidate.Nominee.DisplayName(),
			e.Candidate.Nominee.Film,
			formatProbability(e.BaseProbability),
			formatProbability(e.FinalProbability),
		}
		for _, name := range signals {
			if e.HasBoost(name) {
				record = append(record, "1")
			} else {
				record = append(record, "0")
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadDistribution reads a stage file back. Probabilities land on the
// entries only; the candidates never carry them as base probabilities.
func ReadDistribution(path string) (*models.CategoryDistribution, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	t, err := readTable(f, path, distributionColumns...)
	if err != nil {
		return nil, err
	}
	fixed := make(map[int]bool, len(distributionColumns))
	for _, col := range distributionColumns {
		fixed[t.header[col]] = true
	}
	signalCols := make(map[string]int)
	for col, i := range t.header {
		if !fixed[i] {
			signalCols[col] = i
		}
	}
	signalNames := make([]string, 0, len(signalCols))
	for name := range signalCols {
		signalNames = append(signalNames, name)
	}
	slices.SortFunc(signalNames, func(a, b string) int { return signalCols[a] - signalCols[b] })

	dist := &models.CategoryDistribution{}
	for i, row := range t.rows {
		base, err := strconv.ParseFloat(t.get(row, "base_probability"), 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: invalid base_probability: %w", path, i+2, err)
		}
		final, err := strconv.ParseFloat(t.get(row, "final_probability"), 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: invalid final_probability: %w", path, i+2, err)
		}
		entry := models.Entry{
			Candidate: models.Candidate{
				CategoryID:  t.get(row, "category"),
				CandidateID: t.get(row, "candidate_id"),
				Nominee:     models.NewNominee(t.get(row, "nominee"), t.get(row, "film")),
			},
			InputIndex:       i,
			BaseProbability:  base,
			FinalProbability: final,
			SentimentFactor:  1.0,
		}
		for _, name := range signalNames {
			if t.get(row, name) == "1" {
				entry.AppliedBoosts = append(entry.AppliedBoosts, name)
			}
		}
		dist.CategoryID = entry.Candidate.CategoryID
		dist.Entries = append(dist.Entries, entry)
	}
	return dist, nil
}

// ReadStage reads every category file of a stage directory
func ReadStage(dir string) ([]*models.CategoryDistribution, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, err
	}
	slices.Sort(paths)
	out := make([]*models.CategoryDistribution, 0, len(paths))
	for _, path := range paths {
		dist, err := ReadDistribution(path)
		if err != nil {
			return nil, err
		}
		out = append(out, dist)
	}
	return out, nil
}

func checkPathElement(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q is not a valid file name", models.ErrInvalidInput, name)
	}
	return nil
}

func writeFileExclusive(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
