// Package dataset loads nominee, precursor and sentiment tables and writes
// stage-tagged prediction outputs.
package dataset

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"slices"

	"github.com/yourusername/oscar-odds/internal/models"
)

// Snapshot is the base candidate set grouped by category. It is never
// modified in place; derived snapshots are new values.
type Snapshot struct {
	categories []string
	candidates map[string][]models.Candidate
}

// NewSnapshot groups candidates by category, keeping first-seen category order
func NewSnapshot(candidates []models.Candidate) *Snapshot {
	s := &Snapshot{candidates: make(map[string][]models.Candidate)}
	for _, c := range candidates {
		if _, ok := s.candidates[c.CategoryID]; !ok {
			s.categories = append(s.categories, c.CategoryID)
		}
		s.candidates[c.CategoryID] = append(s.candidates[c.CategoryID], c)
	}
	return s
}

// Categories returns category ids in input order
func (s *Snapshot) Categories() []string {
	return slices.Clone(s.categories)
}

// Candidates returns a copy of one category's candidates
func (s *Snapshot) Candidates(categoryID string) []models.Candidate {
	return slices.Clone(s.candidates[categoryID])
}

// All returns every candidate in category order
func (s *Snapshot) All() []models.Candidate {
	var out []models.Candidate
	for _, id := range s.categories {
		out = append(out, s.candidates[id]...)
	}
	return out
}

// Len returns the number of candidates
func (s *Snapshot) Len() int {
	n := 0
	for _, cs := range s.candidates {
		n += len(cs)
	}
	return n
}

// WithCategory returns a new snapshot where categoryID holds candidates
func (s *Snapshot) WithCategory(categoryID string, candidates []models.Candidate) *Snapshot {
	out := &Snapshot{
		categories: slices.Clone(s.categories),
		candidates: make(map[string][]models.Candidate, len(s.candidates)),
	}
	for id, cs := range s.candidates {
		out.candidates[id] = cs
	}
	if _, ok := out.candidates[categoryID]; !ok {
		out.categories = append(out.categories, categoryID)
	}
	out.candidates[categoryID] = slices.Clone(candidates)
	return out
}

// Encode renders the snapshot in the candidates CSV format
func (s *Snapshot) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCandidates(&buf, s.All()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Hash returns the hex SHA-256 of the encoded snapshot
func (s *Snapshot) Hash() (string, error) {
	data, err := s.Encode()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
