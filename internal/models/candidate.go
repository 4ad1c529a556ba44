package models

import "fmt"

// NomineeKind distinguishes nominated people from nominated works
type NomineeKind string

const (
	// NomineeKindPerson is an individual nominated for a film
	NomineeKindPerson NomineeKind = "person"
	// NomineeKindWork is a film (or song, or other work) nominated on its own
	NomineeKindWork NomineeKind = "work"
)

// Nominee identifies what was nominated. It is resolved once at ingestion:
// a row with a person name is a Person, a row with only a film is a Work.
type Nominee struct {
	Kind NomineeKind `json:"kind" yaml:"kind"`
	Name string      `json:"name,omitempty" yaml:"name,omitempty"`
	Film string      `json:"film" yaml:"film"`
}

// Person builds a person nominee
func Person(name, film string) Nominee {
	return Nominee{Kind: NomineeKindPerson, Name: name, Film: film}
}

// Work builds a work nominee
func Work(film string) Nominee {
	return Nominee{Kind: NomineeKindWork, Film: film}
}

// NewNominee resolves a nominee from the loose nominee/film columns of a data row
func NewNominee(name, film string) Nominee {
	if name == "" || name == film {
		return Work(film)
	}
	return Person(name, film)
}

// IsPerson reports whether the nominee is an individual
func (n Nominee) IsPerson() bool {
	return n.Kind == NomineeKindPerson
}

// DisplayName returns the person's name for people and the title for works
func (n Nominee) DisplayName() string {
	if n.IsPerson() {
		return n.Name
	}
	return n.Film
}

// String implements fmt.Stringer
func (n Nominee) String() string {
	if n.IsPerson() && n.Film != "" {
		return fmt.Sprintf("%s (%s)", n.Name, n.Film)
	}
	return n.DisplayName()
}

// Candidate is one nominee within one award category of one ceremony
type Candidate struct {
	CategoryID         string   `json:"category_id" validate:"required"`
	CandidateID        string   `json:"candidate_id" validate:"required"`
	Nominee            Nominee  `json:"nominee"`
	RawNominationCount int      `json:"raw_nomination_count" validate:"gte=0"`
	BaseProbability    *float64 `json:"base_probability,omitempty" validate:"omitempty,gte=0,lte=1"`
	Sentiment          *float64 `json:"sentiment,omitempty" validate:"omitempty,gte=-1,lte=1"`
}

// HasBaseProbability reports whether an external base probability was supplied
func (c *Candidate) HasBaseProbability() bool {
	return c.BaseProbability != nil
}

// WithBaseProbability returns a copy of the candidate carrying p as its base probability
func (c Candidate) WithBaseProbability(p float64) Candidate {
	c.BaseProbability = &p
	return c
}

// Float returns a pointer to v, for optional float fields
func Float(v float64) *float64 {
	return &v
}
