package models

import "errors"

// Custom errors
var (
	// ErrInvalidInput indicates a category has no usable prior or malformed candidates
	ErrInvalidInput = errors.New("invalid input")

	// ErrDivisionByZero indicates every working weight collapsed to zero
	ErrDivisionByZero = errors.New("renormalization sum is zero")

	// ErrAmbiguousMatch indicates a substring matcher hit more than one candidate
	ErrAmbiguousMatch = errors.New("ambiguous candidate match")

	// ErrUnknownTier indicates a boost tier that is not in the boost table
	ErrUnknownTier = errors.New("unknown boost tier")

	// ErrDuplicateCandidate indicates two candidates share an id within a category
	ErrDuplicateCandidate = errors.New("duplicate candidate id")
)
