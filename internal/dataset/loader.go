package dataset

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/oscar-odds/internal/ml"
)

// Loader reads input tables from local files or http(s) URLs
type Loader struct {
	client *HTTPClient
	logger *logrus.Entry
}

// NewLoader creates a loader; client may be nil when every source is local
func NewLoader(client *HTTPClient, logger *logrus.Logger) *Loader {
	if logger == nil {
		logger = logrus.New()
	}
	return &Loader{client: client, logger: logger.WithField("component", "dataset")}
}

// IsRemote reports whether location is fetched over HTTP
func IsRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

func (l *Loader) open(ctx context.Context, location string) (io.ReadCloser, error) {
	if !IsRemote(location) {
		f, err := os.Open(location)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", location, err)
		}
		return f, nil
	}
	if l.client == nil {
		return nil, fmt.Errorf("remote source %s requires an HTTP client", location)
	}
	resp, err := l.client.Get(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", location, err)
	}
	return resp.Body, nil
}

func (l *Loader) read(ctx context.Context, location string, parse func(io.Reader) error) error {
	rc, err := l.open(ctx, location)
	if err != nil {
		return err
	}
	defer rc.Close()
	return parse(rc)
}

// LoadCandidates reads the candidates table into a base snapshot
func (l *Loader) LoadCandidates(ctx context.Context, location string) (*Snapshot, error) {
	var snap *Snapshot
	err := l.read(ctx, location, func(r io.Reader) error {
		candidates, err := readCandidates(r, location)
		if err != nil {
			return err
		}
		snap = NewSnapshot(candidates)
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.logger.WithFields(logrus.Fields{
		"source":     location,
		"categories": len(snap.Categories()),
		"candidates": snap.Len(),
	}).Info("Loaded candidates")
	return snap, nil
}

// LoadPrecursors reads a precursor results table
func (l *Loader) LoadPrecursors(ctx context.Context, location string) (*PrecursorTable, error) {
	var table *PrecursorTable
	err := l.read(ctx, location, func(r io.Reader) error {
		var err error
		table, err = readPrecursors(r, location)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.logger.WithFields(logrus.Fields{
		"source":   location,
		"ceremony": table.Ceremony,
		"results":  len(table.Results),
	}).Info("Loaded precursor results")
	return table, nil
}

// LoadSentiment reads a sentiment score table
func (l *Loader) LoadSentiment(ctx context.Context, location string) ([]SentimentScore, error) {
	var scores []SentimentScore
	err := l.read(ctx, location, func(r io.Reader) error {
		var err error
		scores, err = readSentiment(r, location)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.logger.WithFields(logrus.Fields{"source": location, "scores": len(scores)}).Info("Loaded sentiment scores")
	return scores, nil
}

// LoadHistory reads past ceremonies for model training
func (l *Loader) LoadHistory(ctx context.Context, location string) ([]ml.Category, error) {
	var history []ml.Category
	err := l.read(ctx, location, func(r io.Reader) error {
		var err error
		history, err = readHistory(r, location)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.logger.WithFields(logrus.Fields{"source": location, "categories": len(history)}).Info("Loaded training history")
	return history, nil
}
