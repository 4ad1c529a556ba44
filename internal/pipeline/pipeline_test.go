package pipeline

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/oscar-odds/internal/blend"
	"github.com/yourusername/oscar-odds/internal/dataset"
	"github.com/yourusername/oscar-odds/internal/features"
	"github.com/yourusername/oscar-odds/internal/ml"
	"github.com/yourusername/oscar-odds/internal/models"
)

type memorySink struct {
	mu      sync.Mutex
	bases   int
	stages  map[string]map[string]*models.CategoryDistribution
	skipped map[string][]string
}

func newMemorySink() *memorySink {
	return &memorySink{
		stages:  make(map[string]map[string]*models.CategoryDistribution),
		skipped: make(map[string][]string),
	}
}

func (m *memorySink) WriteBase(*dataset.Snapshot) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bases++
	return "base", nil
}

func (m *memorySink) WriteStage(stage string, dist *models.CategoryDistribution) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stages[stage] == nil {
		m.stages[stage] = make(map[string]*models.CategoryDistribution)
	}
	m.stages[stage][dist.CategoryID] = dist
	return stage + "/" + dist.CategoryID, nil
}

func (m *memorySink) Skip(stage, categoryID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skipped[stage] = append(m.skipped[stage], categoryID)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func film(category, id string, noms int) models.Candidate {
	return models.Candidate{CategoryID: category, CandidateID: id, Nominee: models.Work(id), RawNominationCount: noms}
}

func testBase() *dataset.Snapshot {
	return dataset.NewSnapshot([]models.Candidate{
		film("best_picture", "Sinners", 15),
		film("best_picture", "Hamnet", 9),
		film("best_picture", "Bugonia", 2),
		{CategoryID: "best_director", CandidateID: "zhao", Nominee: models.Person("Chloé Zhao", "Hamnet"), RawNominationCount: 9},
		{CategoryID: "best_director", CandidateID: "coogler", Nominee: models.Person("Ryan Coogler", "Sinners"), RawNominationCount: 15},
	})
}

func result(stage, signal, category, winner string, tier models.BoostTier) dataset.PrecursorResult {
	return dataset.PrecursorResult{Stage: stage, Signal: signal, Category: category, Winner: winner, Tier: string(tier)}
}

func testPrecursors() *dataset.PrecursorTable {
	return &dataset.PrecursorTable{
		Ceremony: 2026,
		Results: []dataset.PrecursorResult{
			result("golden_globes", "gg_drama_picture", "best_picture", "Hamnet", models.TierDrama),
			result("golden_globes", "gg_director", "best_director", "Chloe Zhao", models.TierDirector),
			result("bafta", "bafta_picture", "best_picture", "Sinners", models.TierDrama),
			result("bafta", "bafta_animated", "best_animated_feature", "KPop Demon Hunters", models.TierUngrouped),
		},
	}
}

func testConfig() Config {
	return Config{
		Stages:  []string{"golden_globes", "bafta"},
		Workers: 2,
		Matcher: blend.ExactMatcher(),
	}
}

func TestRunAccumulatesStages(t *testing.T) {
	sink := newMemorySink()
	o := New(testConfig(), sink, quietLogger())

	report, err := o.Run(context.Background(), uuid.New(), Inputs{Base: testBase(), Precursors: testPrecursors()})
	require.NoError(t, err)
	require.Len(t, report.Stages, 2)
	assert.Equal(t, 1, sink.bases)
	assert.Len(t, report.BaseSHA256, 64)

	gg := sink.stages["golden_globes"]["best_picture"]
	require.NotNil(t, gg)
	assert.Equal(t, "Hamnet", gg.Top().Candidate.CandidateID)
	assert.InDelta(t, 0.488, gg.Top().FinalProbability, 1e-3)
	sinners, _ := gg.Lookup("Sinners")
	assert.False(t, sinners.Boosted())

	bafta := sink.stages["bafta"]["best_picture"]
	require.NotNil(t, bafta)
	hamnet, _ := bafta.Lookup("Hamnet")
	sinners, _ = bafta.Lookup("Sinners")
	assert.Equal(t, []string{"gg_drama_picture"}, hamnet.AppliedBoosts)
	assert.Equal(t, []string{"bafta_picture"}, sinners.AppliedBoosts)
	assert.Equal(t, "Sinners", bafta.Top().Candidate.CandidateID)

	// Diacritic-insensitive person match
	director := sink.stages["golden_globes"]["best_director"]
	zhao, _ := director.Lookup("zhao")
	assert.True(t, zhao.HasBoost("gg_director"))
}

func TestRunStagesOnlySeeEarlierSignals(t *testing.T) {
	sink := newMemorySink()
	report, err := New(testConfig(), sink, quietLogger()).Run(context.Background(), uuid.New(),
		Inputs{Base: testBase(), Precursors: testPrecursors()})
	require.NoError(t, err)

	for _, dist := range report.Stages[0].Distributions {
		for _, e := range dist.Entries {
			assert.NotContains(t, e.AppliedBoosts, "bafta_picture")
		}
	}
}

func TestRunIsRepeatable(t *testing.T) {
	in := Inputs{Base: testBase(), Precursors: testPrecursors()}
	first, err := New(testConfig(), newMemorySink(), quietLogger()).Run(context.Background(), uuid.New(), in)
	require.NoError(t, err)
	second, err := New(testConfig(), newMemorySink(), quietLogger()).Run(context.Background(), uuid.New(), in)
	require.NoError(t, err)

	assert.Equal(t, first.BaseSHA256, second.BaseSHA256)
	for i := range first.Stages {
		for j, dist := range first.Stages[i].Distributions {
			assert.Equal(t, dist.Probabilities(), second.Stages[i].Distributions[j].Probabilities())
		}
	}
}

func TestRunSkipsInvalidCategory(t *testing.T) {
	base := testBase().WithCategory("best_song", []models.Candidate{
		film("best_song", "Golden", 0),
		film("best_song", "Dear Me", 0),
	})
	sink := newMemorySink()

	report, err := New(testConfig(), sink, quietLogger()).Run(context.Background(), uuid.New(), Inputs{Base: base})
	require.NoError(t, err)

	final := report.Final()
	require.NotNil(t, final)
	assert.Len(t, final.Distributions, 2)
	require.Contains(t, final.Skipped, "best_song")
	assert.ErrorIs(t, final.Skipped["best_song"], models.ErrInvalidInput)
	assert.Equal(t, []string{"best_song"}, sink.skipped["bafta"])
}

func TestRunAbortsOnAmbiguousMatch(t *testing.T) {
	cfg := testConfig()
	cfg.Matcher = blend.Matcher{Mode: blend.MatchSubstring}
	precursors := &dataset.PrecursorTable{Results: []dataset.PrecursorResult{
		result("golden_globes", "gg_director", "best_director", "o", models.TierDirector),
	}}

	_, err := New(cfg, newMemorySink(), quietLogger()).Run(context.Background(), uuid.New(),
		Inputs{Base: testBase(), Precursors: precursors})
	assert.ErrorIs(t, err, models.ErrAmbiguousMatch)
}

func TestRunSentimentStage(t *testing.T) {
	cfg := testConfig()
	cfg.Stages = []string{"golden_globes", "sentiment"}
	cfg.SentimentStage = "sentiment"
	s := blend.DefaultSentimentBoost()
	cfg.Sentiment = &s

	in := Inputs{
		Base:      testBase(),
		Sentiment: []dataset.SentimentScore{{Category: "general", Target: "Bugonia", Score: 0.9}},
		SentimentCategories: map[string]string{
			"best_picture": "general",
		},
	}
	sink := newMemorySink()
	_, err := New(cfg, sink, quietLogger()).Run(context.Background(), uuid.New(), in)
	require.NoError(t, err)

	before, _ := sink.stages["golden_globes"]["best_picture"].Lookup("Bugonia")
	after, _ := sink.stages["sentiment"]["best_picture"].Lookup("Bugonia")
	assert.Equal(t, 1.0, before.SentimentFactor)
	assert.Equal(t, 1.3, after.SentimentFactor)
	assert.Greater(t, after.FinalProbability, before.FinalProbability)
}

func TestRunFillsBaseFromModel(t *testing.T) {
	width := len(features.NominationNames)
	model := &ml.LogisticModel{
		Version:      "test",
		FeatureNames: features.NominationNames,
		Weights:      make([]float64, width+1),
		Means:        make([]float64, width),
		Scales:       make([]float64, width),
	}
	for i := range model.Scales {
		model.Scales[i] = 1
	}
	scorer := ml.NewScorer(model, ml.NewPredictionCache(time.Minute, 100), quietLogger())

	sink := newMemorySink()
	report, err := New(testConfig(), sink, quietLogger(), WithScorer(scorer)).Run(context.Background(), uuid.New(),
		Inputs{Base: testBase()})
	require.NoError(t, err)

	// A zero-weight model scores every nominee 0.5, so priors are uniform
	dist := report.Stages[0].Distributions[0]
	for _, e := range dist.Entries {
		assert.InDelta(t, 0.5, e.BaseProbability, 1e-12)
		assert.InDelta(t, 1.0/3, e.FinalProbability, 1e-9)
	}
}

func TestRunWritesThroughDatasetSink(t *testing.T) {
	root := t.TempDir()
	runID := uuid.New()
	sink := dataset.NewSink(root, runID, testConfig().Stages, false)

	_, err := New(testConfig(), sink, quietLogger()).Run(context.Background(), runID,
		Inputs{Base: testBase(), Precursors: testPrecursors()})
	require.NoError(t, err)

	dists, err := dataset.ReadStage(filepath.Join(root, "bafta"))
	require.NoError(t, err)
	assert.Len(t, dists, 2)

	// Running again over the same base leaves the snapshot in place
	_, err = New(testConfig(), dataset.NewSink(root, uuid.New(), testConfig().Stages, false), quietLogger()).
		Run(context.Background(), uuid.New(), Inputs{Base: testBase(), Precursors: testPrecursors()})
	require.NoError(t, err)

	changed := testBase().WithCategory("best_picture", []models.Candidate{film("best_picture", "Marty Supreme", 9)})
	_, err = New(testConfig(), dataset.NewSink(root, uuid.New(), testConfig().Stages, false), quietLogger()).
		Run(context.Background(), uuid.New(), Inputs{Base: changed})
	assert.ErrorIs(t, err, dataset.ErrBaseSnapshotChanged)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(testConfig(), newMemorySink(), quietLogger()).Run(ctx, uuid.New(), Inputs{Base: testBase()})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollectSignals(t *testing.T) {
	signals, err := CollectSignals(testBase(), testPrecursors(), []string{"golden_globes"}, blend.ExactMatcher(), blend.NewBlender())
	require.NoError(t, err)

	assert.Len(t, signals["best_picture"]["Hamnet"], 1)
	assert.Empty(t, signals["best_picture"]["Sinners"])
	assert.Len(t, signals["best_director"]["zhao"], 1)
	assert.NotContains(t, signals, "best_animated_feature")

	all, err := CollectSignals(testBase(), testPrecursors(), []string{"golden_globes", "bafta"}, blend.ExactMatcher(), blend.NewBlender())
	require.NoError(t, err)
	assert.Len(t, all["best_picture"]["Sinners"], 1)
}

func TestRunReportsUnconfiguredPrecursorStages(t *testing.T) {
	table := testPrecursors()
	table.Results = append(table.Results,
		result("critics_choice", "cc_picture", "best_picture", "Hamnet", models.TierDrama))

	report, err := New(testConfig(), newMemorySink(), quietLogger()).
		Run(context.Background(), uuid.New(), Inputs{Base: testBase(), Precursors: table})
	require.NoError(t, err)
	assert.Equal(t, []string{"critics_choice"}, report.IgnoredStages)

	report, err = New(testConfig(), newMemorySink(), quietLogger()).
		Run(context.Background(), uuid.New(), Inputs{Base: testBase(), Precursors: testPrecursors()})
	require.NoError(t, err)
	assert.Empty(t, report.IgnoredStages)
}
