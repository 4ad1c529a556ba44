package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/oscar-odds/internal/config"
	"github.com/yourusername/oscar-odds/internal/dataset"
)

const testdataDir = "../../internal/dataset/testdata"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c, err := config.LoadWithDefaults(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	c.Data.Candidates = filepath.Join(testdataDir, "candidates.csv")
	c.Data.Precursors = filepath.Join(testdataDir, "precursors.yaml")
	c.Data.Sentiment = filepath.Join(testdataDir, "sentiment.csv")
	c.Data.SentimentCategories = map[string]string{"best_picture": "general"}
	c.Blend.Sentiment.Enabled = true
	c.Pipeline.OutputDir = t.TempDir()
	c.Pipeline.WriteWorkbook = true
	require.NoError(t, config.Validate(c))
	return c
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestRunOnceWritesEveryArtifact(t *testing.T) {
	c := testConfig(t)
	out := c.Pipeline.OutputDir

	rep, err := runOnce(context.Background(), c, quietLogger(), nil, out)
	require.NoError(t, err)
	require.Len(t, rep.Stages, 4)
	assert.Equal(t, "sentiment", rep.Final().Stage)
	assert.NotEmpty(t, rep.BaseSHA256)

	for _, rel := range []string{
		"base/candidates.csv",
		"golden_globes/best_picture.csv",
		"bafta/best_original_score.csv",
		"guild/best_supporting_actress.csv",
		"sentiment/best_picture.csv",
		"manifest.yaml",
		"predictions.xlsx",
		"summary.csv",
	} {
		_, err := os.Stat(filepath.Join(out, rel))
		assert.NoError(t, err, rel)
	}
}

func TestRunOnceStagesAccumulate(t *testing.T) {
	c := testConfig(t)
	out := c.Pipeline.OutputDir

	_, err := runOnce(context.Background(), c, quietLogger(), nil, out)
	require.NoError(t, err)

	gg, err := dataset.ReadDistribution(filepath.Join(out, "golden_globes", "best_picture.csv"))
	require.NoError(t, err)
	assert.Equal(t, "hamnet", gg.Entries[0].Candidate.CandidateID)
	assert.InDelta(t, 0.488, gg.Entries[0].FinalProbability, 0.001)

	bafta, err := dataset.ReadDistribution(filepath.Join(out, "bafta", "best_picture.csv"))
	require.NoError(t, err)
	assert.Equal(t, "sinners", bafta.Entries[0].Candidate.CandidateID)
	assert.InDelta(t, 27.0/45.2, bafta.Entries[0].FinalProbability, 0.001)

	final, err := dataset.ReadDistribution(filepath.Join(out, "sentiment", "best_picture.csv"))
	require.NoError(t, err)
	assert.Equal(t, "sinners", final.Entries[0].Candidate.CandidateID)
	assert.Greater(t, final.Entries[0].FinalProbability, bafta.Entries[0].FinalProbability)
}

func TestRunOnceMissingCandidates(t *testing.T) {
	c := testConfig(t)
	c.Data.Candidates = filepath.Join(testdataDir, "nope.csv")

	_, err := runOnce(context.Background(), c, quietLogger(), nil, c.Pipeline.OutputDir)
	assert.Error(t, err)
}

func TestPipelineConfigFromConfig(t *testing.T) {
	c := testConfig(t)
	c.Blend.BoostFactors = map[string]float64{"drama": 2.0}

	pcfg, err := pipelineConfig(c)
	require.NoError(t, err)
	assert.Equal(t, c.Pipeline.Stages, pcfg.Stages)
	assert.Equal(t, "sentiment", pcfg.SentimentStage)
	require.NotNil(t, pcfg.Sentiment)

	f, err := pcfg.BoostTable.Factor("drama")
	require.NoError(t, err)
	assert.Equal(t, 2.0, f)

	c.Blend.MatchMode = "fuzzy"
	_, err = pipelineConfig(c)
	assert.Error(t, err)
}

func TestNewScorerDisabled(t *testing.T) {
	c := testConfig(t)
	scorer, err := newScorer(c, quietLogger())
	require.NoError(t, err)
	assert.Nil(t, scorer)

	c.Model.Enabled = true
	c.Model.Path = filepath.Join(t.TempDir(), "missing.json")
	_, err = newScorer(c, quietLogger())
	assert.Error(t, err)
}
