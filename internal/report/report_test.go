package report

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/oscar-odds/internal/blend"
	"github.com/yourusername/oscar-odds/internal/models"
)

func pictures(t *testing.T, signals blend.SignalSet) *models.CategoryDistribution {
	t.Helper()
	dist, err := blend.Blend([]models.Candidate{
		{CategoryID: "best_picture", CandidateID: "sinners", Nominee: models.Work("Sinners"), RawNominationCount: 15},
		{CategoryID: "best_picture", CandidateID: "hamnet", Nominee: models.Work("Hamnet"), RawNominationCount: 9},
		{CategoryID: "best_picture", CandidateID: "bugonia", Nominee: models.Work("Bugonia"), RawNominationCount: 2},
	}, signals)
	require.NoError(t, err)
	return dist
}

func director(t *testing.T) *models.CategoryDistribution {
	t.Helper()
	dist, err := blend.Blend([]models.Candidate{
		{CategoryID: "best_director", CandidateID: "zhao", Nominee: models.Person("Chloé Zhao", "Hamnet"), RawNominationCount: 1},
		{CategoryID: "best_director", CandidateID: "coogler", Nominee: models.Person("Ryan Coogler", "Sinners"), RawNominationCount: 1},
	}, nil)
	require.NoError(t, err)
	return dist
}

func TestDistributionStats(t *testing.T) {
	st, err := DistributionStats(pictures(t, nil))
	require.NoError(t, err)

	assert.InDelta(t, 15.0/26, st.Max, 1e-9)
	assert.InDelta(t, 9.0/26, st.Median, 1e-9)
	assert.InDelta(t, 6.0/26, st.Margin, 1e-9)
	assert.Greater(t, st.StdDev, 0.0)

	uniform, err := DistributionStats(director(t))
	require.NoError(t, err)
	assert.InDelta(t, math.Log(2), uniform.Entropy, 1e-9)
	assert.InDelta(t, 0.0, uniform.Margin, 1e-12)
}

func TestSummarize(t *testing.T) {
	boosted := pictures(t, blend.SignalSet{"hamnet": {{SignalName: "gg_drama_picture", Won: true, Tier: models.TierDrama}}})
	rows, err := Summarize([]*models.CategoryDistribution{boosted, director(t)})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "best_director", rows[0].Category)
	assert.Equal(t, "Chloé Zhao", rows[0].Winner)
	assert.False(t, rows[0].Boosted)

	assert.Equal(t, "Hamnet", rows[1].Winner)
	assert.True(t, rows[1].Boosted)
	assert.InDelta(t, 0.488, rows[1].Probability, 1e-3)
}

func TestGenerateConsoleReport(t *testing.T) {
	boosted := pictures(t, blend.SignalSet{"hamnet": {{SignalName: "gg_drama_picture", Won: true, Tier: models.TierDrama}}})
	out := GenerateConsoleReport("golden_globes", []*models.CategoryDistribution{boosted}, 2)

	assert.Contains(t, out, "Predictions after golden_globes")
	assert.Contains(t, out, "1. Hamnet")
	assert.Contains(t, out, "[gg_drama_picture]")
	assert.NotContains(t, out, "Bugonia")
}

func TestGenerateSummaryTable(t *testing.T) {
	rows, err := Summarize([]*models.CategoryDistribution{pictures(t, nil)})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(GenerateSummaryTable(rows)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "Sinners")
	assert.Contains(t, lines[1], "57.7%")
}

func TestWriteSummaryCSV(t *testing.T) {
	rows, err := Summarize([]*models.CategoryDistribution{pictures(t, nil)})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out", "summary.csv")
	require.NoError(t, WriteSummaryCSV(rows, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "best_picture,Sinners,Sinners,0.5769,false")
}
